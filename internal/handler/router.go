package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/middleware"
	"github.com/noah-isme/campus-tools/internal/service"
	"github.com/noah-isme/campus-tools/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-tools/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-tools/pkg/middleware/requestid"
)

// RouterConfig carries everything NewRouter mounts. Nil handlers leave their routes out.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	MaxDuration    time.Duration
	EnableDocs     bool

	Logger  *zap.Logger
	Auth    *service.AuthService
	Metrics *service.MetricsService

	MCP           http.Handler
	Leave         *LeaveHandler
	Course        *CourseHandler
	Observability *MetricsHandler
}

// NewRouter assembles the gin engine serving the MCP endpoint, the REST mirror of the tools
// and the operational endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Observability == nil {
		cfg.Observability = NewMetricsHandler(cfg.Metrics, nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics, "/metrics"))

	r.GET("/health", cfg.Observability.Health)
	r.GET("/ready", cfg.Observability.Ready)
	r.GET("/metrics", cfg.Observability.Prometheus)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// The MCP handler streams responses, so it sits outside the per-request timeout;
	// tool calls are bounded by the tool middleware instead.
	if cfg.MCP != nil {
		r.Any("/mcp", middleware.Auth(cfg.Auth), gin.WrapH(cfg.MCP))
	}

	if cfg.Leave == nil && cfg.Course == nil {
		return r
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Auth(cfg.Auth))
	api.Use(middleware.Timeout(cfg.MaxDuration))
	api.Use(middleware.WithResponseMeta())

	if cfg.Leave != nil {
		employees := api.Group("/employees/:id")
		employees.GET("/leave-balance", cfg.Leave.Balance)
		employees.POST("/leaves", cfg.Leave.Apply)
		employees.GET("/leave-history", cfg.Leave.History)
		employees.GET("/leave-history/export", cfg.Leave.Export)
	}
	if cfg.Course != nil {
		api.GET("/courses", cfg.Course.Search)
		api.GET("/courses/:term/:classNumber", cfg.Course.Details)
	}
	return r
}
