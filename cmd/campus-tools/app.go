package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/handler"
	toolserver "github.com/noah-isme/campus-tools/internal/mcp"
	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/repository"
	"github.com/noah-isme/campus-tools/internal/service"
	"github.com/noah-isme/campus-tools/pkg/cache"
	"github.com/noah-isme/campus-tools/pkg/config"
	"github.com/noah-isme/campus-tools/pkg/database"
)

const cachePrefix = "campus-tools:"

type leaveStore interface {
	service.LeaveRepository
	Seed(ctx context.Context, accounts []models.LeaveAccount) error
}

// app holds the wired services shared by every transport.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	redis *redis.Client
	db    *sqlx.DB

	metrics  *service.MetricsService
	auth     *service.AuthService
	leave    *service.LeaveService
	course   *service.CourseService
	exporter *service.ExportService
	tools    *server.MCPServer
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logr}

	needRedis := cfg.Leave.Store == config.LeaveStoreRedis || cfg.Redis.SessionStoreEnabled
	if cfg.Redis.Configured() {
		client, err := cache.NewRedis(cfg.Redis)
		switch {
		case err == nil:
			a.redis = client
		case needRedis:
			return nil, fmt.Errorf("connect redis: %w", err)
		default:
			logr.Warn("redis unavailable, course cache disabled", zap.Error(err))
		}
	}

	if cfg.Leave.Store == config.LeaveStorePostgres {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.db = db
	}

	store, err := a.leaveStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.metrics = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	if a.redis != nil && cfg.Course.CacheEnabled {
		cacheRepo = repository.NewCacheRepository(a.redis, cachePrefix)
	}
	cacheSvc := service.NewCacheService(cacheRepo, a.metrics, cfg.Course.CacheTTL, logr.Named("cache"), cfg.Course.CacheEnabled)

	validate := service.NewValidator()
	a.auth = service.NewAuthService(cfg.Auth, logr.Named("auth"))
	a.leave = service.NewLeaveService(store, validate, a.metrics, logr.Named("leave"))
	a.exporter = service.NewExportService(store, logr.Named("export"))
	a.course = service.NewCourseService(cfg.Course, &http.Client{}, cacheSvc, validate, a.metrics, logr.Named("course"))

	a.tools = toolserver.NewServer(toolserver.Options{
		Name:        cfg.ServerName,
		Version:     cfg.ServerVersion,
		MaxDuration: cfg.MaxDuration,
		Leave:       a.leave,
		Course:      a.course,
		Metrics:     a.metrics,
		Logger:      logr.Named("mcp"),
	})
	return a, nil
}

func (a *app) leaveStore(ctx context.Context) (leaveStore, error) {
	var store leaveStore
	switch a.cfg.Leave.Store {
	case config.LeaveStoreRedis:
		store = repository.NewRedisLeaveRepository(a.redis)
	case config.LeaveStorePostgres:
		pg := repository.NewPostgresLeaveRepository(a.db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure leave schema: %w", err)
		}
		store = pg
	default:
		store = repository.NewMemoryLeaveRepository(nil)
	}

	if a.cfg.Leave.Seed {
		if err := store.Seed(ctx, models.DefaultLeaveAccounts()); err != nil {
			return nil, fmt.Errorf("seed leave store: %w", err)
		}
	}
	a.logger.Info("leave store ready", zap.String("store", a.cfg.Leave.Store), zap.Bool("seeded", a.cfg.Leave.Seed))
	return store, nil
}

// router builds the HTTP surface around the tool server.
func (a *app) router() http.Handler {
	var sessions server.SessionIdManager
	if a.redis != nil && a.cfg.Redis.SessionStoreEnabled {
		store := repository.NewSessionRepository(a.redis, a.cfg.Redis.SessionTTL)
		sessions = toolserver.NewSessionManager(store, a.logger.Named("sessions"))
	}

	checks := map[string]handler.ReadinessCheck{}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}

	cfg := handler.RouterConfig{
		APIPrefix:      a.cfg.APIPrefix,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		MaxDuration:    a.cfg.MaxDuration,
		EnableDocs:     a.cfg.Env != config.EnvProduction,
		Logger:         a.logger,
		Auth:           a.auth,
		Metrics:        a.metrics,
		MCP:            toolserver.NewHTTPHandler(a.tools, sessions),
		Observability:  handler.NewMetricsHandler(a.metrics, checks),
	}
	if a.cfg.RESTEnabled {
		cfg.Leave = handler.NewLeaveHandler(a.leave, a.exporter)
		cfg.Course = handler.NewCourseHandler(a.course)
	}
	return handler.NewRouter(cfg)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close postgres", zap.Error(err))
		}
	}
}
