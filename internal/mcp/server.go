// Package mcp exposes the leave and course services as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/middleware"
	"github.com/noah-isme/campus-tools/internal/service"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
	"github.com/noah-isme/campus-tools/pkg/middleware/requestid"
)

const errorPrefix = "Error: "

// Options carries the collaborators needed to build the tool server.
type Options struct {
	Name        string
	Version     string
	MaxDuration time.Duration
	Leave       *service.LeaveService
	Course      *service.CourseService
	Metrics     *service.MetricsService
	Logger      *zap.Logger
}

// NewServer builds an MCP server with every tool registered.
func NewServer(opts Options) *server.MCPServer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "campus-tools"
	}

	srv := server.NewMCPServer(opts.Name, opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(toolMiddleware(opts.Logger, opts.Metrics, opts.MaxDuration)),
		server.WithInstructions("Employee leave balances and university class search."),
	)

	if opts.Leave != nil {
		registerLeaveTools(srv, opts.Leave)
	}
	if opts.Course != nil {
		registerCourseTools(srv, opts.Course)
	}
	return srv
}

// toolMiddleware bounds each call by maxDuration and records one log line and metric sample
// per invocation.
func toolMiddleware(logger *zap.Logger, metrics *service.MetricsService, maxDuration time.Duration) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if maxDuration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, maxDuration)
				defer cancel()
			}

			start := time.Now()
			result, err := next(ctx, req)
			duration := time.Since(start)
			outcome := callOutcome(result, err)
			metrics.ObserveToolCall(req.Params.Name, outcome, duration)

			fields := []zap.Field{
				zap.String("tool", req.Params.Name),
				zap.String("outcome", outcome),
				zap.Duration("duration", duration),
			}
			if id := requestid.FromContext(ctx); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if principal := middleware.PrincipalFromContext(ctx); principal != nil {
				fields = append(fields, zap.String("principal", principal.ID), zap.String("auth_method", principal.Method))
			}
			if session := server.ClientSessionFromContext(ctx); session != nil {
				fields = append(fields, zap.String("session_id", session.SessionID()))
			}
			if err != nil {
				logger.Error("tool_call", append(fields, zap.Error(err))...)
			} else {
				logger.Info("tool_call", fields...)
			}
			return result, err
		}
	}
}

func callOutcome(result *mcp.CallToolResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result == nil:
		return "error"
	case result.IsError:
		return "invalid"
	}
	if text := firstText(result); strings.HasPrefix(text, errorPrefix) {
		return "error"
	}
	return "ok"
}

func firstText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(mcp.TextContent); ok {
		return text.Text
	}
	return ""
}

// render converts a service response into a tool result. Validation failures become
// protocol-visible tool errors; every other failure is reported as ordinary text.
func render(text string, err error) (*mcp.CallToolResult, error) {
	if err == nil {
		return mcp.NewToolResultText(text), nil
	}
	appErr := appErrors.FromError(err)
	if errors.Is(err, appErrors.ErrValidation) {
		return mcp.NewToolResultError(appErr.Message), nil
	}
	message := appErr.Message
	if message == "" {
		message = "An unexpected error occurred"
	}
	return mcp.NewToolResultText(errorPrefix + message), nil
}

func invalidArgs(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
