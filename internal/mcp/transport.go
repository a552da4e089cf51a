package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/middleware"
	"github.com/noah-isme/campus-tools/internal/repository"
	"github.com/noah-isme/campus-tools/pkg/middleware/requestid"
)

type sessionStore interface {
	Create(ctx context.Context, id string) error
	State(ctx context.Context, id string) (string, error)
	Terminate(ctx context.Context, id string) error
}

// SessionManager issues Streamable HTTP session ids and keeps their state in a shared
// store so any replica can serve a session.
type SessionManager struct {
	store   sessionStore
	logger  *zap.Logger
	timeout time.Duration
}

var _ server.SessionIdManager = (*SessionManager)(nil)

// NewSessionManager constructs a SessionManager backed by store.
func NewSessionManager(store sessionStore, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{store: store, logger: logger, timeout: 2 * time.Second}
}

// Generate creates and records a new session id. A store failure still yields an id; the
// session will then fail validation on its next request.
func (m *SessionManager) Generate() string {
	id := "mcp-session-" + uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.store.Create(ctx, id); err != nil {
		m.logger.Error("create mcp session", zap.String("session_id", id), zap.Error(err))
	}
	return id
}

// Validate reports whether id was terminated. Unknown ids are an error.
func (m *SessionManager) Validate(id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	state, err := m.store.State(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, fmt.Errorf("invalid session id %q", id)
		}
		return false, err
	}
	return state == repository.SessionTerminated, nil
}

// Terminate marks id as terminated. Termination is always allowed.
func (m *SessionManager) Terminate(id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.store.Terminate(ctx, id); err != nil {
		return false, err
	}
	m.logger.Info("mcp session terminated", zap.String("session_id", id))
	return false, nil
}

// NewHTTPHandler wraps srv in a Streamable HTTP handler. sessions may be nil, in which case
// the library's in-process session ids are used.
func NewHTTPHandler(srv *server.MCPServer, sessions server.SessionIdManager) *server.StreamableHTTPServer {
	opts := []server.StreamableHTTPOption{
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(requestContext),
	}
	if sessions != nil {
		opts = append(opts, server.WithSessionIdManager(sessions))
	}
	return server.NewStreamableHTTPServer(srv, opts...)
}

// requestContext carries the caller identity and request id set by the gin chain into
// tool handler contexts.
func requestContext(ctx context.Context, r *http.Request) context.Context {
	if principal := middleware.PrincipalFromContext(r.Context()); principal != nil {
		ctx = middleware.WithPrincipal(ctx, principal)
	}
	if id := requestid.FromContext(r.Context()); id != "" {
		ctx = requestid.WithValue(ctx, id)
	}
	return ctx
}

// ServeStdio runs srv over in and out until ctx is cancelled or in reaches EOF. Library
// diagnostics go to logger since out carries the protocol.
func ServeStdio(ctx context.Context, srv *server.MCPServer, in io.Reader, out io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(zap.NewStdLog(logger.Named("stdio")))
	err := stdio.Listen(ctx, in, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

