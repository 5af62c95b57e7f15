// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package httpapi exposes the account service over HTTP: sign-up, sign-in,
// profile and logout for riders and captains, plus the presence websocket.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/observability"
	"github.com/movex/movex/pkg/api"
)

// AuthService is the account behavior the API needs.
type AuthService interface {
	Register(ctx context.Context, in auth.Registration) (*auth.Session, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
	Authenticate(ctx context.Context, kind auth.Kind, token string) (*auth.User, *auth.Claims, error)
	Logout(ctx context.Context, token string) error
	AttachSocket(ctx context.Context, userID ulid.ULID, socketID string) error
	DetachSocket(ctx context.Context, userID ulid.ULID, socketID string) error
}

// Options configures a Server.
type Options struct {
	// AllowedOrigins lists CORS origins; entries may be glob patterns and
	// "*" allows any origin.
	AllowedOrigins []string
	// SecureCookies marks the token cookie Secure.
	SecureCookies bool
	Logger        *slog.Logger
	Metrics       *observability.Metrics
}

const maxBodyBytes = 1 << 20

// Server is the MoveX HTTP API.
type Server struct {
	service  AuthService
	origins  *originMatcher
	secure   bool
	logger   *slog.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	// mu orders sockets.Add against the close of closing, so no socket
	// is added once Shutdown has started waiting.
	mu        sync.Mutex
	sockets   sync.WaitGroup
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a Server. Metrics may be nil.
func New(service AuthService, opts Options) (*Server, error) {
	if service == nil {
		return nil, oops.Errorf("auth service is required")
	}
	origins, err := newOriginMatcher(opts.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		service: service,
		origins: origins,
		secure:  opts.SecureCookies,
		logger:  logger,
		metrics: opts.Metrics,
		closing: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.origins.allow(origin)
		},
	}
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(_ *http.Request, origin string) bool { return s.origins.allow(origin) },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	for _, kind := range []auth.Kind{auth.KindUser, auth.KindCaptain} {
		r.Route("/"+kind.Resource(), func(r chi.Router) {
			r.Post("/"+api.ActionRegister, s.handleRegister(kind))
			r.Post("/"+api.ActionLogin, s.handleLogin(kind))
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth(kind))
				r.Get("/"+api.ActionProfile, s.handleProfile)
				r.Post("/"+api.ActionLogout, s.handleLogout(kind))
			})
		})
	}
	r.Get(api.SocketPath, s.handleSocket)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Not found", Code: "HTTP_NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "Method not allowed", Code: "HTTP_METHOD_NOT_ALLOWED"})
	})
	return r
}

// Shutdown closes open websockets and waits for their handlers to finish
// detaching. http.Server.Shutdown does not track hijacked connections, so
// call this alongside it.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closeOnce.Do(func() { close(s.closing) })
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.sockets.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("HTTP_SHUTDOWN_TIMEOUT").Wrap(ctx.Err())
	}
}

// acquireSocket registers a socket handler with Shutdown. It returns false
// once the server is shutting down.
func (s *Server) acquireSocket() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closing:
		return false
	default:
	}
	s.sockets.Add(1)
	return true
}

// NewHTTPServer wraps h in an http.Server with the API's timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
