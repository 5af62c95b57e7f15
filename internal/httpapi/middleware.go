// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/logging"
	"github.com/movex/movex/internal/observability"
	"github.com/movex/movex/pkg/api"
)

type ctxKey int

const principalKey ctxKey = iota

type principal struct {
	user   *auth.User
	claims *auth.Claims
	token  string
}

func withPrincipal(ctx context.Context, p *principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func principalFrom(ctx context.Context) (*principal, bool) {
	p, ok := ctx.Value(principalKey).(*principal)
	return p, ok
}

// observe records the access log line and request metrics, and attaches a
// request-scoped logger to the context.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", elapsed),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

// requireAuth admits requests carrying a valid, unrevoked token for an
// account of the given kind.
func (s *Server) requireAuth(kind auth.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" {
				s.metrics.RecordAuthEvent(kind.String(), observability.EventAuthenticate, "TOKEN_MISSING")
				s.writeError(w, r, oops.Code("TOKEN_MISSING").Wrap(auth.ErrTokenMissing))
				return
			}

			user, claims, err := s.service.Authenticate(r.Context(), kind, token)
			s.metrics.RecordAuthEvent(kind.String(), observability.EventAuthenticate, outcome(err))
			if err != nil {
				s.writeError(w, r, err)
				return
			}

			ctx := withPrincipal(r.Context(), &principal{user: user, claims: claims, token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestToken reads the token from the Authorization header, falling back
// to the token cookie.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(api.TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// originMatcher decides CORS and websocket origin checks.
type originMatcher struct {
	any      bool
	patterns []glob.Glob
}

func newOriginMatcher(origins []string) (*originMatcher, error) {
	m := &originMatcher{}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
			continue
		case "*":
			m.any = true
			continue
		}
		g, err := glob.Compile(o, '.')
		if err != nil {
			return nil, oops.Code("CORS_ORIGIN_INVALID").With("origin", o).Wrap(err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

func (m *originMatcher) allow(origin string) bool {
	if m.any {
		return true
	}
	for _, g := range m.patterns {
		if g.Match(origin) {
			return true
		}
	}
	return false
}
