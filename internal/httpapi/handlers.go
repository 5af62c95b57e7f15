// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/observability"
	"github.com/movex/movex/pkg/api"
)

func (s *Server) handleRegister(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.RegisterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		session, err := s.service.Register(r.Context(), auth.Registration{
			Kind: kind,
			FullName: auth.FullName{
				FirstName: req.FullName.FirstName,
				LastName:  req.FullName.LastName,
			},
			Email:    req.Email,
			Password: req.Password,
		})
		s.metrics.RecordAuthEvent(kind.String(), observability.EventRegister, outcome(err))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.setTokenCookie(w, session.Token, session.ExpiresAt)
		writeJSON(w, http.StatusCreated, authResponse(session))
	}
}

func (s *Server) handleLogin(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		session, err := s.service.Login(r.Context(), auth.LoginInput{
			Kind:     kind,
			Email:    req.Email,
			Password: req.Password,
		})
		s.metrics.RecordAuthEvent(kind.String(), observability.EventLogin, outcome(err))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.setTokenCookie(w, session.Token, session.ExpiresAt)
		writeJSON(w, http.StatusOK, authResponse(session))
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	writeJSON(w, http.StatusOK, api.ProfileResponse{User: toAPIUser(p.user)})
}

func (s *Server) handleLogout(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalFrom(r.Context())

		err := s.service.Logout(r.Context(), p.token)
		s.metrics.RecordAuthEvent(kind.String(), observability.EventLogout, outcome(err))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.clearTokenCookie(w)
		writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Logged out"})
	}
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func authResponse(session *auth.Session) api.AuthResponse {
	return api.AuthResponse{
		User:      toAPIUser(session.User),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}
}

func toAPIUser(u *auth.User) api.User {
	return api.User{
		ID:   u.ID.String(),
		Kind: u.Kind.String(),
		FullName: api.FullName{
			FirstName: u.FullName.FirstName,
			LastName:  u.FullName.LastName,
		},
		Email:     u.Email,
		SocketID:  u.SocketID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
