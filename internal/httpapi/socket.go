// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/logging"
	"github.com/movex/movex/pkg/api"
	"github.com/movex/movex/pkg/errutil"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = (socketPongWait * 9) / 10
	socketReadLimit  = 512
	detachTimeout    = 5 * time.Second
)

// handleSocket upgrades an authenticated request to the presence socket.
// The account's socketId is set for the life of the connection. Inbound
// frames are read only to detect disconnects.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		token = r.URL.Query().Get(api.TokenCookie)
	}
	if token == "" {
		s.writeError(w, r, oops.Code("TOKEN_MISSING").Wrap(auth.ErrTokenMissing))
		return
	}
	user, _, err := s.service.Authenticate(r.Context(), "", token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !s.acquireSocket() {
		writeJSON(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: "Server is shutting down", Code: "HTTP_SHUTTING_DOWN"})
		return
	}
	defer s.sockets.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logging.FromContext(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // best effort

	logger := logging.FromContext(r.Context())
	socketID := uuid.NewString()
	if err := s.service.AttachSocket(r.Context(), user.ID, socketID); err != nil {
		errutil.LogError(logger, "socket attach failed", err)
		closeSocket(conn, websocket.CloseInternalServerErr, "presence unavailable")
		return
	}
	s.metrics.SocketOpened()
	logger.Info("socket opened", "user_id", user.ID.String(), "socket_id", socketID)

	defer func() {
		s.metrics.SocketClosed()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), detachTimeout)
		defer cancel()
		if err := s.service.DetachSocket(ctx, user.ID, socketID); err != nil {
			errutil.LogError(logger, "socket detach failed", err)
		}
		logger.Info("socket closed", "user_id", user.ID.String(), "socket_id", socketID)
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	if err := conn.WriteJSON(api.SocketHello{SocketID: socketID, UserID: user.ID.String()}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.pingSocket(conn, done)

	conn.SetReadLimit(socketReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Debug("socket read ended", "error", err)
			}
			return
		}
	}
}

// pingSocket keeps the connection alive until done closes, and closes the
// connection when the server shuts down.
func (s *Server) pingSocket(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-s.closing:
			closeSocket(conn, websocket.CloseGoingAway, "server shutting down")
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}

func closeSocket(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(socketWriteWait))
}
