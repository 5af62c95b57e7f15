// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/logging"
	"github.com/movex/movex/pkg/api"
	"github.com/movex/movex/pkg/errutil"
)

// errBadBody marks undecodable request bodies.
var errBadBody = errors.New("request body is not valid JSON")

// tokenErrors pairs each token sentinel with the code reported when the
// error chain carries none.
var tokenErrors = []struct {
	err  error
	code string
}{
	{auth.ErrTokenMissing, "TOKEN_MISSING"},
	{auth.ErrTokenExpired, "TOKEN_EXPIRED"},
	{auth.ErrTokenRevoked, "TOKEN_REVOKED"},
	{auth.ErrTokenKindMismatch, api.CodeTokenKindMismatch},
	{auth.ErrTokenInvalid, "TOKEN_INVALID"},
}

// errorResponse maps err onto a status and body. Only 5xx responses hide
// the underlying message.
func errorResponse(err error) (int, api.ErrorResponse) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, api.ErrorResponse{
			Error:  "Validation failed",
			Code:   "AUTH_VALIDATION_FAILED",
			Fields: verr.Fields,
		}
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, api.ErrorResponse{Error: errBadBody.Error(), Code: "HTTP_INVALID_BODY"}
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, api.ErrorResponse{Error: "Email is already registered", Code: "AUTH_EMAIL_TAKEN"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, api.ErrorResponse{Error: "Invalid email or password", Code: "AUTH_INVALID_CREDENTIALS"}
	}

	for _, te := range tokenErrors {
		if errors.Is(err, te.err) {
			return http.StatusUnauthorized, api.ErrorResponse{Error: te.err.Error(), Code: te.code}
		}
	}
	return http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error", Code: "INTERNAL"}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(logging.FromContext(r.Context()), "request failed",
			oops.With("method", r.Method).With("path", r.URL.Path).Wrap(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return oops.Code("HTTP_INVALID_BODY").With("cause", err.Error()).Wrap(errBadBody)
	}
	return nil
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if code := errutil.Code(err); code != "" {
		return code
	}
	return "error"
}
