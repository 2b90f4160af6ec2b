package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and request ID, then
// returned to the client as the user-friendly message and code from
// core.MapError.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/entitlement"
	"github.com/JonMunkholm/royalty/internal/reconcile"
	"github.com/JonMunkholm/royalty/internal/store"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor picks the HTTP status of a service error.
func statusFor(err error) int {
	var verr core.ValidationError
	var verrs core.ValidationErrors
	var missing *reconcile.MissingFieldError
	var invalid *reconcile.InvalidFieldError

	switch {
	case errors.Is(err, entitlement.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &verr), errors.As(err, &verrs),
		errors.As(err, &missing), errors.As(err, &invalid),
		errors.Is(err, reconcile.ErrMissingTenant),
		errors.Is(err, reconcile.ErrUnsupportedKind),
		errors.Is(err, reconcile.ErrDataNotArray):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
