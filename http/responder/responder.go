package responder

import (
	"net/http"

	"github.com/leeforge/fresson/http/middleware"
	"github.com/leeforge/fresson/json"
	"github.com/leeforge/fresson/logging"
	"go.uber.org/zap"
)

// requestMeta fills trace ID and duration from the request context.
func requestMeta(r *http.Request, opts ...Option) Meta {
	meta := Meta{}
	if r != nil {
		meta.TraceId = logging.GetTraceID(r.Context())
		meta.Took = middleware.GetRequestDuration(r.Context())
	}
	for _, opt := range opts {
		opt(&meta)
	}
	return meta
}

// writeJSON is the internal helper for all global functions
func writeJSON(w http.ResponseWriter, status int, payload Response) {
	raw, err := json.Marshal(payload)
	if err != nil {
		fallback := []byte("{\"error\":{\"code\":5000,\"message\":\"encode failed\"}}")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(fallback)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	writeJSON(w, status, Response{
		Data: data,
		Meta: requestMeta(r, opts...),
	})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err ErrorBody, opts ...Option) {
	writeJSON(w, status, Response{
		Error: &err,
		Meta:  requestMeta(r, opts...),
	})
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// Created responds with 201 Created and data
func Created(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusCreated, data, opts...)
}

// Error maps err to its status and envelope code. Server side failures are
// logged with the request logger.
func Error(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	status, body := FromAppError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			zap.Int("status", status),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	WriteError(w, r, status, body, opts...)
}

// BadRequest responds with 400 Bad Request
func BadRequest(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewError(ErrCodeBadRequest, message), opts...)
}

// BindError responds with 400 for requests that could not be parsed.
func BindError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewErrorWithDetails(ErrCodeBindFailed, "", details), opts...)
}

// ValidationError responds with 400 and per field details.
func ValidationError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewErrorWithDetails(ErrCodeValidationFailed, "", details), opts...)
}

// NotFound responds with 404 for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, NewError(ErrCodeRouteNotFound, ""))
}

// MethodNotAllowed responds with 405.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, NewError(ErrCodeMethodNotAllowed, ""))
}
