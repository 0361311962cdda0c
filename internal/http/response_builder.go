package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
	"finanzas/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard {"error": ...} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// badRequest marks errors from decoding the request itself.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func malformed(err error) error { return badRequest{err: err} }

// statusFor maps an error to its HTTP status and the message shown to the
// caller. Storage and other unexpected failures never leak their cause.
func statusFor(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.Error()
	case errors.Is(err, core.ErrInvalidTimeFrame), errors.Is(err, analytics.ErrInvalidDate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError logs and writes err with the status statusFor picks.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	ctx := r.Context()
	requestID := trace.GetRequestID(ctx)
	logger := log.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, log.ComponentHTTP, r.Method,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "", "").WithErrorType(log.ErrorTypeInternal))
	} else {
		logger.DebugContext(ctx, "Request rejected",
			log.FieldStatusCode, status,
			log.FieldError, err.Error())
	}
	NewJSONResponse().Status(status).Body(errorBody{Error: msg, RequestID: requestID}).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
