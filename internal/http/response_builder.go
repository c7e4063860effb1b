// Package http serves the gym back-office JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies and to turn domain errors into status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gymdesk/internal/core"
	applog "gymdesk/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

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

// Body sets the value encoded as the response body.
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
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details any    `json:"details,omitempty"`
}

// StockDetails accompanies insufficient stock conflicts.
type StockDetails struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// ErrorResponse creates an error response with an explicit status.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Kind: kind})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").
		Header("Allow", allowedMethods)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(k core.Kind) int {
	switch k {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DomainError builds the response for an error returned by a service.
// Internal errors are not echoed to the caller.
func DomainError(err error) *JSONResponseBuilder {
	kind := core.KindOf(err)
	msg := err.Error()
	if kind == core.KindInternal {
		msg = "internal error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = core.KindUnavailable
		msg = "request timed out"
	}
	body := ErrorBody{Error: msg, Kind: kind.String()}

	var stockErr *core.StockError
	if errors.As(err, &stockErr) {
		body.Details = StockDetails{
			ProductID: stockErr.ProductID,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		}
	}
	return NewJSONResponse().Status(StatusForKind(kind)).Body(body)
}

// writeError logs err at a level matching its kind and writes the response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := core.KindOf(err)
	if errors.Is(err, context.DeadlineExceeded) {
		kind = core.KindUnavailable
	}
	logger := applog.FromContext(r.Context())
	args := []any{applog.FieldOperation, op, applog.FieldError, err, applog.FieldErrorKind, kind.String()}
	switch kind {
	case core.KindInternal, core.KindUnavailable:
		logger.ErrorContext(r.Context(), "Request failed", args...)
	default:
		logger.InfoContext(r.Context(), "Request rejected", args...)
	}
	DomainError(err).Write(w)
}
