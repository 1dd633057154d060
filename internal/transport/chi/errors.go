package chi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/domain/flight"
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
	"github.com/kailas-cloud/aerolab/internal/usecase/vlm"
)

// ErrorCode classifies an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeNotFound         ErrorCode = "not_found"
	CodeUnsolvable       ErrorCode = "unsolvable"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeQuotaExceeded    ErrorCode = "quota_exceeded"
	CodeProviderError    ErrorCode = "provider_error"
	CodeNotImplemented   ErrorCode = "not_implemented"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelHandler maps a sentinel to a status, exposing the full error text.
// Only use it for errors whose message is meant for the caller.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// opaqueHandler maps a sentinel to a status without leaking the wrapped
// provider details.
func opaqueHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(geometry.ErrLengthMismatch, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(geometry.ErrInvalidSpan, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(geometry.ErrTooFewStations, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(flight.ErrInvalidOperatingPoint, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		opaqueHandler(fs.ErrNotExist, http.StatusNotFound, CodeNotFound),
		sentinelHandler(vlm.ErrNoPanels, http.StatusUnprocessableEntity, CodeUnsolvable),
		sentinelHandler(vlm.ErrSingular, http.StatusUnprocessableEntity, CodeUnsolvable),
		opaqueHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		opaqueHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, CodeQuotaExceeded),
		opaqueHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		opaqueHandler(domain.ErrMissingAPIKey, http.StatusNotImplemented, CodeNotImplemented),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
