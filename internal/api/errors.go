package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/roulette-sim/internal/games"
	"github.com/MJE43/roulette-sim/internal/scan"
	"github.com/MJE43/roulette-sim/internal/scripting"
	"github.com/MJE43/roulette-sim/internal/session"
	"github.com/MJE43/roulette-sim/internal/store"
	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause adds the underlying cause error
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// classify maps domain errors onto an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrTypeNotFound
	case errors.Is(err, table.ErrInvalidBet), errors.Is(err, table.ErrUnknownKind):
		return http.StatusBadRequest, ErrTypeInvalidBet
	case errors.Is(err, table.ErrMinBet), errors.Is(err, table.ErrMaxBet):
		return http.StatusUnprocessableEntity, ErrTypeBetLimit
	case errors.Is(err, table.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, ErrTypeInsufficientBalance
	case errors.Is(err, session.ErrBettingClosed), errors.Is(err, session.ErrRoundInProgress),
		errors.Is(err, session.ErrNoStrategy), errors.Is(err, scripting.ErrStopped):
		return http.StatusConflict, ErrTypeConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable, ErrTypeServiceUnavailable
	case errors.Is(err, scan.ErrGameNotFound):
		return http.StatusBadRequest, ErrTypeGameNotFound
	case errors.Is(err, scan.ErrInvalidRange), errors.Is(err, scan.ErrInvalidOp):
		return http.StatusBadRequest, ErrTypeValidation
	case errors.Is(err, games.ErrInvalidParam), errors.Is(err, wheel.ErrInvalidDelta):
		return http.StatusBadRequest, ErrTypeInvalidParams
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrTypeTimeout
	default:
		return http.StatusInternalServerError, ErrTypeInternal
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError classifies err and writes the matching response.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr EngineError
	if errors.As(err, &engineErr) {
		status := http.StatusInternalServerError
		if GetErrorCategory(engineErr.Type) == CategoryValidation {
			status = http.StatusBadRequest
		}
		eh.logError(r, engineErr, status)
		eh.writeErrorResponse(w, status, engineErr)
		return
	}

	status, errType := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && errType == ErrTypeInternal {
		message = "Internal server error"
	}

	engineErr = NewError(errType, message).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		WithCause(err).
		Build()

	eh.logError(r, engineErr, status)
	eh.writeErrorResponse(w, status, engineErr)
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		Build()

	eh.logError(r, engineErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, engineErr)
}

// HandleGameError handles game-specific errors
func (eh *ErrorHandler) HandleGameError(w http.ResponseWriter, r *http.Request, game string, nonce uint64, err error) {
	status, errType := classify(err)
	if errType == ErrTypeInternal {
		errType = ErrTypeGameEvaluation
	}

	engineErr := NewError(errType, "Game evaluation failed").
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("game", game).
		WithContext("nonce", nonce).
		WithCause(err).
		Build()

	eh.logError(r, engineErr, status)
	eh.writeErrorResponse(w, status, engineErr)
}

// logError logs the error with appropriate level and context
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	fields := []zap.Field{
		zap.String("type", engineErr.Type),
		zap.String("category", string(GetErrorCategory(engineErr.Type))),
		zap.Int("status", status),
		zap.String("request_id", engineErr.RequestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("message", engineErr.Message),
	}
	for key, value := range engineErr.Context {
		// Never log raw seeds - only hashes
		if key == "server_seed" || key == "client_seed" {
			continue
		}
		fields = append(fields, zap.Any(key, value))
	}

	if status >= http.StatusInternalServerError {
		eh.logger.Error("request failed", fields...)
		return
	}
	eh.logger.Warn("request rejected", fields...)
}

// writeErrorResponse writes the error response as JSON
func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())

				eh.logger.Error("panic recovered",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Any("panic", rvr),
					zap.Stack("stack"),
				)

				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("path", r.URL.Path).
					Build()

				eh.writeErrorResponse(w, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
