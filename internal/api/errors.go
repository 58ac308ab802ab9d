// Package api is the HTTP transport over the news service: routing, query
// parameter parsing, envelope writing and the snapshot fallback.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/newsbias/internal/middleware"
	"github.com/onnwee/newsbias/internal/query"
)

// StatusCodeMapping returns the HTTP status code for an envelope code.
// Partial aggregations are successful responses.
func StatusCodeMapping(code string) int {
	switch code {
	case query.CodeOK, query.CodePartialAggregation:
		return http.StatusOK
	case query.CodeValidation:
		return http.StatusBadRequest
	case query.CodeNotFound:
		return http.StatusNotFound
	case query.CodeInvalidDocument:
		return http.StatusUnprocessableEntity
	case query.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteEnvelope writes env as JSON with the status mapped from its code and
// returns the encoded body. Failure codes are recorded for the request log.
//
// Format: {"success": bool, "code": "...", "message": "...", "result": ...}
func WriteEnvelope(w http.ResponseWriter, ctx context.Context, env query.Envelope) []byte {
	status := StatusCodeMapping(env.Code)
	if !env.Success {
		middleware.SetErrorCode(ctx, env.Code)
	}

	data, err := json.Marshal(env)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal envelope", "code", env.Code, "error", err)
		middleware.SetErrorCode(ctx, query.CodeInternal)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return nil
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write envelope", "error", err)
	}
	return data
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, ctx context.Context, code, message string) {
	WriteEnvelope(w, ctx, query.Fail(code, message))
}
