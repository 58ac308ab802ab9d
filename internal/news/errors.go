package news

import (
	"context"
	"errors"
	"log/slog"

	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/stats"
	"github.com/onnwee/newsbias/internal/store"
)

// ErrValidation is returned for unusable request parameters.
var ErrValidation = errors.New("validation failed")

// Code maps an error onto its envelope code.
func Code(err error) string {
	switch {
	case err == nil:
		return query.CodeOK
	case errors.Is(err, stats.ErrPartialAggregation):
		return query.CodePartialAggregation
	case errors.Is(err, cluster.ErrInvalidDocument):
		return query.CodeInvalidDocument
	case errors.Is(err, store.ErrNotFound), errors.Is(err, binary.ErrNotFound):
		return query.CodeNotFound
	case errors.Is(err, query.ErrInvalidFilter), errors.Is(err, ErrValidation):
		return query.CodeValidation
	case errors.Is(err, store.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return query.CodeUpstreamUnavailable
	default:
		return query.CodeInternal
	}
}

// fail converts err into a failure envelope. Internal errors are logged and
// reported without their detail.
func (s *Service) fail(ctx context.Context, op string, err error) query.Envelope {
	code := Code(err)
	switch code {
	case query.CodeInternal:
		s.logger.ErrorContext(ctx, "request failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return query.Fail(code, "internal error")
	case query.CodeUpstreamUnavailable:
		s.logger.WarnContext(ctx, "upstream unavailable",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
	return query.Fail(code, err.Error())
}
