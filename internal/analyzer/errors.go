package analyzer

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/size-analysis/pkg/errors"
)

// normalizeError passes app errors and context errors through and reports
// anything else as an analysis error.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) || IsContextError(err) {
		return err
	}
	return errors.Wrap(errors.CodeAnalysisError, "analysis failed", err)
}

// IsContextError reports whether err came from a cancelled or expired context.
func IsContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.GetErrorMessage(err))
}
