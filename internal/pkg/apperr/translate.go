package apperr

import (
	"context"
	"errors"
	"time"

	"github.com/wangyingjie930/orderflow/internal/pkg/logger"
)

const (
	// ValidationMessage is the top-level message of every structural validation failure.
	ValidationMessage = "Validation failed"
	// InternalMessage is returned for unclassified failures; the detail only goes to the log.
	InternalMessage = "An unexpected error occurred"
)

// ErrorResponse is the external error contract.
type ErrorResponse struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Errors    map[string]string `json:"errors"`
}

// Translate maps any failure to the error contract. It is the only constructor of ErrorResponse.
func Translate(ctx context.Context, err error, now time.Time) ErrorResponse {
	resp := ErrorResponse{
		Timestamp: now,
		Errors:    map[string]string{},
	}

	var appErr *Error
	if !errors.As(err, &appErr) || appErr == nil || appErr.Kind == KindUnclassified {
		logger.Ctx(ctx).Error().Err(err).Msg("unclassified failure at boundary")
		resp.Status = KindUnclassified.HTTPStatus()
		resp.Message = InternalMessage
		return resp
	}

	resp.Status = appErr.Kind.HTTPStatus()
	switch appErr.Kind {
	case KindValidation:
		resp.Message = ValidationMessage
		for field, msg := range appErr.Fields {
			resp.Errors[field] = msg
		}
	default:
		resp.Message = appErr.Message
	}

	logger.Ctx(ctx).Debug().
		Str("kind", appErr.Kind.String()).
		Int("status", resp.Status).
		Msg(resp.Message)
	return resp
}
