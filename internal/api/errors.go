package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/luxnode/internal/sensor"
	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
)

// toHTTPError maps sampler and driver failures onto HTTP status codes.
func toHTTPError(msg string, err error) error {
	var verr *v4l2.Error
	switch {
	case errors.Is(err, sensor.ErrNoCameras), errors.Is(err, sensor.ErrNoDisplay):
		return huma.Error503ServiceUnavailable(msg, err)
	case errors.Is(err, sensor.ErrNoFrame), errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(msg, err)
	case errors.As(err, &verr):
		switch verr.Kind {
		case v4l2.ErrKindValidation:
			return huma.Error404NotFound(msg, err)
		case v4l2.ErrKindOpen, v4l2.ErrKindState:
			return huma.Error409Conflict(msg, err)
		case v4l2.ErrKindControlUnsupported:
			return huma.Error422UnprocessableEntity(msg, err)
		case v4l2.ErrKindCapability, v4l2.ErrKindFormat:
			return huma.Error503ServiceUnavailable(msg, err)
		}
	}
	return huma.Error500InternalServerError(msg, err)
}
