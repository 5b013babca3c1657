package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/luxnode/internal/api/models"
	"github.com/smazurov/luxnode/internal/metrics"
	"github.com/smazurov/luxnode/internal/sensor"
)

func (s *Server) registerBrightnessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "sample-camera",
		Method:      http.MethodGet,
		Path:        "/api/brightness/camera",
		Summary:     "Camera Brightness",
		Description: "Run a capture session on the configured camera and return the frame brightness",
		Tags:        []string{"brightness"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 503, 504},
	}, func(ctx context.Context, _ *struct{}) (*models.BrightnessResponse, error) {
		r, err := s.sampler.SampleCamera(ctx)
		if err != nil {
			return nil, toHTTPError("Camera sample failed", err)
		}
		return &models.BrightnessResponse{Body: toBrightnessData(r)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "sample-screen",
		Method:      http.MethodGet,
		Path:        "/api/brightness/screen",
		Summary:     "Screen Brightness",
		Description: "Sample the configured X display and return its brightness",
		Tags:        []string{"brightness"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.BrightnessResponse, error) {
		r, err := s.sampler.SampleScreen(ctx)
		if err != nil {
			return nil, toHTTPError("Screen sample failed", err)
		}
		return &models.BrightnessResponse{Body: toBrightnessData(r)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "last-brightness",
		Method:      http.MethodGet,
		Path:        "/api/brightness/{source}/last",
		Summary:     "Last Brightness",
		Description: "Return the most recent successful reading of a source without sampling",
		Tags:        []string{"brightness"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422},
	}, func(_ context.Context, input *models.LastBrightnessInput) (*models.BrightnessResponse, error) {
		last, ok := metrics.LastSample(input.Source)
		if !ok {
			return nil, huma.Error404NotFound("No " + input.Source + " sample taken yet")
		}
		return &models.BrightnessResponse{Body: models.BrightnessData{
			Source:     input.Source,
			Brightness: last.Brightness,
			DurationMs: last.Duration.Milliseconds(),
			Timestamp:  last.At.Format(time.RFC3339),
		}}, nil
	})
}

func toBrightnessData(r sensor.Reading) models.BrightnessData {
	return models.BrightnessData{
		Source:     r.Source,
		Device:     r.Device,
		Brightness: r.Brightness,
		Multiplier: r.Multiplier,
		DurationMs: r.Duration.Milliseconds(),
		Timestamp:  r.At.Format(time.RFC3339),
	}
}
