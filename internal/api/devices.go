package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/luxnode/internal/api/models"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List capture devices that can be opened, in probe order",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		infos := s.devices.Devices()
		devices := make([]models.DeviceInfo, 0, len(infos))
		for _, info := range infos {
			devices = append(devices, models.ConvertDevice(info))
		}
		return &models.DevicesResponse{
			Body: models.DeviceData{Devices: devices, Count: len(devices)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-device-controls",
		Method:      http.MethodGet,
		Path:        "/api/devices/controls",
		Summary:     "List Controls",
		Description: "List the enabled user controls of a device",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 503},
	}, func(_ context.Context, input *models.ControlsInput) (*models.ControlsResponse, error) {
		path, err := s.resolveDevice(input.Device)
		if err != nil {
			return nil, err
		}
		descs, err := s.sampler.Controls(path)
		if err != nil {
			return nil, toHTTPError("Failed to read controls", err)
		}

		controls := make([]models.ControlData, 0, len(descs))
		for _, d := range descs {
			controls = append(controls, models.ConvertControl(d))
		}
		return &models.ControlsResponse{
			Body: models.ControlsData{DevicePath: path, Controls: controls},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-device-control",
		Method:      http.MethodPut,
		Path:        "/api/devices/controls/{offset}",
		Summary:     "Set Control",
		Description: "Write one user control and return the value read back from the driver",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 422, 503},
	}, func(_ context.Context, input *models.SetControlInput) (*models.ControlResponse, error) {
		path, err := s.resolveDevice(input.Device)
		if err != nil {
			return nil, err
		}
		desc, err := s.sampler.SetControl(path, input.Offset, input.Body.Value)
		if err != nil {
			return nil, toHTTPError("Failed to set control", err)
		}
		if desc == nil {
			return nil, huma.Error422UnprocessableEntity("Control is disabled")
		}
		return &models.ControlResponse{Body: models.ConvertControl(*desc)}, nil
	})
}

// resolveDevice turns a path or stable ID into a device path. Empty selects
// the camera the sampler would use.
func (s *Server) resolveDevice(device string) (string, error) {
	if device == "" {
		path, err := s.sampler.SelectDevice(s.sampler.Settings().Device)
		if err != nil {
			return "", toHTTPError("No camera available", err)
		}
		return path, nil
	}
	path, err := s.devices.ResolveDevicePath(device)
	if err != nil {
		return "", huma.Error404NotFound("Device not found", err)
	}
	return path, nil
}
