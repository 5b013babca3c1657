package sensor

import (
	"log/slog"
	"slices"

	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
)

// Camera is the part of *v4l2.Device the sampler drives.
type Camera interface {
	Negotiate(method v4l2.IOMethod) (v4l2.Format, error)
	Allocate() error
	Start() error
	CaptureOne() (int, error)
	Stop() error
	Release() error
	Close() error
	QueryControl(offset uint32) (*v4l2.ControlDescriptor, error)
	SetControl(offset uint32, value int32) error
}

// Opener opens the capture device at path.
type Opener func(path string, logger *slog.Logger) (Camera, error)

// OpenV4L2 opens a real V4L2 device.
func OpenV4L2(path string, logger *slog.Logger) (Camera, error) {
	return v4l2.Open(path, v4l2.WithLogger(logger))
}

// lockedControls are automatic adjustments that skew brightness readings.
// Setting each to its minimum turns it off.
var lockedControls = []uint32{
	v4l2.ControlAutoWhiteBalance,
	v4l2.ControlAutoGain,
	v4l2.ControlBacklightCompensation,
}

type savedControl struct {
	offset uint32
	name   string
	value  int32
}

// lockControls disables the automatic controls and returns a function that
// puts the saved values back, last changed first. Controls the device lacks
// are skipped.
func lockControls(cam Camera, logger *slog.Logger) func() {
	var saved []savedControl
	for _, offset := range lockedControls {
		desc, err := cam.QueryControl(offset)
		if err != nil {
			logger.Warn("Control not available on device", "control", offset, "error", err)
			continue
		}
		if desc == nil {
			continue
		}
		if desc.Value == desc.Minimum {
			continue
		}
		if err := cam.SetControl(offset, desc.Minimum); err != nil {
			logger.Warn("Failed to disable control", "control", desc.Name, "error", err)
			continue
		}
		saved = append(saved, savedControl{offset: offset, name: desc.Name, value: desc.Value})
		logger.Debug("Control disabled", "control", desc.Name, "from", desc.Value, "to", desc.Minimum)
	}

	return func() {
		for _, c := range slices.Backward(saved) {
			if err := cam.SetControl(c.offset, c.value); err != nil {
				logger.Warn("Failed to restore control", "control", c.name, "error", err)
				continue
			}
			logger.Debug("Control restored", "control", c.name, "value", c.value)
		}
	}
}
