package sensor

import (
	"fmt"
	"time"

	"github.com/smazurov/luxnode/internal/config"
	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
	"github.com/smazurov/luxnode/pkg/screen"
)

// Settings controls how samples are taken. They can be swapped at runtime
// with Service.UpdateSettings.
type Settings struct {
	Device        string
	IOMethod      v4l2.IOMethod
	WarmupFrames  int
	RetryTimeout  time.Duration
	RetryInterval time.Duration
	LockControls  bool

	Display string
	Screen  screen.Options
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		IOMethod:      v4l2.IOMmap,
		WarmupFrames:  1,
		RetryTimeout:  5 * time.Second,
		RetryInterval: 33 * time.Millisecond,
		LockControls:  true,
		Screen:        screen.DefaultOptions(),
	}
}

// SettingsFromOptions converts loaded configuration into sampler settings.
func SettingsFromOptions(opts *config.Options) (Settings, error) {
	method, err := v4l2.ParseIOMethod(opts.CameraIOMethod)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Device:        opts.CameraDevice,
		IOMethod:      method,
		WarmupFrames:  opts.CameraWarmupFrames,
		RetryTimeout:  time.Duration(opts.CameraRetryTimeoutMs) * time.Millisecond,
		RetryInterval: time.Duration(opts.CameraRetryIntervalMs) * time.Millisecond,
		LockControls:  opts.CameraLockControls,
		Display:       opts.ScreenDisplay,
		Screen: screen.Options{
			CropFraction: float64(opts.ScreenCropPercent) / 100,
			Stride:       opts.ScreenStride,
		},
	}
	return s, s.Validate()
}

// Validate rejects settings that could never produce a sample.
func (s Settings) Validate() error {
	if s.WarmupFrames < 0 {
		return fmt.Errorf("warmup frames %d must not be negative", s.WarmupFrames)
	}
	if s.RetryTimeout <= 0 {
		return fmt.Errorf("retry timeout %v must be positive", s.RetryTimeout)
	}
	if s.RetryInterval <= 0 {
		return fmt.Errorf("retry interval %v must be positive", s.RetryInterval)
	}
	return s.Screen.Validate()
}
