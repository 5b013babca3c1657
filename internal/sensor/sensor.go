// Package sensor takes brightness samples from a camera or the screen and
// reports them on the event bus and as Prometheus metrics.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/luxnode/internal/events"
	"github.com/smazurov/luxnode/internal/logging"
	"github.com/smazurov/luxnode/internal/metrics"
	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
	"github.com/smazurov/luxnode/pkg/screen"
)

var (
	// ErrNoCameras is returned when no capture device can be opened.
	ErrNoCameras = errors.New("no available cameras")
	// ErrNoFrame is returned when the device keeps reporting EAGAIN past
	// the retry timeout.
	ErrNoFrame = errors.New("device is continuously returning EAGAIN")
	// ErrNoDisplay is returned when no X display is configured or active.
	ErrNoDisplay = errors.New("no X display available")
)

// Reading is one brightness sample.
type Reading struct {
	Source     string
	Device     string
	Brightness int
	Multiplier float64
	Duration   time.Duration
	At         time.Time
}

// ScreenSource samples an X display.
type ScreenSource interface {
	Sample(display string, opts screen.Options) (int, error)
	PhysicalSize(display string) (widthMM, heightMM int, err error)
}

type x11Screen struct{}

func (x11Screen) Sample(display string, opts screen.Options) (int, error) {
	return screen.Sample(display, opts)
}

func (x11Screen) PhysicalSize(display string) (int, int, error) {
	return screen.PhysicalSize(display)
}

// Service owns sampling. Camera sessions are serialized; a device is opened
// for each sample and closed again afterwards.
type Service struct {
	session sync.Mutex

	mu       sync.RWMutex
	settings Settings

	open       Opener
	candidates func() []string
	screen     ScreenSource
	bus        *events.Bus

	logger        *slog.Logger
	captureLogger *slog.Logger
	screenLogger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOpener replaces the camera opener.
func WithOpener(open Opener) Option {
	return func(s *Service) {
		s.open = open
	}
}

// WithCandidates replaces the source of capture device paths.
func WithCandidates(candidates func() []string) Option {
	return func(s *Service) {
		s.candidates = candidates
	}
}

// WithScreen replaces the screen source.
func WithScreen(src ScreenSource) Option {
	return func(s *Service) {
		s.screen = src
	}
}

// New creates a sampling service. bus may be nil.
func New(settings Settings, bus *events.Bus, opts ...Option) *Service {
	s := &Service{
		settings: settings,
		open:     OpenV4L2,
		candidates: func() []string {
			return v4l2.DedupeCandidates(v4l2.ListCandidates())
		},
		screen:        x11Screen{},
		bus:           bus,
		logger:        logging.GetLogger("sensor"),
		captureLogger: logging.GetLogger("capture"),
		screenLogger:  logging.GetLogger("screen"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the active settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings swaps the settings used by subsequent samples.
func (s *Service) UpdateSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.logger.Info("Sampler settings updated",
		"device", settings.Device,
		"io_method", settings.IOMethod.String(),
		"display", settings.Display)
	return nil
}

// Candidates returns the capture devices that can be opened.
func (s *Service) Candidates() []string {
	return s.candidates()
}

// SelectDevice returns the configured device if it is a candidate, and the
// first candidate otherwise.
func (s *Service) SelectDevice(want string) (string, error) {
	paths := s.candidates()
	if len(paths) == 0 {
		return "", ErrNoCameras
	}
	if want != "" && slices.Contains(paths, want) {
		return want, nil
	}
	if want != "" {
		s.logger.Warn("Configured camera not available, using first candidate",
			"configured", want, "using", paths[0])
	}
	return paths[0], nil
}

// SampleCamera runs a full capture session and returns the brightness of
// the first frame after the warm-up frames.
func (s *Service) SampleCamera(ctx context.Context) (Reading, error) {
	settings := s.Settings()
	start := time.Now()

	path, err := s.SelectDevice(settings.Device)
	if err != nil {
		return s.fail(events.SourceCamera, settings.Device, err)
	}

	s.session.Lock()
	value, err := s.captureSession(ctx, path, settings)
	s.session.Unlock()
	if err != nil {
		return s.fail(events.SourceCamera, path, err)
	}

	return s.record(Reading{
		Source:     events.SourceCamera,
		Device:     path,
		Brightness: value,
		Duration:   time.Since(start),
		At:         time.Now(),
	}), nil
}

func (s *Service) captureSession(ctx context.Context, path string, settings Settings) (value int, err error) {
	cam, err := s.open(path, s.captureLogger)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, cam.Close())
	}()

	if _, err := cam.Negotiate(settings.IOMethod); err != nil {
		return 0, err
	}
	if settings.LockControls {
		restore := lockControls(cam, s.captureLogger)
		defer restore()
	}
	if err := cam.Allocate(); err != nil {
		return 0, err
	}
	if err := cam.Start(); err != nil {
		return 0, err
	}

	// The driver holds one stale frame, so the first frames are discarded.
	for i := 0; i <= settings.WarmupFrames; i++ {
		value, err = captureWithRetry(ctx, cam, settings.RetryTimeout, settings.RetryInterval)
		if err != nil {
			return 0, err
		}
	}

	if err := cam.Stop(); err != nil {
		return 0, err
	}
	if err := cam.Release(); err != nil {
		return 0, err
	}
	return value, nil
}

// captureWithRetry polls the non-blocking device until a frame is ready.
func captureWithRetry(ctx context.Context, cam Camera, timeout, interval time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		value, err := cam.CaptureOne()
		if err == nil {
			return value, nil
		}
		if !v4l2.IsAgain(err) {
			return 0, err
		}
		if !time.Now().Before(deadline) {
			return 0, fmt.Errorf("%w for %v", ErrNoFrame, timeout)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
}

// SampleScreen samples the configured X display. The reading carries the
// size multiplier of the display's panel, or 0 when the size is unknown.
func (s *Service) SampleScreen(ctx context.Context) (Reading, error) {
	settings := s.Settings()
	start := time.Now()

	display := settings.Display
	if display == "" {
		display = screen.ActiveDisplay()
	}
	if display == "" {
		return s.fail(events.SourceScreen, "", ErrNoDisplay)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(events.SourceScreen, display, err)
	}

	value, err := s.screen.Sample(display, settings.Screen)
	if err != nil {
		return s.fail(events.SourceScreen, display, err)
	}

	var multiplier float64
	if w, h, err := s.screen.PhysicalSize(display); err != nil {
		s.screenLogger.Warn("Failed to read physical screen size", "display", display, "error", err)
	} else {
		multiplier = screen.Multiplier(w, h)
	}

	return s.record(Reading{
		Source:     events.SourceScreen,
		Device:     display,
		Brightness: value,
		Multiplier: multiplier,
		Duration:   time.Since(start),
		At:         time.Now(),
	}), nil
}

func (s *Service) record(r Reading) Reading {
	metrics.ObserveSample(r.Source, r.Brightness, r.Duration)
	s.logger.Debug("Sample taken",
		"source", r.Source,
		"device", r.Device,
		"brightness", r.Brightness,
		"duration", r.Duration)
	if s.bus != nil {
		s.bus.Publish(events.SampleTakenEvent{
			Source:     r.Source,
			Device:     r.Device,
			Brightness: r.Brightness,
			Multiplier: r.Multiplier,
			DurationMs: r.Duration.Milliseconds(),
			Timestamp:  r.At.Format(time.RFC3339),
		})
	}
	return r
}

func (s *Service) fail(source, device string, err error) (Reading, error) {
	kind := errorKind(err)
	metrics.ObserveError(source, kind)
	s.logger.Error("Sample failed", "source", source, "device", device, "error", err)
	if s.bus != nil {
		s.bus.Publish(events.SampleFailedEvent{
			Source:    source,
			Device:    device,
			Kind:      kind,
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return Reading{}, err
}

// errorKind names the failure for metrics labels and events.
func errorKind(err error) string {
	var verr *v4l2.Error
	switch {
	case errors.As(err, &verr):
		return string(verr.Kind)
	case errors.Is(err, ErrNoCameras), errors.Is(err, ErrNoDisplay):
		return "UNAVAILABLE"
	case errors.Is(err, ErrNoFrame):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELED"
	}
	return ""
}
