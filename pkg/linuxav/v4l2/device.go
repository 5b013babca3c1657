//go:build linux

package v4l2

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/looplab/fsm"
	"golang.org/x/sys/unix"
)

// Lifecycle events driving the device state machine.
const (
	eventNegotiate = "negotiate"
	eventAllocate  = "allocate"
	eventStart     = "start"
	eventFail      = "fail"
	eventStop      = "stop"
	eventRelease   = "release"
	eventClose     = "close"
)

// Device is an open V4L2 capture node. A Device is safe for use by one
// goroutine at a time; methods serialize on an internal mutex.
type Device struct {
	mu     sync.Mutex
	path   string
	fd     int
	sys    kernel
	method IOMethod
	format Format
	pool   bufferPool
	state  *fsm.FSM
	logger *slog.Logger
}

// Option configures a Device at Open time.
type Option func(*Device)

// WithLogger sets the logger used for lifecycle and driver diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func withKernel(sys kernel) Option {
	return func(d *Device) {
		d.sys = sys
	}
}

// Open validates that path names a character device and opens it
// read-write and non-blocking.
func Open(path string, opts ...Option) (*Device, error) {
	d := &Device{
		path:   path,
		fd:     -1,
		sys:    defaultKernel,
		logger: slog.Default().With("component", "linuxav"),
	}
	for _, opt := range opts {
		opt(d)
	}

	info, err := d.sys.Stat(path)
	if err != nil {
		return nil, newError(ErrKindValidation, "open", path, "cannot identify device", err)
	}
	if info.Mode()&os.ModeCharDevice == 0 || info.Mode()&os.ModeDevice == 0 {
		return nil, newError(ErrKindValidation, "open", path, "is no device", nil)
	}

	fd, err := d.sys.Open(path, unix.O_RDWR|unix.O_NONBLOCK)
	if err != nil {
		return nil, newError(ErrKindOpen, "open", path, "cannot open device", err)
	}
	d.fd = fd
	d.state = d.newStateMachine()
	d.logger.Debug("Opened video device", "path", path, "fd", fd)
	return d, nil
}

func (d *Device) newStateMachine() *fsm.FSM {
	all := []string{
		string(StateOpened), string(StateNegotiated), string(StateIdle),
		string(StateStreaming), string(StateFailed), string(StateReleased),
	}
	return fsm.NewFSM(
		string(StateOpened),
		fsm.Events{
			{Name: eventNegotiate, Src: []string{string(StateOpened), string(StateReleased)}, Dst: string(StateNegotiated)},
			{Name: eventAllocate, Src: []string{string(StateNegotiated)}, Dst: string(StateIdle)},
			{Name: eventStart, Src: []string{string(StateIdle)}, Dst: string(StateStreaming)},
			{Name: eventFail, Src: []string{string(StateIdle), string(StateStreaming)}, Dst: string(StateFailed)},
			{Name: eventStop, Src: []string{string(StateStreaming), string(StateFailed)}, Dst: string(StateIdle)},
			{Name: eventRelease, Src: []string{string(StateIdle)}, Dst: string(StateReleased)},
			{Name: eventClose, Src: all, Dst: string(StateClosed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				d.logger.Debug("Device state changed", "path", d.path, "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// State returns the current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State(d.state.Current())
}

// Format returns the negotiated format. It is the zero value before
// Negotiate succeeds.
func (d *Device) Format() Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// Method returns the I/O method chosen at negotiation.
func (d *Device) Method() IOMethod {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.method
}

// can returns an ILLEGAL_STATE error when event is not permitted.
func (d *Device) can(op, event string) error {
	if d.state.Can(event) {
		return nil
	}
	return newErrorf(ErrKindState, op, d.path, nil, "not allowed in state %s", d.state.Current())
}

func (d *Device) advance(event string) {
	if err := d.state.Event(context.Background(), event); err != nil {
		d.logger.Warn("Unexpected state transition failure", "path", d.path, "event", event, "error", err)
	}
}

// markFailed moves a device with an inconsistent buffer pool to the failed
// state. Only Stop, Release and Close are accepted afterwards.
func (d *Device) markFailed(cause error) {
	if d.state.Can(eventFail) {
		d.logger.Error("Capture pool inconsistent", "path", d.path, "error", cause)
		d.advance(eventFail)
	}
}

// Close stops streaming and releases buffers if needed, then closes the
// file descriptor. Close on a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Current() == string(StateClosed) {
		return nil
	}

	var errs []error
	if d.pool != nil {
		switch State(d.state.Current()) {
		case StateStreaming, StateFailed:
			if err := d.stopLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if d.state.Current() == string(StateIdle) {
			if err := d.releaseLocked(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := d.sys.Close(d.fd); err != nil {
		errs = append(errs, newError(ErrKindIO, "close", d.path, "close failed", err))
	}
	d.fd = -1
	d.pool = nil
	d.advance(eventClose)
	d.logger.Debug("Closed video device", "path", d.path)
	return errors.Join(errs...)
}
