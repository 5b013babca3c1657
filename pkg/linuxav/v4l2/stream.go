//go:build linux

package v4l2

import (
	"errors"

	"github.com/smazurov/luxnode/pkg/luma"
	"golang.org/x/sys/unix"
)

// Allocate creates the buffer pool for the negotiated I/O method.
func (d *Device) Allocate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.can("allocate", eventAllocate); err != nil {
		return err
	}
	if err := d.pool.allocate(); err != nil {
		return err
	}
	d.advance(eventAllocate)
	d.logger.Debug("Allocated capture buffers",
		"path", d.path,
		"method", d.method.String(),
		"count", len(d.pool.buffers()))
	return nil
}

// Start hands every buffer to the driver and turns the stream on. A failed
// Start leaves the device in the failed state; Stop returns it to idle.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.can("start", eventStart); err != nil {
		return err
	}
	if err := d.pool.start(); err != nil {
		d.advance(eventFail)
		return err
	}
	d.advance(eventStart)
	return nil
}

// Capture dequeues one frame, passes it to fn and gives the buffer back to
// the driver. The frame data must not be retained after fn returns.
//
// The device is non-blocking: when no frame is ready the returned error
// satisfies IsAgain and the caller may retry.
func (d *Device) Capture(fn func(Frame) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Current() != string(StateStreaming) {
		return newErrorf(ErrKindState, "capture", d.path, nil, "not allowed in state %s", d.state.Current())
	}

	b, n, err := d.pool.dequeue()
	if err != nil {
		if IsKind(err, ErrKindConsistency) {
			d.markFailed(err)
		}
		return err
	}

	ferr := fn(Frame{
		Data:   b.data[:n],
		Width:  int(d.format.Width),
		Height: int(d.format.Height),
		Stride: int(d.format.BytesPerLine),
	})

	if err := d.pool.requeue(b); err != nil {
		d.markFailed(err)
		return errors.Join(ferr, err)
	}
	return ferr
}

// CaptureOne captures a single frame and returns its mean brightness in
// the range 0..255.
func (d *Device) CaptureOne() (int, error) {
	var brightness int
	err := d.Capture(func(f Frame) error {
		v, err := luma.YUYVStride(f.Data, f.Width, f.Height, f.Stride)
		if err != nil {
			return newError(ErrKindIO, "decode", d.path, "frame decode failed", err)
		}
		brightness = v
		return nil
	})
	return brightness, err
}

// Stop turns the stream off and reclaims every buffer from the driver.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.can("stop", eventStop); err != nil {
		return err
	}
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	err := d.pool.stop()
	d.advance(eventStop)
	return err
}

// Release frees the buffer pool. It must follow Stop and may be called
// once per Allocate.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.can("release", eventRelease); err != nil {
		return err
	}
	return d.releaseLocked()
}

func (d *Device) releaseLocked() error {
	err := d.pool.release()
	d.advance(eventRelease)
	return err
}

// IsAgain reports whether err means no frame was ready yet.
func IsAgain(err error) bool {
	return Errno(err) == int(unix.EAGAIN)
}
