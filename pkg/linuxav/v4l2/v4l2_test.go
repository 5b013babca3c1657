//go:build linux

package v4l2

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		name     string
		format   uint32
		expected string
	}{
		{
			name:     "YUYV format",
			format:   v4l2PixFmtYUYV,
			expected: "YUYV",
		},
		{
			name:     "MJPEG format",
			format:   v4l2PixFmtMJPEG,
			expected: "MJPG",
		},
		{
			name:     "H264 format",
			format:   v4l2PixFmtH264,
			expected: "H264",
		},
		{
			name:     "NV12 format",
			format:   v4l2PixFmtNV12,
			expected: "NV12",
		},
		{
			name:     "mixed bytes",
			format:   0x01020304,
			expected: "\x04\x03\x02\x01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatFourCC(tt.format)
			if result != tt.expected {
				t.Errorf("FormatFourCC(0x%08X) = %q, want %q", tt.format, result, tt.expected)
			}
		})
	}
}

func TestApplyFloor(t *testing.T) {
	tests := []struct {
		name     string
		in       Format
		expected Format
	}{
		{
			name:     "driver reports zero sizes",
			in:       Format{Width: 160, Height: 120},
			expected: Format{Width: 160, Height: 120, BytesPerLine: 320, SizeImage: 38400},
		},
		{
			name:     "bytes per line too small",
			in:       Format{Width: 160, Height: 120, BytesPerLine: 200, SizeImage: 38400},
			expected: Format{Width: 160, Height: 120, BytesPerLine: 320, SizeImage: 38400},
		},
		{
			name:     "padded lines are kept",
			in:       Format{Width: 160, Height: 120, BytesPerLine: 384, SizeImage: 0},
			expected: Format{Width: 160, Height: 120, BytesPerLine: 384, SizeImage: 46080},
		},
		{
			name:     "larger image size is kept",
			in:       Format{Width: 160, Height: 120, BytesPerLine: 320, SizeImage: 40960},
			expected: Format{Width: 160, Height: 120, BytesPerLine: 320, SizeImage: 40960},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyFloor(tt.in); got != tt.expected {
				t.Errorf("applyFloor(%+v) = %+v, want %+v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestParseIOMethod(t *testing.T) {
	tests := []struct {
		input    string
		expected IOMethod
		wantErr  bool
	}{
		{input: "read", expected: IORead},
		{input: "MMAP", expected: IOMmap},
		{input: "", expected: IOMmap},
		{input: "userptr", expected: IOUserPtr},
		{input: "dmabuf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIOMethod(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParseIOMethod(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := newError(ErrKindCapability, "VIDIOC_QUERYCAP", "/dev/video0", "is no V4L2 device", unix.EINVAL)

	if !strings.Contains(err.Error(), "VIDIOC_QUERYCAP /dev/video0") {
		t.Errorf("message %q missing operation and path", err.Error())
	}
	if err.Code() != int(unix.EINVAL) {
		t.Errorf("Code() = %d, want %d", err.Code(), int(unix.EINVAL))
	}
	if !errors.Is(err, unix.EINVAL) {
		t.Error("expected error to unwrap to EINVAL")
	}

	logic := newError(ErrKindState, "capture", "/dev/video0", "not allowed", nil)
	if logic.Code() != 0 {
		t.Errorf("logic error Code() = %d, want 0", logic.Code())
	}
}

func TestCandidatePaths(t *testing.T) {
	paths := CandidatePaths()
	if len(paths) != 65 {
		t.Fatalf("got %d candidates, want 65", len(paths))
	}
	if paths[0] != "/dev/video" || paths[1] != "/dev/video0" || paths[64] != "/dev/video63" {
		t.Errorf("unexpected probe order: %q %q %q", paths[0], paths[1], paths[64])
	}
}

func TestListCandidates(t *testing.T) {
	k := newFakeKernel()
	k.openable = map[string]bool{"/dev/video5": true, "/dev/video0": true}

	got := listCandidates(k)
	expected := []string{"/dev/video0", "/dev/video5"}
	if len(got) != len(expected) {
		t.Fatalf("listCandidates() = %v, want %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("listCandidates()[%d] = %q, want %q", i, got[i], expected[i])
		}
	}
	if k.closed != 2 {
		t.Errorf("closed %d descriptors, want 2", k.closed)
	}
}

func TestDedupeCandidates(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "video0")
	if err := os.WriteFile(real, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "video")
	if err := os.Symlink(real, link); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "video1")
	if err := os.WriteFile(other, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	got := DedupeCandidates([]string{link, real, other})
	if len(got) != 2 || got[0] != link || got[1] != other {
		t.Errorf("DedupeCandidates() = %v, want [%s %s]", got, link, other)
	}
}

func TestDescribe(t *testing.T) {
	origSysfs, origByID := sysfsVideoDir, byIDDir
	sysfsVideoDir, byIDDir = t.TempDir(), t.TempDir()
	defer func() { sysfsVideoDir, byIDDir = origSysfs, origByID }()

	k := newFakeKernel()
	info, err := describe(k, "/dev/video0")
	if err != nil {
		t.Fatalf("describe returned error: %v", err)
	}
	if info.Name != "Fake Camera" || info.Driver != "fakecam" {
		t.Errorf("unexpected identity: %+v", info)
	}
	if !info.CanCapture() {
		t.Error("expected capture capability")
	}
	if len(info.Formats) != 1 || info.Formats[0].FourCC != "YUYV" {
		t.Errorf("Formats = %+v, want one YUYV entry", info.Formats)
	}
	if info.ID != "usb-0000:00:14.0-1-video-index0" {
		t.Errorf("ID = %q, want synthetic usb id", info.ID)
	}
}

func TestOpenValidation(t *testing.T) {
	t.Run("missing node", func(t *testing.T) {
		k := newFakeKernel()
		_, err := Open("/dev/video9", withKernel(k), WithLogger(quietLogger()))
		if !IsKind(err, ErrKindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("not a character device", func(t *testing.T) {
		k := newFakeKernel()
		k.notChar = true
		_, err := openFake(k)
		if !IsKind(err, ErrKindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if Errno(err) != 0 {
			t.Errorf("Errno = %d, want 0", Errno(err))
		}
	})

	t.Run("open refused", func(t *testing.T) {
		k := newFakeKernel()
		k.openErr = unix.EBUSY
		_, err := openFake(k)
		if !IsKind(err, ErrKindOpen) {
			t.Fatalf("expected open error, got %v", err)
		}
		if Errno(err) != int(unix.EBUSY) {
			t.Errorf("Errno = %d, want EBUSY", Errno(err))
		}
	})
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name    string
		method  IOMethod
		setup   func(k *fakeKernel)
		kind    ErrorKind
		checkFn func(t *testing.T, f Format)
	}{
		{
			name:   "default format",
			method: IOMmap,
			checkFn: func(t *testing.T, f Format) {
				if f.Width != 160 || f.Height != 120 || f.PixelFormat != v4l2PixFmtYUYV {
					t.Errorf("unexpected format %+v", f)
				}
				if f.BytesPerLine != 320 || f.SizeImage != 38400 {
					t.Errorf("unexpected sizes %+v", f)
				}
			},
		},
		{
			name:   "buggy driver floor",
			method: IOMmap,
			setup: func(k *fakeKernel) {
				k.setFormat = func(p *v4l2PixFormat) {
					p.width, p.height = 176, 144
					p.bytesperline, p.sizeimage = 100, 10
				}
			},
			checkFn: func(t *testing.T, f Format) {
				if f.BytesPerLine != 352 || f.SizeImage != 352*144 {
					t.Errorf("floor not applied: %+v", f)
				}
			},
		},
		{
			name:   "crop failure ignored",
			method: IOMmap,
			setup:  func(k *fakeKernel) { k.cropErr = unix.EINVAL },
		},
		{
			name:   "not a v4l2 device",
			method: IOMmap,
			setup:  func(k *fakeKernel) { k.capErr = unix.EINVAL },
			kind:   ErrKindCapability,
		},
		{
			name:   "capability query io failure",
			method: IOMmap,
			setup:  func(k *fakeKernel) { k.capErr = unix.EIO },
			kind:   ErrKindIO,
		},
		{
			name:   "not a capture device",
			method: IOMmap,
			setup:  func(k *fakeKernel) { k.caps = v4l2CapStreaming },
			kind:   ErrKindCapability,
		},
		{
			name:   "no read support",
			method: IORead,
			setup:  func(k *fakeKernel) { k.caps = v4l2CapVideoCapture | v4l2CapStreaming },
			kind:   ErrKindCapability,
		},
		{
			name:   "no streaming support",
			method: IOUserPtr,
			setup:  func(k *fakeKernel) { k.caps = v4l2CapVideoCapture | v4l2CapReadWrite },
			kind:   ErrKindCapability,
		},
		{
			name:   "format rejected",
			method: IOMmap,
			setup:  func(k *fakeKernel) { k.sfmtErr = unix.EBUSY },
			kind:   ErrKindFormat,
		},
		{
			name:   "pixel format substituted",
			method: IOMmap,
			setup: func(k *fakeKernel) {
				k.setFormat = func(p *v4l2PixFormat) { p.pixelformat = v4l2PixFmtMJPEG }
			},
			kind: ErrKindFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newFakeKernel()
			if tt.setup != nil {
				tt.setup(k)
			}
			dev, err := openFake(k)
			if err != nil {
				t.Fatalf("Open returned error: %v", err)
			}
			defer dev.Close()

			f, err := dev.Negotiate(tt.method)
			if tt.kind != "" {
				if !IsKind(err, tt.kind) {
					t.Fatalf("expected %s, got %v", tt.kind, err)
				}
				if dev.State() != StateOpened {
					t.Errorf("state = %s, want %s", dev.State(), StateOpened)
				}
				return
			}
			if err != nil {
				t.Fatalf("Negotiate returned error: %v", err)
			}
			if dev.State() != StateNegotiated {
				t.Errorf("state = %s, want %s", dev.State(), StateNegotiated)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, f)
			}
		})
	}
}

// startDevice drives a fake device to the streaming state.
func startDevice(t *testing.T, k *fakeKernel, method IOMethod) *Device {
	t.Helper()
	dev, err := openFake(k)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := dev.Negotiate(method); err != nil {
		t.Fatalf("Negotiate returned error: %v", err)
	}
	if err := dev.Allocate(); err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return dev
}

func TestCaptureRoundTrip(t *testing.T) {
	for _, method := range []IOMethod{IORead, IOMmap, IOUserPtr} {
		t.Run(method.String(), func(t *testing.T) {
			k := newFakeKernel()
			k.grant = 2
			dev := startDevice(t, k, method)
			poolSize := len(dev.pool.buffers())

			for i := 0; i < 4; i++ {
				got, err := dev.CaptureOne()
				if err != nil {
					t.Fatalf("capture %d: %v", i, err)
				}
				if got != 128 {
					t.Errorf("capture %d: brightness %d, want 128", i, got)
				}
				if method != IORead && len(k.queue) != poolSize {
					t.Errorf("capture %d: %d buffers queued, want %d", i, len(k.queue), poolSize)
				}
			}

			if err := dev.Stop(); err != nil {
				t.Fatalf("Stop returned error: %v", err)
			}
			if err := dev.Release(); err != nil {
				t.Fatalf("Release returned error: %v", err)
			}
			if err := dev.Close(); err != nil {
				t.Fatalf("Close returned error: %v", err)
			}
			if dev.State() != StateClosed {
				t.Errorf("state = %s, want closed", dev.State())
			}

			switch method {
			case IOMmap:
				if k.mmaps != 2 || k.munmaps != 2 {
					t.Errorf("mmaps=%d munmaps=%d, want 2 each", k.mmaps, k.munmaps)
				}
			case IOUserPtr:
				if len(k.allocs) != 2 || k.frees != 2 {
					t.Errorf("allocs=%d frees=%d, want 2 each", len(k.allocs), k.frees)
				}
				if k.lastReq.count != 0 || k.lastReq.memory != v4l2MemoryUserPtr {
					t.Errorf("release did not reset user pointer buffers: %+v", k.lastReq)
				}
			}
		})
	}
}

func TestUserPtrBuffersArePageAligned(t *testing.T) {
	k := newFakeKernel()
	dev := startDevice(t, k, IOUserPtr)
	defer dev.Close()

	for _, b := range dev.pool.buffers() {
		if len(b.data)%4096 != 0 || len(b.data) < 38400 {
			t.Errorf("buffer %d length %d not rounded to page size", b.index, len(b.data))
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	t.Run("capture before start", func(t *testing.T) {
		k := newFakeKernel()
		dev, _ := openFake(k)
		defer dev.Close()
		if _, err := dev.Negotiate(IOMmap); err != nil {
			t.Fatal(err)
		}
		if err := dev.Allocate(); err != nil {
			t.Fatal(err)
		}
		if _, err := dev.CaptureOne(); !IsKind(err, ErrKindState) {
			t.Errorf("expected illegal state, got %v", err)
		}
		if k.calls[vidiocDqbuf] != 0 {
			t.Error("DQBUF issued before stream on")
		}
	})

	t.Run("stop after release", func(t *testing.T) {
		k := newFakeKernel()
		dev := startDevice(t, k, IOMmap)
		defer dev.Close()
		if err := dev.Stop(); err != nil {
			t.Fatal(err)
		}
		if err := dev.Release(); err != nil {
			t.Fatal(err)
		}
		if err := dev.Stop(); !IsKind(err, ErrKindState) {
			t.Errorf("expected illegal state, got %v", err)
		}
	})

	t.Run("double release", func(t *testing.T) {
		k := newFakeKernel()
		dev := startDevice(t, k, IOMmap)
		defer dev.Close()
		_ = dev.Stop()
		if err := dev.Release(); err != nil {
			t.Fatal(err)
		}
		if err := dev.Release(); !IsKind(err, ErrKindState) {
			t.Errorf("expected illegal state, got %v", err)
		}
		if k.munmaps != 1 {
			t.Errorf("munmaps = %d, want 1", k.munmaps)
		}
	})

	t.Run("release while streaming", func(t *testing.T) {
		k := newFakeKernel()
		dev := startDevice(t, k, IOMmap)
		defer dev.Close()
		if err := dev.Release(); !IsKind(err, ErrKindState) {
			t.Errorf("expected illegal state, got %v", err)
		}
	})

	t.Run("use after close", func(t *testing.T) {
		k := newFakeKernel()
		dev, _ := openFake(k)
		_ = dev.Close()
		if _, err := dev.Negotiate(IOMmap); !IsKind(err, ErrKindState) {
			t.Errorf("expected illegal state, got %v", err)
		}
		if _, err := dev.QueryControl(ControlBrightness); !IsKind(err, ErrKindState) {
			t.Errorf("expected illegal state, got %v", err)
		}
		if err := dev.Close(); err != nil {
			t.Errorf("second Close returned %v", err)
		}
	})
}

func TestRenegotiateAfterRelease(t *testing.T) {
	k := newFakeKernel()
	dev := startDevice(t, k, IOMmap)
	defer dev.Close()
	_ = dev.Stop()
	_ = dev.Release()

	if _, err := dev.Negotiate(IOUserPtr); err != nil {
		t.Fatalf("Negotiate after release: %v", err)
	}
	if dev.Method() != IOUserPtr {
		t.Errorf("method = %v, want userptr", dev.Method())
	}
}

func TestCloseUnwindsStreamingDevice(t *testing.T) {
	k := newFakeKernel()
	dev := startDevice(t, k, IOMmap)

	if err := dev.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if k.calls[vidiocStreamoff] != 1 {
		t.Errorf("STREAMOFF calls = %d, want 1", k.calls[vidiocStreamoff])
	}
	if k.munmaps != 1 {
		t.Errorf("munmaps = %d, want 1", k.munmaps)
	}
	if k.closed != 1 {
		t.Errorf("closed = %d, want 1", k.closed)
	}
}

func TestBufferAllocationFailure(t *testing.T) {
	tests := []struct {
		name   string
		method IOMethod
		setup  func(k *fakeKernel)
		errno  unix.Errno
	}{
		{name: "no buffers granted", method: IOMmap, setup: func(k *fakeKernel) { k.grant = 0 }},
		{name: "mmap rejected", method: IOMmap, setup: func(k *fakeKernel) { k.reqErr = unix.EINVAL }, errno: unix.EINVAL},
		{name: "userptr rejected", method: IOUserPtr, setup: func(k *fakeKernel) { k.reqErr = unix.EINVAL }, errno: unix.EINVAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newFakeKernel()
			tt.setup(k)
			dev, _ := openFake(k)
			defer dev.Close()
			if _, err := dev.Negotiate(tt.method); err != nil {
				t.Fatal(err)
			}
			err := dev.Allocate()
			if !IsKind(err, ErrKindBufferAlloc) {
				t.Fatalf("expected buffer alloc error, got %v", err)
			}
			if Errno(err) != int(tt.errno) {
				t.Errorf("Errno = %d, want %d", Errno(err), int(tt.errno))
			}
			if dev.State() != StateNegotiated {
				t.Errorf("state = %s, want negotiated", dev.State())
			}
		})
	}
}

func TestCaptureConsistencyViolation(t *testing.T) {
	k := newFakeKernel()
	bad := uint32(7)
	k.dqIndex = &bad
	dev := startDevice(t, k, IOMmap)
	defer dev.Close()

	_, err := dev.CaptureOne()
	if !IsKind(err, ErrKindConsistency) {
		t.Fatalf("expected consistency violation, got %v", err)
	}
	if dev.State() != StateFailed {
		t.Fatalf("state = %s, want failed", dev.State())
	}
	if _, err := dev.CaptureOne(); !IsKind(err, ErrKindState) {
		t.Errorf("capture on failed device: expected illegal state, got %v", err)
	}
	if err := dev.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if dev.State() != StateIdle {
		t.Errorf("state = %s, want idle", dev.State())
	}
}

func TestStartFailureMarksDeviceFailed(t *testing.T) {
	k := newFakeKernel()
	k.streamErr = unix.EIO
	dev, _ := openFake(k)
	defer dev.Close()
	_, _ = dev.Negotiate(IOMmap)
	_ = dev.Allocate()

	if err := dev.Start(); !IsKind(err, ErrKindIO) {
		t.Fatalf("expected io error, got %v", err)
	}
	if dev.State() != StateFailed {
		t.Errorf("state = %s, want failed", dev.State())
	}
}

func TestCaptureRetries(t *testing.T) {
	t.Run("interrupted dequeue is retried", func(t *testing.T) {
		k := newFakeKernel()
		dev := startDevice(t, k, IOMmap)
		defer dev.Close()
		k.eintr[vidiocDqbuf] = 3
		if _, err := dev.CaptureOne(); err != nil {
			t.Fatalf("CaptureOne returned error: %v", err)
		}
		if k.calls[vidiocDqbuf] != 4 {
			t.Errorf("DQBUF calls = %d, want 4", k.calls[vidiocDqbuf])
		}
	})

	t.Run("interrupted read is retried", func(t *testing.T) {
		k := newFakeKernel()
		dev := startDevice(t, k, IORead)
		defer dev.Close()
		k.eintr[readCall] = 2
		if _, err := dev.CaptureOne(); err != nil {
			t.Fatalf("CaptureOne returned error: %v", err)
		}
	})

	t.Run("no frame ready is reported", func(t *testing.T) {
		k := newFakeKernel()
		dev := startDevice(t, k, IOMmap)
		defer dev.Close()
		k.dqErr = unix.EAGAIN
		_, err := dev.CaptureOne()
		if !IsAgain(err) {
			t.Fatalf("expected EAGAIN, got %v", err)
		}
		if dev.State() != StateStreaming {
			t.Errorf("state = %s, want streaming", dev.State())
		}
	})
}

func TestReadShortFrame(t *testing.T) {
	k := newFakeKernel()
	k.readShort = true
	dev := startDevice(t, k, IORead)
	defer dev.Close()

	if _, err := dev.CaptureOne(); !IsKind(err, ErrKindIO) {
		t.Errorf("expected io error, got %v", err)
	}
}

func TestControls(t *testing.T) {
	newDev := func(t *testing.T) (*fakeKernel, *Device) {
		t.Helper()
		k := newFakeKernel()
		k.controls[ControlBrightness] = &fakeControl{name: "Brightness", min: 0, max: 255, step: 1, def: 128, val: 100}
		k.controls[ControlAutoGain] = &fakeControl{name: "Gain, Automatic", max: 1, step: 1, def: 1, val: 1, flags: v4l2CtrlFlagDisabled}
		dev, err := openFake(k)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { dev.Close() })
		return k, dev
	}

	t.Run("query", func(t *testing.T) {
		_, dev := newDev(t)
		desc, err := dev.QueryControl(ControlBrightness)
		if err != nil {
			t.Fatalf("QueryControl returned error: %v", err)
		}
		expected := ControlDescriptor{ID: ControlBrightness, Name: "Brightness", Maximum: 255, Step: 1, Default: 128, Value: 100}
		if *desc != expected {
			t.Errorf("QueryControl = %+v, want %+v", *desc, expected)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		_, dev := newDev(t)
		desc, err := dev.QueryControl(ControlAutoGain)
		if err != nil || desc != nil {
			t.Errorf("QueryControl = %v, %v; want nil, nil", desc, err)
		}
		if err := dev.SetControl(ControlAutoGain, 0); !IsKind(err, ErrKindControlUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, dev := newDev(t)
		if _, err := dev.QueryControl(ControlBacklightCompensation); !IsKind(err, ErrKindControlUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})

	t.Run("set", func(t *testing.T) {
		k, dev := newDev(t)
		if err := dev.SetControl(ControlBrightness, 42); err != nil {
			t.Fatalf("SetControl returned error: %v", err)
		}
		if k.controls[ControlBrightness].val != 42 {
			t.Errorf("value = %d, want 42", k.controls[ControlBrightness].val)
		}
		got, err := dev.GetControl(ControlBrightness)
		if err != nil || got != 42 {
			t.Errorf("GetControl = %d, %v; want 42", got, err)
		}
	})

	t.Run("set out of range", func(t *testing.T) {
		k, dev := newDev(t)
		k.sctrlErr = unix.ERANGE
		if err := dev.SetControl(ControlBrightness, 999); !IsKind(err, ErrKindControlUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})

	t.Run("set io failure", func(t *testing.T) {
		k, dev := newDev(t)
		k.sctrlErr = unix.EIO
		if err := dev.SetControl(ControlBrightness, 1); !IsKind(err, ErrKindIO) {
			t.Errorf("expected io error, got %v", err)
		}
	})
}
