//go:build linux

package v4l2

import (
	"fmt"
	"strings"
)

// IOMethod selects how frames move from the driver into process memory.
type IOMethod int

// I/O methods.
const (
	IORead IOMethod = iota
	IOMmap
	IOUserPtr
)

func (m IOMethod) String() string {
	switch m {
	case IORead:
		return "read"
	case IOMmap:
		return "mmap"
	case IOUserPtr:
		return "userptr"
	default:
		return fmt.Sprintf("IOMethod(%d)", int(m))
	}
}

// ParseIOMethod maps a configuration string onto an IOMethod.
func ParseIOMethod(s string) (IOMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read":
		return IORead, nil
	case "mmap", "":
		return IOMmap, nil
	case "userptr", "user_ptr":
		return IOUserPtr, nil
	}
	return 0, fmt.Errorf("unknown io method %q", s)
}

// State is the position of a Device in its capture lifecycle.
type State string

// Lifecycle states.
const (
	StateOpened     State = "opened"
	StateNegotiated State = "negotiated"
	StateIdle       State = "idle"
	StateStreaming  State = "streaming"
	StateFailed     State = "failed"
	StateReleased   State = "released"
	StateClosed     State = "closed"
)

// Format is the capture format agreed with the driver.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
}

// Frame is a view of one filled capture buffer. Data is only valid for the
// duration of the callback that receives it.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Stride int
}

// ControlDescriptor describes a user-class control and its live value.
type ControlDescriptor struct {
	ID      uint32
	Name    string
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Value   int32
}

// Offsets from V4L2_CID_BASE of the controls the sampler touches.
const (
	ControlBrightness            = 0
	ControlContrast              = 1
	ControlAutoWhiteBalance      = 12
	ControlAutoGain              = 18
	ControlBacklightCompensation = 28

	// ControlCount is the number of offsets below V4L2_CID_LASTP1.
	ControlCount = 44
)

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	Path    string       `json:"path"`
	Name    string       `json:"name"`
	Driver  string       `json:"driver"`
	BusInfo string       `json:"bus_info"`
	ID      string       `json:"id"` // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps    uint32       `json:"caps"`
	Formats []FormatInfo `json:"formats,omitempty"`
}

// CanCapture reports whether the node is a video capture device.
func (d DeviceInfo) CanCapture() bool {
	return d.Caps&v4l2CapVideoCapture != 0
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32 `json:"pixel_format"`
	FourCC      string `json:"fourcc"`
	Name        string `json:"name"`
	Emulated    bool   `json:"emulated"`
}

// Capability flags.
const (
	v4l2CapVideoCapture = 0x00000001
	v4l2CapReadWrite    = 0x01000000
	v4l2CapStreaming    = 0x04000000
	v4l2CapDeviceCaps   = 0x80000000
)

// Format flags.
const (
	v4l2FmtFlagEmulated = 0x0002
)

// Common pixel formats.
const (
	v4l2PixFmtYUYV  = 0x56595559 // 'YUYV'
	v4l2PixFmtMJPEG = 0x47504A4D // 'MJPG'
	v4l2PixFmtH264  = 0x34363248 // 'H264'
	v4l2PixFmtNV12  = 0x3231564E // 'NV12'
)

// Field order.
const (
	v4l2FieldInterlaced = 4
)

// Buffer type.
const (
	v4l2BufTypeVideoCapture = 1
)

// Memory types.
const (
	v4l2MemoryMmap    = 1
	v4l2MemoryUserPtr = 2
)

// Control constants.
const (
	v4l2CIDBase          = 0x00980900
	v4l2CtrlFlagDisabled = 0x0001
)

// Negotiated capture geometry.
const (
	captureWidth       = 160
	captureHeight      = 120
	captureBufferCount = 1
)
