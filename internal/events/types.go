package events

// Event type constants for kelindar/event.
const (
	TypeSampleTaken uint32 = iota + 1
	TypeSampleFailed
	TypeDeviceChanged
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Sample sources.
const (
	SourceCamera = "camera"
	SourceScreen = "screen"
)

// SampleTakenEvent is published after every successful brightness sample.
type SampleTakenEvent struct {
	Source     string  `json:"source" example:"camera" doc:"Sample source: camera or screen"`
	Device     string  `json:"device" example:"/dev/video0" doc:"Camera path or X display"`
	Brightness int     `json:"brightness" example:"128" doc:"Luma in the 0-255 range"`
	Multiplier float64 `json:"multiplier,omitempty" example:"1.21" doc:"Screen size multiplier, screen samples only"`
	DurationMs int64   `json:"duration_ms" example:"41" doc:"Time spent sampling"`
	Timestamp  string  `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Sample timestamp"`
}

// Type returns the event type identifier for SampleTakenEvent.
func (e SampleTakenEvent) Type() uint32 { return TypeSampleTaken }

// SampleFailedEvent is published when a sample could not be taken.
type SampleFailedEvent struct {
	Source    string `json:"source" example:"camera" doc:"Sample source: camera or screen"`
	Device    string `json:"device" example:"/dev/video0" doc:"Camera path or X display"`
	Kind      string `json:"kind,omitempty" example:"io" doc:"Capture error kind, when known"`
	Error     string `json:"error" example:"no available cameras" doc:"Error description"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Failure timestamp"`
}

// Type returns the event type identifier for SampleFailedEvent.
func (e SampleFailedEvent) Type() uint32 { return TypeSampleFailed }

// DeviceChangedEvent represents a camera hotplug event.
type DeviceChangedEvent struct {
	Action     string `json:"action" example:"add" doc:"Kernel action: add or remove"`
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Device node"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangedEvent.
func (e DeviceChangedEvent) Type() uint32 { return TypeDeviceChanged }

// ConfigReloadedEvent is published after the config file was reloaded and
// applied.
type ConfigReloadedEvent struct {
	Path      string `json:"path" example:"/etc/luxnode/config.toml" doc:"Config file path"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }
