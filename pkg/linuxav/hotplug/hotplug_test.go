//go:build linux

package hotplug

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *Event
	}{
		{
			name:     "empty input",
			input:    []byte{},
			expected: nil,
		},
		{
			name:     "no @ separator",
			input:    []byte("invalid"),
			expected: nil,
		},
		{
			name:     "missing action",
			input:    []byte("@/devices/foo"),
			expected: nil,
		},
		{
			name:     "only null bytes",
			input:    []byte{0, 0, 0, 0},
			expected: nil,
		},
		{
			name:  "camera added",
			input: []byte("add@/devices/pci0000:00/usb1/1-1/1-1:1.0/video4linux/video0\x00ACTION=add\x00SUBSYSTEM=video4linux\x00DEVNAME=video0\x00SEQNUM=4211\x00"),
			expected: &Event{
				Action:    "add",
				KObj:      "/devices/pci0000:00/usb1/1-1/1-1:1.0/video4linux/video0",
				Subsystem: "video4linux",
				DevName:   "video0",
				Seq:       "4211",
				Env: map[string]string{
					"ACTION":    "add",
					"SUBSYSTEM": "video4linux",
					"DEVNAME":   "video0",
					"SEQNUM":    "4211",
				},
			},
		},
		{
			name:  "usb device removed",
			input: []byte("remove@/devices/usb/1-1\x00SUBSYSTEM=usb\x00DEVTYPE=usb_device\x00PRODUCT=46d/825/12\x00"),
			expected: &Event{
				Action:    "remove",
				KObj:      "/devices/usb/1-1",
				Subsystem: "usb",
				DevType:   "usb_device",
				Env: map[string]string{
					"SUBSYSTEM": "usb",
					"DEVTYPE":   "usb_device",
					"PRODUCT":   "46d/825/12",
				},
			},
		},
		{
			name:  "value containing equals",
			input: []byte("change@/dev/foo\x00KEY=val=ue\x00\x00\x00EMPTY=\x00"),
			expected: &Event{
				Action: "change",
				KObj:   "/dev/foo",
				Env:    map[string]string{"KEY": "val=ue", "EMPTY": ""},
			},
		},
		{
			name:  "udev header skipped",
			input: append([]byte("libudev\x00\xfe\xed\x00"), []byte("add@/devices/v\x00SUBSYSTEM=video4linux\x00")...),
			expected: &Event{
				Action:    "add",
				KObj:      "/devices/v",
				Subsystem: "video4linux",
				Env:       map[string]string{"SUBSYSTEM": "video4linux"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseUEvent(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %+v", result)
				}
				return
			}
			if result == nil {
				t.Fatalf("expected %+v, got nil", tt.expected)
			}

			if result.Action != tt.expected.Action {
				t.Errorf("Action: expected %q, got %q", tt.expected.Action, result.Action)
			}
			if result.KObj != tt.expected.KObj {
				t.Errorf("KObj: expected %q, got %q", tt.expected.KObj, result.KObj)
			}
			if result.Subsystem != tt.expected.Subsystem {
				t.Errorf("Subsystem: expected %q, got %q", tt.expected.Subsystem, result.Subsystem)
			}
			if result.DevType != tt.expected.DevType {
				t.Errorf("DevType: expected %q, got %q", tt.expected.DevType, result.DevType)
			}
			if result.DevName != tt.expected.DevName {
				t.Errorf("DevName: expected %q, got %q", tt.expected.DevName, result.DevName)
			}
			if result.Seq != tt.expected.Seq {
				t.Errorf("Seq: expected %q, got %q", tt.expected.Seq, result.Seq)
			}
			if len(result.Env) != len(tt.expected.Env) {
				t.Errorf("Env length: expected %d, got %d", len(tt.expected.Env), len(result.Env))
			}
			for k, v := range tt.expected.Env {
				if result.Env[k] != v {
					t.Errorf("Env[%q]: expected %q, got %q", k, v, result.Env[k])
				}
			}
		})
	}
}

func TestEventNode(t *testing.T) {
	tests := []struct {
		devName  string
		expected string
	}{
		{devName: "video0", expected: "/dev/video0"},
		{devName: "/dev/video3", expected: "/dev/video3"},
		{devName: "", expected: ""},
	}

	for _, tt := range tests {
		if got := (Event{DevName: tt.devName}).Node(); got != tt.expected {
			t.Errorf("Node() for %q = %q, want %q", tt.devName, got, tt.expected)
		}
	}
}

func TestEventChangesCameraSet(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected bool
	}{
		{name: "video add", event: Event{Action: ActionAdd, Subsystem: SubsystemVideo4Linux}, expected: true},
		{name: "video remove", event: Event{Action: ActionRemove, Subsystem: SubsystemVideo4Linux}, expected: true},
		{name: "video change", event: Event{Action: ActionChange, Subsystem: SubsystemVideo4Linux}, expected: false},
		{name: "usb add", event: Event{Action: ActionAdd, Subsystem: SubsystemUSB}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.ChangesCameraSet(); got != tt.expected {
				t.Errorf("ChangesCameraSet() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMonitorFilters(t *testing.T) {
	m := &Monitor{fd: -1, filters: make(map[string]struct{})}

	if !m.accepts(SubsystemUSB) {
		t.Error("monitor without filters should accept every subsystem")
	}

	m.AddSubsystemFilter(SubsystemVideo4Linux)
	if !m.accepts(SubsystemVideo4Linux) {
		t.Error("expected video4linux to be accepted")
	}
	if m.accepts(SubsystemUSB) {
		t.Error("expected usb to be rejected")
	}
}

// newTestMonitor skips when the sandbox forbids netlink sockets.
func newTestMonitor(t *testing.T, subsystems ...string) *Monitor {
	t.Helper()
	m, err := NewMonitor(subsystems...)
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	return m
}

func TestNewMonitorDefaultsToVideo(t *testing.T) {
	m := newTestMonitor(t)
	defer func() { _ = m.Close() }()

	if m.fd <= 0 {
		t.Errorf("expected valid fd, got %d", m.fd)
	}
	if len(m.filters) != 1 || !m.accepts(SubsystemVideo4Linux) {
		t.Errorf("unexpected default filters: %v", m.filters)
	}
}

func TestMonitorClose(t *testing.T) {
	m := newTestMonitor(t)

	if closeErr := m.Close(); closeErr != nil {
		t.Errorf("Close() error: %v", closeErr)
	}
	// Second close should fail (bad file descriptor)
	if closeErr := m.Close(); closeErr == nil {
		t.Error("expected error on second Close()")
	}
}

func TestMonitorRunCancellation(t *testing.T) {
	m := newTestMonitor(t)
	defer func() { _ = m.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan Event, 10)
	runErr := m.Run(ctx, events)

	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", runErr)
	}
	if _, open := <-events; open {
		t.Error("expected events channel to be closed")
	}
}

// TestMonitorConcurrentFilterAdd tests for race conditions when adding filters
// concurrently. Run with: go test -race -run TestMonitorConcurrentFilterAdd.
func TestMonitorConcurrentFilterAdd(t *testing.T) {
	m := &Monitor{fd: -1, filters: make(map[string]struct{})}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.AddSubsystemFilter(SubsystemVideo4Linux)
				m.AddSubsystemFilter(SubsystemUSB)
				_ = m.accepts(SubsystemUSB)
			}
		}()
	}
	wg.Wait()

	m.filtersMu.RLock()
	if len(m.filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(m.filters))
	}
	m.filtersMu.RUnlock()
}
