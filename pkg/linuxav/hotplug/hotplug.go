//go:build linux

// Package hotplug watches the kernel uevent netlink socket for camera nodes
// appearing and disappearing, without cgo or libudev.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Actions the capture stack reacts to.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystem names.
const (
	SubsystemVideo4Linux = "video4linux"
	SubsystemUSB         = "usb"
)

// netlinkKobjectUEvent is the netlink protocol for kernel object events.
const netlinkKobjectUEvent = 15

// recvTimeout bounds each blocking receive so Run notices cancellation.
var recvTimeout = unix.Timeval{Sec: 1}

// Event is one parsed kernel uevent.
type Event struct {
	Action    string            // "add", "remove", "change", etc.
	KObj      string            // Kernel object path: /devices/pci0000:00/...
	Subsystem string            // "video4linux", "usb", etc.
	DevType   string            // Device type if available
	DevName   string            // Node name relative to /dev, e.g. "video0"
	Seq       string            // SEQNUM assigned by the kernel
	Env       map[string]string // All environment variables from the event
}

// Node returns the /dev path of the event's device node, or "" when the
// event does not carry one.
func (e Event) Node() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/") {
		return e.DevName
	}
	return "/dev/" + e.DevName
}

// ChangesCameraSet reports whether the event adds or removes a video node,
// which invalidates any cached list of capture candidates.
func (e Event) ChangesCameraSet() bool {
	if e.Subsystem != SubsystemVideo4Linux {
		return false
	}
	return e.Action == ActionAdd || e.Action == ActionRemove
}

// Monitor receives kernel uevents filtered by subsystem.
type Monitor struct {
	fd        int
	filters   map[string]struct{}
	filtersMu sync.RWMutex
}

// NewMonitor opens the uevent socket. Events are limited to subsystems; with
// none given only video4linux events are delivered.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1, // Kernel broadcast group
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &recvTimeout); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	if len(subsystems) == 0 {
		subsystems = []string{SubsystemVideo4Linux}
	}
	m := &Monitor{fd: fd, filters: make(map[string]struct{})}
	for _, s := range subsystems {
		m.AddSubsystemFilter(s)
	}
	return m, nil
}

// AddSubsystemFilter adds a subsystem to the delivered set.
// This method is safe for concurrent use.
func (m *Monitor) AddSubsystemFilter(subsystem string) {
	m.filtersMu.Lock()
	m.filters[subsystem] = struct{}{}
	m.filtersMu.Unlock()
}

func (m *Monitor) accepts(subsystem string) bool {
	m.filtersMu.RLock()
	defer m.filtersMu.RUnlock()
	if len(m.filters) == 0 {
		return true
	}
	_, ok := m.filters[subsystem]
	return ok
}

// Close releases the monitor resources.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run delivers events to the channel until ctx is cancelled or the socket
// fails. The events channel is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}

		event := ParseUEvent(buf[:n])
		if event == nil || !m.accepts(event.Subsystem) {
			continue
		}

		select {
		case events <- *event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ParseUEvent parses a kernel uevent message of the form
// "ACTION@KOBJ\0KEY=VALUE\0KEY=VALUE\0...". Messages rebroadcast by udev
// carry a binary "libudev" header which is skipped.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, []byte("libudev")) {
		data = skipUdevHeader(data)
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts[0]) == 0 {
		return nil
	}

	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	event := &Event{
		Action: action,
		KObj:   kobj,
		Env:    make(map[string]string),
	}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DEVTYPE":
			event.DevType = value
		case "DEVNAME":
			event.DevName = value
		case "SEQNUM":
			event.Seq = value
		}
	}
	return event
}

// skipUdevHeader returns the uevent payload following a libudev header, or
// data unchanged when none is found.
func skipUdevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		head := rest
		if end := bytes.IndexByte(rest, 0); end >= 0 {
			head = rest[:end]
		}
		if idx := bytes.IndexByte(head, '@'); idx > 0 && idx < 20 {
			return rest
		}
	}
	return data
}
