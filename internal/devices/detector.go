// Package devices keeps the list of capture devices current. The list is
// cached and rebuilt when the kernel reports a video4linux node coming or
// going.
package devices

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/luxnode/internal/events"
	"github.com/smazurov/luxnode/internal/logging"
	"github.com/smazurov/luxnode/internal/metrics"
	"github.com/smazurov/luxnode/pkg/linuxav/hotplug"
	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
)

// Device actions carried by DeviceChangedEvent.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

const defaultSettleDelay = time.Second

type monitor interface {
	Run(ctx context.Context, events chan<- hotplug.Event) error
	Close() error
}

// Detector caches capture candidates and tracks hotplug events.
type Detector struct {
	mu         sync.Mutex
	candidates []string
	valid      bool

	list     func() []string
	describe func(path string) (v4l2.DeviceInfo, error)
	monitor  func() (monitor, error)
	settle   time.Duration

	bus    *events.Bus
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Detector.
type Option func(*Detector)

// WithLister replaces the candidate enumerator.
func WithLister(list func() []string) Option {
	return func(d *Detector) {
		d.list = list
	}
}

// WithDescriber replaces the per-device description lookup.
func WithDescriber(describe func(path string) (v4l2.DeviceInfo, error)) Option {
	return func(d *Detector) {
		d.describe = describe
	}
}

// WithSettleDelay sets how long to wait after an add event before
// enumerating, so the kernel can finish creating the node.
func WithSettleDelay(delay time.Duration) Option {
	return func(d *Detector) {
		d.settle = delay
	}
}

func withMonitor(open func() (monitor, error)) Option {
	return func(d *Detector) {
		d.monitor = open
	}
}

// NewDetector creates a detector. bus may be nil.
func NewDetector(bus *events.Bus, opts ...Option) *Detector {
	d := &Detector{
		list: func() []string {
			return v4l2.DedupeCandidates(v4l2.ListCandidates())
		},
		describe: v4l2.Describe,
		monitor: func() (monitor, error) {
			return hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
		},
		settle: defaultSettleDelay,
		bus:    bus,
		logger: logging.GetLogger("devices"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Candidates returns the device paths that can be opened, in probe order.
func (d *Detector) Candidates() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.valid {
		d.refreshLocked()
	}
	return slices.Clone(d.candidates)
}

// Devices describes every candidate. Nodes that cannot be described are
// logged and skipped.
func (d *Detector) Devices() []v4l2.DeviceInfo {
	paths := d.Candidates()
	infos := make([]v4l2.DeviceInfo, 0, len(paths))
	for _, path := range paths {
		info, err := d.describe(path)
		if err != nil {
			d.logger.Warn("Failed to describe device", "path", path, "error", err)
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// Invalidate drops the cached candidate list.
func (d *Detector) Invalidate() {
	d.mu.Lock()
	d.valid = false
	d.mu.Unlock()
}

func (d *Detector) refreshLocked() {
	d.candidates = d.list()
	d.valid = true
	metrics.SetCandidates(len(d.candidates))
	d.logger.Debug("Capture candidates refreshed", "count", len(d.candidates))
}

// Start enumerates devices and begins listening for hotplug events.
func (d *Detector) Start(ctx context.Context) error {
	mon, err := d.monitor()
	if err != nil {
		return err
	}

	initial := d.Candidates()
	d.logger.Info("Initialized with V4L2 devices", "count", len(initial))

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	uevents := make(chan hotplug.Event, 16)
	go func() {
		if err := mon.Run(ctx, uevents); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("Hotplug monitor stopped", "error", err)
		}
		_ = mon.Close()
	}()

	go func() {
		defer close(d.done)
		d.logger.Info("Hotplug monitoring started for video4linux devices")
		for ev := range uevents {
			d.handleEvent(ctx, ev)
		}
		d.logger.Info("Hotplug monitor stopped")
	}()
	return nil
}

// Stop ends hotplug monitoring and waits for it to finish.
func (d *Detector) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
}

func (d *Detector) handleEvent(ctx context.Context, ev hotplug.Event) {
	if !ev.ChangesCameraSet() {
		return
	}
	d.logger.Debug("Uevent", "action", ev.Action, "node", ev.Node(), "seq", ev.Seq)

	if ev.Action == hotplug.ActionAdd && d.settle > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.settle):
		}
	}
	d.checkAndBroadcastChanges()
}

// checkAndBroadcastChanges re-enumerates and publishes one event per node
// that appeared or disappeared.
func (d *Detector) checkAndBroadcastChanges() {
	d.mu.Lock()
	previous := d.candidates
	d.refreshLocked()
	current := d.candidates
	d.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	for _, path := range previous {
		if !slices.Contains(current, path) {
			d.logger.Info("Device removed", "device", path)
			d.publish(events.DeviceChangedEvent{Action: ActionRemoved, DevicePath: path, Timestamp: now})
		}
	}
	for _, path := range current {
		if !slices.Contains(previous, path) {
			d.logger.Info("Device added", "device", path)
			d.publish(events.DeviceChangedEvent{Action: ActionAdded, DevicePath: path, Timestamp: now})
		}
	}
}

func (d *Detector) publish(ev events.DeviceChangedEvent) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}
