package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

const testDebounce = 20 * time.Millisecond

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

// startWatcher creates a watched file and returns it with a started watcher.
func startWatcher(t *testing.T, loader func(string) (string, error), opts ...WatcherOption[string]) (string, *Watcher[string]) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("initial"), 0o600); err != nil {
		t.Fatal(err)
	}
	opts = append([]WatcherOption[string]{WithDebounce[string](testDebounce)}, opts...)
	w := NewConfigWatcher(path, loader, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return path, w
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
		return ""
	}
}

func TestConfigWatcherReload(t *testing.T) {
	path, w := startWatcher(t, readContent)

	got := make(chan string, 4)
	w.OnReload(func(v string) { got <- v })

	if err := os.WriteFile(path, []byte("updated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if v := waitFor(t, got); v != "updated" {
		t.Errorf("reloaded value = %q, want updated", v)
	}
}

func TestConfigWatcherReplacedFile(t *testing.T) {
	path, w := startWatcher(t, readContent)

	got := make(chan string, 4)
	w.OnReload(func(v string) { got <- v })

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte("replaced"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if v := waitFor(t, got); v != "replaced" {
		t.Errorf("reloaded value = %q, want replaced", v)
	}
}

func TestConfigWatcherIgnoresSiblings(t *testing.T) {
	path, w := startWatcher(t, readContent)

	var calls atomic.Int32
	w.OnReload(func(string) { calls.Add(1) })

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(sibling, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * testDebounce)
	if calls.Load() != 0 {
		t.Errorf("handler called %d times for unrelated file", calls.Load())
	}
}

func TestConfigWatcherUnsubscribe(t *testing.T) {
	path, w := startWatcher(t, readContent)

	var removed atomic.Int32
	unsubscribe := w.OnReload(func(string) { removed.Add(1) })
	got := make(chan string, 4)
	w.OnReload(func(v string) { got <- v })
	unsubscribe()

	if err := os.WriteFile(path, []byte("after"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, got)
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestConfigWatcherErrorHandler(t *testing.T) {
	loadErr := errors.New("parse failure")
	errs := make(chan error, 4)
	path, w := startWatcher(t,
		func(string) (string, error) { return "", loadErr },
		WithErrorHandler[string](func(err error) { errs <- err }))

	var calls atomic.Int32
	w.OnReload(func(string) { calls.Add(1) })

	if err := os.WriteFile(path, []byte("broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if !errors.Is(err, loadErr) {
			t.Errorf("error = %v, want %v", err, loadErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error handler")
	}
	if calls.Load() != 0 {
		t.Error("reload handler called despite load error")
	}
}

func TestConfigWatcherDebounce(t *testing.T) {
	var loads atomic.Int32
	path, w := startWatcher(t, func(p string) (string, error) {
		loads.Add(1)
		return readContent(p)
	}, WithDebounce[string](100*time.Millisecond))

	got := make(chan string, 8)
	w.OnReload(func(v string) { got <- v })

	for _, v := range []string{"a", "b", "c"} {
		if err := os.WriteFile(path, []byte(v), 0o600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if v := waitFor(t, got); v != "c" {
		t.Errorf("reloaded value = %q, want c", v)
	}
	time.Sleep(200 * time.Millisecond)
	if loads.Load() != 1 {
		t.Errorf("loader ran %d times, want 1", loads.Load())
	}
}

func TestConfigWatcherStop(t *testing.T) {
	path, w := startWatcher(t, readContent)

	var calls atomic.Int32
	w.OnReload(func(string) { calls.Add(1) })
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("late"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * testDebounce)
	if calls.Load() != 0 {
		t.Error("handler called after Stop")
	}
}

func TestConfigWatcherReloadKeepsCLIFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[camera]\ndevice = \"/dev/video0\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("camera-device", "", "")
	if err := cmd.Flags().Set("camera-device", "/dev/video2"); err != nil {
		t.Fatal(err)
	}
	startup := defaultOptions()
	startup.Config = path
	startup.CameraDevice = "/dev/video2"
	if err := LoadConfig(&startup, cmd); err != nil {
		t.Fatal(err)
	}

	w := NewConfigWatcher(path, func(p string) (Options, error) {
		return LoadFile(p, startup, cmd)
	}, newTestLogger(), WithDebounce[Options](testDebounce))
	got := make(chan Options, 4)
	w.OnReload(func(o Options) { got <- o })
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := os.WriteFile(path, []byte("[camera]\ndevice = \"/dev/video0\"\nwarmup_frames = 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case o := <-got:
		if o.CameraDevice != "/dev/video2" {
			t.Errorf("CameraDevice = %q, want CLI value /dev/video2", o.CameraDevice)
		}
		if o.CameraWarmupFrames != 3 {
			t.Errorf("CameraWarmupFrames = %d, want 3 from file", o.CameraWarmupFrames)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
