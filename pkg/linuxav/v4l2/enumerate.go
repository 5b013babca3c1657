//go:build linux

package v4l2

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxCandidateIndex is the highest numeric suffix probed by ListCandidates.
const maxCandidateIndex = 63

var (
	sysfsVideoDir = "/sys/class/video4linux"
	byIDDir       = "/dev/v4l/by-id"
)

// CandidatePaths returns the fixed probe order: the bare /dev/video node
// followed by /dev/video0 through /dev/video63.
func CandidatePaths() []string {
	paths := make([]string, 0, maxCandidateIndex+2)
	paths = append(paths, "/dev/video")
	for i := 0; i <= maxCandidateIndex; i++ {
		paths = append(paths, "/dev/video"+strconv.Itoa(i))
	}
	return paths
}

// ListCandidates returns every candidate path that can be opened, in probe
// order. Failures are treated as absent devices.
func ListCandidates() []string {
	return listCandidates(defaultKernel)
}

func listCandidates(sys kernel) []string {
	var found []string
	for _, path := range CandidatePaths() {
		fd, err := sys.Open(path, unix.O_RDONLY)
		if err != nil {
			continue
		}
		_ = sys.Close(fd)
		found = append(found, path)
	}
	return found
}

// DedupeCandidates drops paths that resolve to a node already listed, such
// as a /dev/video symlink pointing at /dev/video0. Order is preserved.
func DedupeCandidates(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		key := path
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			key = resolved
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, path)
	}
	return out
}

// Describe queries identity, capabilities and pixel formats of the node at
// path without negotiating a format.
func Describe(path string) (DeviceInfo, error) {
	return describe(defaultKernel, path)
}

func describe(sys kernel, path string) (DeviceInfo, error) {
	fd, err := sys.Open(path, unix.O_RDWR|unix.O_NONBLOCK)
	if err != nil {
		return DeviceInfo{}, newError(ErrKindOpen, "describe", path, "cannot open device", err)
	}
	defer sys.Close(fd)

	var vc v4l2Capability
	if err := xioctl(sys, fd, vidiocQuerycap, unsafe.Pointer(&vc)); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return DeviceInfo{}, newError(ErrKindCapability, "VIDIOC_QUERYCAP", path, "is no V4L2 device", err)
		}
		return DeviceInfo{}, newError(ErrKindIO, "VIDIOC_QUERYCAP", path, "capability query failed", err)
	}

	info := DeviceInfo{
		Path:    path,
		Name:    cstr(vc.card[:]),
		Driver:  cstr(vc.driver[:]),
		BusInfo: cstr(vc.busInfo[:]),
		Caps:    vc.effectiveCaps(),
	}
	info.ID = stableID(path, info.BusInfo)

	if info.CanCapture() {
		formats, err := enumFormats(sys, fd)
		if err != nil {
			return info, newError(ErrKindIO, "VIDIOC_ENUM_FMT", path, "format enumeration failed", err)
		}
		info.Formats = formats
	}
	return info, nil
}

// stableID prefers the /dev/v4l/by-id/ symlink name and falls back to a
// synthetic ID built from the bus info and sysfs index.
func stableID(path, busInfo string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	name := filepath.Base(resolved)
	index := readSysfsInt(filepath.Join(sysfsVideoDir, name, "index"))

	if id := findStableID(name, index); id != "" {
		return id
	}
	if strings.HasPrefix(busInfo, "usb-") {
		return fmt.Sprintf("%s-video-index%d", busInfo, index)
	}
	return fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/
func findStableID(deviceName string, indexValue int) string {
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	expectedSuffix := fmt.Sprintf("-video-index%d", indexValue)

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}

		if filepath.Base(target) == deviceName && strings.HasSuffix(entry.Name(), expectedSuffix) {
			return entry.Name()
		}
	}

	return ""
}

// readSysfsInt reads an integer value from a sysfs file.
func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
