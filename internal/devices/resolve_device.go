package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// byIDDir holds the stable symlinks udev creates for USB cameras.
var byIDDir = "/dev/v4l/by-id"

// ResolveDevicePath converts a device ID or path into a device path. IDs
// reported by Devices are matched first, then /dev/v4l/by-id symlinks.
func (d *Detector) ResolveDevicePath(deviceID string) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("empty device id")
	}
	if strings.HasPrefix(deviceID, "/dev/") {
		return deviceID, nil
	}

	for _, info := range d.Devices() {
		if info.ID == deviceID {
			return info.Path, nil
		}
	}

	devicePath := filepath.Join(byIDDir, deviceID)
	if _, err := os.Stat(devicePath); err == nil {
		return devicePath, nil
	}
	return "", fmt.Errorf("no device found for id: %s", deviceID)
}
