package models

import "github.com/smazurov/luxnode/pkg/linuxav/v4l2"

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	DevicePath   string   `json:"device_path" example:"/dev/video0" doc:"Device node"`
	DeviceName   string   `json:"device_name" example:"HD Webcam C525" doc:"Card name reported by the driver"`
	DeviceID     string   `json:"device_id" example:"usb-046d_HD_Webcam_C525-video-index0" doc:"Stable device identifier"`
	Driver       string   `json:"driver" example:"uvcvideo" doc:"Kernel driver"`
	BusInfo      string   `json:"bus_info" example:"usb-0000:00:14.0-1" doc:"Bus location"`
	Caps         uint32   `json:"caps" example:"2225078273" doc:"Raw V4L2 capability flags"`
	Capabilities []string `json:"capabilities" doc:"Readable capability names"`
	Formats      []string `json:"formats,omitempty" example:"[\"YUYV\",\"MJPG\"]" doc:"Supported pixel formats"`
}

// DeviceData lists capture devices.
type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"Capture devices in probe order"`
	Count   int          `json:"count" example:"1" doc:"Number of devices"`
}

// DevicesResponse wraps DeviceData.
type DevicesResponse struct {
	Body DeviceData
}

// ControlData is one user control and its live value.
type ControlData struct {
	Offset  uint32 `json:"offset" example:"0" doc:"Offset from V4L2_CID_BASE"`
	Name    string `json:"name" example:"Brightness" doc:"Control name"`
	Minimum int32  `json:"minimum" example:"0" doc:"Minimum value"`
	Maximum int32  `json:"maximum" example:"255" doc:"Maximum value"`
	Step    int32  `json:"step" example:"1" doc:"Value step"`
	Default int32  `json:"default" example:"128" doc:"Default value"`
	Value   int32  `json:"value" example:"128" doc:"Current value"`
}

// ControlsInput selects the device whose controls are read.
type ControlsInput struct {
	Device string `query:"device" example:"/dev/video0" doc:"Device path or stable ID; empty selects the sampling camera"`
}

// ControlsData lists the enabled controls of a device.
type ControlsData struct {
	DevicePath string        `json:"device_path" example:"/dev/video0" doc:"Device node"`
	Controls   []ControlData `json:"controls" doc:"Enabled user controls"`
}

// ControlsResponse wraps ControlsData.
type ControlsResponse struct {
	Body ControlsData
}

// SetControlInput writes one control.
type SetControlInput struct {
	Offset uint32 `path:"offset" maximum:"43" example:"0" doc:"Offset from V4L2_CID_BASE"`
	Device string `query:"device" example:"/dev/video0" doc:"Device path or stable ID; empty selects the sampling camera"`
	Body   struct {
		Value int32 `json:"value" example:"100" doc:"New value; the driver may clamp it"`
	}
}

// ControlResponse returns the control as read back after a write.
type ControlResponse struct {
	Body ControlData
}

// ConvertControl maps a driver descriptor onto the API shape.
func ConvertControl(d v4l2.ControlDescriptor) ControlData {
	return ControlData{
		Offset:  d.ID,
		Name:    d.Name,
		Minimum: d.Minimum,
		Maximum: d.Maximum,
		Step:    d.Step,
		Default: d.Default,
		Value:   d.Value,
	}
}

// ConvertDevice maps a device description onto the API shape.
func ConvertDevice(info v4l2.DeviceInfo) DeviceInfo {
	formats := make([]string, 0, len(info.Formats))
	for _, f := range info.Formats {
		formats = append(formats, f.FourCC)
	}
	return DeviceInfo{
		DevicePath:   info.Path,
		DeviceName:   info.Name,
		DeviceID:     info.ID,
		Driver:       info.Driver,
		BusInfo:      info.BusInfo,
		Caps:         info.Caps,
		Capabilities: TranslateCapabilities(info.Caps),
		Formats:      formats,
	}
}

// V4L2 capability flags (from linux/videodev2.h).
const (
	capVideoCapture       = 0x00000001
	capVideoOutput        = 0x00000002
	capVideoOverlay       = 0x00000004
	capVideoCaptureMplane = 0x00001000
	capVideoM2M           = 0x00008000
	capExtPixFormat       = 0x00200000
	capMetaCapture        = 0x00800000
	capReadWrite          = 0x01000000
	capStreaming          = 0x04000000
	capIOMC               = 0x20000000
)

var capNames = []struct {
	flag uint32
	name string
}{
	{capVideoCapture, "Video Capture"},
	{capVideoOutput, "Video Output"},
	{capVideoOverlay, "Video Overlay"},
	{capVideoCaptureMplane, "Multi-planar Video Capture"},
	{capVideoM2M, "Memory-to-Memory"},
	{capExtPixFormat, "Extended Pixel Format"},
	{capMetaCapture, "Metadata Capture"},
	{capReadWrite, "Read/Write I/O"},
	{capStreaming, "Streaming I/O"},
	{capIOMC, "Media Controller I/O"},
}

// TranslateCapabilities converts capability flags to readable names, in a
// fixed order.
func TranslateCapabilities(caps uint32) []string {
	capabilities := []string{}
	for _, c := range capNames {
		if caps&c.flag != 0 {
			capabilities = append(capabilities, c.name)
		}
	}
	return capabilities
}
