//go:build linux

package v4l2

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Negotiate checks that the device can capture with method and requests a
// 160x120 YUYV interlaced format. The driver may override the geometry but
// not the pixel format. Bytes-per-line and image size are floored to their
// minimum legal values to work around drivers that report them too small.
func (d *Device) Negotiate(method IOMethod) (Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.can("negotiate", eventNegotiate); err != nil {
		return Format{}, err
	}

	caps, err := d.queryCapability()
	if err != nil {
		return Format{}, err
	}
	if caps&v4l2CapVideoCapture == 0 {
		return Format{}, newError(ErrKindCapability, "negotiate", d.path, "is no video capture device", nil)
	}
	switch method {
	case IORead:
		if caps&v4l2CapReadWrite == 0 {
			return Format{}, newError(ErrKindCapability, "negotiate", d.path, "does not support read i/o", nil)
		}
	case IOMmap, IOUserPtr:
		if caps&v4l2CapStreaming == 0 {
			return Format{}, newError(ErrKindCapability, "negotiate", d.path, "does not support streaming i/o", nil)
		}
	default:
		return Format{}, newErrorf(ErrKindValidation, "negotiate", d.path, nil, "unknown io method %d", int(method))
	}

	d.resetCrop()

	var vf v4l2Format
	vf.typ = v4l2BufTypeVideoCapture
	pix := vf.pix()
	pix.width = captureWidth
	pix.height = captureHeight
	pix.pixelformat = v4l2PixFmtYUYV
	pix.field = v4l2FieldInterlaced
	if err := xioctl(d.sys, d.fd, vidiocSFmt, unsafe.Pointer(&vf)); err != nil {
		return Format{}, newError(ErrKindFormat, "VIDIOC_S_FMT", d.path, "format rejected", err)
	}

	format := applyFloor(Format{
		Width:        pix.width,
		Height:       pix.height,
		PixelFormat:  pix.pixelformat,
		Field:        pix.field,
		BytesPerLine: pix.bytesperline,
		SizeImage:    pix.sizeimage,
	})
	if format.PixelFormat != v4l2PixFmtYUYV {
		return Format{}, newErrorf(ErrKindFormat, "VIDIOC_S_FMT", d.path, nil,
			"driver substituted pixel format %s for YUYV", FormatFourCC(format.PixelFormat))
	}

	d.format = format
	d.method = method
	d.pool = newPool(d, method)
	d.advance(eventNegotiate)
	d.logger.Info("Negotiated capture format",
		"path", d.path,
		"method", method.String(),
		"width", format.Width,
		"height", format.Height,
		"bytes_per_line", format.BytesPerLine,
		"size_image", format.SizeImage)
	return format, nil
}

// applyFloor raises BytesPerLine to width*2 and SizeImage to
// BytesPerLine*height when the driver reports smaller values.
func applyFloor(f Format) Format {
	if minLine := f.Width * 2; f.BytesPerLine < minLine {
		f.BytesPerLine = minLine
	}
	if minSize := f.BytesPerLine * f.Height; f.SizeImage < minSize {
		f.SizeImage = minSize
	}
	return f
}

func (d *Device) queryCapability() (uint32, error) {
	var vc v4l2Capability
	if err := xioctl(d.sys, d.fd, vidiocQuerycap, unsafe.Pointer(&vc)); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return 0, newError(ErrKindCapability, "VIDIOC_QUERYCAP", d.path, "is no V4L2 device", err)
		}
		return 0, newError(ErrKindIO, "VIDIOC_QUERYCAP", d.path, "capability query failed", err)
	}
	return vc.effectiveCaps(), nil
}

// resetCrop selects the default crop rectangle. Errors are ignored since
// many drivers do not implement cropping.
func (d *Device) resetCrop() {
	cropcap := v4l2Cropcap{typ: v4l2BufTypeVideoCapture}
	if err := xioctl(d.sys, d.fd, vidiocCropcap, unsafe.Pointer(&cropcap)); err != nil {
		d.logger.Debug("Crop capability query failed", "path", d.path, "error", err)
		return
	}
	crop := v4l2Crop{typ: v4l2BufTypeVideoCapture, c: cropcap.defrect}
	if err := xioctl(d.sys, d.fd, vidiocSCrop, unsafe.Pointer(&crop)); err != nil {
		d.logger.Debug("Crop reset failed", "path", d.path, "error", err)
	}
}

// enumFormats lists the capture pixel formats reported by an open fd.
func enumFormats(sys kernel, fd int) ([]FormatInfo, error) {
	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{index: i, typ: v4l2BufTypeVideoCapture}
		if err := xioctl(sys, fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break // End of enumeration
			}
			return formats, err
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FourCC:      FormatFourCC(desc.pixelformat),
			Name:        cstr(desc.description[:]),
			Emulated:    desc.flags&v4l2FmtFlagEmulated != 0,
		})
	}
	return formats, nil
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}
