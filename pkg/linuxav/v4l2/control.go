//go:build linux

package v4l2

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// QueryControl describes the user control at offset from V4L2_CID_BASE. It
// returns nil without error when the driver reports the control disabled.
func (d *Device) QueryControl(offset uint32) (*ControlDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpen("query control"); err != nil {
		return nil, err
	}
	qc, err := d.queryControl(offset)
	if err != nil || qc == nil {
		return nil, err
	}

	ctrl := v4l2Control{id: qc.id}
	if err := xioctl(d.sys, d.fd, vidiocGCtrl, unsafe.Pointer(&ctrl)); err != nil {
		return nil, newErrorf(ErrKindIO, "VIDIOC_G_CTRL", d.path, err, "read control %d failed", offset)
	}

	return &ControlDescriptor{
		ID:      offset,
		Name:    cstr(qc.name[:]),
		Minimum: qc.minimum,
		Maximum: qc.maximum,
		Step:    qc.step,
		Default: qc.defaultValue,
		Value:   ctrl.value,
	}, nil
}

// GetControl returns the current value of the control at offset.
func (d *Device) GetControl(offset uint32) (int32, error) {
	desc, err := d.QueryControl(offset)
	if err != nil {
		return 0, err
	}
	if desc == nil {
		return 0, newErrorf(ErrKindControlUnsupported, "get control", d.path, nil, "control %d is disabled", offset)
	}
	return desc.Value, nil
}

// SetControl writes value to the control at offset. The driver may clamp
// the value.
func (d *Device) SetControl(offset uint32, value int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkOpen("set control"); err != nil {
		return err
	}
	qc, err := d.queryControl(offset)
	if err != nil {
		return err
	}
	if qc == nil {
		return newErrorf(ErrKindControlUnsupported, "set control", d.path, nil, "control %d is disabled", offset)
	}

	ctrl := v4l2Control{id: qc.id, value: value}
	if err := xioctl(d.sys, d.fd, vidiocSCtrl, unsafe.Pointer(&ctrl)); err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ERANGE) {
			return newErrorf(ErrKindControlUnsupported, "VIDIOC_S_CTRL", d.path, err, "control %d rejected value %d", offset, value)
		}
		return newErrorf(ErrKindIO, "VIDIOC_S_CTRL", d.path, err, "write control %d failed", offset)
	}
	d.logger.Debug("Set control", "path", d.path, "control", offset, "value", value)
	return nil
}

func (d *Device) queryControl(offset uint32) (*v4l2Queryctrl, error) {
	qc := v4l2Queryctrl{id: v4l2CIDBase + offset}
	if err := xioctl(d.sys, d.fd, vidiocQueryctrl, unsafe.Pointer(&qc)); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return nil, newErrorf(ErrKindControlUnsupported, "VIDIOC_QUERYCTRL", d.path, err, "control %d is not supported", offset)
		}
		return nil, newErrorf(ErrKindIO, "VIDIOC_QUERYCTRL", d.path, err, "query control %d failed", offset)
	}
	if qc.flags&v4l2CtrlFlagDisabled != 0 {
		return nil, nil
	}
	return &qc, nil
}

func (d *Device) checkOpen(op string) error {
	if d.state.Current() == string(StateClosed) {
		return newError(ErrKindState, op, d.path, "device is closed", nil)
	}
	return nil
}
