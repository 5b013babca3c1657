package sensor

import (
	"errors"

	"github.com/smazurov/luxnode/pkg/linuxav/v4l2"
)

// Controls lists the enabled user controls of the device at path.
func (s *Service) Controls(path string) (_ []v4l2.ControlDescriptor, err error) {
	s.session.Lock()
	defer s.session.Unlock()

	cam, err := s.open(path, s.captureLogger)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, cam.Close())
	}()

	var controls []v4l2.ControlDescriptor
	for offset := uint32(0); offset < v4l2.ControlCount; offset++ {
		desc, err := cam.QueryControl(offset)
		if v4l2.IsKind(err, v4l2.ErrKindControlUnsupported) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if desc != nil {
			controls = append(controls, *desc)
		}
	}
	return controls, nil
}

// SetControl writes one control on the device at path and returns its
// state as read back from the driver.
func (s *Service) SetControl(path string, offset uint32, value int32) (_ *v4l2.ControlDescriptor, err error) {
	s.session.Lock()
	defer s.session.Unlock()

	cam, err := s.open(path, s.captureLogger)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, cam.Close())
	}()

	if err := cam.SetControl(offset, value); err != nil {
		return nil, err
	}
	s.logger.Info("Control updated", "device", path, "control", offset, "value", value)
	return cam.QueryControl(offset)
}
