//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) capture
// API, sized for ambient-light sampling: one device, one fixed 160x120 YUYV
// format, one frame at a time.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// ListCandidates probes /dev/video and /dev/video0 through /dev/video63 and
// reports every path that opens:
//
//	for _, path := range v4l2.ListCandidates() {
//	    info, _ := v4l2.Describe(path)
//	    fmt.Printf("%s: %s\n", path, info.Name)
//	}
//
// # Capture Lifecycle
//
// A Device moves through a fixed sequence of states. Calls made out of order
// fail with ErrKindState instead of reaching the kernel:
//
//	dev, err := v4l2.Open("/dev/video0")
//	defer dev.Close() // stops and releases buffers if still needed
//
//	_, err = dev.Negotiate(v4l2.IOMmap)
//	err = dev.Allocate()
//	err = dev.Start()
//	brightness, err := dev.CaptureOne()
//	err = dev.Stop()
//	err = dev.Release()
//
// The device is opened non-blocking: CaptureOne returns an error wrapping
// syscall.EAGAIN while the driver has no frame ready. Retrying is up to the
// caller.
//
// # Controls
//
// Individual driver controls are addressed by their offset from
// V4L2_CID_BASE:
//
//	ctrl, err := dev.QueryControl(v4l2.ControlAutoGain)
//	if err == nil && ctrl != nil {
//	    err = dev.SetControl(v4l2.ControlAutoGain, ctrl.Minimum)
//	}
package v4l2
