//go:build linux

package v4l2

import (
	"errors"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernel is the set of system calls the package issues against a device
// node. Tests substitute a fake to drive the capture lifecycle without
// hardware.
type kernel interface {
	Stat(path string) (os.FileInfo, error)
	Open(path string, flags int) (int, error)
	Close(fd int) error
	Ioctl(fd int, req uint, arg unsafe.Pointer) error
	Read(fd int, p []byte) (int, error)
	Mmap(fd int, offset int64, length int) ([]byte, error)
	Munmap(b []byte) error
	// Alloc returns page-aligned anonymous memory for user-pointer buffers.
	Alloc(length int) ([]byte, error)
	Free(b []byte) error
	Pagesize() int
}

type unixKernel struct{}

var defaultKernel kernel = unixKernel{}

func (unixKernel) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (unixKernel) Open(path string, flags int) (int, error) {
	return unix.Open(path, flags|unix.O_CLOEXEC, 0)
}

func (unixKernel) Close(fd int) error {
	return unix.Close(fd)
}

func (unixKernel) Ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (unixKernel) Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

func (unixKernel) Mmap(fd int, offset int64, length int) ([]byte, error) {
	return unix.Mmap(fd, offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (unixKernel) Munmap(b []byte) error {
	return unix.Munmap(b)
}

func (unixKernel) Alloc(length int) ([]byte, error) {
	return unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

func (unixKernel) Free(b []byte) error {
	return unix.Munmap(b)
}

func (unixKernel) Pagesize() int {
	return unix.Getpagesize()
}

// xioctl issues req and retries while the call is interrupted by a signal.
func xioctl(sys kernel, fd int, req uint, arg unsafe.Pointer) error {
	for {
		err := sys.Ioctl(fd, req, arg)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// xread reads into p and retries while the call is interrupted by a signal.
func xread(sys kernel, fd int, p []byte) (int, error) {
	for {
		n, err := sys.Read(fd, p)
		if !errors.Is(err, unix.EINTR) {
			return n, err
		}
	}
}
