//go:build linux && arm && !arm64

package v4l2

import "unsafe"

// Compile-time struct size assertions for 32-bit ARM.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
)

// IOCTL constants for 32-bit ARM.
// v4l2_format loses its 8-byte union alignment and v4l2_buffer shrinks
// because struct timeval and pointers are 4 bytes wide.
const (
	vidiocSFmt     = 0xc0cc5605
	vidiocQuerybuf = 0xc0445609
	vidiocQbuf     = 0xc044560f
	vidiocDqbuf    = 0xc0445611
)

// v4l2Format has size 204 bytes on 32-bit.
type v4l2Format struct {
	typ uint32    // offset 0
	fmt [200]byte // offset 4
}

// pix returns the single-planar pixel format view of the union.
func (f *v4l2Format) pix() *v4l2PixFormat {
	return (*v4l2PixFormat)(unsafe.Pointer(&f.fmt[0]))
}

// v4l2Buffer has size 68 bytes on 32-bit.
type v4l2Buffer struct {
	index     uint32   // offset 0
	typ       uint32   // offset 4
	bytesused uint32   // offset 8
	flags     uint32   // offset 12
	field     uint32   // offset 16
	timestamp [8]byte  // offset 20 - struct timeval
	timecode  [16]byte // offset 28
	sequence  uint32   // offset 44
	memory    uint32   // offset 48
	m         uint32   // offset 52 - union of offset, userptr, planes, fd
	length    uint32   // offset 56
	reserved2 uint32   // offset 60
	requestFD int32    // offset 64
}

// offset returns the mmap offset member of the m union.
func (b *v4l2Buffer) offset() uint32 {
	return b.m
}

// setOffset stores o in the mmap offset member of the m union.
func (b *v4l2Buffer) setOffset(o uint32) {
	b.m = o
}

// userPtr returns the userptr member of the m union.
func (b *v4l2Buffer) userPtr() uintptr {
	return uintptr(b.m)
}

// setUserPtr stores p in the userptr member of the m union.
func (b *v4l2Buffer) setUserPtr(p uintptr) {
	b.m = uint32(p)
}
