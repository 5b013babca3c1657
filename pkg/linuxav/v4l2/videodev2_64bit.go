//go:build linux && (amd64 || arm64)

package v4l2

import "unsafe"

// Compile-time struct size assertions.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [208]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
)

// IOCTL constants for 64-bit architectures.
const (
	vidiocSFmt     = 0xc0d05605
	vidiocQuerybuf = 0xc0585609
	vidiocQbuf     = 0xc058560f
	vidiocDqbuf    = 0xc0585611
)

// v4l2Format has size 208 bytes. The union is 8-byte aligned because
// v4l2_window carries pointers.
type v4l2Format struct {
	typ uint32    // offset 0
	_   [4]byte   // padding
	fmt [200]byte // offset 8
}

// pix returns the single-planar pixel format view of the union.
func (f *v4l2Format) pix() *v4l2PixFormat {
	return (*v4l2PixFormat)(unsafe.Pointer(&f.fmt[0]))
}

// v4l2Buffer has size 88 bytes.
type v4l2Buffer struct {
	index     uint32   // offset 0
	typ       uint32   // offset 4
	bytesused uint32   // offset 8
	flags     uint32   // offset 12
	field     uint32   // offset 16
	_         [4]byte  // padding
	timestamp [16]byte // offset 24 - struct timeval
	timecode  [16]byte // offset 40
	sequence  uint32   // offset 56
	memory    uint32   // offset 60
	m         uint64   // offset 64 - union of offset, userptr, planes, fd
	length    uint32   // offset 72
	reserved2 uint32   // offset 76
	requestFD int32    // offset 80
	_         [4]byte  // padding to 88
}

// offset returns the mmap offset member of the m union.
func (b *v4l2Buffer) offset() uint32 {
	return uint32(b.m)
}

// setOffset stores o in the mmap offset member of the m union.
func (b *v4l2Buffer) setOffset(o uint32) {
	b.m = uint64(o)
}

// userPtr returns the userptr member of the m union.
func (b *v4l2Buffer) userPtr() uintptr {
	return uintptr(b.m)
}

// setUserPtr stores p in the userptr member of the m union.
func (b *v4l2Buffer) setUserPtr(p uintptr) {
	b.m = uint64(p)
}
