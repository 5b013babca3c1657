//go:build linux

package v4l2

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// buffer is one capture region owned by a pool. queued is true while the
// driver owns it.
type buffer struct {
	index  uint32
	data   []byte
	queued bool
}

// bufferPool is the I/O-method specific half of the capture lifecycle,
// chosen once at negotiation.
type bufferPool interface {
	method() IOMethod
	allocate() error
	start() error
	// dequeue takes one filled buffer from the driver and returns it with
	// the number of valid bytes.
	dequeue() (*buffer, int, error)
	requeue(b *buffer) error
	stop() error
	release() error
	buffers() []*buffer
}

func newPool(d *Device, method IOMethod) bufferPool {
	switch method {
	case IORead:
		return &readPool{dev: d}
	case IOUserPtr:
		return &streamPool{dev: d, memory: v4l2MemoryUserPtr, mem: userPtrMemory{}}
	default:
		return &streamPool{dev: d, memory: v4l2MemoryMmap, mem: mmapMemory{}}
	}
}

// readPool holds the single buffer used with read(2) capture.
type readPool struct {
	dev *Device
	buf *buffer
}

func (p *readPool) method() IOMethod { return IORead }

func (p *readPool) allocate() error {
	p.buf = &buffer{data: make([]byte, p.dev.format.SizeImage)}
	return nil
}

func (p *readPool) start() error { return nil }

func (p *readPool) dequeue() (*buffer, int, error) {
	n, err := xread(p.dev.sys, p.dev.fd, p.buf.data)
	if err != nil {
		return nil, 0, newError(ErrKindIO, "read", p.dev.path, "frame read failed", err)
	}
	if n < len(p.buf.data) {
		return nil, 0, newErrorf(ErrKindIO, "read", p.dev.path, nil, "short read: %d of %d bytes", n, len(p.buf.data))
	}
	return p.buf, n, nil
}

func (p *readPool) requeue(*buffer) error { return nil }

func (p *readPool) stop() error { return nil }

func (p *readPool) release() error {
	p.buf = nil
	return nil
}

func (p *readPool) buffers() []*buffer {
	if p.buf == nil {
		return nil
	}
	return []*buffer{p.buf}
}

// memoryBackend supplies the memory for driver-queued buffers.
type memoryBackend interface {
	allocate(d *Device) ([]*buffer, error)
	// fill sets the memory fields of vb for queueing b.
	fill(vb *v4l2Buffer, b *buffer)
	// matches reports whether the dequeued vb refers to b.
	matches(vb *v4l2Buffer, b *buffer) bool
	free(d *Device, bufs []*buffer) error
}

// streamPool implements Mmap and UserPtr capture over QBUF/DQBUF.
type streamPool struct {
	dev    *Device
	memory uint32
	mem    memoryBackend
	bufs   []*buffer
}

func (p *streamPool) method() IOMethod {
	if p.memory == v4l2MemoryUserPtr {
		return IOUserPtr
	}
	return IOMmap
}

func (p *streamPool) allocate() error {
	bufs, err := p.mem.allocate(p.dev)
	if err != nil {
		return err
	}
	p.bufs = bufs
	return nil
}

func (p *streamPool) start() error {
	for _, b := range p.bufs {
		if err := p.queue(b); err != nil {
			return err
		}
	}
	typ := uint32(v4l2BufTypeVideoCapture)
	if err := xioctl(p.dev.sys, p.dev.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return newError(ErrKindIO, "VIDIOC_STREAMON", p.dev.path, "stream on failed", err)
	}
	return nil
}

func (p *streamPool) queue(b *buffer) error {
	vb := v4l2Buffer{typ: v4l2BufTypeVideoCapture, memory: p.memory, index: b.index}
	p.mem.fill(&vb, b)
	if err := xioctl(p.dev.sys, p.dev.fd, vidiocQbuf, unsafe.Pointer(&vb)); err != nil {
		return newErrorf(ErrKindIO, "VIDIOC_QBUF", p.dev.path, err, "queue buffer %d failed", b.index)
	}
	b.queued = true
	return nil
}

func (p *streamPool) dequeue() (*buffer, int, error) {
	vb := v4l2Buffer{typ: v4l2BufTypeVideoCapture, memory: p.memory}
	if err := xioctl(p.dev.sys, p.dev.fd, vidiocDqbuf, unsafe.Pointer(&vb)); err != nil {
		return nil, 0, newError(ErrKindIO, "VIDIOC_DQBUF", p.dev.path, "dequeue failed", err)
	}
	if int(vb.index) >= len(p.bufs) {
		return nil, 0, newErrorf(ErrKindConsistency, "VIDIOC_DQBUF", p.dev.path, nil,
			"buffer index %d out of range (pool size %d)", vb.index, len(p.bufs))
	}
	b := p.bufs[vb.index]
	if !b.queued {
		return nil, 0, newErrorf(ErrKindConsistency, "VIDIOC_DQBUF", p.dev.path, nil,
			"buffer %d dequeued but not owned by driver", vb.index)
	}
	if !p.mem.matches(&vb, b) {
		return nil, 0, newErrorf(ErrKindConsistency, "VIDIOC_DQBUF", p.dev.path, nil,
			"buffer %d does not match pool memory", vb.index)
	}
	b.queued = false

	n := int(vb.bytesused)
	if n == 0 || n > len(b.data) {
		n = len(b.data)
	}
	return b, n, nil
}

func (p *streamPool) requeue(b *buffer) error {
	return p.queue(b)
}

func (p *streamPool) stop() error {
	typ := uint32(v4l2BufTypeVideoCapture)
	err := xioctl(p.dev.sys, p.dev.fd, vidiocStreamoff, unsafe.Pointer(&typ))
	// STREAMOFF returns every buffer to userspace, even when it fails midway.
	for _, b := range p.bufs {
		b.queued = false
	}
	if err != nil {
		return newError(ErrKindIO, "VIDIOC_STREAMOFF", p.dev.path, "stream off failed", err)
	}
	return nil
}

func (p *streamPool) release() error {
	err := p.mem.free(p.dev, p.bufs)
	p.bufs = nil

	req := v4l2RequestBuffers{count: 0, typ: v4l2BufTypeVideoCapture, memory: p.memory}
	if rerr := xioctl(p.dev.sys, p.dev.fd, vidiocReqbufs, unsafe.Pointer(&req)); rerr != nil {
		p.dev.logger.Debug("Buffer request reset failed", "path", p.dev.path, "error", rerr)
	}
	return err
}

func (p *streamPool) buffers() []*buffer {
	return p.bufs
}

// requestBuffers asks the driver for captureBufferCount buffers of memory.
func requestBuffers(d *Device, memory uint32) (uint32, error) {
	req := v4l2RequestBuffers{count: captureBufferCount, typ: v4l2BufTypeVideoCapture, memory: memory}
	if err := xioctl(d.sys, d.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return 0, newError(ErrKindBufferAlloc, "VIDIOC_REQBUFS", d.path, "buffer request rejected", err)
	}
	if req.count < 1 {
		return 0, newError(ErrKindBufferAlloc, "VIDIOC_REQBUFS", d.path, "insufficient buffer memory", nil)
	}
	return req.count, nil
}

// mmapMemory maps driver-allocated buffers into the process.
type mmapMemory struct{}

func (mmapMemory) allocate(d *Device) ([]*buffer, error) {
	count, err := requestBuffers(d, v4l2MemoryMmap)
	if err != nil {
		return nil, err
	}

	bufs := make([]*buffer, 0, count)
	for i := uint32(0); i < count; i++ {
		vb := v4l2Buffer{typ: v4l2BufTypeVideoCapture, memory: v4l2MemoryMmap, index: i}
		if err := xioctl(d.sys, d.fd, vidiocQuerybuf, unsafe.Pointer(&vb)); err != nil {
			return nil, errors.Join(
				newErrorf(ErrKindBufferAlloc, "VIDIOC_QUERYBUF", d.path, err, "query buffer %d failed", i),
				mmapMemory{}.free(d, bufs))
		}
		data, err := d.sys.Mmap(d.fd, int64(vb.offset()), int(vb.length))
		if err != nil {
			return nil, errors.Join(
				newErrorf(ErrKindBufferAlloc, "mmap", d.path, err, "map buffer %d failed", i),
				mmapMemory{}.free(d, bufs))
		}
		bufs = append(bufs, &buffer{index: i, data: data})
	}
	return bufs, nil
}

func (mmapMemory) fill(*v4l2Buffer, *buffer) {}

func (mmapMemory) matches(vb *v4l2Buffer, b *buffer) bool {
	return vb.index == b.index
}

func (mmapMemory) free(d *Device, bufs []*buffer) error {
	var errs []error
	for _, b := range bufs {
		if err := d.sys.Munmap(b.data); err != nil {
			errs = append(errs, newErrorf(ErrKindIO, "munmap", d.path, err, "unmap buffer %d failed", b.index))
		}
	}
	return errors.Join(errs...)
}

// userPtrMemory hands page-aligned process memory to the driver. Each
// buffer is tagged with its index so a dequeue is matched by index and
// then checked against the pointer and length that were queued.
type userPtrMemory struct{}

func (userPtrMemory) allocate(d *Device) ([]*buffer, error) {
	page := uint32(d.sys.Pagesize())
	size := (d.format.SizeImage + page - 1) &^ (page - 1)

	count, err := requestBuffers(d, v4l2MemoryUserPtr)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && errors.Is(e.Cause, unix.EINVAL) {
			e.Message = "does not support user pointer i/o"
		}
		return nil, err
	}

	bufs := make([]*buffer, 0, count)
	for i := uint32(0); i < count; i++ {
		data, err := d.sys.Alloc(int(size))
		if err != nil {
			return nil, errors.Join(
				newErrorf(ErrKindBufferAlloc, "alloc", d.path, err, "allocate buffer %d failed", i),
				userPtrMemory{}.free(d, bufs))
		}
		bufs = append(bufs, &buffer{index: i, data: data})
	}
	return bufs, nil
}

func (userPtrMemory) fill(vb *v4l2Buffer, b *buffer) {
	vb.setUserPtr(uintptr(unsafe.Pointer(&b.data[0])))
	vb.length = uint32(len(b.data))
}

func (userPtrMemory) matches(vb *v4l2Buffer, b *buffer) bool {
	return vb.index == b.index &&
		vb.userPtr() == uintptr(unsafe.Pointer(&b.data[0])) &&
		vb.length == uint32(len(b.data))
}

func (userPtrMemory) free(d *Device, bufs []*buffer) error {
	var errs []error
	for _, b := range bufs {
		if err := d.sys.Free(b.data); err != nil {
			errs = append(errs, newErrorf(ErrKindIO, "free", d.path, err, "free buffer %d failed", b.index))
		}
	}
	return errors.Join(errs...)
}
