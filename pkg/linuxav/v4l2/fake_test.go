//go:build linux

package v4l2

import (
	"io"
	"log/slog"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type fakeControl struct {
	name                     string
	min, max, step, def, val int32
	flags                    uint32
}

// fakeKernel emulates a single V4L2 capture driver.
type fakeKernel struct {
	openable map[string]bool
	notChar  bool
	openErr  error

	caps   uint32
	capErr error

	// setFormat lets a test override what the driver writes back on S_FMT.
	setFormat func(p *v4l2PixFormat)
	sfmtErr   error
	cropErr   error

	grant  uint32
	reqErr error

	frame     []byte
	dqIndex   *uint32
	dqErr     error
	qbufErr   error
	streamErr error
	readShort bool
	eintr     map[uint]int

	controls map[uint32]*fakeControl
	sctrlErr error

	nextFD    int
	closed    int
	streaming bool
	queue     []uint32
	userptrs  map[uint32]uintptr
	mapped    map[int64][]byte
	allocs    map[uintptr][]byte
	mmaps     int
	munmaps   int
	frees     int
	calls     map[uint]int
	lastReq   v4l2RequestBuffers
	bufLength uint32
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		openable: map[string]bool{"/dev/video0": true},
		caps:     v4l2CapVideoCapture | v4l2CapReadWrite | v4l2CapStreaming,
		grant:    1,
		frame:    uniformYUYV(captureWidth, captureHeight, 128),
		eintr:    map[uint]int{},
		controls: map[uint32]*fakeControl{},
		nextFD:   3,
		userptrs: map[uint32]uintptr{},
		mapped:   map[int64][]byte{},
		allocs:   map[uintptr][]byte{},
		calls:    map[uint]int{},
	}
}

func uniformYUYV(width, height int, y byte) []byte {
	data := make([]byte, width*height*2)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = y, 128, y, 128
	}
	return data
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openFake opens /dev/video0 against k.
func openFake(k *fakeKernel) (*Device, error) {
	return Open("/dev/video0", withKernel(k), WithLogger(quietLogger()))
}

type fakeFileInfo struct {
	name string
	mode os.FileMode
}

func (fi fakeFileInfo) Name() string       { return fi.name }
func (fi fakeFileInfo) Size() int64        { return 0 }
func (fi fakeFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (fi fakeFileInfo) IsDir() bool        { return false }
func (fi fakeFileInfo) Sys() any           { return nil }

func (k *fakeKernel) Stat(path string) (os.FileInfo, error) {
	if !k.openable[path] {
		return nil, unix.ENOENT
	}
	mode := os.ModeDevice | os.ModeCharDevice
	if k.notChar {
		mode = 0
	}
	return fakeFileInfo{name: path, mode: mode}, nil
}

func (k *fakeKernel) Open(path string, _ int) (int, error) {
	if k.openErr != nil {
		return -1, k.openErr
	}
	if !k.openable[path] {
		return -1, unix.ENOENT
	}
	k.nextFD++
	return k.nextFD, nil
}

func (k *fakeKernel) Close(int) error {
	k.closed++
	return nil
}

func (k *fakeKernel) Pagesize() int { return 4096 }

func (k *fakeKernel) Mmap(_ int, offset int64, length int) ([]byte, error) {
	b := make([]byte, length)
	k.mapped[offset] = b
	k.mmaps++
	return b, nil
}

func (k *fakeKernel) Munmap([]byte) error {
	k.munmaps++
	return nil
}

func (k *fakeKernel) Alloc(length int) ([]byte, error) {
	b := make([]byte, length)
	k.allocs[uintptr(unsafe.Pointer(&b[0]))] = b
	return b, nil
}

func (k *fakeKernel) Free([]byte) error {
	k.frees++
	return nil
}

// readCall keys eintr for read(2), which has no ioctl number.
const readCall uint = 0

func (k *fakeKernel) Read(_ int, p []byte) (int, error) {
	if k.eintr[readCall] > 0 {
		k.eintr[readCall]--
		return 0, unix.EINTR
	}
	n := copy(p, k.frame)
	if k.readShort {
		n /= 2
	}
	return n, nil
}

func (k *fakeKernel) Ioctl(_ int, req uint, arg unsafe.Pointer) error {
	k.calls[req]++
	if k.eintr[req] > 0 {
		k.eintr[req]--
		return unix.EINTR
	}

	switch req {
	case vidiocQuerycap:
		if k.capErr != nil {
			return k.capErr
		}
		c := (*v4l2Capability)(arg)
		copy(c.driver[:], "fakecam")
		copy(c.card[:], "Fake Camera")
		copy(c.busInfo[:], "usb-0000:00:14.0-1")
		c.capabilities = k.caps
	case vidiocEnumFmt:
		d := (*v4l2Fmtdesc)(arg)
		if d.index > 0 {
			return unix.EINVAL
		}
		d.pixelformat = v4l2PixFmtYUYV
		copy(d.description[:], "YUYV 4:2:2")
	case vidiocCropcap:
		if k.cropErr != nil {
			return k.cropErr
		}
		c := (*v4l2Cropcap)(arg)
		c.defrect = v4l2Rect{width: 640, height: 480}
	case vidiocSCrop:
		return k.cropErr
	case vidiocSFmt:
		if k.sfmtErr != nil {
			return k.sfmtErr
		}
		pix := (*v4l2Format)(arg).pix()
		if k.setFormat != nil {
			k.setFormat(pix)
		} else {
			pix.bytesperline = pix.width * 2
			pix.sizeimage = pix.bytesperline * pix.height
		}
		k.bufLength = pix.sizeimage
		if k.bufLength < pix.width*2*pix.height {
			k.bufLength = pix.width * 2 * pix.height
		}
	case vidiocReqbufs:
		r := (*v4l2RequestBuffers)(arg)
		k.lastReq = *r
		if r.count == 0 {
			return nil
		}
		if k.reqErr != nil {
			return k.reqErr
		}
		r.count = k.grant
	case vidiocQuerybuf:
		b := (*v4l2Buffer)(arg)
		b.length = k.bufLength
		b.setOffset(b.index * 4096)
	case vidiocQbuf:
		if k.qbufErr != nil {
			return k.qbufErr
		}
		b := (*v4l2Buffer)(arg)
		if b.memory == v4l2MemoryUserPtr {
			k.userptrs[b.index] = b.userPtr()
		}
		k.queue = append(k.queue, b.index)
	case vidiocDqbuf:
		if k.dqErr != nil {
			return k.dqErr
		}
		if !k.streaming || len(k.queue) == 0 {
			return unix.EAGAIN
		}
		b := (*v4l2Buffer)(arg)
		index := k.queue[0]
		k.queue = k.queue[1:]
		b.index = index
		if k.dqIndex != nil {
			b.index = *k.dqIndex
		}
		var mem []byte
		if b.memory == v4l2MemoryUserPtr {
			ptr := k.userptrs[index]
			mem = k.allocs[ptr]
			b.setUserPtr(ptr)
			b.length = uint32(len(mem))
		} else {
			mem = k.mapped[int64(index*4096)]
		}
		b.bytesused = uint32(copy(mem, k.frame))
	case vidiocStreamon:
		if k.streamErr != nil {
			return k.streamErr
		}
		k.streaming = true
	case vidiocStreamoff:
		k.streaming = false
		k.queue = nil
	case vidiocQueryctrl:
		q := (*v4l2Queryctrl)(arg)
		c, ok := k.controls[q.id-v4l2CIDBase]
		if !ok {
			return unix.EINVAL
		}
		copy(q.name[:], c.name)
		q.minimum, q.maximum, q.step, q.defaultValue = c.min, c.max, c.step, c.def
		q.flags = c.flags
	case vidiocGCtrl:
		ctrl := (*v4l2Control)(arg)
		ctrl.value = k.controls[ctrl.id-v4l2CIDBase].val
	case vidiocSCtrl:
		if k.sctrlErr != nil {
			return k.sctrlErr
		}
		ctrl := (*v4l2Control)(arg)
		k.controls[ctrl.id-v4l2CIDBase].val = ctrl.value
	default:
		return unix.ENOTTY
	}
	return nil
}
