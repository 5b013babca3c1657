package screen

import (
	"fmt"
	"os"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// ActiveDisplay returns the X display of the current session, or "" when
// there is none.
func ActiveDisplay() string {
	return os.Getenv("DISPLAY")
}

// Sample grabs the centred crop of the default screen on display and
// returns its brightness in 0..255. An empty display uses $DISPLAY.
func Sample(display string, opts Options) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}

	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return 0, fmt.Errorf("connect to display %q: %w", display, err)
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	scr := setup.DefaultScreen(conn)
	crop := CropRect(int(scr.WidthInPixels), int(scr.HeightInPixels), opts.CropFraction)
	if crop.Width == 0 || crop.Height == 0 {
		return 0, nil
	}

	reply, err := xproto.GetImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(scr.Root),
		int16(crop.X), int16(crop.Y), uint16(crop.Width), uint16(crop.Height), ^uint32(0)).Reply()
	if err != nil {
		return 0, fmt.Errorf("get root window image: %w", err)
	}

	bpp, pad, err := pixmapFormat(setup, reply.Depth)
	if err != nil {
		return 0, err
	}
	if setup.ImageByteOrder != xproto.ImageOrderLSBFirst {
		return 0, fmt.Errorf("%w: MSB-first image byte order", ErrUnsupportedDepth)
	}

	img := Image{
		Data:          reply.Data,
		Width:         crop.Width,
		Height:        crop.Height,
		BytesPerPixel: bpp / 8,
		Stride:        rowBytes(crop.Width, bpp, pad),
	}
	return SampleImage(img, opts.Stride)
}

// PhysicalSize returns the default screen's dimensions in millimetres.
func PhysicalSize(display string) (widthMM, heightMM int, err error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return 0, 0, fmt.Errorf("connect to display %q: %w", display, err)
	}
	defer conn.Close()

	scr := xproto.Setup(conn).DefaultScreen(conn)
	return int(scr.WidthInMillimeters), int(scr.HeightInMillimeters), nil
}

// pixmapFormat finds bits per pixel and scanline padding for depth.
func pixmapFormat(setup *xproto.SetupInfo, depth byte) (bpp, pad int, err error) {
	for _, f := range setup.PixmapFormats {
		if f.Depth == depth {
			return int(f.BitsPerPixel), int(f.ScanlinePad), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: no pixmap format for depth %d", ErrUnsupportedDepth, depth)
}

// rowBytes is the length of one ZPixmap scanline.
func rowBytes(width, bpp, pad int) int {
	if pad <= 0 {
		pad = 8
	}
	bits := width * bpp
	return (bits + pad - 1) / pad * pad / 8
}
