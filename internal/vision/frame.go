package vision

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// PixelFormat identifies the byte layout of a raw frame.
type PixelFormat string

const (
	FormatRGB24  PixelFormat = "rgb24"
	FormatRGBA32 PixelFormat = "rgba32"
	// FormatI420 is planar YUV 4:2:0: full Y plane then quarter U and V planes.
	FormatI420 PixelFormat = "i420"
)

var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// BufferSize returns the number of bytes a width x height frame occupies.
func (p PixelFormat) BufferSize(width, height int) (int, error) {
	switch p {
	case FormatRGB24:
		return width * height * 3, nil
	case FormatRGBA32:
		return width * height * 4, nil
	case FormatI420:
		cw, ch := (width+1)/2, (height+1)/2
		return width*height + 2*cw*ch, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, p)
	}
}

// Frame is a raw capture buffer owned by its producer. The pipeline copies what
// it needs out of Data and then calls Release exactly once.
type Frame struct {
	Data     []byte
	Width    int
	Height   int
	Format   PixelFormat
	Rotation int

	releaseOnce sync.Once
	release     func()
}

// NewFrame wraps a buffer; release may be nil.
func NewFrame(data []byte, width, height int, format PixelFormat, rotation int, release func()) *Frame {
	return &Frame{
		Data:     data,
		Width:    width,
		Height:   height,
		Format:   format,
		Rotation: rotation,
		release:  release,
	}
}

// Release hands the buffer back to its producer. Safe to call more than once.
func (f *Frame) Release() {
	f.releaseOnce.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// Image copies the frame into a standalone image. The result does not alias
// Data, so the frame can be released as soon as this returns.
func (f *Frame) Image() (image.Image, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("frame is %dx%d", f.Width, f.Height)
	}

	switch f.Format {
	case FormatRGBA32:
		if len(f.Data) < f.Width*f.Height*4 {
			return nil, fmt.Errorf("rgba32 frame: %d bytes, want %d", len(f.Data), f.Width*f.Height*4)
		}
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Data)
		return img, nil

	case FormatRGB24:
		if len(f.Data) < f.Width*f.Height*3 {
			return nil, fmt.Errorf("rgb24 frame: %d bytes, want %d", len(f.Data), f.Width*f.Height*3)
		}
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i, j := 0, 0; i < f.Width*f.Height; i++ {
			img.Pix[j] = f.Data[i*3]
			img.Pix[j+1] = f.Data[i*3+1]
			img.Pix[j+2] = f.Data[i*3+2]
			img.Pix[j+3] = 0xff
			j += 4
		}
		return img, nil

	case FormatI420:
		img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio420)
		ySize := len(img.Y)
		cSize := len(img.Cb)
		if len(f.Data) < ySize+2*cSize {
			return nil, fmt.Errorf("i420 frame: %d bytes, want %d", len(f.Data), ySize+2*cSize)
		}
		copy(img.Y, f.Data[:ySize])
		copy(img.Cb, f.Data[ySize:ySize+cSize])
		copy(img.Cr, f.Data[ySize+cSize:ySize+2*cSize])
		return img, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.Format)
	}
}

// Upright rotates img clockwise by rotation degrees (0, 90, 180 or 270) into a
// new origin-based RGBA. Rotation 0 still copies into RGBA.
func Upright(img image.Image, rotation int) (*image.RGBA, error) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	minX, minY := float64(b.Min.X), float64(b.Min.Y)

	var (
		dst *image.RGBA
		m   f64.Aff3
	)
	switch ((rotation % 360) + 360) % 360 {
	case 0:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst, nil
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		m = f64.Aff3{0, -1, h + minY, 1, 0, -minX}
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		m = f64.Aff3{-1, 0, w + minX, 0, -1, h + minY}
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		m = f64.Aff3{0, 1, -minY, -1, 0, w + minX}
	default:
		return nil, fmt.Errorf("rotation %d is not a multiple of 90", rotation)
	}

	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst, nil
}
