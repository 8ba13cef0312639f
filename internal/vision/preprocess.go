package vision

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

// Normalization maps a 0-255 channel value v to (v-Offset)/Scale.
type Normalization struct {
	Scale  float32
	Offset float32
}

// DefaultNormalization maps 0..255 onto -1..1.
func DefaultNormalization() Normalization {
	return Normalization{Scale: 127.5, Offset: 127.5}
}

// Preprocess turns a cropped face into a flat float32 tensor in the layout the
// model requires. Images whose size differs from the layout are resized first.
func Preprocess(img image.Image, norm Normalization, layout TensorLayout) ([]float32, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, domain.ErrInvalidInput.WithError(fmt.Errorf("image is %dx%d", b.Dx(), b.Dy()))
	}
	if layout.Height <= 0 || layout.Width <= 0 {
		return nil, domain.ErrInvalidInput.WithError(fmt.Errorf("layout is %dx%d", layout.Width, layout.Height))
	}
	if norm.Scale == 0 {
		return nil, fmt.Errorf("preprocess: normalization scale must be non-zero")
	}

	rgba := toRGBA(img, layout.Height, layout.Width)
	h, w := layout.Height, layout.Width

	out := make([]float32, h*w*rgbChannels)
	i := 0
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4:]
			out[i] = (float32(p[0]) - norm.Offset) / norm.Scale
			out[i+1] = (float32(p[1]) - norm.Offset) / norm.Scale
			out[i+2] = (float32(p[2]) - norm.Offset) / norm.Scale
			i += rgbChannels
		}
	}

	if layout.Order == Planar {
		return ToPlanar(out, h, w, rgbChannels), nil
	}
	return out, nil
}

// toRGBA returns an origin-based RGBA of exactly h x w.
func toRGBA(img image.Image, h, w int) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == image.Rect(0, 0, w, h) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	}
	return dst
}

// ToPlanar reorders an interleaved h x w x c buffer into c contiguous planes.
func ToPlanar(buf []float32, h, w, c int) []float32 {
	out := make([]float32, len(buf))
	plane := h * w
	for p := 0; p < plane; p++ {
		for ch := 0; ch < c; ch++ {
			out[ch*plane+p] = buf[p*c+ch]
		}
	}
	return out
}

// ToInterleaved is the inverse of ToPlanar.
func ToInterleaved(buf []float32, h, w, c int) []float32 {
	out := make([]float32, len(buf))
	plane := h * w
	for p := 0; p < plane; p++ {
		for ch := 0; ch < c; ch++ {
			out[p*c+ch] = buf[ch*plane+p]
		}
	}
	return out
}
