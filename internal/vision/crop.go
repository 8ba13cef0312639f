package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

const cropPaddingRatio = 0.2

// CropFace extracts the padded face region around box and resizes it to
// height x width.
//
// The box is grown by floor(0.2*box width) on every side and each side is then
// clamped to the image on its own, so boxes near an edge lose their aspect
// ratio. A region that collapses to nothing yields a black image of the target
// size. The returned image owns its pixels.
func CropFace(src image.Image, box domain.BoundingBox, height, width int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))

	region := PaddedRegion(src.Bounds(), box)
	if region.Empty() {
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
		return dst
	}

	draw.BiLinear.Scale(dst, dst.Bounds(), src, region, draw.Src, nil)
	return dst
}

// PaddedRegion is the crop rectangle CropFace samples from.
func PaddedRegion(bounds image.Rectangle, box domain.BoundingBox) image.Rectangle {
	pad := int(math.Floor(cropPaddingRatio * float64(box.Width())))

	left := max(box.Left-pad, bounds.Min.X)
	top := max(box.Top-pad, bounds.Min.Y)
	right := min(box.Right+pad, bounds.Max.X)
	bottom := min(box.Bottom+pad, bounds.Max.Y)

	if right <= left || bottom <= top {
		return image.Rectangle{}
	}
	return image.Rect(left, top, right, bottom)
}
