package vision

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

// Layout is the memory ordering of an image tensor.
type Layout int

const (
	// Interleaved is pixel-major: R,G,B for each pixel in turn.
	Interleaved Layout = iota
	// Planar is channel-major: all of channel 0, then channel 1, then channel 2.
	Planar
)

func (l Layout) String() string {
	switch l {
	case Planar:
		return "planar"
	case Interleaved:
		return "interleaved"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(text []byte) error {
	switch string(text) {
	case "planar":
		*l = Planar
	case "interleaved":
		*l = Interleaved
	default:
		return fmt.Errorf("unknown tensor layout %q", text)
	}
	return nil
}

// TensorLayout is the input tensor a model requires.
type TensorLayout struct {
	Order    Layout `json:"order"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	Channels int    `json:"channels"`
}

// Size is the number of float32 elements in one input tensor.
func (t TensorLayout) Size() int {
	return t.Height * t.Width * t.Channels
}

// ModelSpec is derived once per loaded model and never changes afterwards.
type ModelSpec struct {
	Input        TensorLayout `json:"input"`
	EmbeddingDim int          `json:"embedding_dim"`
}

const (
	rgbChannels   = 3
	defaultHeight = 160
	defaultWidth  = 160
)

// Introspect derives tensor layout and embedding dimension from the shapes a
// model declares. A non-float32 input is an ErrModelShape, which callers treat
// as fatal.
//
// Shapes where both the planar and the interleaved rule could apply (e.g. a
// 3x3x3 input) resolve to planar; shapes matching neither fall back to
// interleaved 160x160x3.
func Introspect(info provider.ModelInfo) (ModelSpec, error) {
	if info.InputType != provider.ElementFloat32 {
		return ModelSpec{}, domain.ErrModelShape.WithError(
			fmt.Errorf("input element type %q, want float32", info.InputType))
	}
	if len(info.InputShape) != 4 {
		return ModelSpec{}, domain.ErrModelShape.WithError(
			fmt.Errorf("input rank %d, want 4", len(info.InputShape)))
	}
	if len(info.OutputShape) < 2 || info.OutputShape[1] <= 0 {
		return ModelSpec{}, domain.ErrModelShape.WithError(
			fmt.Errorf("output shape %v has no embedding dimension", info.OutputShape))
	}

	d1, d2, d3 := info.InputShape[1], info.InputShape[2], info.InputShape[3]

	var input TensorLayout
	switch {
	case d1 == rgbChannels && d2 > rgbChannels && d3 > rgbChannels:
		input = TensorLayout{Order: Planar, Height: int(d2), Width: int(d3), Channels: rgbChannels}
	case d3 == rgbChannels && d1 > rgbChannels && d2 > rgbChannels:
		input = TensorLayout{Order: Interleaved, Height: int(d1), Width: int(d2), Channels: rgbChannels}
	default:
		input = TensorLayout{Order: Interleaved, Height: defaultHeight, Width: defaultWidth, Channels: rgbChannels}
	}

	return ModelSpec{
		Input:        input,
		EmbeddingDim: int(info.OutputShape[1]),
	}, nil
}
