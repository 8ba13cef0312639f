package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

const defaultEmbeddingDim = 512

// Embedder is a deterministic stand-in for a real model, for development and tests.
// The same tensor always yields the same unnormalized embedding.
type Embedder struct {
	info   provider.ModelInfo
	closed bool
}

// NewEmbedder declares a planar 1x3x112x112 float32 input and a 1x512 output.
func NewEmbedder() *Embedder {
	return NewEmbedderWithInfo(provider.ModelInfo{
		InputShape:  []int64{1, 3, 112, 112},
		InputType:   provider.ElementFloat32,
		OutputShape: []int64{1, defaultEmbeddingDim},
	})
}

// NewEmbedderWithInfo declares arbitrary model shapes.
func NewEmbedderWithInfo(info provider.ModelInfo) *Embedder {
	return &Embedder{info: info}
}

func (e *Embedder) ModelInfo(_ context.Context) (provider.ModelInfo, error) {
	return e.info, nil
}

// Embed hashes the tensor into a vector of the declared output dimension.
func (e *Embedder) Embed(ctx context.Context, tensor []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrInference.WithError(err)
	}
	if e.closed {
		return nil, domain.ErrInference.WithError(fmt.Errorf("embedder closed"))
	}
	if len(tensor) == 0 {
		return nil, domain.ErrInference.WithError(fmt.Errorf("empty tensor"))
	}

	dim := defaultEmbeddingDim
	if len(e.info.OutputShape) > 1 && e.info.OutputShape[1] > 0 {
		dim = int(e.info.OutputShape[1])
	}
	return generateEmbedding(tensor, dim), nil
}

func (e *Embedder) Close() error {
	e.closed = true
	return nil
}

// generateEmbedding derives a vector in [-1, 1] from the sha256 of the tensor
func generateEmbedding(tensor []float32, dim int) []float32 {
	h := sha256.New()
	var buf [4]byte
	for _, v := range tensor {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		_, _ = h.Write(buf[:])
	}
	hash := h.Sum(nil)

	embedding := make([]float32, dim)
	for i := range embedding {
		embedding[i] = (float32(hash[i%len(hash)])/255.0)*2 - 1
	}
	return embedding
}

// Detector reports fixed boxes, or one centred box covering 80% of the image.
type Detector struct {
	boxes []domain.BoundingBox
}

func NewDetector(boxes ...domain.BoundingBox) *Detector {
	return &Detector{boxes: boxes}
}

func (d *Detector) Detect(ctx context.Context, img image.Image, _ int) ([]domain.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.boxes) > 0 {
		out := make([]domain.BoundingBox, len(d.boxes))
		copy(out, d.boxes)
		return out, nil
	}

	b := img.Bounds()
	if b.Dx() < 10 || b.Dy() < 10 {
		return nil, nil
	}
	return []domain.BoundingBox{{
		Left:   b.Min.X + b.Dx()/10,
		Top:    b.Min.Y + b.Dy()/10,
		Right:  b.Max.X - b.Dx()/10,
		Bottom: b.Max.Y - b.Dy()/10,
	}}, nil
}

func (d *Detector) Close() error {
	return nil
}

var (
	_ provider.Embedder = (*Embedder)(nil)
	_ provider.Detector = (*Detector)(nil)
)
