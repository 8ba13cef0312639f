package provider

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

// ElementType is the declared element type of a model tensor.
type ElementType string

const (
	ElementFloat32 ElementType = "float32"
	ElementFloat16 ElementType = "float16"
	ElementUint8   ElementType = "uint8"
	ElementInt8    ElementType = "int8"
	ElementUnknown ElementType = "unknown"
)

// ModelInfo is the shape metadata an inference backend declares for its model.
// Dynamic dimensions are reported as -1.
type ModelInfo struct {
	InputShape  []int64     `json:"input_shape"`
	InputType   ElementType `json:"input_type"`
	OutputShape []int64     `json:"output_shape"`
}

// Embedder runs the opaque forward pass of a face embedding model.
type Embedder interface {
	// ModelInfo returns the declared input/output shapes of the loaded model
	ModelInfo(ctx context.Context) (ModelInfo, error)

	// Embed takes a preprocessed tensor matching the model input and
	// returns the raw, unnormalized embedding
	Embed(ctx context.Context, tensor []float32) ([]float32, error)

	// Close releases the inference engine
	Close() error
}

// Detector finds faces in an upright image.
type Detector interface {
	// Detect returns face boxes in pixel coordinates of img.
	// rotation is a hint in degrees; callers in this repo always pass upright images and 0.
	Detect(ctx context.Context, img image.Image, rotation int) ([]domain.BoundingBox, error)

	Close() error
}
