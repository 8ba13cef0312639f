package onnx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
)

func TestFixedShape(t *testing.T) {
	assert.Equal(t, []int64{1, 3, 112, 112}, fixedShape(ort.NewShape(-1, 3, 112, 112)))
	assert.Equal(t, []int64{1, 512}, fixedShape(ort.NewShape(1, 512)))
}

func TestElementType(t *testing.T) {
	tests := []struct {
		in   ort.TensorElementDataType
		want provider.ElementType
	}{
		{ort.TensorElementDataTypeFloat, provider.ElementFloat32},
		{ort.TensorElementDataTypeFloat16, provider.ElementFloat16},
		{ort.TensorElementDataTypeUint8, provider.ElementUint8},
		{ort.TensorElementDataTypeInt8, provider.ElementInt8},
		{ort.TensorElementDataTypeInt64, provider.ElementUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, elementType(tt.in))
	}
}

func TestNewEmbedder_MissingModel(t *testing.T) {
	_, err := NewEmbedder(Config{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
}

func TestEmbedder_WithoutSession(t *testing.T) {
	e := &Embedder{info: provider.ModelInfo{InputType: provider.ElementUint8}}

	info, err := e.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.ElementUint8, info.InputType)

	_, err = e.Embed(context.Background(), []float32{1})
	assert.True(t, errors.Is(err, domain.ErrInference))
	assert.NoError(t, e.Close())
}
