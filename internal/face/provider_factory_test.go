package face

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/config"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/onnx"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/tfserving"
)

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		check    func(t *testing.T, v any)
	}{
		{
			name:     "empty defaults to mock",
			provider: "",
			check: func(t *testing.T, v any) {
				assert.IsType(t, &mock.Embedder{}, v)
			},
		},
		{
			name:     "explicit mock",
			provider: "mock",
			check: func(t *testing.T, v any) {
				assert.IsType(t, &mock.Embedder{}, v)
			},
		},
		{
			name:     "tfserving",
			provider: "tfserving",
			check: func(t *testing.T, v any) {
				assert.IsType(t, &tfserving.Embedder{}, v)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				EmbedderProvider: tt.provider,
				EmbedderURL:      "http://localhost:8501",
				EmbedderModel:    "facenet",
			}

			emb, err := NewEmbedder(context.Background(), cfg)
			require.NoError(t, err)
			tt.check(t, emb)
			assert.NoError(t, emb.Close())
		})
	}
}

func TestNewEmbedder_ONNXMissingModel(t *testing.T) {
	cfg := &config.Config{
		EmbedderProvider: "onnx",
		ONNXModelPath:    filepath.Join(t.TempDir(), "missing.onnx"),
	}

	_, err := NewEmbedder(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, onnx.ErrModelNotFound)
}

func TestNewEmbedder_Unknown(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.Config{EmbedderProvider: "tflite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedder provider: tflite")
}

func TestNewDetector(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		check    func(t *testing.T, v any)
	}{
		{
			name:     "empty defaults to mock",
			provider: "",
			check: func(t *testing.T, v any) {
				assert.IsType(t, &mock.Detector{}, v)
			},
		},
		{
			name:     "deepface",
			provider: "deepface",
			check: func(t *testing.T, v any) {
				assert.IsType(t, &deepface.Detector{}, v)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				DetectorProvider: tt.provider,
				DeepFaceURL:      "http://localhost:5005",
				DeepFaceDetector: "opencv",
			}

			det, err := NewDetector(context.Background(), cfg)
			require.NoError(t, err)
			tt.check(t, det)
			assert.NoError(t, det.Close())
		})
	}
}

func TestNewDetector_Unknown(t *testing.T) {
	_, err := NewDetector(context.Background(), &config.Config{DetectorProvider: "dlib"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown detector provider: dlib")
}
