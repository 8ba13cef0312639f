package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/config"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/onnx"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider/tfserving"
)

// ProviderType names a backend for embedding or detection
type ProviderType string

const (
	// ProviderTypeMock is the deterministic in-process provider (dev/test)
	ProviderTypeMock ProviderType = "mock"
	// ProviderTypeTFServing runs the embedding model behind TensorFlow Serving
	ProviderTypeTFServing ProviderType = "tfserving"
	// ProviderTypeONNX runs the embedding model in-process
	ProviderTypeONNX ProviderType = "onnx"
	// ProviderTypeDeepFace detects faces through a DeepFace service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition detects faces with AWS Rekognition
	ProviderTypeRekognition ProviderType = "rekognition"
)

// NewEmbedder creates the embedding backend selected by EMBEDDER_PROVIDER.
// An empty value selects the mock.
func NewEmbedder(_ context.Context, cfg *config.Config) (provider.Embedder, error) {
	switch ProviderType(cfg.EmbedderProvider) {
	case ProviderTypeTFServing:
		tfConfig := tfserving.DefaultConfig()
		if cfg.EmbedderURL != "" {
			tfConfig.BaseURL = cfg.EmbedderURL
		}
		if cfg.EmbedderModel != "" {
			tfConfig.Model = cfg.EmbedderModel
		}
		return tfserving.NewEmbedder(tfConfig), nil

	case ProviderTypeONNX:
		emb, err := onnx.NewEmbedder(onnx.Config{
			ModelPath:   cfg.ONNXModelPath,
			LibraryPath: cfg.ONNXLibraryPath,
		})
		if err != nil {
			return nil, fmt.Errorf("create onnx embedder: %w", err)
		}
		return emb, nil

	case ProviderTypeMock, "":
		return mock.NewEmbedder(), nil

	default:
		return nil, fmt.Errorf("unknown embedder provider: %s (supported: %s, %s, %s)",
			cfg.EmbedderProvider, ProviderTypeTFServing, ProviderTypeONNX, ProviderTypeMock)
	}
}

// NewDetector creates the face detector selected by DETECTOR_PROVIDER.
// An empty value selects the mock.
func NewDetector(ctx context.Context, cfg *config.Config) (provider.Detector, error) {
	switch ProviderType(cfg.DetectorProvider) {
	case ProviderTypeDeepFace:
		return createDeepFaceDetector(cfg), nil

	case ProviderTypeRekognition:
		rekogConfig := rekognition.DefaultConfig()
		if cfg.AWSRegion != "" {
			rekogConfig.Region = cfg.AWSRegion
		}
		det, err := rekognition.NewDetector(ctx, rekogConfig)
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		return det, nil

	case ProviderTypeMock, "":
		return mock.NewDetector(), nil

	default:
		return nil, fmt.Errorf("unknown detector provider: %s (supported: %s, %s, %s)",
			cfg.DetectorProvider, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeMock)
	}
}

func createDeepFaceDetector(cfg *config.Config) *deepface.Detector {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}

	return deepface.NewDetector(deepfaceConfig)
}
