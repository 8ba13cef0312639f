package pipeline

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/matcher"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
	mockprovider "github.com/saturnino-fabrica-de-software/glimpse/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) ModelInfo(ctx context.Context) (provider.ModelInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(provider.ModelInfo), args.Error(1)
}

func (m *MockEmbedder) Embed(ctx context.Context, tensor []float32) ([]float32, error) {
	args := m.Called(ctx, tensor)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbedder) Close() error {
	return m.Called().Error(0)
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, img image.Image, rotation int) ([]domain.BoundingBox, error) {
	args := m.Called(ctx, img, rotation)
	if v := args.Get(0); v != nil {
		return v.([]domain.BoundingBox), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDetector) Close() error {
	return m.Called().Error(0)
}

type staticGallery []domain.GalleryEntry

func (g staticGallery) Snapshot() []domain.GalleryEntry {
	return g
}

// newReadySession wires the deterministic mock providers into an initialized session.
func newReadySession(t *testing.T, boxes ...domain.BoundingBox) *Session {
	t.Helper()

	s := NewSession(
		mockprovider.NewEmbedder(),
		mockprovider.NewDetector(boxes...),
		matcher.New(testLogger()),
		vision.DefaultNormalization(),
		testLogger(),
	)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

// patternImage draws a gradient so that distinct regions embed differently.
func patternImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

// rgbaFrame wraps img as an rgba32 frame and counts releases.
func rgbaFrame(img *image.RGBA, rotation int, released *atomic.Int32) *vision.Frame {
	data := make([]byte, len(img.Pix))
	copy(data, img.Pix)
	return vision.NewFrame(data, img.Bounds().Dx(), img.Bounds().Dy(), vision.FormatRGBA32, rotation, func() {
		released.Add(1)
	})
}
