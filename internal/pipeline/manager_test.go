package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/matcher"
	mockprovider "github.com/saturnino-fabrica-de-software/glimpse/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

func TestValidateStream(t *testing.T) {
	tests := []struct {
		name    string
		stream  string
		wantErr bool
	}{
		{"simple", "cam1", false},
		{"dash and underscore", "front-door_2", false},
		{"empty", "", true},
		{"slash", "a/b", true},
		{"space", "front door", true},
		{"too long", string(make([]byte, 65)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStream(tt.stream)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidationFailed)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestManager_SubmitRequiresReadySession(t *testing.T) {
	s := NewSession(mockprovider.NewEmbedder(), mockprovider.NewDetector(),
		matcher.New(testLogger()), vision.DefaultNormalization(), testLogger())
	m := NewManager(context.Background(), s, staticGallery{}, nil, testLogger())

	var released atomic.Int32
	err := m.Submit("cam1", rgbaFrame(patternImage(16, 16), 0, &released))

	assert.ErrorIs(t, err, domain.ErrSessionNotReady)
	assert.Equal(t, int32(1), released.Load())
	assert.Empty(t, m.Streams())
}

func TestManager_InvalidStreamReleasesFrame(t *testing.T) {
	m := NewManager(context.Background(), newReadySession(t), staticGallery{}, nil, testLogger())

	var released atomic.Int32
	err := m.Submit("bad/name", rgbaFrame(patternImage(16, 16), 0, &released))

	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Equal(t, int32(1), released.Load())
}

func TestManager_StreamLifecycle(t *testing.T) {
	handler, results := collectResults()
	m := NewManager(context.Background(), newReadySession(t), staticGallery{}, handler, testLogger())
	defer m.Shutdown()

	_, _, err := m.Last("cam1")
	assert.ErrorIs(t, err, domain.ErrStreamNotFound)

	var released atomic.Int32
	require.NoError(t, m.Submit("cam1", rgbaFrame(patternImage(32, 32), 0, &released)))
	assert.Equal(t, []string{"cam1"}, m.Streams())

	r := waitResult(t, results)
	assert.Equal(t, "cam1", r.Stream)

	require.Eventually(t, func() bool {
		_, ok, err := m.Last("cam1")
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Close("cam1"))
	assert.ErrorIs(t, m.Close("cam1"), domain.ErrStreamNotFound)
	assert.Empty(t, m.Streams())
}

func TestManager_ShutdownRejectsFrames(t *testing.T) {
	m := NewManager(context.Background(), newReadySession(t), staticGallery{}, nil, testLogger())
	m.Shutdown()

	var released atomic.Int32
	err := m.Submit("cam1", rgbaFrame(patternImage(16, 16), 0, &released))

	assert.ErrorIs(t, err, domain.ErrSessionNotReady)
	assert.Equal(t, int32(1), released.Load())
}
