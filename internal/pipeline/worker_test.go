package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

func collectResults() (ResultHandler, <-chan Result) {
	ch := make(chan Result, 8)
	return func(r Result) {
		select {
		case ch <- r:
		default:
		}
	}, ch
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func TestFrameWorker_ProcessesFrame(t *testing.T) {
	img := patternImage(64, 64)
	box := domain.BoundingBox{Left: 8, Top: 8, Right: 56, Bottom: 56}
	s := newReadySession(t, box)

	embedding, err := s.EmbedFace(context.Background(), img, box)
	require.NoError(t, err)

	handler, results := collectResults()
	w := NewFrameWorker("cam-1", s, staticGallery{{Label: "alice", Embedding: embedding}}, handler, testLogger())
	w.Start(context.Background())
	defer w.Stop()

	var released atomic.Int32
	require.True(t, w.Submit(rgbaFrame(img, 0, &released)))

	r := waitResult(t, results)
	assert.Equal(t, "cam-1", r.Stream)
	assert.Equal(t, 64, r.Width)
	assert.Equal(t, 64, r.Height)
	require.Len(t, r.Faces, 1)
	assert.Equal(t, "alice", r.Faces[0].Result.Label)
	assert.True(t, r.Faces[0].Result.Matched)

	assert.Equal(t, int32(1), released.Load())

	last, ok := w.LastResult()
	require.True(t, ok)
	assert.Equal(t, r.Faces, last.Faces)
	assert.Equal(t, uint64(1), s.Stats().Snapshot().FramesProcessed)
}

func TestFrameWorker_KeepsOnlyLatestFrame(t *testing.T) {
	s := newReadySession(t)
	handler, results := collectResults()
	w := NewFrameWorker("cam-1", s, staticGallery{}, handler, testLogger())

	var first, second, third atomic.Int32
	// not started yet: frames pile up in the one-slot mailbox
	require.True(t, w.Submit(rgbaFrame(patternImage(32, 32), 0, &first)))
	require.True(t, w.Submit(rgbaFrame(patternImage(32, 32), 0, &second)))
	require.True(t, w.Submit(rgbaFrame(patternImage(40, 20), 0, &third)))

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
	assert.Equal(t, int32(0), third.Load())
	assert.Equal(t, uint64(2), s.Stats().Snapshot().FramesDropped)
	assert.Equal(t, uint64(3), s.Stats().Snapshot().FramesSubmitted)

	w.Start(context.Background())
	defer w.Stop()

	r := waitResult(t, results)
	assert.Equal(t, 40, r.Width)
	assert.Equal(t, 20, r.Height)
	assert.Equal(t, int32(1), third.Load())
}

func TestFrameWorker_RotatesUpright(t *testing.T) {
	s := newReadySession(t)
	handler, results := collectResults()
	w := NewFrameWorker("cam-1", s, staticGallery{}, handler, testLogger())
	w.Start(context.Background())
	defer w.Stop()

	var released atomic.Int32
	require.True(t, w.Submit(rgbaFrame(patternImage(40, 20), 90, &released)))

	r := waitResult(t, results)
	assert.Equal(t, 20, r.Width)
	assert.Equal(t, 40, r.Height)
}

func TestFrameWorker_BadFrameIsReleasedAndCounted(t *testing.T) {
	s := newReadySession(t)
	handler, _ := collectResults()
	w := NewFrameWorker("cam-1", s, staticGallery{}, handler, testLogger())
	w.Start(context.Background())
	defer w.Stop()

	var released atomic.Int32
	frame := rgbaFrame(patternImage(8, 8), 0, &released)
	frame.Width = 100 // more pixels than the buffer holds

	require.True(t, w.Submit(frame))

	require.Eventually(t, func() bool {
		return s.Stats().Snapshot().FramesFailed == 1 && released.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFrameWorker_StopReleasesPending(t *testing.T) {
	s := newReadySession(t)
	w := NewFrameWorker("cam-1", s, staticGallery{}, nil, testLogger())

	var pending, late atomic.Int32
	require.True(t, w.Submit(rgbaFrame(patternImage(16, 16), 0, &pending)))

	w.Stop()
	assert.Equal(t, int32(1), pending.Load())

	assert.False(t, w.Submit(rgbaFrame(patternImage(16, 16), 0, &late)))
	assert.Equal(t, int32(1), late.Load())

	// idempotent
	w.Stop()
}
