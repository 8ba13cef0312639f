package pipeline

import "sync/atomic"

// Stats counts pipeline activity. All fields are updated atomically and a
// single Stats is shared by the session and every stream worker.
type Stats struct {
	FramesSubmitted atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesDropped   atomic.Uint64
	FramesFailed    atomic.Uint64
	FacesDetected   atomic.Uint64
	FacesMatched    atomic.Uint64
	FacesUnknown    atomic.Uint64
	FacesSkipped    atomic.Uint64
	InferenceErrors atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	FramesSubmitted uint64 `json:"frames_submitted"`
	FramesProcessed uint64 `json:"frames_processed"`
	FramesDropped   uint64 `json:"frames_dropped"`
	FramesFailed    uint64 `json:"frames_failed"`
	FacesDetected   uint64 `json:"faces_detected"`
	FacesMatched    uint64 `json:"faces_matched"`
	FacesUnknown    uint64 `json:"faces_unknown"`
	FacesSkipped    uint64 `json:"faces_skipped"`
	InferenceErrors uint64 `json:"inference_errors"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesSubmitted: s.FramesSubmitted.Load(),
		FramesProcessed: s.FramesProcessed.Load(),
		FramesDropped:   s.FramesDropped.Load(),
		FramesFailed:    s.FramesFailed.Load(),
		FacesDetected:   s.FacesDetected.Load(),
		FacesMatched:    s.FacesMatched.Load(),
		FacesUnknown:    s.FacesUnknown.Load(),
		FacesSkipped:    s.FacesSkipped.Load(),
		InferenceErrors: s.InferenceErrors.Load(),
	}
}
