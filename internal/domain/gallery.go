package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnknownLabel is reported when no gallery entry reaches the threshold.
const UnknownLabel = "Unknown"

// BoundingBox is a face region in source-image pixel coordinates.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (b BoundingBox) Width() int {
	return b.Right - b.Left
}

func (b BoundingBox) Height() int {
	return b.Bottom - b.Top
}

// Empty reports a zero or negative area box.
func (b BoundingBox) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// GalleryEntry is one enrolled identity.
type GalleryEntry struct {
	ID         uuid.UUID   `json:"id"`
	Label      string      `json:"label"`
	Embedding  []float32   `json:"-"`
	ImagePath  string      `json:"image_path,omitempty"`
	Box        BoundingBox `json:"box"`
	EnrolledAt time.Time   `json:"enrolled_at"`
}

// MatchResult is the matcher's decision for one query embedding.
// Similarity is only meaningful when Matched is true.
type MatchResult struct {
	Label      string  `json:"label"`
	Similarity float32 `json:"similarity,omitempty"`
	Matched    bool    `json:"matched"`
}

// Unknown returns the open-set rejection result.
func Unknown() MatchResult {
	return MatchResult{Label: UnknownLabel}
}

// FaceRecognition is the outcome for one detected face in a frame.
type FaceRecognition struct {
	Box    BoundingBox `json:"box"`
	Result MatchResult `json:"result"`
}
