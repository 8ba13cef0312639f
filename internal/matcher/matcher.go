package matcher

import (
	"log/slog"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

// DefaultThreshold is the minimum similarity for an open-set match.
const DefaultThreshold float32 = 0.6

// Matcher classifies a normalized embedding against a gallery snapshot.
type Matcher struct {
	threshold float32
	logger    *slog.Logger
}

// New creates a Matcher. A nil logger discards mismatch warnings.
func New(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Matcher{
		threshold: DefaultThreshold,
		logger:    logger.With("component", "matcher"),
	}
}

// WithThreshold returns a copy of the matcher using threshold.
func (m *Matcher) WithThreshold(threshold float32) *Matcher {
	return &Matcher{
		threshold: threshold,
		logger:    m.logger,
	}
}

// Threshold returns the configured threshold.
func (m *Matcher) Threshold() float32 {
	return m.threshold
}

// Match scans entries in order. An entry becomes the best only when its
// similarity is strictly greater than the current best and at least the
// threshold, so the earliest entry wins exact ties. Entries whose embedding
// length differs from the query are skipped.
func (m *Matcher) Match(query []float32, entries []domain.GalleryEntry) domain.MatchResult {
	best := -1
	bestScore := float32(-1)

	for i := range entries {
		entry := &entries[i]
		if len(entry.Embedding) != len(query) {
			m.logger.Warn("skipping gallery entry",
				slog.String("entry_id", entry.ID.String()),
				slog.String("label", entry.Label),
				slog.Int("entry_dim", len(entry.Embedding)),
				slog.Int("query_dim", len(query)),
				slog.Any("error", domain.ErrEmbeddingMismatch),
			)
			continue
		}

		score := CosineSimilarity(query, entry.Embedding)
		m.logger.Debug("gallery score", slog.String("label", entry.Label), slog.Any("similarity", score))
		if score > bestScore && score >= m.threshold {
			best = i
			bestScore = score
		}
	}

	if best < 0 {
		return domain.Unknown()
	}

	return domain.MatchResult{
		Label:      entries[best].Label,
		Similarity: bestScore,
		Matched:    true,
	}
}
