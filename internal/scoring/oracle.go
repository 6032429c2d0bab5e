// Package scoring estimates duplicate and spam likelihood for submitted
// content descriptions. The oracle is best-effort: callers substitute
// Neutral() when it is unavailable, and upload success never depends on it.
package scoring

import (
	"context"
	"fmt"
)

// Flag thresholds. Either score past its threshold flags the upload.
const (
	DuplicateThreshold = 0.8
	SpamThreshold      = 0.7
)

// Scores holds duplicate and spam likelihood, each in [0, 1].
type Scores struct {
	Duplicate float64
	Spam      float64
}

// Neutral returns the default scores used when no oracle verdict exists.
func Neutral() Scores {
	return Scores{Duplicate: 0.0, Spam: 0.0}
}

// Clamped returns the scores bounded into [0, 1].
func (s Scores) Clamped() Scores {
	return Scores{Duplicate: clamp01(s.Duplicate), Spam: clamp01(s.Spam)}
}

// ShouldFlag reports whether the scores warrant auto-flagging.
func (s Scores) ShouldFlag() bool {
	return s.Duplicate > DuplicateThreshold || s.Spam > SpamThreshold
}

// FlagReason returns the strike reason recorded when an upload is flagged,
// embedding both scores.
func (s Scores) FlagReason() string {
	return fmt.Sprintf("content auto-flagged: duplicate_score=%.2f spam_score=%.2f", s.Duplicate, s.Spam)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Oracle scores a content description.
type Oracle interface {
	Analyze(ctx context.Context, description string) (Scores, error)
}
