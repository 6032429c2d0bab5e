package scoring

import (
	"strings"
	"testing"
)

func TestScoresClamped(t *testing.T) {
	tests := []struct {
		name     string
		in       Scores
		expected Scores
	}{
		{"in range untouched", Scores{0.3, 0.9}, Scores{0.3, 0.9}},
		{"negative floors to zero", Scores{-0.5, -2}, Scores{0, 0}},
		{"above one caps", Scores{1.5, 7}, Scores{1, 1}},
		{"boundaries", Scores{0, 1}, Scores{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamped(); got != tt.expected {
				t.Errorf("Clamped() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestShouldFlag(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		flag   bool
	}{
		{"clean", Scores{0.1, 0.1}, false},
		{"at duplicate threshold", Scores{0.8, 0}, false},
		{"just over duplicate threshold", Scores{0.81, 0}, true},
		{"at spam threshold", Scores{0, 0.7}, false},
		{"just over spam threshold", Scores{0, 0.71}, true},
		{"both over", Scores{0.9, 0.9}, true},
		{"neutral", Neutral(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scores.ShouldFlag(); got != tt.flag {
				t.Errorf("ShouldFlag() = %v, want %v", got, tt.flag)
			}
		})
	}
}

func TestFlagReason(t *testing.T) {
	reason := Scores{Duplicate: 0.91, Spam: 0.25}.FlagReason()
	if !strings.Contains(reason, "duplicate_score=0.91") {
		t.Errorf("reason missing duplicate score: %q", reason)
	}
	if !strings.Contains(reason, "spam_score=0.25") {
		t.Errorf("reason missing spam score: %q", reason)
	}
}

func TestParseVerdict(t *testing.T) {
	t.Run("well-formed verdict", func(t *testing.T) {
		scores, err := ParseVerdict([]byte(`{"duplicate_score": 0.85, "spam_score": 0.2}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if scores.Duplicate != 0.85 || scores.Spam != 0.2 {
			t.Errorf("unexpected scores: %+v", scores)
		}
	})

	t.Run("out-of-range scores are clamped", func(t *testing.T) {
		scores, err := ParseVerdict([]byte(`{"duplicate_score": 3.0, "spam_score": -1.0}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if scores.Duplicate != 1 || scores.Spam != 0 {
			t.Errorf("expected clamped scores, got %+v", scores)
		}
	})

	t.Run("missing fields default to zero", func(t *testing.T) {
		scores, err := ParseVerdict([]byte(`{}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if scores != Neutral() {
			t.Errorf("expected neutral scores, got %+v", scores)
		}
	})

	t.Run("malformed JSON errors", func(t *testing.T) {
		if _, err := ParseVerdict([]byte("the content looks fine")); err == nil {
			t.Error("expected error for non-JSON verdict")
		}
	})
}
