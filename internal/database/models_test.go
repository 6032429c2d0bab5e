package database

import (
	"testing"
	"time"
)

func TestDeletionPenalty(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	upload := &Upload{DeletionDeadline: deadline}

	tests := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"well before deadline", deadline.Add(-24 * time.Hour), 0},
		{"one second before deadline", deadline.Add(-time.Second), 0},
		{"exactly at deadline", deadline, 0},
		{"30 minutes late", deadline.Add(30 * time.Minute), 2},
		{"one hour late", deadline.Add(time.Hour), 5},
		{"ten hours late", deadline.Add(10 * time.Hour), 50},
		{"twenty hours late", deadline.Add(20 * time.Hour), 100},
		{"caps at 100", deadline.Add(100 * time.Hour), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upload.DeletionPenalty(tt.now); got != tt.expected {
				t.Errorf("DeletionPenalty(%v) = %d, want %d", tt.now, got, tt.expected)
			}
		})
	}
}

func TestCanDeleteFree(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	upload := &Upload{DeletionDeadline: deadline}

	t.Run("free inside the grace window", func(t *testing.T) {
		if !upload.CanDeleteFree(deadline.Add(-time.Minute)) {
			t.Error("expected free deletion before the deadline")
		}
	})

	t.Run("not free at or after the deadline", func(t *testing.T) {
		if upload.CanDeleteFree(deadline) {
			t.Error("deletion at the deadline is no longer free")
		}
		if upload.CanDeleteFree(deadline.Add(time.Minute)) {
			t.Error("deletion after the deadline is not free")
		}
	})
}
