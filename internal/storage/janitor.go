package storage

import (
	"context"
	"log/slog"
	"time"

	"alphanex/internal/database"
)

// Janitor periodically removes orphaned blobs: objects left behind when a
// delete committed in the database but the store removal failed. Upload
// deletion deliberately tolerates that failure, so this loop is what makes
// the store eventually consistent with the database.
type Janitor struct {
	repo     *database.Repository
	store    Store
	interval time.Duration
	done     chan struct{}
}

// NewJanitor creates a new janitor.
func NewJanitor(repo *database.Repository, store Store, interval time.Duration) *Janitor {
	return &Janitor{
		repo:     repo,
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (j *Janitor) Start(ctx context.Context) {
	slog.Info("janitor started", "interval", j.interval)

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		// Run once immediately on start
		j.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				j.sweep(ctx)
			case <-ctx.Done():
				slog.Info("janitor stopping")
				close(j.done)
				return
			}
		}
	}()
}

// Wait blocks until the janitor has fully stopped.
func (j *Janitor) Wait() {
	<-j.done
}

// minObjectAge protects blobs belonging to submits whose database commit
// has not landed yet; anything younger is never considered orphaned.
const minObjectAge = time.Hour

func (j *Janitor) sweep(ctx context.Context) {
	slog.Info("running orphan sweep")

	objects, err := j.store.List(ctx)
	if err != nil {
		slog.Error("failed to list stored objects", "error", err)
		return
	}

	referenced, err := j.repo.ListObjectKeys(ctx)
	if err != nil {
		slog.Error("failed to list referenced keys", "error", err)
		return
	}

	cutoff := time.Now().Add(-minObjectAge)

	var swept, failed int
	for _, obj := range objects {
		if referenced[obj.Key] || obj.ModTime.After(cutoff) {
			continue
		}
		if err := j.store.Remove(ctx, obj.Key); err != nil {
			slog.Error("failed to remove orphaned blob", "key", obj.Key, "error", err)
			failed++
			continue
		}
		swept++
		slog.Info("removed orphaned blob", "key", obj.Key)
	}

	slog.Info("orphan sweep complete",
		"objects", len(objects),
		"swept", swept,
		"failed", failed,
	)
}
