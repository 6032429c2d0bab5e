package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"alphanex/internal/config"
	"alphanex/internal/database"
	"alphanex/internal/storage"
)

// stubStore records saves and removals in memory.
type stubStore struct {
	saved   map[string]int64
	removed []string
}

func newStubStore() *stubStore {
	return &stubStore{saved: make(map[string]int64)}
}

func (s *stubStore) Save(_ context.Context, key string, data io.Reader, _ int64) (int64, error) {
	n, err := io.Copy(io.Discard, data)
	if err != nil {
		return 0, err
	}
	s.saved[key] = n
	return n, nil
}

func (s *stubStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not stored")
}

func (s *stubStore) Remove(_ context.Context, key string) error {
	delete(s.saved, key)
	s.removed = append(s.removed, key)
	return nil
}

func (s *stubStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.saved[key]
	return ok, nil
}

func (s *stubStore) List(context.Context) ([]storage.Object, error) { return nil, nil }

func (s *stubStore) EnsureReady(context.Context) error { return nil }

func newUploadService(store storage.Store, cfg *config.Config) *UploadService {
	ledger := Ledger{
		DailyUploadCap:  cfg.DailyUploadCap,
		DailyByteCap:    cfg.DailyByteCap,
		DailyReviewCap:  5,
		PerFileCeiling:  cfg.MaxFileSize,
		XPAutoThreshold: 10000,
	}
	rewards := RewardTable{ActionUpload: 25, ActionReview: 15, ActionApprovalBonus: 50}
	return NewUploadService(nil, nil, store, nil, ledger, rewards, cfg)
}

func testUploader() *database.User {
	now := time.Now().UTC()
	return &database.User{ID: "alice", DailyUploadReset: now, DailyReviewReset: now}
}

func submitInput(size int64, payload []byte) SubmitInput {
	return SubmitInput{
		Filename:    "notes.pdf",
		Data:        bytes.NewReader(payload),
		Size:        size,
		Description: "lecture notes on queueing theory",
		Category:    "document",
		Consent:     true,
	}
}

func TestSubmitSizeLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("declared size over the daily budget is rejected before storing", func(t *testing.T) {
		store := newStubStore()
		svc := newUploadService(store, &config.Config{
			MaxFileSize: 1024, DailyByteCap: 100, DailyUploadCap: 3,
		})

		_, err := svc.Submit(ctx, testUploader(), submitInput(200, make([]byte, 200)))
		if !errors.Is(err, ErrDailyLimitExceeded) {
			t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
		}
		if len(store.saved) != 0 {
			t.Errorf("blob stored despite rejection: %v", store.saved)
		}
	})

	t.Run("understated size cannot overshoot the daily budget", func(t *testing.T) {
		// The reader delivers more bytes than the client declared; the
		// budget binds on what the store actually received.
		store := newStubStore()
		svc := newUploadService(store, &config.Config{
			MaxFileSize: 1024, DailyByteCap: 100, DailyUploadCap: 3,
		})
		account := testUploader()

		_, err := svc.Submit(ctx, account, submitInput(80, make([]byte, 300)))
		if !errors.Is(err, ErrDailyLimitExceeded) {
			t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
		}
		if len(store.saved) != 0 || len(store.removed) != 1 {
			t.Errorf("blob not cleaned up: saved=%v removed=%v", store.saved, store.removed)
		}
		if account.DailyUploadBytes != 0 || account.DailyUploadCount != 0 {
			t.Errorf("counters charged for a rejected upload: %+v", account)
		}
	})

	t.Run("understated size cannot pass the per-file ceiling", func(t *testing.T) {
		store := newStubStore()
		svc := newUploadService(store, &config.Config{
			MaxFileSize: 100, DailyByteCap: 1 << 20, DailyUploadCap: 3,
		})

		_, err := svc.Submit(ctx, testUploader(), submitInput(80, make([]byte, 300)))
		if !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("expected ErrFileTooLarge, got %v", err)
		}
		if len(store.saved) != 0 || len(store.removed) != 1 {
			t.Errorf("blob not cleaned up: saved=%v removed=%v", store.saved, store.removed)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		store := newStubStore()
		svc := newUploadService(store, &config.Config{
			MaxFileSize: 1024, DailyByteCap: 1 << 20, DailyUploadCap: 3,
		})

		_, err := svc.Submit(ctx, testUploader(), submitInput(0, nil))
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})
}
