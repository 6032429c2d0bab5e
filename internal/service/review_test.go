package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"alphanex/internal/config"
	"alphanex/internal/database"
)

// fakeRow adapts a scan function to pgx.Row.
type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeTx emulates the statements the review transaction issues: the upload
// read, the review existence check, rating tallies, the review insert and the
// XP/status writes. Inserted reviews feed back into the tallies so quorum
// finalization sees them.
type fakeTx struct {
	pgx.Tx
	upload    *database.Upload
	reviewed  bool
	good, bad int
	insertDup bool

	credits     []int
	floorDebits []int
}

func (f *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "FROM uploads"):
		return fakeRow{func(dest ...any) error {
			if f.upload == nil {
				return pgx.ErrNoRows
			}
			u := f.upload
			*dest[0].(*string) = u.ID
			*dest[1].(*string) = u.UserID
			*dest[2].(*string) = u.ObjectKey
			*dest[3].(*string) = u.OriginalFilename
			*dest[4].(*int64) = u.FileSize
			*dest[5].(*string) = u.Description
			*dest[6].(*string) = u.Category
			*dest[7].(*string) = u.Status
			*dest[8].(*bool) = u.AIConsent
			*dest[9].(*float64) = u.DuplicateScore
			*dest[10].(*float64) = u.SpamScore
			*dest[11].(*time.Time) = u.UploadedAt
			*dest[12].(*time.Time) = u.DeletionDeadline
			return nil
		}}
	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM reviews"):
		return fakeRow{func(dest ...any) error {
			*dest[0].(*bool) = f.reviewed
			return nil
		}}
	case strings.Contains(sql, "FILTER"):
		return fakeRow{func(dest ...any) error {
			*dest[0].(*int) = f.good
			*dest[1].(*int) = f.bad
			*dest[2].(*int) = f.good + f.bad
			return nil
		}}
	}
	return fakeRow{func(...any) error { return fmt.Errorf("unexpected query: %s", sql) }}
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO reviews"):
		if f.insertDup {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		}
		if args[3].(string) == database.RatingGood {
			f.good++
		} else {
			f.bad++
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "daily_upload_bytes"):
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "xp_points + $1"):
		f.credits = append(f.credits, args[0].(int))
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "GREATEST"):
		f.floorDebits = append(f.floorDebits, args[0].(int))
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "UPDATE uploads SET status"):
		if f.upload.Status != database.StatusPending {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.upload.Status = args[0].(string)
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected statement: %s", sql)
}

// fakeDB hands the fake transaction to the closure directly.
type fakeDB struct {
	tx pgx.Tx
}

func (f fakeDB) InTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(f.tx)
}

func newReviewService(tx *fakeTx) *ReviewService {
	repo := database.NewRepository(&database.DB{})
	rewards := RewardTable{ActionUpload: 25, ActionReview: 15, ActionApprovalBonus: 50}
	return NewReviewService(fakeDB{tx: tx}, repo, testLedger(), rewards, &config.Config{ReviewQuorum: 5})
}

func testReviewer() *database.User {
	now := time.Now().UTC()
	return &database.User{ID: "alice", DailyUploadReset: now, DailyReviewReset: now}
}

func pendingUpload() *database.Upload {
	now := time.Now().UTC()
	return &database.Upload{
		ID:               "up1",
		UserID:           "bob",
		ObjectKey:        "key.mp4",
		OriginalFilename: "clip.mp4",
		FileSize:         64,
		Description:      "a short clip of a sunrise",
		Category:         "video",
		Status:           database.StatusPending,
		UploadedAt:       now,
		DeletionDeadline: now.Add(48 * time.Hour),
	}
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the reviewer below quorum", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload()}
		svc := newReviewService(tx)
		reviewer := testReviewer()

		review, err := svc.Submit(ctx, reviewer, "up1", database.RatingGood, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if review.XPEarned != 15 {
			t.Errorf("review reward = %d, want 15", review.XPEarned)
		}
		if reviewer.XPPoints != 15 {
			t.Errorf("reviewer balance = %d, want 15", reviewer.XPPoints)
		}
		if reviewer.DailyReviewCount != 1 {
			t.Errorf("daily review count = %d, want 1", reviewer.DailyReviewCount)
		}
		if tx.upload.Status != database.StatusPending {
			t.Errorf("upload finalized below quorum: %q", tx.upload.Status)
		}
	})

	t.Run("missing upload wins over malformed input", func(t *testing.T) {
		tx := &fakeTx{upload: nil}
		svc := newReviewService(tx)
		reviewer := testReviewer()

		_, err := svc.Submit(ctx, reviewer, "ghost", database.RatingBad, "no")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if reviewer.DailyReviewCount != 0 {
			t.Errorf("daily review count not rolled back: %d", reviewer.DailyReviewCount)
		}
	})

	t.Run("invalid rating", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload()}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", "meh", "")
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})

	t.Run("bad rating needs a justification", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload()}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", database.RatingBad, "meh")
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})

	t.Run("own upload is rejected before input validation", func(t *testing.T) {
		upload := pendingUpload()
		upload.UserID = "alice"
		tx := &fakeTx{upload: upload}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", "meh", "")
		if !errors.Is(err, ErrSelfReview) {
			t.Errorf("expected ErrSelfReview, got %v", err)
		}
	})

	t.Run("second review of the same upload", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload(), reviewed: true}
		svc := newReviewService(tx)
		reviewer := testReviewer()

		_, err := svc.Submit(ctx, reviewer, "up1", database.RatingGood, "")
		if !errors.Is(err, ErrAlreadyReviewed) {
			t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
		}
		if reviewer.XPPoints != 0 || reviewer.DailyReviewCount != 0 {
			t.Errorf("reviewer state changed: xp=%d count=%d", reviewer.XPPoints, reviewer.DailyReviewCount)
		}
	})

	t.Run("insert conflict maps to already reviewed", func(t *testing.T) {
		// The existence check raced with a concurrent submit; the unique
		// constraint is the backstop.
		tx := &fakeTx{upload: pendingUpload(), insertDup: true}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", database.RatingGood, "")
		if !errors.Is(err, ErrAlreadyReviewed) {
			t.Errorf("expected ErrAlreadyReviewed, got %v", err)
		}
	})

	t.Run("full set of reviews", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload(), good: 3, bad: 2}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", database.RatingGood, "")
		if !errors.Is(err, ErrQuorumReached) {
			t.Errorf("expected ErrQuorumReached, got %v", err)
		}
	})

	t.Run("finalized upload", func(t *testing.T) {
		upload := pendingUpload()
		upload.Status = database.StatusApproved
		tx := &fakeTx{upload: upload}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", database.RatingGood, "")
		if !errors.Is(err, ErrQuorumReached) {
			t.Errorf("expected ErrQuorumReached, got %v", err)
		}
	})

	t.Run("banned reviewer", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload()}
		svc := newReviewService(tx)
		reviewer := testReviewer()
		reviewer.IsBanned = true

		_, err := svc.Submit(ctx, reviewer, "up1", database.RatingGood, "")
		if !errors.Is(err, ErrAccountBanned) {
			t.Errorf("expected ErrAccountBanned, got %v", err)
		}
	})
}

func TestQuorumSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("approval credits the uploader bonus", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload(), good: 2, bad: 2}
		svc := newReviewService(tx)
		reviewer := testReviewer()

		if _, err := svc.Submit(ctx, reviewer, "up1", database.RatingGood, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.upload.Status != database.StatusApproved {
			t.Errorf("status = %q, want approved", tx.upload.Status)
		}
		// Reviewer reward, then the approval bonus.
		if len(tx.credits) != 2 || tx.credits[0] != 15 || tx.credits[1] != 50 {
			t.Errorf("credits = %v, want [15 50]", tx.credits)
		}
		if len(tx.floorDebits) != 0 {
			t.Errorf("unexpected debits: %v", tx.floorDebits)
		}
	})

	t.Run("rejection claws back the upload reward", func(t *testing.T) {
		tx := &fakeTx{upload: pendingUpload(), good: 2, bad: 2}
		svc := newReviewService(tx)

		_, err := svc.Submit(ctx, testReviewer(), "up1", database.RatingBad, "blurry and mislabeled throughout")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.upload.Status != database.StatusRejected {
			t.Errorf("status = %q, want rejected", tx.upload.Status)
		}
		if len(tx.floorDebits) != 1 || tx.floorDebits[0] != 25 {
			t.Errorf("floored debits = %v, want [25]", tx.floorDebits)
		}
		if len(tx.credits) != 1 || tx.credits[0] != 15 {
			t.Errorf("credits = %v, want [15]", tx.credits)
		}
	})

	t.Run("settlement applies at most once", func(t *testing.T) {
		// Full tally but the status already left pending: the transition
		// reports no row and no XP moves.
		upload := pendingUpload()
		upload.Status = database.StatusApproved
		tx := &fakeTx{upload: upload, good: 3, bad: 2}
		svc := newReviewService(tx)
		repo := database.NewRepository(&database.DB{}).WithTx(tx)

		if err := svc.maybeFinalize(ctx, repo, upload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tx.credits) != 0 || len(tx.floorDebits) != 0 {
			t.Errorf("settlement repeated: credits=%v debits=%v", tx.credits, tx.floorDebits)
		}
	})
}

func TestResolveQuorum(t *testing.T) {
	const quorum = 5

	t.Run("good majority approves", func(t *testing.T) {
		status, ok := resolveQuorum(3, 2, quorum)
		if !ok {
			t.Fatal("expected a resolution")
		}
		if status != database.StatusApproved {
			t.Errorf("expected approved, got %q", status)
		}
	})

	t.Run("bad majority rejects", func(t *testing.T) {
		status, ok := resolveQuorum(2, 3, quorum)
		if !ok {
			t.Fatal("expected a resolution")
		}
		if status != database.StatusRejected {
			t.Errorf("expected rejected, got %q", status)
		}
	})

	t.Run("unanimous votes", func(t *testing.T) {
		if status, _ := resolveQuorum(5, 0, quorum); status != database.StatusApproved {
			t.Errorf("expected approved, got %q", status)
		}
		if status, _ := resolveQuorum(0, 5, quorum); status != database.StatusRejected {
			t.Errorf("expected rejected, got %q", status)
		}
	})

	t.Run("every full tally resolves", func(t *testing.T) {
		// With two outcomes and an odd quorum there is no stalemate.
		for good := 0; good <= quorum; good++ {
			bad := quorum - good
			if _, ok := resolveQuorum(good, bad, quorum); !ok {
				t.Errorf("no resolution for good=%d bad=%d", good, bad)
			}
		}
	})

	t.Run("partial tally does not resolve", func(t *testing.T) {
		if _, ok := resolveQuorum(2, 2, quorum); ok {
			t.Error("4 of 5 reviews must not resolve")
		}
	})
}
