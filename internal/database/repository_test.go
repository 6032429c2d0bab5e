package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeQuerier emulates the row-level semantics of the XP, review and status
// statements so their outcome mapping can be exercised without a database.
type fakeQuerier struct {
	balance      int
	userExists   bool
	reviews      map[string]bool
	uploadStatus string
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{userExists: true, reviews: make(map[string]bool)}
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "xp_points + $1"):
		if !f.userExists {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.balance += args[0].(int)
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "xp_points >= $1"):
		amount := args[0].(int)
		if !f.userExists || f.balance < amount {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.balance -= amount
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "GREATEST(xp_points - $1, 0)"):
		if !f.userExists {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.balance -= args[0].(int)
		if f.balance < 0 {
			f.balance = 0
		}
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "INSERT INTO reviews"):
		key := args[1].(string) + "|" + args[2].(string)
		if f.reviews[key] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		}
		f.reviews[key] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "UPDATE uploads SET status"):
		if f.uploadStatus != StatusPending {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.uploadStatus = args[0].(string)
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected statement: %s", sql)
}

func (f *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return nil
}

func TestXPBalanceOps(t *testing.T) {
	ctx := context.Background()

	t.Run("credit then debit round trip", func(t *testing.T) {
		fq := newFakeQuerier()
		repo := &Repository{q: fq}

		if err := repo.CreditXP(ctx, "u1", 100); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := repo.DebitXP(ctx, "u1", 40); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fq.balance != 60 {
			t.Errorf("balance = %d, want 60", fq.balance)
		}
	})

	t.Run("failed debit leaves the balance unchanged", func(t *testing.T) {
		fq := newFakeQuerier()
		fq.balance = 60
		repo := &Repository{q: fq}

		err := repo.DebitXP(ctx, "u1", 100)
		if !errors.Is(err, ErrInsufficientXP) {
			t.Fatalf("expected ErrInsufficientXP, got %v", err)
		}
		if fq.balance != 60 {
			t.Errorf("balance changed on failed debit: %d", fq.balance)
		}
	})

	t.Run("debit of the exact balance succeeds", func(t *testing.T) {
		fq := newFakeQuerier()
		fq.balance = 40
		repo := &Repository{q: fq}

		if err := repo.DebitXP(ctx, "u1", 40); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fq.balance != 0 {
			t.Errorf("balance = %d, want 0", fq.balance)
		}
	})

	t.Run("floored debit never goes negative", func(t *testing.T) {
		fq := newFakeQuerier()
		fq.balance = 10
		repo := &Repository{q: fq}

		if err := repo.DebitXPFloor(ctx, "u1", 25); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fq.balance != 0 {
			t.Errorf("balance = %d, want 0", fq.balance)
		}
	})

	t.Run("credit to a missing user fails", func(t *testing.T) {
		fq := newFakeQuerier()
		fq.userExists = false
		repo := &Repository{q: fq}

		if err := repo.CreditXP(ctx, "ghost", 10); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestCreateReviewDuplicate(t *testing.T) {
	ctx := context.Background()
	fq := newFakeQuerier()
	repo := &Repository{q: fq}

	review := &Review{
		ID:         "r1",
		UploadID:   "up1",
		ReviewerID: "alice",
		Rating:     RatingGood,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.CreateReview(ctx, review); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("same pair conflicts", func(t *testing.T) {
		dup := *review
		dup.ID = "r2"
		if err := repo.CreateReview(ctx, &dup); !errors.Is(err, ErrDuplicateRow) {
			t.Errorf("expected ErrDuplicateRow, got %v", err)
		}
	})

	t.Run("another reviewer may still review", func(t *testing.T) {
		other := *review
		other.ID = "r3"
		other.ReviewerID = "bob"
		if err := repo.CreateReview(ctx, &other); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestTransitionStatusSingleShot(t *testing.T) {
	ctx := context.Background()
	fq := newFakeQuerier()
	fq.uploadStatus = StatusPending
	repo := &Repository{q: fq}

	first, err := repo.TransitionStatus(ctx, "up1", StatusApproved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("expected the first transition to win")
	}

	second, err := repo.TransitionStatus(ctx, "up1", StatusRejected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Error("expected the second transition to be a no-op")
	}
	if fq.uploadStatus != StatusApproved {
		t.Errorf("status = %q, want approved", fq.uploadStatus)
	}
}
