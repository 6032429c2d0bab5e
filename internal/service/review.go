package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alphanex/internal/config"
	"alphanex/internal/database"
)

// minJustificationLen applies to negative ratings only: a "bad" verdict
// requires substantiation.
const minJustificationLen = 10

// ReviewService collects peer ratings and finalizes uploads at quorum.
type ReviewService struct {
	db      txRunner
	repo    *database.Repository
	ledger  Ledger
	rewards RewardTable
	quorum  int
}

// NewReviewService creates a new review service.
func NewReviewService(db txRunner, repo *database.Repository, ledger Ledger,
	rewards RewardTable, cfg *config.Config) *ReviewService {
	return &ReviewService{
		db:      db,
		repo:    repo,
		ledger:  ledger,
		rewards: rewards,
		quorum:  cfg.ReviewQuorum,
	}
}

// Submit records a peer review and credits the reviewer. When the upload's
// review count reaches quorum, the upload is finalized in the same
// transaction: a good majority approves and credits the uploader a bonus, a
// bad majority rejects and claws back the upload reward, floored at zero
// rather than failing like the deletion penalty does.
func (s *ReviewService) Submit(ctx context.Context, reviewer *database.User, uploadID, rating, justification string) (*database.Review, error) {
	if reviewer.IsBanned {
		return nil, ErrAccountBanned
	}

	now := time.Now().UTC()
	s.ledger.RefreshDailyWindow(reviewer, now)
	if !s.ledger.CanReviewToday(reviewer) {
		return nil, ErrDailyLimitExceeded
	}

	review := &database.Review{
		ID:            uuid.NewString(),
		UploadID:      uploadID,
		ReviewerID:    reviewer.ID,
		Rating:        rating,
		Justification: justification,
		XPEarned:      s.rewards.Amount(ActionReview),
		CreatedAt:     now,
	}

	reviewer.DailyReviewCount++

	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		r := s.repo.WithTx(tx)

		upload, err := r.GetUploadByID(ctx, uploadID)
		if err != nil {
			if errors.Is(err, database.ErrUploadNotFound) {
				return ErrNotFound
			}
			return err
		}
		if upload.UserID == reviewer.ID {
			return ErrSelfReview
		}
		if upload.Status != database.StatusPending {
			// Flagged or already finalized: terminal for review purposes.
			return ErrQuorumReached
		}

		// Input validation runs after the upload is resolved so a missing
		// upload reports NotFound regardless of how malformed the input is.
		if rating != database.RatingGood && rating != database.RatingBad {
			return fmt.Errorf("%w: rating must be good or bad", ErrValidationFailed)
		}
		if rating == database.RatingBad && len(strings.TrimSpace(justification)) < minJustificationLen {
			return fmt.Errorf("%w: a bad rating needs a justification of at least %d characters", ErrValidationFailed, minJustificationLen)
		}

		reviewed, err := r.HasReviewed(ctx, uploadID, reviewer.ID)
		if err != nil {
			return err
		}
		if reviewed {
			return ErrAlreadyReviewed
		}

		_, _, total, err := r.CountRatings(ctx, uploadID)
		if err != nil {
			return err
		}
		if total >= s.quorum {
			return ErrQuorumReached
		}

		if err := r.CreateReview(ctx, review); err != nil {
			if errors.Is(err, database.ErrDuplicateRow) {
				return ErrAlreadyReviewed
			}
			return err
		}
		if err := r.SaveDailyCounters(ctx, reviewer); err != nil {
			return err
		}
		if err := r.CreditXP(ctx, reviewer.ID, review.XPEarned); err != nil {
			return err
		}

		return s.maybeFinalize(ctx, r, upload)
	})
	if err != nil {
		reviewer.DailyReviewCount--
		return nil, err
	}
	reviewer.XPPoints += review.XPEarned

	slog.Info("review submitted",
		"review_id", review.ID,
		"upload_id", uploadID,
		"reviewer_id", reviewer.ID,
		"rating", rating,
	)
	return review, nil
}

// maybeFinalize resolves the upload once its review count reaches quorum.
// The count is re-read inside the caller's transaction so the decision sees
// every committed review, and the pending-only status transition guarantees
// the XP settlement applies at most once even under concurrent submissions.
func (s *ReviewService) maybeFinalize(ctx context.Context, r *database.Repository, upload *database.Upload) error {
	good, bad, total, err := r.CountRatings(ctx, upload.ID)
	if err != nil {
		return err
	}
	if total < s.quorum {
		return nil
	}

	status, ok := resolveQuorum(good, bad, s.quorum)
	if !ok {
		// Unreachable with two-outcome ratings and an odd quorum; a full
		// set always yields a majority.
		return fmt.Errorf("quorum of %d reviews resolved no majority (good=%d bad=%d)", s.quorum, good, bad)
	}

	finalized, err := r.TransitionStatus(ctx, upload.ID, status)
	if err != nil {
		return err
	}
	if !finalized {
		return nil
	}

	switch status {
	case database.StatusApproved:
		if err := r.CreditXP(ctx, upload.UserID, s.rewards.Amount(ActionApprovalBonus)); err != nil {
			return err
		}
	case database.StatusRejected:
		if err := r.DebitXPFloor(ctx, upload.UserID, s.rewards.Amount(ActionUpload)); err != nil {
			return err
		}
	}

	slog.Info("upload finalized",
		"upload_id", upload.ID,
		"status", status,
		"good", good,
		"bad", bad,
	)
	return nil
}

// resolveQuorum maps a full rating tally to a terminal status. With a
// 2-outcome rating and quorum 5, one side always reaches the 3-vote
// majority, so ok is false only on a logic error.
func resolveQuorum(good, bad, quorum int) (status string, ok bool) {
	majority := quorum/2 + 1
	switch {
	case good >= majority:
		return database.StatusApproved, true
	case bad >= majority:
		return database.StatusRejected, true
	default:
		return "", false
	}
}

// NextReviewable returns the oldest pending upload the reviewer may still
// review: not their own, not yet reviewed by them, not flagged or finalized.
func (s *ReviewService) NextReviewable(ctx context.Context, reviewer *database.User) (*database.Upload, error) {
	if reviewer.IsBanned {
		return nil, ErrAccountBanned
	}

	now := time.Now().UTC()
	if s.ledger.RefreshDailyWindow(reviewer, now) {
		if err := s.repo.SaveDailyCounters(ctx, reviewer); err != nil {
			return nil, err
		}
	}
	if !s.ledger.CanReviewToday(reviewer) {
		return nil, ErrDailyLimitExceeded
	}

	upload, err := s.repo.NextReviewable(ctx, reviewer.ID)
	if err != nil {
		if errors.Is(err, database.ErrUploadNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return upload, nil
}
