package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alphanex/internal/config"
	"alphanex/internal/database"
	"alphanex/internal/scoring"
	"alphanex/internal/storage"
)

// minDescriptionLen is the minimum length of a content description.
const minDescriptionLen = 10

// UploadService contains the business logic for the upload lifecycle.
type UploadService struct {
	db      txRunner
	repo    *database.Repository
	store   storage.Store
	oracle  scoring.Oracle // nil when no oracle is configured
	ledger  Ledger
	rewards RewardTable
	cfg     *config.Config
}

// NewUploadService creates a new upload service. oracle may be nil; scoring
// then records neutral scores.
func NewUploadService(db txRunner, repo *database.Repository, store storage.Store,
	oracle scoring.Oracle, ledger Ledger, rewards RewardTable, cfg *config.Config) *UploadService {
	return &UploadService{
		db:      db,
		repo:    repo,
		store:   store,
		oracle:  oracle,
		ledger:  ledger,
		rewards: rewards,
		cfg:     cfg,
	}
}

// SubmitInput carries one upload submission.
type SubmitInput struct {
	Filename    string
	Data        io.Reader
	Size        int64
	Description string
	Category    string
	Consent     bool
}

// Submit validates the submission against the account's daily windows and
// the file policy, stores the blob, and creates the upload record together
// with the counter updates and the upload XP credit in one transaction.
// Scoring runs after the commit and never blocks or fails the submission.
func (s *UploadService) Submit(ctx context.Context, account *database.User, in SubmitInput) (*database.Upload, error) {
	if account.IsBanned {
		return nil, ErrAccountBanned
	}

	if !in.Consent {
		return nil, fmt.Errorf("%w: consent is required", ErrValidationFailed)
	}
	if len(strings.TrimSpace(in.Description)) < minDescriptionLen {
		return nil, fmt.Errorf("%w: description must be at least %d characters", ErrValidationFailed, minDescriptionLen)
	}
	if !ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidationFailed, in.Category)
	}
	if !IsAllowedFile(in.Filename) {
		return nil, fmt.Errorf("%w: file type not allowed", ErrValidationFailed)
	}
	if in.Size <= 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidationFailed)
	}
	if in.Size > s.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	now := time.Now().UTC()
	s.ledger.RefreshDailyWindow(account, now)

	if !s.ledger.CanUploadToday(account) {
		return nil, ErrDailyLimitExceeded
	}
	if in.Size > s.ledger.RemainingDailyBytes(account) {
		return nil, ErrDailyLimitExceeded
	}

	key := NewObjectKey(in.Filename)
	written, err := s.store.Save(ctx, key, in.Data, in.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	// The declared size is client-supplied; the limits bind on what the
	// store actually received.
	if written > s.cfg.MaxFileSize {
		s.removeBlob(key)
		return nil, ErrFileTooLarge
	}
	if written > s.ledger.RemainingDailyBytes(account) {
		s.removeBlob(key)
		return nil, ErrDailyLimitExceeded
	}

	upload := &database.Upload{
		ID:               uuid.NewString(),
		UserID:           account.ID,
		ObjectKey:        key,
		OriginalFilename: SanitizeFilename(in.Filename),
		FileSize:         written,
		Description:      in.Description,
		Category:         in.Category,
		Status:           database.StatusPending,
		AIConsent:        in.Consent,
		UploadedAt:       now,
		// Immutable once set: deletion is free inside this window only.
		DeletionDeadline: now.Add(s.cfg.DeletionGraceful),
	}

	uploadReward := s.rewards.Amount(ActionUpload)

	account.DailyUploadCount++
	account.DailyUploadBytes += written

	err = s.db.InTx(ctx, func(tx pgx.Tx) error {
		r := s.repo.WithTx(tx)
		if err := r.CreateUpload(ctx, upload); err != nil {
			return err
		}
		if err := r.SaveDailyCounters(ctx, account); err != nil {
			return err
		}
		return r.CreditXP(ctx, account.ID, uploadReward)
	})
	if err != nil {
		// Roll the in-memory counters back and clean up the stored blob.
		account.DailyUploadCount--
		account.DailyUploadBytes -= written
		s.removeBlob(key)
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}
	account.XPPoints += uploadReward

	slog.Info("upload submitted",
		"upload_id", upload.ID,
		"user_id", account.ID,
		"filename", upload.OriginalFilename,
		"size", written,
		"category", upload.Category,
	)

	if s.oracle != nil {
		go s.scoreAndMaybeFlag(upload.ID, account.ID, upload.Description)
	}

	return upload, nil
}

// scoreAndMaybeFlag asks the oracle for duplicate/spam scores and attaches
// them to the upload. Oracle failure degrades to neutral scores instead of
// propagating: upload success never depends on oracle availability. When a
// score passes its threshold the upload is flagged and the uploader struck;
// the pending-only status guard keeps the transition single-shot.
func (s *UploadService) scoreAndMaybeFlag(uploadID, ownerID, description string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.OracleTimeout)
	scores, err := s.oracle.Analyze(ctx, description)
	cancel()
	if err != nil {
		slog.Warn("scoring oracle unavailable, using neutral scores",
			"upload_id", uploadID, "error", err)
		scores = scoring.Neutral()
	}
	scores = scores.Clamped()

	// Fresh context: the oracle timeout must not starve the DB write.
	dbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = s.db.InTx(dbCtx, func(tx pgx.Tx) error {
		r := s.repo.WithTx(tx)

		if err := r.SetScores(dbCtx, uploadID, scores.Duplicate, scores.Spam); err != nil {
			return err
		}
		if !scores.ShouldFlag() {
			return nil
		}

		flagged, err := r.TransitionStatus(dbCtx, uploadID, database.StatusFlagged)
		if err != nil {
			return err
		}
		if !flagged {
			// Already out of pending; someone else finalized first.
			return nil
		}

		owner, err := r.GetUserByID(dbCtx, ownerID)
		if err != nil {
			return err
		}
		strike := s.ledger.ApplyStrike(owner, database.StrikeUploader, scores.FlagReason(), time.Now().UTC())
		if err := r.InsertStrike(dbCtx, strike); err != nil {
			return err
		}
		return r.SaveStrikeState(dbCtx, owner)
	})
	if err != nil {
		slog.Error("failed to record oracle scores", "upload_id", uploadID, "error", err)
		return
	}

	if scores.ShouldFlag() {
		slog.Info("upload auto-flagged",
			"upload_id", uploadID,
			"duplicate_score", scores.Duplicate,
			"spam_score", scores.Spam,
		)
	}
}

// Get returns an upload's metadata to its owner.
func (s *UploadService) Get(ctx context.Context, account *database.User, uploadID string) (*database.Upload, error) {
	upload, err := s.repo.GetUploadByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, database.ErrUploadNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if upload.UserID != account.ID {
		return nil, ErrForbidden
	}
	return upload, nil
}

// List returns the account's uploads, newest first.
func (s *UploadService) List(ctx context.Context, account *database.User) ([]*database.Upload, error) {
	return s.repo.ListUploadsByUser(ctx, account.ID)
}

// OpenFile returns the upload's blob contents for its owner.
func (s *UploadService) OpenFile(ctx context.Context, account *database.User, uploadID string) (*database.Upload, io.ReadCloser, error) {
	upload, err := s.Get(ctx, account, uploadID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, upload.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("blob not found in store: %w", err)
	}
	return upload, rc, nil
}

// Delete removes the requesting account's own upload. Past the deletion
// deadline a penalty of 5 XP per late hour (capped at 100) is debited; a
// balance that cannot cover the penalty rejects the deletion. The database
// deletion cascades to the upload's reviews; blob removal failures are
// logged and swallowed, accepting the orphaned-blob risk (the janitor
// reclaims those later). Returns the penalty charged.
func (s *UploadService) Delete(ctx context.Context, account *database.User, uploadID string) (int, error) {
	var penalty int
	var objectKey string

	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		r := s.repo.WithTx(tx)

		upload, err := r.GetUploadByID(ctx, uploadID)
		if err != nil {
			if errors.Is(err, database.ErrUploadNotFound) {
				return ErrNotFound
			}
			return err
		}
		if upload.UserID != account.ID {
			return ErrForbidden
		}

		objectKey = upload.ObjectKey
		penalty = upload.DeletionPenalty(time.Now().UTC())

		if penalty > 0 {
			if err := r.DebitXP(ctx, account.ID, penalty); err != nil {
				if errors.Is(err, database.ErrInsufficientXP) {
					return ErrInsufficientBalance
				}
				return err
			}
		}

		return r.DeleteUpload(ctx, uploadID)
	})
	if err != nil {
		return 0, err
	}

	account.XPPoints -= penalty
	if account.XPPoints < 0 {
		account.XPPoints = 0
	}

	// Best-effort: the record is gone either way.
	s.removeBlob(objectKey)

	slog.Info("upload deleted", "upload_id", uploadID, "user_id", account.ID, "penalty", penalty)
	return penalty, nil
}

func (s *UploadService) removeBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.store.Remove(ctx, key); err != nil {
		slog.Error("failed to remove blob from store", "key", key, "error", err)
	}
}
