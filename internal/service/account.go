package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"alphanex/internal/auth"
	"alphanex/internal/config"
	"alphanex/internal/database"
)

// demoEmail identifies the shared demo account used when the server runs in
// demo mode.
const demoEmail = "demo@alphanex.local"

// demoStartingXP seeds the demo account so penalties and withdrawals can be
// exercised immediately.
const demoStartingXP = 500

// AccountService handles registration, login and profile reads. Identity
// resolution stops here; everything downstream receives the account
// explicitly.
type AccountService struct {
	repo   *database.Repository
	tokens *auth.TokenManager
	ledger Ledger
	cfg    *config.Config
}

// NewAccountService creates a new account service.
func NewAccountService(repo *database.Repository, tokens *auth.TokenManager, ledger Ledger, cfg *config.Config) *AccountService {
	return &AccountService{repo: repo, tokens: tokens, ledger: ledger, cfg: cfg}
}

// Register creates a new account.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*database.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(name) < 2 {
		return nil, fmt.Errorf("%w: name must be at least 2 characters", ErrValidationFailed)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidationFailed)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidationFailed)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &database.User{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		DailyUploadReset: now,
		DailyReviewReset: now,
		CreatedAt:        now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	slog.Info("account registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and returns a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		// Indistinguishable from a wrong password on purpose.
		return "", nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetByID loads an account by ID.
func (s *AccountService) GetByID(ctx context.Context, id string) (*database.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// DemoAccount returns the shared demo account, creating and seeding it on
// first use.
func (s *AccountService) DemoAccount(ctx context.Context) (*database.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, demoEmail)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user = &database.User{
		ID:               uuid.NewString(),
		Name:             "Demo User",
		Email:            demoEmail,
		PasswordHash:     hash,
		XPPoints:         demoStartingXP,
		DailyUploadReset: now,
		DailyReviewReset: now,
		CreatedAt:        now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Lost a create race with a concurrent request; read theirs.
		if errors.Is(err, database.ErrDuplicateEmail) {
			return s.repo.GetUserByEmail(ctx, demoEmail)
		}
		return nil, err
	}

	slog.Info("demo account created", "user_id", user.ID)
	return user, nil
}

// SubmitFeedback records a platform rating from the account. Feedback earns
// no XP and is accepted even from banned accounts.
func (s *AccountService) SubmitFeedback(ctx context.Context, account *database.User, stars int, category, description, contactEmail string) (*database.Feedback, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5 stars", ErrValidationFailed)
	}
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidationFailed)
	}
	if len(strings.TrimSpace(description)) < minDescriptionLen {
		return nil, fmt.Errorf("%w: description must be at least %d characters", ErrValidationFailed, minDescriptionLen)
	}
	contactEmail = strings.ToLower(strings.TrimSpace(contactEmail))
	if contactEmail != "" && !strings.Contains(contactEmail, "@") {
		return nil, fmt.Errorf("%w: invalid contact email", ErrValidationFailed)
	}

	feedback := &database.Feedback{
		ID:           uuid.NewString(),
		UserID:       account.ID,
		Stars:        stars,
		Category:     category,
		Description:  description,
		ContactEmail: contactEmail,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateFeedback(ctx, feedback); err != nil {
		return nil, err
	}

	slog.Info("feedback submitted", "feedback_id", feedback.ID, "user_id", account.ID, "stars", stars)
	return feedback, nil
}

// Profile summarizes an account for the boundary layer.
type Profile struct {
	User                  *database.User
	TotalUploads          int64
	TotalReviews          int64
	Strikes               []*database.Strike
	RemainingUploadsToday int
	RemainingReviewsToday int
	RemainingDailyBytes   int64
	CrossedAutoThreshold  bool
}

// Profile returns the account's stats with fresh daily windows.
func (s *AccountService) Profile(ctx context.Context, account *database.User) (*Profile, error) {
	if s.ledger.RefreshDailyWindow(account, time.Now().UTC()) {
		if err := s.repo.SaveDailyCounters(ctx, account); err != nil {
			return nil, err
		}
	}

	totalUploads, err := s.repo.CountUploadsByUser(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	totalReviews, err := s.repo.CountReviewsByUser(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	strikes, err := s.repo.ListStrikes(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	remainingUploads := s.ledger.DailyUploadCap - account.DailyUploadCount
	if remainingUploads < 0 {
		remainingUploads = 0
	}
	remainingReviews := s.ledger.DailyReviewCap - account.DailyReviewCount
	if remainingReviews < 0 {
		remainingReviews = 0
	}

	return &Profile{
		User:                  account,
		TotalUploads:          totalUploads,
		TotalReviews:          totalReviews,
		Strikes:               strikes,
		RemainingUploadsToday: remainingUploads,
		RemainingReviewsToday: remainingReviews,
		RemainingDailyBytes:   s.ledger.RemainingDailyBytes(account),
		CrossedAutoThreshold:  s.ledger.CrossedAutoThreshold(account),
	}, nil
}
