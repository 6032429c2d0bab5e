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
	"github.com/shopspring/decimal"

	"alphanex/internal/config"
	"alphanex/internal/database"
)

// WithdrawalService converts accumulated XP into payout requests.
type WithdrawalService struct {
	db   txRunner
	repo *database.Repository
	min  int
	rate decimal.Decimal // USD per XP
}

// NewWithdrawalService creates a new withdrawal service.
func NewWithdrawalService(db txRunner, repo *database.Repository, cfg *config.Config) (*WithdrawalService, error) {
	rate, err := decimal.NewFromString(cfg.XPToUSDRate)
	if err != nil {
		return nil, fmt.Errorf("invalid XP_TO_USD_RATE %q: %w", cfg.XPToUSDRate, err)
	}
	return &WithdrawalService{
		db:   db,
		repo: repo,
		min:  cfg.MinWithdrawalXP,
		rate: rate,
	}, nil
}

// ConvertXP returns the USD value of an XP amount at the fixed rate.
func (s *WithdrawalService) ConvertXP(amountXP int) decimal.Decimal {
	return s.rate.Mul(decimal.NewFromInt(int64(amountXP))).Round(2)
}

// Request creates a pending payout. The XP is debited immediately so a
// pending request reserves the balance; a balance below the amount rejects
// the request.
func (s *WithdrawalService) Request(ctx context.Context, account *database.User, amountXP int, method, details string) (*database.WithdrawalRequest, error) {
	if strings.TrimSpace(method) == "" || strings.TrimSpace(details) == "" {
		return nil, fmt.Errorf("%w: payment method and details are required", ErrValidationFailed)
	}
	if amountXP < s.min {
		return nil, fmt.Errorf("%w: minimum withdrawal is %d XP", ErrValidationFailed, s.min)
	}

	request := &database.WithdrawalRequest{
		ID:             uuid.NewString(),
		UserID:         account.ID,
		AmountXP:       amountXP,
		AmountUSD:      s.ConvertXP(amountXP),
		Status:         database.StatusPending,
		PaymentMethod:  method,
		PaymentDetails: details,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		r := s.repo.WithTx(tx)
		if err := r.DebitXP(ctx, account.ID, amountXP); err != nil {
			if errors.Is(err, database.ErrInsufficientXP) {
				return ErrInsufficientBalance
			}
			return err
		}
		return r.CreateWithdrawal(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	account.XPPoints -= amountXP
	if account.XPPoints < 0 {
		account.XPPoints = 0
	}

	slog.Info("withdrawal requested",
		"request_id", request.ID,
		"user_id", account.ID,
		"amount_xp", amountXP,
		"amount_usd", request.AmountUSD.String(),
	)
	return request, nil
}

// List returns the account's payout requests, newest first.
func (s *WithdrawalService) List(ctx context.Context, account *database.User) ([]*database.WithdrawalRequest, error) {
	return s.repo.ListWithdrawalsByUser(ctx, account.ID)
}
