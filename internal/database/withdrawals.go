package database

import (
	"context"
	"fmt"
)

// CreateWithdrawal inserts a payout request.
func (r *Repository) CreateWithdrawal(ctx context.Context, w *WithdrawalRequest) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO withdrawal_requests (
			id, user_id, amount_xp, amount_usd, status,
			payment_method, payment_details, created_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		w.ID,
		w.UserID,
		w.AmountXP,
		w.AmountUSD,
		w.Status,
		w.PaymentMethod,
		w.PaymentDetails,
		w.CreatedAt,
		w.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

// ListWithdrawalsByUser returns a user's payout requests, newest first.
func (r *Repository) ListWithdrawalsByUser(ctx context.Context, userID string) ([]*WithdrawalRequest, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, amount_xp, amount_usd, status,
			payment_method, payment_details, created_at, processed_at
		FROM withdrawal_requests WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*WithdrawalRequest
	for rows.Next() {
		w := &WithdrawalRequest{}
		if err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.AmountXP,
			&w.AmountUSD,
			&w.Status,
			&w.PaymentMethod,
			&w.PaymentDetails,
			&w.CreatedAt,
			&w.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, w)
	}
	return requests, rows.Err()
}
