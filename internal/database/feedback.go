package database

import (
	"context"
	"fmt"
)

// CreateFeedback inserts a platform feedback record.
func (r *Repository) CreateFeedback(ctx context.Context, f *Feedback) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO feedback (id, user_id, stars, category, description, contact_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		f.ID,
		f.UserID,
		f.Stars,
		f.Category,
		f.Description,
		f.ContactEmail,
		f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}
