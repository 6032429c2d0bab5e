package database

import (
	"context"
	"fmt"
)

// CreateReview inserts a review. Returns ErrDuplicateRow when the
// (upload, reviewer) pair already has one.
func (r *Repository) CreateReview(ctx context.Context, rev *Review) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO reviews (id, upload_id, reviewer_id, rating, justification, xp_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		rev.ID,
		rev.UploadID,
		rev.ReviewerID,
		rev.Rating,
		rev.Justification,
		rev.XPEarned,
		rev.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRow
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// HasReviewed reports whether the reviewer already reviewed the upload.
func (r *Repository) HasReviewed(ctx context.Context, uploadID, reviewerID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM reviews WHERE upload_id = $1 AND reviewer_id = $2)",
		uploadID, reviewerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return exists, nil
}

// CountRatings returns the good/bad/total rating tallies for an upload.
// Quorum resolution depends on this being one consistent read.
func (r *Repository) CountRatings(ctx context.Context, uploadID string) (good, bad, total int, err error) {
	err = r.q.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE rating = 'good'),
			COUNT(*) FILTER (WHERE rating = 'bad'),
			COUNT(*)
		FROM reviews WHERE upload_id = $1
	`, uploadID).Scan(&good, &bad, &total)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return good, bad, total, nil
}

// CountReviewsByUser returns how many reviews a user has written in total.
func (r *Repository) CountReviewsByUser(ctx context.Context, reviewerID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		"SELECT COUNT(*) FROM reviews WHERE reviewer_id = $1", reviewerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}

// CountUploadsByUser returns how many uploads a user has in total.
func (r *Repository) CountUploadsByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		"SELECT COUNT(*) FROM uploads WHERE user_id = $1", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return n, nil
}
