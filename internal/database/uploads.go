package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const uploadColumns = `id, user_id, object_key, original_filename, file_size,
	description, category, status, ai_consent,
	duplicate_score, spam_score, uploaded_at, deletion_deadline`

func scanUpload(row pgx.Row) (*Upload, error) {
	u := &Upload{}
	err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.ObjectKey,
		&u.OriginalFilename,
		&u.FileSize,
		&u.Description,
		&u.Category,
		&u.Status,
		&u.AIConsent,
		&u.DuplicateScore,
		&u.SpamScore,
		&u.UploadedAt,
		&u.DeletionDeadline,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}
	return u, nil
}

// CreateUpload inserts a new upload record.
func (r *Repository) CreateUpload(ctx context.Context, u *Upload) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO uploads (
			id, user_id, object_key, original_filename, file_size,
			description, category, status, ai_consent,
			duplicate_score, spam_score, uploaded_at, deletion_deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		u.ID,
		u.UserID,
		u.ObjectKey,
		u.OriginalFilename,
		u.FileSize,
		u.Description,
		u.Category,
		u.Status,
		u.AIConsent,
		u.DuplicateScore,
		u.SpamScore,
		u.UploadedAt,
		u.DeletionDeadline,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

// GetUploadByID retrieves an upload by its ID.
func (r *Repository) GetUploadByID(ctx context.Context, id string) (*Upload, error) {
	return scanUpload(r.q.QueryRow(ctx,
		"SELECT "+uploadColumns+" FROM uploads WHERE id = $1", id))
}

// ListUploadsByUser returns a user's uploads, newest first.
func (r *Repository) ListUploadsByUser(ctx context.Context, userID string) ([]*Upload, error) {
	rows, err := r.q.Query(ctx,
		"SELECT "+uploadColumns+" FROM uploads WHERE user_id = $1 ORDER BY uploaded_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()
	return collectUploads(rows)
}

// DeleteUpload removes an upload record. Reviews cascade at the schema level.
func (r *Repository) DeleteUpload(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, "DELETE FROM uploads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

// SetScores attaches oracle scores to an upload.
func (r *Repository) SetScores(ctx context.Context, id string, duplicate, spam float64) error {
	_, err := r.q.Exec(ctx,
		"UPDATE uploads SET duplicate_score = $1, spam_score = $2 WHERE id = $3",
		duplicate, spam, id)
	if err != nil {
		return fmt.Errorf("failed to set scores: %w", err)
	}
	return nil
}

// TransitionStatus moves an upload out of pending into the given terminal
// status. The status = 'pending' guard makes the transition idempotent under
// concurrent finalization: only the first caller sees a row affected.
func (r *Repository) TransitionStatus(ctx context.Context, id, status string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		"UPDATE uploads SET status = $1 WHERE id = $2 AND status = 'pending'",
		status, id)
	if err != nil {
		return false, fmt.Errorf("failed to transition status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// NextReviewable returns the oldest pending upload the reviewer does not own
// and has not yet reviewed. Flagged and finalized uploads never appear.
func (r *Repository) NextReviewable(ctx context.Context, reviewerID string) (*Upload, error) {
	return scanUpload(r.q.QueryRow(ctx, `
		SELECT `+uploadColumns+` FROM uploads
		WHERE status = 'pending'
		  AND user_id <> $1
		  AND id NOT IN (SELECT upload_id FROM reviews WHERE reviewer_id = $1)
		ORDER BY uploaded_at ASC
		LIMIT 1
	`, reviewerID))
}

// ListObjectKeys returns the object keys of all uploads, for orphan sweeps.
func (r *Repository) ListObjectKeys(ctx context.Context) (map[string]bool, error) {
	rows, err := r.q.Query(ctx, "SELECT object_key FROM uploads")
	if err != nil {
		return nil, fmt.Errorf("failed to query object keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan object key: %w", err)
		}
		keys[key] = true
	}
	return keys, rows.Err()
}

func collectUploads(rows pgx.Rows) ([]*Upload, error) {
	var uploads []*Upload
	for rows.Next() {
		u := &Upload{}
		if err := rows.Scan(
			&u.ID,
			&u.UserID,
			&u.ObjectKey,
			&u.OriginalFilename,
			&u.FileSize,
			&u.Description,
			&u.Category,
			&u.Status,
			&u.AIConsent,
			&u.DuplicateScore,
			&u.SpamScore,
			&u.UploadedAt,
			&u.DeletionDeadline,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
