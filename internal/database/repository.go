package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUploadNotFound = errors.New("upload not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateRow   = errors.New("row already exists")
	ErrInsufficientXP = errors.New("insufficient xp balance")
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repository
// methods run identically inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides CRUD operations for all entities.
type Repository struct {
	q Querier
}

// NewRepository creates a Repository backed by the pool.
func NewRepository(db *DB) *Repository {
	return &Repository{q: db.Pool}
}

// WithTx returns a Repository bound to the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{q: tx}
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = `id, name, email, password_hash, xp_points,
	uploader_strikes, reviewer_strikes, is_banned,
	daily_upload_bytes, daily_upload_count, daily_upload_reset,
	daily_review_count, daily_review_reset, created_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.XPPoints,
		&u.UploaderStrikes,
		&u.ReviewerStrikes,
		&u.IsBanned,
		&u.DailyUploadBytes,
		&u.DailyUploadCount,
		&u.DailyUploadReset,
		&u.DailyReviewCount,
		&u.DailyReviewReset,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new user record.
func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, xp_points,
			uploader_strikes, reviewer_strikes, is_banned,
			daily_upload_bytes, daily_upload_count, daily_upload_reset,
			daily_review_count, daily_review_reset, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.XPPoints,
		u.UploaderStrikes,
		u.ReviewerStrikes,
		u.IsBanned,
		u.DailyUploadBytes,
		u.DailyUploadCount,
		u.DailyUploadReset,
		u.DailyReviewCount,
		u.DailyReviewReset,
		u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.q.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.q.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

// SaveDailyCounters persists the user's daily usage windows.
func (r *Repository) SaveDailyCounters(ctx context.Context, u *User) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET
			daily_upload_bytes = $1,
			daily_upload_count = $2,
			daily_upload_reset = $3,
			daily_review_count = $4,
			daily_review_reset = $5
		WHERE id = $6
	`,
		u.DailyUploadBytes,
		u.DailyUploadCount,
		u.DailyUploadReset,
		u.DailyReviewCount,
		u.DailyReviewReset,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily counters: %w", err)
	}
	return nil
}

// CreditXP increases the user's XP balance.
func (r *Repository) CreditXP(ctx context.Context, userID string, amount int) error {
	tag, err := r.q.Exec(ctx,
		"UPDATE users SET xp_points = xp_points + $1 WHERE id = $2", amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DebitXP decreases the balance and fails with ErrInsufficientXP when the
// balance does not cover the amount. GREATEST floors the result defensively
// even though the condition prevents underflow.
func (r *Repository) DebitXP(ctx context.Context, userID string, amount int) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users SET xp_points = GREATEST(xp_points - $1, 0)
		WHERE id = $2 AND xp_points >= $1
	`, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to debit xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientXP
	}
	return nil
}

// DebitXPFloor decreases the balance, flooring at zero instead of failing.
func (r *Repository) DebitXPFloor(ctx context.Context, userID string, amount int) error {
	tag, err := r.q.Exec(ctx,
		"UPDATE users SET xp_points = GREATEST(xp_points - $1, 0) WHERE id = $2",
		amount, userID)
	if err != nil {
		return fmt.Errorf("failed to debit xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SaveStrikeState persists the user's strike counters and ban flag.
func (r *Repository) SaveStrikeState(ctx context.Context, u *User) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET uploader_strikes = $1, reviewer_strikes = $2, is_banned = $3
		WHERE id = $4
	`, u.UploaderStrikes, u.ReviewerStrikes, u.IsBanned, u.ID)
	if err != nil {
		return fmt.Errorf("failed to save strike state: %w", err)
	}
	return nil
}

// InsertStrike appends a strike record.
func (r *Repository) InsertStrike(ctx context.Context, s *Strike) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO strikes (id, user_id, category, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.Category, s.Reason, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert strike: %w", err)
	}
	return nil
}

// ListStrikes returns all strikes against a user, newest first.
func (r *Repository) ListStrikes(ctx context.Context, userID string) ([]*Strike, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, category, reason, created_at
		FROM strikes WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strikes: %w", err)
	}
	defer rows.Close()

	var strikes []*Strike
	for rows.Next() {
		s := &Strike{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Category, &s.Reason, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strike: %w", err)
		}
		strikes = append(strikes, s)
	}
	return strikes, rows.Err()
}

// GetStats returns aggregate platform statistics.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := r.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM uploads),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM uploads WHERE status = 'pending'),
			(SELECT COALESCE(SUM(file_size), 0) FROM uploads)
	`).Scan(
		&stats.TotalUsers,
		&stats.TotalUploads,
		&stats.TotalReviews,
		&stats.PendingUploads,
		&stats.StorageUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
