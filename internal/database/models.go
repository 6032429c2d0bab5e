package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Upload moderation statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusFlagged  = "flagged"
)

// Review ratings.
const (
	RatingGood = "good"
	RatingBad  = "bad"
)

// Strike categories.
const (
	StrikeUploader = "uploader"
	StrikeReviewer = "reviewer"
)

// User represents an account with its XP balance, strike counters and
// daily usage windows.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	XPPoints         int
	UploaderStrikes  int
	ReviewerStrikes  int
	IsBanned         bool
	DailyUploadBytes int64
	DailyUploadCount int
	DailyUploadReset time.Time
	DailyReviewCount int
	DailyReviewReset time.Time
	CreatedAt        time.Time
}

// Upload represents a piece of submitted content and its moderation state.
type Upload struct {
	ID               string
	UserID           string
	ObjectKey        string
	OriginalFilename string
	FileSize         int64
	Description      string
	Category         string
	Status           string
	AIConsent        bool
	DuplicateScore   float64
	SpamScore        float64
	UploadedAt       time.Time
	DeletionDeadline time.Time
}

// CanDeleteFree reports whether deleting at the given time incurs no penalty.
func (u *Upload) CanDeleteFree(now time.Time) bool {
	return now.Before(u.DeletionDeadline)
}

// DeletionPenalty returns the XP penalty for deleting at the given time:
// zero inside the grace window, then 5 XP per hour past the deadline,
// capped at 100.
func (u *Upload) DeletionPenalty(now time.Time) int {
	if u.CanDeleteFree(now) {
		return 0
	}
	hoursLate := now.Sub(u.DeletionDeadline).Hours()
	penalty := int(hoursLate * 5)
	if penalty > 100 {
		penalty = 100
	}
	return penalty
}

// Review is a peer rating of an upload. At most one per (upload, reviewer).
type Review struct {
	ID            string
	UploadID      string
	ReviewerID    string
	Rating        string
	Justification string
	XPEarned      int
	CreatedAt     time.Time
}

// Strike is an append-only policy-violation record against a user.
type Strike struct {
	ID        string
	UserID    string
	Category  string
	Reason    string
	CreatedAt time.Time
}

// WithdrawalRequest converts accumulated XP into a pending payout.
type WithdrawalRequest struct {
	ID             string
	UserID         string
	AmountXP       int
	AmountUSD      decimal.Decimal
	Status         string
	PaymentMethod  string
	PaymentDetails string
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

// Feedback is a platform rating submitted by a user: 1 to 5 stars plus a
// free-text explanation. Purely informational; it feeds no economy rules.
type Feedback struct {
	ID           string
	UserID       string
	Stars        int
	Category     string
	Description  string
	ContactEmail string
	CreatedAt    time.Time
}

// Stats holds aggregate platform statistics.
type Stats struct {
	TotalUsers     int64
	TotalUploads   int64
	TotalReviews   int64
	PendingUploads int64
	StorageUsed    int64
}
