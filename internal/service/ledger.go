package service

import (
	"time"

	"github.com/google/uuid"

	"alphanex/internal/config"
	"alphanex/internal/database"
)

// strikesUntilBan is the per-category strike count that bans an account.
const strikesUntilBan = 3

// Ledger implements the XP-economy rules over account rows: daily usage
// windows, capacity checks, and strike accounting. It mutates the in-memory
// row only; callers persist the result inside their own transaction, and
// balance changes go through the repository's atomic credit/debit statements.
type Ledger struct {
	DailyUploadCap  int
	DailyByteCap    int64
	DailyReviewCap  int
	PerFileCeiling  int64
	XPAutoThreshold int
}

// NewLedger builds a ledger from configuration.
func NewLedger(cfg *config.Config) Ledger {
	return Ledger{
		DailyUploadCap:  cfg.DailyUploadCap,
		DailyByteCap:    cfg.DailyByteCap,
		DailyReviewCap:  cfg.DailyReviewCap,
		PerFileCeiling:  cfg.MaxFileSize,
		XPAutoThreshold: cfg.XPAutoThreshold,
	}
}

// RefreshDailyWindow zeroes each daily counter whose last reset lies on an
// earlier calendar day (UTC) than now, and advances its reset timestamp.
// The upload and review windows are independent. Returns true when anything
// changed, so the caller knows to persist the row. Must run before any
// decision that depends on remaining daily capacity.
func (l Ledger) RefreshDailyWindow(u *database.User, now time.Time) bool {
	now = now.UTC()
	changed := false

	if calendarDayAfter(now, u.DailyUploadReset) {
		u.DailyUploadBytes = 0
		u.DailyUploadCount = 0
		u.DailyUploadReset = now
		changed = true
	}
	if calendarDayAfter(now, u.DailyReviewReset) {
		u.DailyReviewCount = 0
		u.DailyReviewReset = now
		changed = true
	}
	return changed
}

// CanUploadToday reports whether the account has upload slots left today.
func (l Ledger) CanUploadToday(u *database.User) bool {
	return u.DailyUploadCount < l.DailyUploadCap
}

// CanReviewToday reports whether the account has review slots left today.
func (l Ledger) CanReviewToday(u *database.User) bool {
	return u.DailyReviewCount < l.DailyReviewCap
}

// RemainingDailyBytes returns how many upload bytes the account has left
// today.
func (l Ledger) RemainingDailyBytes(u *database.User) int64 {
	remaining := l.DailyByteCap - u.DailyUploadBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CrossedAutoThreshold reports whether the balance passed the configured
// threshold beyond which the boundary layer is expected to gate privileged
// actions. The ledger itself enforces nothing here.
func (l Ledger) CrossedAutoThreshold(u *database.User) bool {
	return u.XPPoints >= l.XPAutoThreshold
}

// ApplyStrike appends a strike against the account: it increments the
// matching per-category counter on the row, sets the ban flag once that
// counter reaches the limit, and returns the strike record to insert.
// Not idempotent; callers must not issue two strikes for one event.
func (l Ledger) ApplyStrike(u *database.User, category, reason string, now time.Time) *database.Strike {
	switch category {
	case database.StrikeUploader:
		u.UploaderStrikes++
	case database.StrikeReviewer:
		u.ReviewerStrikes++
	}
	if u.UploaderStrikes >= strikesUntilBan || u.ReviewerStrikes >= strikesUntilBan {
		u.IsBanned = true
	}

	return &database.Strike{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Category:  category,
		Reason:    reason,
		CreatedAt: now,
	}
}

// calendarDayAfter reports whether now falls on a strictly later UTC
// calendar day than last.
func calendarDayAfter(now, last time.Time) bool {
	ny, nm, nd := now.UTC().Date()
	ly, lm, ld := last.UTC().Date()
	if ny != ly {
		return ny > ly
	}
	if nm != lm {
		return nm > lm
	}
	return nd > ld
}
