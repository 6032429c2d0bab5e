package service

import "errors"

// Sentinel errors for the service layer. Each fail condition in the upload,
// review and withdrawal lifecycles maps to exactly one of these; the API
// layer translates them into HTTP responses.
var (
	ErrAccountBanned       = errors.New("account is banned")
	ErrDailyLimitExceeded  = errors.New("daily limit exceeded")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrInsufficientBalance = errors.New("insufficient xp balance")
	ErrSelfReview          = errors.New("cannot review your own upload")
	ErrAlreadyReviewed     = errors.New("upload already reviewed by this account")
	ErrQuorumReached       = errors.New("upload already has a full set of reviews")
	ErrValidationFailed    = errors.New("validation failed")
	ErrForbidden           = errors.New("not allowed")
	ErrNotFound            = errors.New("not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)
