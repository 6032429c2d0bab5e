package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"alphanex/internal/database"
	"alphanex/internal/service"
)

// Handler contains the HTTP handlers for the API.
type Handler struct {
	accounts    *service.AccountService
	uploads     *service.UploadService
	reviews     *service.ReviewService
	withdrawals *service.WithdrawalService
	db          *database.DB
	repo        *database.Repository
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(accounts *service.AccountService, uploads *service.UploadService,
	reviews *service.ReviewService, withdrawals *service.WithdrawalService,
	db *database.DB, repo *database.Repository) *Handler {
	return &Handler{
		accounts:    accounts,
		uploads:     uploads,
		reviews:     reviews,
		withdrawals: withdrawals,
		db:          db,
		repo:        repo,
	}
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"user": userJSON(user)})
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	token, user, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  userJSON(user),
	})
}

// HandleMe handles GET /api/me.
// Returns the caller's profile with strikes and remaining daily allowances.
func (h *Handler) HandleMe(c echo.Context) error {
	account := currentAccount(c)

	profile, err := h.accounts.Profile(c.Request().Context(), account)
	if err != nil {
		return mapServiceError(c, err)
	}

	strikes := make([]echo.Map, 0, len(profile.Strikes))
	for _, s := range profile.Strikes {
		strikes = append(strikes, echo.Map{
			"id":         s.ID,
			"category":   s.Category,
			"reason":     s.Reason,
			"created_at": s.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":                    userJSON(profile.User),
		"total_uploads":           profile.TotalUploads,
		"total_reviews":           profile.TotalReviews,
		"strikes":                 strikes,
		"remaining_uploads_today": profile.RemainingUploadsToday,
		"remaining_reviews_today": profile.RemainingReviewsToday,
		"remaining_daily_bytes":   profile.RemainingDailyBytes,
		"crossed_auto_threshold":  profile.CrossedAutoThreshold,
	})
}

// HandleSubmitUpload handles POST /api/uploads.
// Accepts a multipart form with "file", "description", "category" and
// "consent" fields.
func (h *Handler) HandleSubmitUpload(c echo.Context) error {
	account := currentAccount(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	consent, _ := strconv.ParseBool(c.FormValue("consent"))

	upload, err := h.uploads.Submit(c.Request().Context(), account, service.SubmitInput{
		Filename:    fileHeader.Filename,
		Data:        src,
		Size:        fileHeader.Size,
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Consent:     consent,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, uploadJSON(upload))
}

// HandleListUploads handles GET /api/uploads.
func (h *Handler) HandleListUploads(c echo.Context) error {
	account := currentAccount(c)

	uploads, err := h.uploads.List(c.Request().Context(), account)
	if err != nil {
		return mapServiceError(c, err)
	}

	out := make([]echo.Map, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, uploadJSON(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"uploads": out})
}

// HandleGetUpload handles GET /api/uploads/:id.
// Returns upload metadata to its owner.
func (h *Handler) HandleGetUpload(c echo.Context) error {
	account := currentAccount(c)

	upload, err := h.uploads.Get(c.Request().Context(), account, c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, uploadJSON(upload))
}

// HandleDownloadUpload handles GET /api/uploads/:id/file.
// Streams the blob as an attachment to its owner.
func (h *Handler) HandleDownloadUpload(c echo.Context) error {
	account := currentAccount(c)

	upload, rc, err := h.uploads.OpenFile(c.Request().Context(), account, c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", upload.OriginalFilename))
	return c.Stream(http.StatusOK, "application/octet-stream", rc)
}

// HandleDeleteUpload handles DELETE /api/uploads/:id.
// Deletes the caller's own upload, charging a late penalty past the deadline.
func (h *Handler) HandleDeleteUpload(c echo.Context) error {
	account := currentAccount(c)

	penalty, err := h.uploads.Delete(c.Request().Context(), account, c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "upload deleted successfully",
		"penalty_xp": penalty,
	})
}

// HandleNextReviewable handles GET /api/review/next.
// Returns the oldest pending upload the caller may review.
func (h *Handler) HandleNextReviewable(c echo.Context) error {
	account := currentAccount(c)

	upload, err := h.reviews.NextReviewable(c.Request().Context(), account)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no uploads awaiting review"})
		}
		return mapServiceError(c, err)
	}

	// The reviewer sees the content, not the uploader.
	return c.JSON(http.StatusOK, echo.Map{
		"id":          upload.ID,
		"filename":    upload.OriginalFilename,
		"file_size":   upload.FileSize,
		"description": upload.Description,
		"category":    upload.Category,
		"uploaded_at": upload.UploadedAt,
	})
}

// HandleSubmitReview handles POST /api/uploads/:id/reviews.
func (h *Handler) HandleSubmitReview(c echo.Context) error {
	account := currentAccount(c)

	var req struct {
		Rating        string `json:"rating"`
		Justification string `json:"justification"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	review, err := h.reviews.Submit(c.Request().Context(), account, c.Param("id"), req.Rating, req.Justification)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         review.ID,
		"upload_id":  review.UploadID,
		"rating":     review.Rating,
		"xp_earned":  review.XPEarned,
		"created_at": review.CreatedAt,
	})
}

// HandleSubmitFeedback handles POST /api/feedback.
func (h *Handler) HandleSubmitFeedback(c echo.Context) error {
	account := currentAccount(c)

	var req struct {
		Stars        int    `json:"stars"`
		Category     string `json:"category"`
		Description  string `json:"description"`
		ContactEmail string `json:"contact_email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	feedback, err := h.accounts.SubmitFeedback(c.Request().Context(), account,
		req.Stars, req.Category, req.Description, req.ContactEmail)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         feedback.ID,
		"stars":      feedback.Stars,
		"category":   feedback.Category,
		"created_at": feedback.CreatedAt,
	})
}

// HandleCreateWithdrawal handles POST /api/withdrawals.
func (h *Handler) HandleCreateWithdrawal(c echo.Context) error {
	account := currentAccount(c)

	var req struct {
		AmountXP       int    `json:"amount_xp"`
		PaymentMethod  string `json:"payment_method"`
		PaymentDetails string `json:"payment_details"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	request, err := h.withdrawals.Request(c.Request().Context(), account, req.AmountXP, req.PaymentMethod, req.PaymentDetails)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, withdrawalJSON(request))
}

// HandleListWithdrawals handles GET /api/withdrawals.
func (h *Handler) HandleListWithdrawals(c echo.Context) error {
	account := currentAccount(c)

	requests, err := h.withdrawals.List(c.Request().Context(), account)
	if err != nil {
		return mapServiceError(c, err)
	}

	out := make([]echo.Map, 0, len(requests))
	for _, r := range requests {
		out = append(out, withdrawalJSON(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": out})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// HandleStats handles GET /api/stats.
// Returns aggregate platform statistics.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.repo.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_users":        stats.TotalUsers,
		"total_uploads":      stats.TotalUploads,
		"total_reviews":      stats.TotalReviews,
		"pending_uploads":    stats.PendingUploads,
		"storage_used_bytes": stats.StorageUsed,
		"storage_used_human": humanizeBytes(stats.StorageUsed),
	})
}

func userJSON(u *database.User) echo.Map {
	return echo.Map{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"xp_points":  u.XPPoints,
		"is_banned":  u.IsBanned,
		"created_at": u.CreatedAt,
	}
}

func uploadJSON(u *database.Upload) echo.Map {
	return echo.Map{
		"id":                u.ID,
		"filename":          u.OriginalFilename,
		"file_size":         u.FileSize,
		"description":       u.Description,
		"category":          u.Category,
		"status":            u.Status,
		"duplicate_score":   u.DuplicateScore,
		"spam_score":        u.SpamScore,
		"uploaded_at":       u.UploadedAt,
		"deletion_deadline": u.DeletionDeadline,
	}
}

func withdrawalJSON(r *database.WithdrawalRequest) echo.Map {
	return echo.Map{
		"id":             r.ID,
		"amount_xp":      r.AmountXP,
		"amount_usd":     r.AmountUSD.StringFixed(2),
		"status":         r.Status,
		"payment_method": r.PaymentMethod,
		"created_at":     r.CreatedAt,
		"processed_at":   r.ProcessedAt,
	}
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrAccountBanned):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is banned"})
	case errors.Is(err, service.ErrDailyLimitExceeded):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "daily limit exceeded"})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": "file exceeds maximum allowed size",
		})
	case errors.Is(err, service.ErrInsufficientBalance):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient XP balance"})
	case errors.Is(err, service.ErrSelfReview):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot review your own upload"})
	case errors.Is(err, service.ErrAlreadyReviewed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "upload already reviewed by you"})
	case errors.Is(err, service.ErrQuorumReached):
		return c.JSON(http.StatusConflict, echo.Map{"error": "upload is no longer open for review"})
	case errors.Is(err, service.ErrValidationFailed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email is already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
