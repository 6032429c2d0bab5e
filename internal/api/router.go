package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"alphanex/internal/auth"
	"alphanex/internal/config"
	"alphanex/internal/service"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, accounts *service.AccountService, tokens *auth.TokenManager, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())

	// Rate limiter on the submission endpoints only
	submitLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Health & stats
	e.GET("/health", handler.HandleHealth)
	e.GET("/api/stats", handler.HandleStats)

	// Auth
	e.POST("/api/auth/register", handler.HandleRegister)
	e.POST("/api/auth/login", handler.HandleLogin)

	// Everything below acts as a resolved account
	authed := e.Group("/api", Identity(accounts, tokens, cfg.DemoMode))

	authed.GET("/me", handler.HandleMe)

	// Uploads
	authed.POST("/uploads", handler.HandleSubmitUpload, submitLimiter.Middleware())
	authed.GET("/uploads", handler.HandleListUploads)
	authed.GET("/uploads/:id", handler.HandleGetUpload)
	authed.GET("/uploads/:id/file", handler.HandleDownloadUpload)
	authed.DELETE("/uploads/:id", handler.HandleDeleteUpload)

	// Reviews
	authed.GET("/review/next", handler.HandleNextReviewable)
	authed.POST("/uploads/:id/reviews", handler.HandleSubmitReview, submitLimiter.Middleware())

	// Withdrawals
	authed.POST("/withdrawals", handler.HandleCreateWithdrawal)
	authed.GET("/withdrawals", handler.HandleListWithdrawals)

	// Platform feedback
	authed.POST("/feedback", handler.HandleSubmitFeedback)

	return e
}
