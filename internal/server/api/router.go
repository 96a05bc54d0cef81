package api

import (
	"streamvault/internal/server/auth"
	"streamvault/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, sessions *auth.SessionManager, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization", "Range"},
		ExposeHeaders: []string{"Content-Range", "Accept-Ranges", "Content-Length"},
	}))
	e.Use(RequestLogger())

	// Per-IP fixed-window limiters, one per sensitive route class.
	loginLimiter := NewRateLimiter(cfg.LoginLimit, cfg.LoginWindow,
		"Too many login attempts, please try again later.")
	streamLimiter := NewRateLimiter(cfg.StreamLimit, cfg.StreamWindow,
		"Too many stream requests from this IP, slow down.")
	uploadLimiter := NewRateLimiter(cfg.UploadLimit, cfg.UploadWindow,
		"Too many uploads, please wait before trying again.")

	requireAuth := RequireAuth(sessions, cfg.APIToken)

	// Health & auth (unauthenticated)
	e.GET("/health", handler.HandleHealth)
	e.POST("/api/login", handler.HandleLogin, loginLimiter.Middleware())
	e.POST("/api/logout", handler.HandleLogout)
	e.GET("/api/auth/status", handler.HandleAuthStatus)

	// Streaming: the rate limiter runs before the auth gate, so throttled
	// clients get the limiter message even without a session.
	e.GET("/api/stream/:customId", handler.HandleStream, streamLimiter.Middleware(), requireAuth)

	api := e.Group("/api", requireAuth)

	// Folders
	api.GET("/folders", handler.HandleListFolders)
	api.GET("/folders/all", handler.HandleListAllFolders)
	api.GET("/folders/:id", handler.HandleGetFolder)
	api.POST("/folders", handler.HandleCreateFolder)
	api.PATCH("/folders/:id", handler.HandleUpdateFolder)
	api.DELETE("/folders/:id", handler.HandleDeleteFolder)

	// Videos
	api.GET("/videos", handler.HandleListVideos)
	api.GET("/videos/all", handler.HandleListAllVideos)
	api.GET("/videos/:id", handler.HandleGetVideo)
	api.POST("/videos/upload", handler.HandleUpload, uploadLimiter.Middleware())
	api.PATCH("/videos/:id", handler.HandleUpdateVideo)
	api.DELETE("/videos/:id", handler.HandleDeleteVideo)

	// Analytics
	api.GET("/stream-analytics", handler.HandleStreamAnalytics)
	api.GET("/stats", handler.HandleStats)

	return e
}
