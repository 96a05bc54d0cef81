package api

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"streamvault/internal/server/auth"

	"github.com/labstack/echo/v4"
)

// window tracks one IP's request count inside the current fixed window.
type window struct {
	count int
	start time.Time
}

// RateLimiter is a per-IP fixed-window rate limiter: at most limit requests
// per IP within each window, answered with a fixed JSON message once
// exceeded.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*window
	limit    int
	window   time.Duration
	message  string
}

// NewRateLimiter creates a rate limiter allowing limit requests per IP in
// each windowSize span. message is the body returned on violation.
func NewRateLimiter(limit int, windowSize time.Duration, message string) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*window),
		limit:    limit,
		window:   windowSize,
		message:  message,
	}

	// Clean up stale entries every 5 minutes
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			rl.cleanup()
		}
	}()

	return rl
}

// Middleware returns an echo middleware function that enforces the limit.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !rl.allow(ip) {
				slog.Warn("rate limit exceeded", "ip", ip, "path", c.Request().URL.Path)
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"message": rl.message,
				})
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, exists := rl.visitors[ip]
	if !exists || now.Sub(w.start) >= rl.window {
		rl.visitors[ip] = &window{count: 1, start: now}
		return true
	}

	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, w := range rl.visitors {
		if now.Sub(w.start) >= rl.window {
			delete(rl.visitors, ip)
		}
	}
}

// RequireAuth returns a middleware that admits requests carrying a live
// session cookie or the static bearer token; everything else gets a 401.
func RequireAuth(sessions *auth.SessionManager, apiToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && sessions.Validate(cookie.Value) {
				return next(c)
			}

			if header := c.Request().Header.Get("Authorization"); header != "" {
				supplied := strings.TrimPrefix(header, "Bearer ")
				if auth.VerifyBearer(apiToken, supplied) {
					return next(c)
				}
			}

			return c.JSON(http.StatusUnauthorized, echo.Map{
				"message": "Authentication required",
			})
		}
	}
}

// RequestLogger returns an echo middleware that logs requests using slog.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			slog.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"bytes_out", res.Size,
			)

			return err
		}
	}
}
