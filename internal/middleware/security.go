package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Package-level security logger instance
var GlobalSecurityLogger *SecurityLogger

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perSecond requests per IP with the given burst
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// NewSessionRateLimiter limits how fast one IP can open new sessions
func NewSessionRateLimiter() *RateLimiter {
	// 5 new sessions per minute per IP, burst of 10
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(12 * time.Second),
		burst:    10,
	}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// Allow reports whether ip may make one more request now
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.GetLimiter(ip).Allow()
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warn("[SECURITY] Rate limit exceeded for IP: %s", ip)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// OriginAllowed reports whether origin matches one of allowed. An empty list
// allows same-host origins only.
func OriginAllowed(origin, host string, allowed []string) bool {
	normalized := strings.TrimRight(origin, "/")
	if normalized == "" {
		return true
	}
	if len(allowed) == 0 {
		parsed, err := url.Parse(normalized)
		return err == nil && parsed.Host == host
	}
	for _, o := range allowed {
		trimmed := strings.TrimRight(strings.TrimSpace(o), "/")
		if trimmed == "" {
			continue
		}
		if trimmed == "*" || normalized == trimmed {
			return true
		}
		if !strings.Contains(trimmed, "://") {
			if parsed, err := url.Parse(normalized); err == nil && parsed.Host == trimmed {
				return true
			}
		}
	}
	return false
}

// CORSMiddleware configures CORS with security restrictions
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		normalizedOrigin := strings.TrimRight(origin, "/")

		if normalizedOrigin != "" && OriginAllowed(origin, c.Request.Host, allowedOrigins) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", normalizedOrigin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-CSRFToken")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityLogger logs security events
type SecurityLogger struct {
	mu sync.Mutex
}

// LogFailedCSRF logs a performance API call without a valid token
func (sl *SecurityLogger) LogFailedCSRF(ip string, reason string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	logger.Warn("[SECURITY-WARNING] Rejected performance API call from IP %s: %s", ip, reason)
}

// LogSessionCreated logs a new dashboard session
func (sl *SecurityLogger) LogSessionCreated(ip string, sessionID string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	logger.Info("[SECURITY] Session %s created for IP %s", sessionID, ip)
}

// LogInvalidSession logs a rejected session cookie
func (sl *SecurityLogger) LogInvalidSession(ip string, reason string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	logger.Warn("[SECURITY-WARNING] Invalid session cookie from IP %s: %s", ip, reason)
}

// LogWebSocketConnected logs successful WebSocket connections
func (sl *SecurityLogger) LogWebSocketConnected(ip string, sessionID string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	logger.Info("[SECURITY] WebSocket connected for session %s from IP %s", sessionID, ip)
}

// LogWebSocketDisconnected logs WebSocket disconnections
func (sl *SecurityLogger) LogWebSocketDisconnected(ip string, clientID string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	logger.Info("[SECURITY] WebSocket disconnected: %s from IP %s", clientID, ip)
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger() *SecurityLogger {
	sl := &SecurityLogger{}
	GlobalSecurityLogger = sl
	return sl
}

// InputValidator validates and sanitizes user input
type InputValidator struct{}

// ValidateDeviceID checks that a device id is short and made of safe
// characters
func (iv *InputValidator) ValidateDeviceID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}

	// Allow alphanumeric, hyphens, underscores, dots
	for _, c := range id {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.') {
			return false
		}
	}

	return true
}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}
