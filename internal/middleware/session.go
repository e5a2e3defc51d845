package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/Shivendrahari/SignalSync/internal/services"
	"github.com/gin-gonic/gin"
)

// SessionCookie carries the signed session token
const SessionCookie = "signalsync_session"

const sessionKey = "session"

// SessionMiddleware resolves the session cookie, opening a new session when
// it is missing or no longer valid
func SessionMiddleware(sessions *services.SessionService, limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			sess, err := sessions.Resolve(token)
			if err == nil {
				c.Set(sessionKey, sess)
				c.Next()
				return
			}
			if GlobalSecurityLogger != nil {
				GlobalSecurityLogger.LogInvalidSession(c.ClientIP(), err.Error())
			}
		}

		ip := c.ClientIP()
		if limiter != nil && !limiter.Allow(ip) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many new sessions",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		sess, token, err := sessions.Create()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			c.Abort()
			return
		}
		if GlobalSecurityLogger != nil {
			GlobalSecurityLogger.LogSessionCreated(ip, sess.ID)
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, token, int(sessions.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session attached by SessionMiddleware
func CurrentSession(c *gin.Context) *services.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*services.Session)
	return sess
}

// SessionCSRFMiddleware requires the X-CSRFToken header to match the CSRF
// token of the request's own session. It must run after SessionMiddleware.
func SessionCSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(services.CSRFHeader)
		sess := CurrentSession(c)
		switch {
		case token == "":
			rejectCSRF(c, "missing token", "CSRF token missing")
		case sess == nil || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1:
			rejectCSRF(c, "token does not belong to session", "CSRF token invalid")
		default:
			c.Next()
		}
	}
}

// CSRFMiddleware guards the performance API, whose callers include the
// server's own fetcher without a session cookie. The header must match a
// live session's token or the static token, when one is configured.
func CSRFMiddleware(sessions *services.SessionService, staticToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(services.CSRFHeader)
		switch {
		case token == "":
			rejectCSRF(c, "missing token", "CSRF token missing")
		case staticToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(staticToken)) == 1:
			c.Next()
		case sessions.ValidCSRF(token):
			c.Next()
		default:
			rejectCSRF(c, "token mismatch", "CSRF token invalid")
		}
	}
}

func rejectCSRF(c *gin.Context, reason, message string) {
	if GlobalSecurityLogger != nil {
		GlobalSecurityLogger.LogFailedCSRF(c.ClientIP(), reason)
	}
	c.JSON(http.StatusForbidden, gin.H{"error": message})
	c.Abort()
}
