package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionIssuer  = "signalsync"
	restoreTimeout = 2 * time.Second
)

// SessionClaims is the payload of a session cookie token
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Session binds one browser to its dashboard
type Session struct {
	ID        string
	CSRFToken string
	Dashboard *Dashboard
	lastSeen  time.Time
}

// DashboardFactory builds the dashboard of a new session
type DashboardFactory func(sessionID, csrfToken string) *Dashboard

// SessionService issues signed session tokens and keeps the live sessions
type SessionService struct {
	secretKey []byte
	ttl       time.Duration
	factory   DashboardFactory

	mu       sync.RWMutex
	sessions map[string]*Session
	byCSRF   map[string]string
	now      func() time.Time
	log      *logger.PrefixLogger
}

// NewSessionService creates the registry. An empty secret gets a random one,
// which invalidates old cookies on restart.
func NewSessionService(secret string, ttl time.Duration, factory DashboardFactory) *SessionService {
	log := logger.WithPrefix("[SESSION] ")
	if secret == "" {
		secret = randomHex(32)
		log.Warn("No session secret configured, generated an ephemeral one")
	}
	if len(secret) < 32 {
		log.Warn("Session secret is only %d bytes. Recommended minimum is 32 bytes for HMAC-SHA256", len(secret))
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionService{
		secretKey: []byte(secret),
		ttl:       ttl,
		factory:   factory,
		sessions:  make(map[string]*Session),
		byCSRF:    make(map[string]string),
		now:       time.Now,
		log:       log,
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}

// TTL returns how long a session token stays valid
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create starts a new session and returns it with its signed token
func (s *SessionService) Create() (*Session, string, error) {
	sess, _ := s.open(randomHex(16))
	token, err := s.sign(sess.ID)
	if err != nil {
		s.drop(sess.ID)
		return nil, "", err
	}
	s.log.Info("Session %s created (active: %d)", sess.ID, s.Count())
	return sess, token, nil
}

func (s *SessionService) open(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	sess := &Session{
		ID:        id,
		CSRFToken: randomHex(16),
		lastSeen:  s.now(),
	}
	if s.factory != nil {
		sess.Dashboard = s.factory(sess.ID, sess.CSRFToken)
	}
	s.sessions[id] = sess
	s.byCSRF[sess.CSRFToken] = id
	metrics.SetActiveSessions(len(s.sessions))
	return sess, true
}

func (s *SessionService) sign(sessionID string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    sessionIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate verifies a session token and returns its claims
func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Resolve returns the session of a valid token. A validly signed token whose
// session is gone, after a restart or a sweep, gets a fresh dashboard under
// the same id, restored from the session cache when it has an entry.
func (s *SessionService) Resolve(tokenString string) (*Session, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	sess, created := s.open(claims.SessionID)
	if created && sess.Dashboard != nil {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		if ok, err := sess.Dashboard.Restore(ctx); err != nil {
			s.log.Warn("Could not restore session %s: %v", sess.ID, err)
		} else if ok {
			s.log.Info("Session %s restored from cache", sess.ID)
		}
		cancel()
	}
	s.touch(sess)
	return sess, nil
}

// Get looks up a live session by id
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(sess)
	return sess, nil
}

func (s *SessionService) touch(sess *Session) {
	s.mu.Lock()
	sess.lastSeen = s.now()
	s.mu.Unlock()
}

// ValidCSRF reports whether token belongs to a live session
func (s *SessionService) ValidCSRF(token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCSRF[token]
	return ok
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		delete(s.byCSRF, sess.CSRFToken)
		delete(s.sessions, id)
	}
	metrics.SetActiveSessions(len(s.sessions))
}

// Sweep drops sessions idle for longer than the token ttl
func (s *SessionService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if s.now().Sub(sess.lastSeen) > s.ttl {
			delete(s.byCSRF, sess.CSRFToken)
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("Swept %d idle sessions (active: %d)", removed, len(s.sessions))
	}
	metrics.SetActiveSessions(len(s.sessions))
	return removed
}
