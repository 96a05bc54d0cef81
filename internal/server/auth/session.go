// Package auth implements the shared-secret login gate: opaque session
// tokens handed out as cookies, plus an optional static bearer token for
// non-browser clients.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "streamvault_session"

// SessionManager issues and validates opaque session tokens. Sessions are
// process-local and lost on restart, which matches the single-process
// deployment model.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
	ttl      time.Duration
}

// NewSessionManager creates a session manager with the given session TTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	sm := &SessionManager{
		sessions: make(map[string]time.Time),
		ttl:      ttl,
	}

	// Clean up expired sessions every 5 minutes
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			sm.cleanup()
		}
	}()

	return sm
}

// Create mints a new session token.
func (sm *SessionManager) Create() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[token] = time.Now().Add(sm.ttl)
	return token, nil
}

// Validate reports whether the token names a live session. Expired tokens
// are dropped on sight.
func (sm *SessionManager) Validate(token string) bool {
	if token == "" {
		return false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	expiry, ok := sm.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(sm.sessions, token)
		return false
	}
	return true
}

// Destroy removes a session. Destroying an unknown token is a no-op.
func (sm *SessionManager) Destroy(token string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, token)
}

func (sm *SessionManager) cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for token, expiry := range sm.sessions {
		if now.After(expiry) {
			delete(sm.sessions, token)
		}
	}
}

// SecretVerifier checks login attempts against the configured shared secret.
// When a bcrypt hash is configured it takes precedence over the plaintext
// secret, so deployments never have to keep the secret itself in the
// environment.
type SecretVerifier struct {
	plaintext string
	hash      string
}

// NewSecretVerifier creates a verifier from the configured plaintext secret
// and/or its bcrypt hash.
func NewSecretVerifier(plaintext, hash string) *SecretVerifier {
	return &SecretVerifier{plaintext: plaintext, hash: hash}
}

// Verify reports whether candidate matches the configured secret. An empty
// configuration rejects everything.
func (v *SecretVerifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if v.hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(candidate)) == nil
	}
	if v.plaintext == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.plaintext), []byte(candidate)) == 1
}

// VerifyBearer reports whether the supplied bearer token matches the
// configured static API token.
func VerifyBearer(configured, supplied string) bool {
	if configured == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}
