package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestSessionManager(t *testing.T) {
	t.Run("created sessions validate", func(t *testing.T) {
		sm := NewSessionManager(time.Hour)

		token, err := sm.Create()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token == "" {
			t.Fatal("expected a non-empty token")
		}
		if !sm.Validate(token) {
			t.Error("expected token to validate")
		}
	})

	t.Run("unknown and empty tokens are rejected", func(t *testing.T) {
		sm := NewSessionManager(time.Hour)

		if sm.Validate("") {
			t.Error("empty token validated")
		}
		if sm.Validate("deadbeef") {
			t.Error("unknown token validated")
		}
	})

	t.Run("expired sessions are rejected and dropped", func(t *testing.T) {
		sm := NewSessionManager(10 * time.Millisecond)

		token, err := sm.Create()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		time.Sleep(20 * time.Millisecond)
		if sm.Validate(token) {
			t.Error("expired token validated")
		}
	})

	t.Run("destroyed sessions are rejected", func(t *testing.T) {
		sm := NewSessionManager(time.Hour)

		token, _ := sm.Create()
		sm.Destroy(token)
		if sm.Validate(token) {
			t.Error("destroyed token validated")
		}
	})

	t.Run("tokens are unique", func(t *testing.T) {
		sm := NewSessionManager(time.Hour)

		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			token, err := sm.Create()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seen[token] {
				t.Fatalf("duplicate token: %s", token)
			}
			seen[token] = true
		}
	})
}

func TestSecretVerifier(t *testing.T) {
	t.Run("plaintext comparison", func(t *testing.T) {
		v := NewSecretVerifier("hunter2", "")

		if !v.Verify("hunter2") {
			t.Error("expected matching secret to verify")
		}
		if v.Verify("hunter3") {
			t.Error("wrong secret verified")
		}
		if v.Verify("") {
			t.Error("empty secret verified")
		}
	})

	t.Run("bcrypt hash takes precedence", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}
		v := NewSecretVerifier("something-else", string(hash))

		if !v.Verify("hunter2") {
			t.Error("expected hashed secret to verify")
		}
		if v.Verify("something-else") {
			t.Error("plaintext fallback used despite configured hash")
		}
	})

	t.Run("empty configuration rejects everything", func(t *testing.T) {
		v := NewSecretVerifier("", "")

		if v.Verify("anything") {
			t.Error("unconfigured verifier accepted a secret")
		}
	})
}

func TestVerifyBearer(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		supplied   string
		want       bool
	}{
		{"match", "tok123", "tok123", true},
		{"mismatch", "tok123", "tok124", false},
		{"empty configured", "", "tok123", false},
		{"empty supplied", "tok123", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyBearer(tt.configured, tt.supplied); got != tt.want {
				t.Errorf("VerifyBearer(%q, %q) = %v, want %v", tt.configured, tt.supplied, got, tt.want)
			}
		})
	}
}
