package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "chims")
	now := time.Now()

	token, err := tm.Issue("sid-123", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sid, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sid != "sid-123" {
		t.Fatalf("expected sid-123, got %q", sid)
	}
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	now := time.Now()
	token, err := NewTokenManager("other", "chims").Issue("sid", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenManager("secret", "chims").Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "chims")
	past := time.Now().Add(-2 * time.Hour)
	token, err := tm.Issue("sid", past, past.Add(time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	if _, err := NewTokenManager("secret", "chims").Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not equal the plain password")
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatal("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Fatal("expected mismatch")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
	if err := ValidatePassword(strings.Repeat("a", 73)); err == nil {
		t.Fatal("expected overlong password to be rejected")
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
