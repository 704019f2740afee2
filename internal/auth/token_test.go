package auth

import (
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, exp, err := tm.GenerateToken("uid-1", domain.RoleWorker)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if exp.IsZero() {
		t.Error("expiry not set")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "uid-1" {
		t.Errorf("uid = %q, want uid-1", claims.UID)
	}
	if claims.Role != domain.RoleWorker {
		t.Errorf("role = %q, want WORKER", claims.Role)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 5).GenerateToken("uid-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewTokenManager("secret-b", 5).ParseToken(token); err == nil {
		t.Error("token signed with a different secret was accepted")
	}
}

func TestTokenGarbageRejected(t *testing.T) {
	if _, err := NewTokenManager("secret", 5).ParseToken("not-a-token"); err == nil {
		t.Error("garbage token was accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

// An unset cost must fall back to the bcrypt default, not fail.
func TestPasswordHashingZeroCost(t *testing.T) {
	hash, err := HashPassword("hunter22", 0)
	if err != nil {
		t.Fatalf("hash with zero cost: %v", err)
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
}
