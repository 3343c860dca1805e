package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret-key-for-unit-tests-only", 0)
	tok, err := m.Issue("user-1", "a@example.com", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@example.com" || claims.Role != RoleDoctor {
		t.Errorf("unexpected claims %+v", claims)
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime != 7*24*time.Hour {
		t.Errorf("expected 7 day lifetime, got %s", lifetime)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	tok, err := m.Issue("u", "e", RolePatient)
	if err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.Verify(tok); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tok, _ := NewTokenManager("one", 0).Issue("u", "e", RolePatient)
	if _, err := NewTokenManager("two", 0).Verify(tok); err == nil {
		t.Error("expected failure with a different secret")
	}
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenManager("secret", 0).Verify(tok); err == nil {
		t.Error("expected HS512 token to be rejected")
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := NewTokenManager("secret", 0).Verify(none); err == nil {
		t.Error("expected unsigned token to be rejected")
	}
}

func TestTokenManager_Malformed(t *testing.T) {
	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := NewTokenManager("secret", 0).Verify(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
