package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "test@example.com", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if at.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if !at.Exp.After(time.Now().UTC()) {
		t.Errorf("expected expiry in the future, got %v", at.Exp)
	}

	id, err := ParseAccessToken("test-secret", at.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if id != 42 {
		t.Errorf("expected subject 42, got %d", id)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("secret-a", 7, "a@example.com", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken("secret-b", at.Token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   float64(7),
		"email": "a@example.com",
		"exp":   time.Now().UTC().Add(-time.Minute).Unix(),
		"iat":   time.Now().UTC().Add(-2 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken("test-secret", signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseAccessTokenRejectsNonHMAC(t *testing.T) {
	// alg=none tokens must never pass, regardless of signature content.
	claims := jwt.MapClaims{"sub": float64(7), "exp": time.Now().Add(time.Hour).Unix()}
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken("test-secret", signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestParseAccessTokenGarbage(t *testing.T) {
	if _, err := ParseAccessToken("test-secret", "not.a.jwt"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewResetToken(t *testing.T) {
	rt, err := NewResetToken(30)
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if len(rt.Raw) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(rt.Raw))
	}
	if !rt.Exp.After(time.Now().UTC()) {
		t.Errorf("expected expiry in the future, got %v", rt.Exp)
	}

	other, err := NewResetToken(30)
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if rt.Raw == other.Raw {
		t.Error("two reset tokens must not collide")
	}
}

func TestHashResetRaw(t *testing.T) {
	a := HashResetRaw("token-value")
	b := HashResetRaw("token-value")
	if a != b {
		t.Error("hash must be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashResetRaw("other-value") {
		t.Error("different inputs must not collide")
	}
}
