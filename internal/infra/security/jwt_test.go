package security

import (
	"errors"
	"testing"
	"time"
)

func newTestJWTManager(t *testing.T, kid string) *JWTManager {
	t.Helper()

	provider, err := NewEphemeralKeyProvider(kid)
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider: %v", err)
	}
	return NewJWTManager(provider)
}

func TestJWTManager_SignAndParse(t *testing.T) {
	manager := newTestJWTManager(t, "test-key")

	claims, err := NewAccessTokenClaims(AccessTokenOptions{
		UserID:   "account-1",
		Username: "alice",
		Role:     "student",
		Issuer:   "lsm-auth",
		TTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("NewAccessTokenClaims: %v", err)
	}

	signed, err := manager.SignAccessToken(claims)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	parsed, err := manager.ParseAccessToken(signed)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}

	if parsed.UserID != "account-1" {
		t.Fatalf("expected uid account-1, got %s", parsed.UserID)
	}
	if parsed.Subject != "account-1" {
		t.Fatalf("expected subject account-1, got %s", parsed.Subject)
	}
	if parsed.Username != "alice" {
		t.Fatalf("expected username alice, got %s", parsed.Username)
	}
	if parsed.Role != "student" {
		t.Fatalf("expected role student, got %s", parsed.Role)
	}
	if parsed.Issuer != "lsm-auth" {
		t.Fatalf("expected issuer lsm-auth, got %s", parsed.Issuer)
	}
	if parsed.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestJWTManager_ParseExpiredToken(t *testing.T) {
	manager := newTestJWTManager(t, "test-key")

	claims, err := NewAccessTokenClaims(AccessTokenOptions{
		UserID:   "account-1",
		Issuer:   "lsm-auth",
		TTL:      time.Minute,
		IssuedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("NewAccessTokenClaims: %v", err)
	}

	signed, err := manager.SignAccessToken(claims)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	parsed, err := manager.ParseAccessToken(signed)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if parsed == nil || parsed.UserID != "account-1" {
		t.Fatal("expected claims to be returned alongside the expiry error")
	}
}

func TestJWTManager_RejectsForeignKey(t *testing.T) {
	signer := newTestJWTManager(t, "key-a")
	verifier := newTestJWTManager(t, "key-b")

	claims, err := NewAccessTokenClaims(AccessTokenOptions{
		UserID: "account-1",
		Issuer: "lsm-auth",
		TTL:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewAccessTokenClaims: %v", err)
	}

	signed, err := signer.SignAccessToken(claims)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	if _, err := verifier.ParseAccessToken(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	manager := newTestJWTManager(t, "test-key")

	if _, err := manager.ParseAccessToken("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewAccessTokenClaims_Validation(t *testing.T) {
	if _, err := NewAccessTokenClaims(AccessTokenOptions{Issuer: "lsm-auth"}); err == nil {
		t.Fatal("expected missing user id to error")
	}
	if _, err := NewAccessTokenClaims(AccessTokenOptions{UserID: "account-1"}); err == nil {
		t.Fatal("expected missing issuer to error")
	}
}

func TestNewAccessTokenClaims_DefaultTTL(t *testing.T) {
	issuedAt := time.Now()
	claims, err := NewAccessTokenClaims(AccessTokenOptions{
		UserID:   "account-1",
		Issuer:   "lsm-auth",
		IssuedAt: issuedAt,
	})
	if err != nil {
		t.Fatalf("NewAccessTokenClaims: %v", err)
	}

	// jwt.NewNumericDate truncates to second precision.
	want := issuedAt.UTC().Add(15 * time.Minute).Truncate(time.Second)
	if got := claims.ExpiresAt.Time; !got.Equal(want) {
		t.Fatalf("expected default expiry %v, got %v", want, got)
	}
}
