package auth

import (
	"context"
	"testing"
	"time"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "commons-auth",
		Audience:      "commons-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
}

func TestIssueAndValidateRoundTrip(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return now })

	principal := Principal{UserID: "user-1", Username: "ada", IsAdmin: true}
	token, expiresIn, err := issuer.IssueBackendToken(context.Background(), principal)
	if err != nil {
		testContext.Fatalf("failed to issue token: %v", err)
	}
	if expiresIn != int64(time.Hour.Seconds()) {
		testContext.Fatalf("expected ttl of %d seconds, got %d", int64(time.Hour.Seconds()), expiresIn)
	}

	validated, err := issuer.ValidateToken(token)
	if err != nil {
		testContext.Fatalf("failed to validate token: %v", err)
	}
	if validated != principal {
		testContext.Fatalf("expected principal %+v, got %+v", principal, validated)
	}
}

func TestValidateRejectsExpiredToken(testContext *testing.T) {
	issuedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return issuedAt })

	token, _, err := issuer.IssueBackendToken(context.Background(), Principal{UserID: "user-1"})
	if err != nil {
		testContext.Fatalf("failed to issue token: %v", err)
	}

	late := newTestIssuer(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	if _, err := late.ValidateToken(token); err == nil {
		testContext.Fatalf("expected expired token to be rejected")
	}
}

func TestValidateRejectsForeignSignature(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return now })

	foreign := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("other-secret"),
		Issuer:        "commons-auth",
		Audience:      "commons-api",
		TokenTTL:      time.Hour,
		Clock:         func() time.Time { return now },
	})
	token, _, err := foreign.IssueBackendToken(context.Background(), Principal{UserID: "user-1"})
	if err != nil {
		testContext.Fatalf("failed to issue token: %v", err)
	}

	if _, err := issuer.ValidateToken(token); err == nil {
		testContext.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestIssueRequiresSubject(testContext *testing.T) {
	issuer := newTestIssuer(nil)
	if _, _, err := issuer.IssueBackendToken(context.Background(), Principal{}); err == nil {
		testContext.Fatalf("expected error for principal without user id")
	}
}

func TestIssueRequiresSigningSecret(testContext *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{})
	if _, _, err := issuer.IssueBackendToken(context.Background(), Principal{UserID: "user-1"}); err == nil {
		testContext.Fatalf("expected error without signing secret")
	}
}
