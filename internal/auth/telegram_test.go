package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"
)

const testBotToken = "12345:test-bot-token"

func signProfile(botToken string, profile TelegramProfile) string {
	fields := map[string]string{
		"id":         fmt.Sprintf("%d", profile.ID),
		"first_name": profile.FirstName,
		"auth_date":  fmt.Sprintf("%d", profile.AuthDate),
	}
	if profile.LastName != "" {
		fields["last_name"] = profile.LastName
	}
	if profile.Username != "" {
		fields["username"] = profile.Username
	}
	if profile.PhotoURL != "" {
		fields["photo_url"] = profile.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidPayload(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewTelegramVerifier(TelegramVerifierConfig{
		BotToken: testBotToken,
		Clock:    func() time.Time { return now },
	})

	profile := TelegramProfile{
		ID:        777,
		FirstName: "Ada",
		Username:  "ada",
		AuthDate:  now.Add(-time.Minute).Unix(),
	}
	profile.Hash = signProfile(testBotToken, profile)

	if err := verifier.Verify(profile); err != nil {
		testContext.Fatalf("expected valid payload to verify: %v", err)
	}
}

func TestVerifyAcceptsPayloadWithoutOptionalFields(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewTelegramVerifier(TelegramVerifierConfig{
		BotToken: testBotToken,
		Clock:    func() time.Time { return now },
	})

	// Empty optional fields are excluded from the data-check-string.
	profile := TelegramProfile{
		ID:        777,
		FirstName: "Ada",
		AuthDate:  now.Add(-time.Minute).Unix(),
	}
	profile.Hash = signProfile(testBotToken, profile)

	if err := verifier.Verify(profile); err != nil {
		testContext.Fatalf("expected payload without optional fields to verify: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewTelegramVerifier(TelegramVerifierConfig{
		BotToken: testBotToken,
		Clock:    func() time.Time { return now },
	})

	profile := TelegramProfile{
		ID:        777,
		FirstName: "Ada",
		AuthDate:  now.Add(-time.Minute).Unix(),
	}
	profile.Hash = signProfile(testBotToken, profile)
	profile.Username = "mallory"

	if err := verifier.Verify(profile); !errors.Is(err, ErrTelegramHashMismatch) {
		testContext.Fatalf("expected hash mismatch for tampered payload, got %v", err)
	}
}

func TestVerifyRejectsStaleAuthDate(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewTelegramVerifier(TelegramVerifierConfig{
		BotToken:   testBotToken,
		MaxAuthAge: time.Hour,
		Clock:      func() time.Time { return now },
	})

	profile := TelegramProfile{
		ID:        777,
		FirstName: "Ada",
		AuthDate:  now.Add(-2 * time.Hour).Unix(),
	}
	profile.Hash = signProfile(testBotToken, profile)

	if err := verifier.Verify(profile); !errors.Is(err, ErrTelegramAuthExpired) {
		testContext.Fatalf("expected expiry error for stale payload, got %v", err)
	}
}

func TestVerifyRejectsFutureAuthDate(testContext *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewTelegramVerifier(TelegramVerifierConfig{
		BotToken: testBotToken,
		Clock:    func() time.Time { return now },
	})

	profile := TelegramProfile{
		ID:        777,
		FirstName: "Ada",
		AuthDate:  now.Add(time.Hour).Unix(),
	}
	profile.Hash = signProfile(testBotToken, profile)

	if err := verifier.Verify(profile); !errors.Is(err, ErrTelegramAuthExpired) {
		testContext.Fatalf("expected expiry error for future-dated payload, got %v", err)
	}
}

func TestVerifyRequiresBotToken(testContext *testing.T) {
	verifier := NewTelegramVerifier(TelegramVerifierConfig{})

	profile := TelegramProfile{ID: 777, FirstName: "Ada", AuthDate: time.Now().Unix()}
	if err := verifier.Verify(profile); !errors.Is(err, ErrTelegramNotConfigured) {
		testContext.Fatalf("expected configuration error without bot token, got %v", err)
	}
}
