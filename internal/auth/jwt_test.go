package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

func TestIssuePairRoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour, 14*24*time.Hour)

	pair, err := svc.IssuePair("usr_42", "alice@example.com")
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	if pair.TokenType != "Bearer" {
		t.Fatalf("tokenType = %q, want %q", pair.TokenType, "Bearer")
	}
	if pair.ExpiresIn != 3600 {
		t.Fatalf("expiresIn = %d, want 3600", pair.ExpiresIn)
	}

	claims, err := svc.Verify(pair.AccessToken, TokenKindAccess)
	if err != nil {
		t.Fatalf("Verify(access) error = %v", err)
	}
	if claims.UserID != "usr_42" || claims.Email != "alice@example.com" {
		t.Fatalf("claims = %q/%q, want usr_42/alice@example.com", claims.UserID, claims.Email)
	}

	claims, err = svc.Verify(pair.RefreshToken, TokenKindRefresh)
	if err != nil {
		t.Fatalf("Verify(refresh) error = %v", err)
	}
	if claims.UserID != "usr_42" {
		t.Fatalf("refresh claims userId = %q, want usr_42", claims.UserID)
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour, 14*24*time.Hour)

	pair, err := svc.IssuePair("usr_42", "alice@example.com")
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	if _, err := svc.Verify(pair.AccessToken, TokenKindRefresh); err == nil {
		t.Fatal("access token accepted where refresh was expected")
	}
	if _, err := svc.Verify(pair.RefreshToken, TokenKindAccess); err == nil {
		t.Fatal("refresh token accepted where access was expected")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, -time.Second, -time.Second)

	pair, err := svc.IssuePair("usr_42", "alice@example.com")
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	if _, err := svc.Verify(pair.AccessToken, TokenKindAccess); err == nil {
		t.Fatal("expired access token should fail verification")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour, 14*24*time.Hour)

	pair, err := svc.IssuePair("usr_42", "alice@example.com")
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	// Flip the signature segment.
	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]
	if _, err := svc.Verify(tampered, TokenKindAccess); err == nil {
		t.Fatal("tampered token should fail verification")
	}

	other := NewJWTService("another-secret-key-also-32-chars!!!", time.Hour, time.Hour)
	if _, err := other.Verify(pair.AccessToken, TokenKindAccess); err == nil {
		t.Fatal("token signed with a different secret should fail verification")
	}
}
