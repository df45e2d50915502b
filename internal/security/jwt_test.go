package security

import (
	"testing"
	"time"

	"studieo/internal/common"
)

func TestJWTProviderRoundTrip(t *testing.T) {
	provider := NewJWTProvider("secret")
	userID := common.NewUUID()

	token, expiresAt, err := provider.Generate(userID, []string{"student", "company"}, "student", time.Minute)
	if err != nil {
		t.Fatalf("expected token generated, got %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expected expiry in the future")
	}

	claims, err := provider.Parse(token)
	if err != nil {
		t.Fatalf("expected token parsed, got %v", err)
	}
	if claims.UserID != string(userID) {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "student" {
		t.Fatalf("expected roles preserved, got %v", claims.Roles)
	}
	if claims.Role != "student" {
		t.Fatalf("expected active role preserved, got %q", claims.Role)
	}
}

func TestJWTProviderRejectsWrongSecret(t *testing.T) {
	provider := NewJWTProvider("secret")
	other := NewJWTProvider("other")
	token, _, err := provider.Generate(common.NewUUID(), []string{"student"}, "", time.Minute)
	if err != nil {
		t.Fatalf("expected token generated, got %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestJWTProviderRejectsExpired(t *testing.T) {
	provider := NewJWTProvider("secret")
	token, _, err := provider.Generate(common.NewUUID(), []string{"student"}, "", -time.Minute)
	if err != nil {
		t.Fatalf("expected token generated, got %v", err)
	}
	if _, err := provider.Parse(token); err == nil {
		t.Fatal("expected parse to fail for expired token")
	}
}
