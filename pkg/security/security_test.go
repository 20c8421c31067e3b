package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNoopProviderAuthenticateAlwaysSucceeds(t *testing.T) {
	var p NoopProvider
	principal, err := p.Authenticate(context.Background(), []byte("anything"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal != "anonymous" {
		t.Fatalf("expected anonymous principal, got %q", principal)
	}
}

func TestNoopProviderEncryptDecryptRoundTrip(t *testing.T) {
	var p NoopProvider
	plaintext := []byte("payload")
	ciphertext, err := p.Encrypt(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ciphertext) != string(plaintext) {
		t.Fatalf("expected NoopProvider.Encrypt to be the identity function")
	}
	decoded, err := p.Decrypt(context.Background(), ciphertext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(decoded) != string(plaintext) {
		t.Fatalf("expected NoopProvider.Decrypt to be the identity function")
	}
}

func TestParseIdentityTokenUnverifiedReadsPrincipal(t *testing.T) {
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Principal: "alice",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("any-secret-since-we-never-verify"))
	if err != nil {
		t.Fatalf("unexpected signing error: %v", err)
	}

	got, err := ParseIdentityTokenUnverified([]byte(signed))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got.Principal != "alice" {
		t.Fatalf("expected principal alice, got %q", got.Principal)
	}
}
