// Package security defines the pluggable security-provider boundary
// referenced by spec.md §6. No cryptographic implementation ships here —
// transport-layer encryption is explicitly delegated to whatever Provider
// the participant runtime is configured with (Non-goal: "transport-layer
// encryption... delegated to a pluggable crypto provider").
package security

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Provider is the boundary a participant runtime calls through for
// identity verification and payload confidentiality. The default
// NoopProvider satisfies it by doing nothing, matching an unsecured
// domain.
type Provider interface {
	// Authenticate inspects an identity token carried in PID_IDENTITY_TOKEN
	// and returns an opaque principal identifier, or an error if the token
	// is rejected.
	Authenticate(ctx context.Context, identityToken []byte) (principal string, err error)
	// Encrypt transforms an outgoing submessage payload before transport.
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	// Decrypt reverses Encrypt on an incoming submessage payload.
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// NoopProvider accepts every identity token, assigns it the "anonymous"
// principal, and passes payloads through unmodified. It is the default
// Provider for domains that do not configure a real one.
type NoopProvider struct{}

// Authenticate always succeeds, returning the anonymous principal.
func (NoopProvider) Authenticate(ctx context.Context, identityToken []byte) (string, error) {
	return "anonymous", nil
}

// Encrypt is the identity function.
func (NoopProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

// Decrypt is the identity function.
func (NoopProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

// IdentityClaims is the unverified-claims shape an identity token is
// wrapped in purely to give PID_IDENTITY_TOKEN a structured, inspectable
// representation in logs. This core never verifies the token's signature
// itself — that responsibility belongs to whatever Provider is installed.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Principal string `json:"principal,omitempty"`
}

// ParseIdentityTokenUnverified decodes the claims of an identity token
// without verifying its signature, for logging and diagnostics only. Never
// use the result to make an authentication decision — call the installed
// Provider's Authenticate for that.
func ParseIdentityTokenUnverified(token []byte) (IdentityClaims, error) {
	var claims IdentityClaims
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(string(token), &claims)
	if err != nil {
		return IdentityClaims{}, fmt.Errorf("security: parse identity token: %w", err)
	}
	return claims, nil
}
