package config

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth verifies the shared admin secret. A bcrypt hash is preferred so
// the plaintext never has to live in the environment.
type AdminAuth struct {
	token []byte
	hash  []byte
}

// NewAdminAuth builds a verifier from a plaintext token and/or a bcrypt hash.
// The hash wins when both are set.
func NewAdminAuth(token, bcryptHash string) (*AdminAuth, error) {
	a := &AdminAuth{}
	if bcryptHash != "" {
		if _, err := bcrypt.Cost([]byte(bcryptHash)); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TOKEN_BCRYPT: %w", err)
		}
		a.hash = []byte(bcryptHash)
		return a, nil
	}
	if token != "" {
		a.token = []byte(token)
	}
	return a, nil
}

// Enabled reports whether any secret is configured. With none, every
// credential is refused.
func (a *AdminAuth) Enabled() bool {
	return len(a.hash) > 0 || len(a.token) > 0
}

// Verify reports whether candidate matches the configured secret.
func (a *AdminAuth) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(a.hash) > 0 {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(candidate)) == nil
	}
	if len(a.token) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.token, []byte(candidate)) == 1
}

// HashAdminToken produces a value suitable for ADMIN_TOKEN_BCRYPT.
func HashAdminToken(token string, cost int) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", fmt.Errorf("bcrypt cost out of range: %d", cost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}
