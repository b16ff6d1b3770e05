package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Credential scheme names accepted by ParseScheme.
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
)

// Credentials turns a trainer secret into its stored form and checks a
// presented secret against a stored one.
type Credentials interface {
	Seal(secret string) (string, error)
	Match(stored, secret string) bool
}

// PlainCredentials stores secrets as given. It keeps existing trainer data
// readable but offers no protection if the database leaks.
type PlainCredentials struct{}

// Seal returns the secret unchanged.
func (PlainCredentials) Seal(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	return secret, nil
}

// Match compares in constant time.
func (PlainCredentials) Match(stored, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}

// BcryptCredentials stores bcrypt hashes of trainer secrets.
type BcryptCredentials struct {
	Cost int
}

// Seal hashes the secret.
func (b BcryptCredentials) Seal(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

// Match reports whether secret hashes to stored.
func (BcryptCredentials) Match(stored, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
}

// ParseScheme returns the Credentials for a scheme name. An empty name
// selects the plain scheme.
func ParseScheme(name string) (Credentials, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchemePlain:
		return PlainCredentials{}, nil
	case SchemeBcrypt:
		return BcryptCredentials{}, nil
	default:
		return nil, fmt.Errorf("unknown credential scheme %q", name)
	}
}
