// Package auth wraps the password hash primitive used to verify credentials.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned by Hash for inputs bcrypt would truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Verifier hashes and checks passwords with bcrypt.
type Verifier struct {
	cost      int
	dummyHash []byte
}

// NewVerifier returns a Verifier using the given bcrypt cost. Costs outside
// bcrypt's range fall back to bcrypt.DefaultCost.
func NewVerifier(cost int) (*Verifier, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("taskdesk-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &Verifier{cost: cost, dummyHash: dummy}, nil
}

func (v *Verifier) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", ErrPasswordTooLong
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes never match.
func (v *Verifier) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy spends the same work as Verify against a throwaway hash, so an
// unknown identity costs as much as a wrong password.
func (v *Verifier) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(plaintext))
}

// Cost returns the bcrypt cost in use.
func (v *Verifier) Cost() int {
	return v.cost
}
