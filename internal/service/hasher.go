package service

import (
	"errors"
	"fmt"

	"github.com/msomdec/client-registry/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements domain.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

var _ domain.PasswordHasher = BcryptHasher{}

func NewBcryptHasher(cost int) BcryptHasher {
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %v", domain.ErrExternalService, err)
	}
	return string(digest), nil
}

// Compare reports a mismatch as (false, nil); only malformed digests error.
func (h BcryptHasher) Compare(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: compare password: %v", domain.ErrExternalService, err)
	}
}
