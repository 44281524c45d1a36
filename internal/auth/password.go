// Package auth hashes passwords and issues signed session tokens.
package auth

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a salted bcrypt hash. Every call uses a fresh salt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.Wrap(domain.ErrValidation, "password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errors.Wrap(domain.ErrValidation, "password must be at most 72 bytes")
		}
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// VerifyPassword reports whether password produced hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
