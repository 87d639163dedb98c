package pkg

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordHashCost = 10
	// bcrypt ignores everything past this many bytes
	MaxPasswordBytes = 72
)

var ErrPasswordTooLong = errors.New("password too long")

func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return BytesToString(hash), nil
}

// CheckPasswordHash reports whether password matches a bcrypt hash of any cost.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
