package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/rpupo63/blog-backend/errs"
)

const minPasswordLength = 8

// HashPassword returns the bcrypt hash stored for a credential.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", errs.NewValidationError("password", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
