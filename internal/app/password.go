package app

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

// dummyHash is compared against when the email is unknown so that every
// login attempt costs one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("storefront-unknown-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return domain.ErrPasswordTooShort
	}
	if len(password) > maxPasswordLen {
		return domain.ErrPasswordTooLong
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword compares password against hash, or against dummyHash when
// hash is empty, and reports whether they match.
func checkPassword(hash, password string) bool {
	h := []byte(hash)
	if len(h) == 0 {
		h = dummyHash()
	}
	return bcrypt.CompareHashAndPassword(h, []byte(password)) == nil && hash != ""
}
