package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration or
// profile update.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// PasswordPolicy describes the password rule to end users.
const PasswordPolicy = "Password must be at least 6 characters and contain both letters and numbers."

// PasswordTooLong is shown to end users for passwords over MaxPasswordBytes.
const PasswordTooLong = "Password must be at most 72 bytes."

var (
	// ErrWeakPassword is returned by ValidatePassword.
	ErrWeakPassword = errors.New("password does not satisfy policy")
	// ErrPasswordTooLong is returned by ValidatePassword for passwords bcrypt
	// would refuse.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password with a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the password policy: at least MinPasswordLength
// characters with at least one ASCII letter and one ASCII digit, and no more
// than MaxPasswordBytes bytes.
func ValidatePassword(password string) error {
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// PolicyMessage returns the user-facing text for a ValidatePassword error.
func PolicyMessage(err error) string {
	if errors.Is(err, ErrPasswordTooLong) {
		return PasswordTooLong
	}
	return PasswordPolicy
}

// GenerateSessionToken returns 32 random bytes, hex encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
