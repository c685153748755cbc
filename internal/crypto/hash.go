package crypto

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor used for passwords and security answers.
const HashCost = 10

var ErrEmptySecret = errors.New("secret must not be empty")

// HashPassword hashes a password with bcrypt using a fresh random salt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptySecret
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// A malformed or empty hash never matches.
func VerifyPassword(password, encodedHash string) bool {
	if encodedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}

// NormalizeSecretAnswer trims surrounding whitespace and lowercases the answer,
// so "Blue" and "blue " hash to equivalent values.
func NormalizeSecretAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashSecretAnswer hashes a normalized security-question answer.
func HashSecretAnswer(answer string) (string, error) {
	normalized := NormalizeSecretAnswer(answer)
	if normalized == "" {
		return "", ErrEmptySecret
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(normalized), HashCost)
	if err != nil {
		return "", fmt.Errorf("hashing security answer: %w", err)
	}

	return string(hash), nil
}

// VerifySecretAnswer reports whether answer matches the stored hash after normalization.
func VerifySecretAnswer(answer, encodedHash string) bool {
	return VerifyPassword(NormalizeSecretAnswer(answer), encodedHash)
}
