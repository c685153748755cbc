package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer               = "ridepool"
	sessionAudience      = "ridepool-session"
	registrationAudience = "ridepool-registration"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// SessionClaims represents the signed claim set carried in the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// RegistrationClaims stages an unfinished sign-up between the register and
// security-question steps.
type RegistrationClaims struct {
	jwt.RegisteredClaims
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// GenerateSessionToken creates a signed session token for the given user.
// Each token gets a random ID so it can be revoked individually.
func GenerateSessionToken(userID int64, username string, isAdmin bool, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: registered(sessionAudience, now, expiry),
		UserID:           userID,
		Username:         username,
		IsAdmin:          isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateSessionToken validates a session token against the current time.
func ValidateSessionToken(tokenString, secret string) (*SessionClaims, error) {
	return ValidateSessionTokenAt(tokenString, secret, time.Now())
}

// ValidateSessionTokenAt validates a session token as of now. Every failure,
// whatever its cause, is reported as ErrInvalidToken.
func ValidateSessionTokenAt(tokenString, secret string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := parse(tokenString, secret, sessionAudience, now, claims); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateRegistrationToken packages a pending registration into a short-lived token.
func GenerateRegistrationToken(username, email, passwordHash, secret string, expiry time.Duration) (string, error) {
	claims := RegistrationClaims{
		RegisteredClaims: registered(registrationAudience, time.Now(), expiry),
		Username:         username,
		Email:            email,
		PasswordHash:     passwordHash,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateRegistrationToken validates a pending-registration token against the current time.
func ValidateRegistrationToken(tokenString, secret string) (*RegistrationClaims, error) {
	return ValidateRegistrationTokenAt(tokenString, secret, time.Now())
}

// ValidateRegistrationTokenAt validates a pending-registration token as of now.
func ValidateRegistrationTokenAt(tokenString, secret string, now time.Time) (*RegistrationClaims, error) {
	claims := &RegistrationClaims{}
	if err := parse(tokenString, secret, registrationAudience, now, claims); err != nil {
		return nil, err
	}
	if claims.Username == "" || claims.PasswordHash == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func registered(audience string, now time.Time, expiry time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func parse(tokenString, secret, audience string, now time.Time, claims jwt.Claims) error {
	if tokenString == "" || secret == "" {
		return ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
