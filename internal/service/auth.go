package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ridepool/ridepool-go/internal/crypto"
	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 15
	minPasswordLength = 8
	maxPasswordLength = 70
	// bcrypt only accepts the first 72 bytes of its input.
	maxPasswordBytes = 72
)

var (
	ErrInvalidCredentials  = invalid("Invalid username / password.")
	ErrRecoveryFailed      = invalid("Username or security answer is incorrect.")
	ErrUsernameTaken       = invalid("Username already taken")
	ErrEmailTaken          = invalid("Email already in use")
	ErrAnswerRequired      = invalid("Please provide an answer to the security question.")
	ErrRegistrationExpired = errors.New("pending registration is missing or expired")
	ErrUserNotFound        = errors.New("user not found")
)

// dummyHash is compared against when no stored hash exists, so unknown
// usernames cost the same bcrypt work as known ones.
var dummyHash = sync.OnceValue(func() string {
	hash, err := crypto.HashPassword("ridepool-placeholder-secret")
	if err != nil {
		panic(err)
	}
	return hash
})

// AuthConfig holds the settings AuthService needs.
type AuthConfig struct {
	Secret             string
	SessionExpiry      time.Duration
	RegistrationExpiry time.Duration
	EmailDomain        string
	AdminUsernames     []string
}

// Session is a freshly issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	IsAdmin   bool
}

// PendingRegistration is a signed, short-lived sign-up awaiting its security answer.
type PendingRegistration struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService handles authentication business logic.
type AuthService struct {
	users    UserStore
	denylist Denylist
	cfg      AuthConfig
	admins   map[string]bool

	verifyPassword func(password, hash string) bool
	verifyAnswer   func(answer, hash string) bool
}

// NewAuthService creates a new AuthService. denylist may be nil, in which
// case logout only clears the cookie.
func NewAuthService(users UserStore, denylist Denylist, cfg AuthConfig) *AuthService {
	admins := make(map[string]bool, len(cfg.AdminUsernames))
	for _, name := range cfg.AdminUsernames {
		admins[strings.ToLower(name)] = true
	}
	return &AuthService{
		users:          users,
		denylist:       denylist,
		cfg:            cfg,
		admins:         admins,
		verifyPassword: crypto.VerifyPassword,
		verifyAnswer:   crypto.VerifySecretAnswer,
	}
}

// Login authenticates a user and returns a session. Unknown usernames and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, form model.LoginForm) (Session, error) {
	username := strings.TrimSpace(form.Username)
	if username == "" || form.Password == "" {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verifyPassword(form.Password, dummyHash())
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !s.verifyPassword(form.Password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// BeginRegistration validates the sign-up form and stages it in a signed
// token. No user row is written until CompleteRegistration.
func (s *AuthService) BeginRegistration(ctx context.Context, form model.RegisterForm) (PendingRegistration, error) {
	username := strings.TrimSpace(form.Username)
	email := normalizeEmail(form.Email)

	var p problems
	checkUsername(&p, username)
	s.checkEmail(&p, email)
	checkPassword(&p, form.Password, form.ConfirmPassword)
	if err := p.err(); err != nil {
		return PendingRegistration{}, err
	}

	if err := s.checkAvailable(ctx, username, email); err != nil {
		return PendingRegistration{}, err
	}

	hash, err := crypto.HashPassword(form.Password)
	if err != nil {
		return PendingRegistration{}, fmt.Errorf("hashing password: %w", err)
	}

	token, err := crypto.GenerateRegistrationToken(username, email, hash, s.cfg.Secret, s.cfg.RegistrationExpiry)
	if err != nil {
		return PendingRegistration{}, fmt.Errorf("signing pending registration: %w", err)
	}

	return PendingRegistration{
		Token:     token,
		ExpiresAt: time.Now().Add(s.cfg.RegistrationExpiry),
	}, nil
}

// PendingUsername returns the username staged in a pending registration token.
func (s *AuthService) PendingUsername(token string) (string, error) {
	claims, err := crypto.ValidateRegistrationToken(token, s.cfg.Secret)
	if err != nil {
		return "", ErrRegistrationExpired
	}
	return claims.Username, nil
}

// CompleteRegistration finishes a sign-up with its security answer. Uniqueness
// is checked again because the username or email may have been claimed while
// the registration was pending.
func (s *AuthService) CompleteRegistration(ctx context.Context, pendingToken, answer string) (Session, error) {
	claims, err := crypto.ValidateRegistrationToken(pendingToken, s.cfg.Secret)
	if err != nil {
		return Session{}, ErrRegistrationExpired
	}

	if crypto.NormalizeSecretAnswer(answer) == "" {
		return Session{}, ErrAnswerRequired
	}

	if err := s.checkAvailable(ctx, claims.Username, claims.Email); err != nil {
		return Session{}, err
	}

	answerHash, err := crypto.HashSecretAnswer(answer)
	if err != nil {
		return Session{}, fmt.Errorf("hashing security answer: %w", err)
	}

	user := &model.User{
		Username:           claims.Username,
		Email:              claims.Email,
		PasswordHash:       claims.PasswordHash,
		SecurityAnswerHash: answerHash,
		IsAdmin:            s.admins[strings.ToLower(claims.Username)],
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return Session{}, ErrUsernameTaken
		case errors.Is(err, repository.ErrDuplicateEmail):
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}

	return s.issueSession(user)
}

// ResetPassword replaces the password of the user whose security answer
// matches. Unknown users, users without an answer and wrong answers fail
// identically.
func (s *AuthService) ResetPassword(ctx context.Context, form model.ForgotPasswordForm) error {
	username := strings.TrimSpace(form.Username)

	var p problems
	if username == "" || crypto.NormalizeSecretAnswer(form.SecurityAnswer) == "" {
		p.add(ErrRecoveryFailed.Messages[0])
	}
	checkPassword(&p, form.Password, form.ConfirmPassword)
	if err := p.err(); err != nil {
		return err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verifyAnswer(form.SecurityAnswer, dummyHash())
			return ErrRecoveryFailed
		}
		return err
	}
	if !user.HasSecurityAnswer() {
		s.verifyAnswer(form.SecurityAnswer, dummyHash())
		return ErrRecoveryFailed
	}
	if !s.verifyAnswer(form.SecurityAnswer, user.SecurityAnswerHash) {
		return ErrRecoveryFailed
	}

	hash, err := crypto.HashPassword(form.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// GetUser retrieves the signed-in user's record.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateSettings changes the email and, when one is given, the security answer.
func (s *AuthService) UpdateSettings(ctx context.Context, userID int64, form model.SettingsForm) error {
	email := normalizeEmail(form.Email)

	var p problems
	s.checkEmail(&p, email)
	if err := p.err(); err != nil {
		return err
	}

	var answerHash string
	if crypto.NormalizeSecretAnswer(form.SecurityAnswer) != "" {
		hash, err := crypto.HashSecretAnswer(form.SecurityAnswer)
		if err != nil {
			return fmt.Errorf("hashing security answer: %w", err)
		}
		answerHash = hash
	}

	if err := s.users.UpdateSettings(ctx, userID, email, answerHash); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return ErrEmailTaken
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Logout revokes the session token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, identity model.Identity) error {
	if s.denylist == nil || !identity.IsAuthenticated() {
		return nil
	}
	return s.denylist.Revoke(ctx, identity.TokenID, time.Until(identity.ExpiresAt))
}

func (s *AuthService) issueSession(user *model.User) (Session, error) {
	token, err := crypto.GenerateSessionToken(user.ID, user.Username, user.IsAdmin, s.cfg.Secret, s.cfg.SessionExpiry)
	if err != nil {
		return Session{}, fmt.Errorf("signing session: %w", err)
	}
	return Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.cfg.SessionExpiry),
		IsAdmin:   user.IsAdmin,
	}, nil
}

func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	return nil
}

func (s *AuthService) checkEmail(p *problems, email string) {
	switch {
	case email == "":
		p.add("Email is required!")
	case !strings.HasSuffix(email, s.cfg.EmailDomain) || len(email) == len(s.cfg.EmailDomain):
		p.add("Please use your school email address ending in " + s.cfg.EmailDomain)
	}
}

func checkUsername(p *problems, username string) {
	switch {
	case username == "":
		p.add("Username is required!")
		return
	case len(username) < minUsernameLength:
		p.add("Username must be at least 3 characters")
	case len(username) > maxUsernameLength:
		p.add("Username cannot exceed 15 characters")
	}
	if !isAlphanumeric(username) {
		p.add("Username can only contain letters and numbers")
	}
}

func checkPassword(p *problems, password, confirm string) {
	switch {
	case password == "":
		p.add("Password is required!")
		return
	case utf8.RuneCountInString(password) < minPasswordLength:
		p.add("Password must be at least 8 characters")
	case utf8.RuneCountInString(password) > maxPasswordLength:
		p.add("Password cannot exceed 70 characters")
	case len(password) > maxPasswordBytes:
		p.add("Password is too long")
	}
	if password != confirm {
		p.add("Passwords do not match!")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
