package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridepool/ridepool-go/internal/crypto"
	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/repository/memory"
)

const testSecret = "test-secret"

func newTestAuthService(t *testing.T) (*AuthService, *memory.Store, *memory.Denylist) {
	t.Helper()
	store := memory.NewStore()
	denylist := memory.NewDenylist()
	svc := NewAuthService(store.Users(), denylist, AuthConfig{
		Secret:             testSecret,
		SessionExpiry:      24 * time.Hour,
		RegistrationExpiry: 5 * time.Minute,
		EmailDomain:        "@my.unt.edu",
		AdminUsernames:     []string{"root"},
	})
	return svc, store, denylist
}

func register(t *testing.T, svc *AuthService, username, email, password, answer string) Session {
	t.Helper()
	pending, err := svc.BeginRegistration(context.Background(), model.RegisterForm{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)

	session, err := svc.CompleteRegistration(context.Background(), pending.Token, answer)
	require.NoError(t, err)
	return session
}

func TestBeginRegistration_DoesNotCreateUser(t *testing.T) {
	svc, store, _ := newTestAuthService(t)

	pending, err := svc.BeginRegistration(context.Background(), model.RegisterForm{
		Username:        "alice123",
		Email:           " Alice@my.unt.edu ",
		Password:        "longpass1",
		ConfirmPassword: "longpass1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pending.Token)

	_, err = store.Users().GetByUsername(context.Background(), "alice123")
	assert.Error(t, err)

	claims, err := crypto.ValidateRegistrationToken(pending.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice@my.unt.edu", claims.Email)
	assert.True(t, crypto.VerifyPassword("longpass1", claims.PasswordHash))
}

func TestBeginRegistration_Validation(t *testing.T) {
	tests := []struct {
		name string
		form model.RegisterForm
		want []string
	}{
		{
			name: "everything missing",
			form: model.RegisterForm{},
			want: []string{"Username is required!", "Email is required!", "Password is required!"},
		},
		{
			name: "short username and password",
			form: model.RegisterForm{Username: "al", Email: "al@my.unt.edu", Password: "short", ConfirmPassword: "short"},
			want: []string{"Username must be at least 3 characters", "Password must be at least 8 characters"},
		},
		{
			name: "long non alphanumeric username",
			form: model.RegisterForm{Username: "alice_the_driver!", Email: "a@my.unt.edu", Password: "longpass1", ConfirmPassword: "longpass1"},
			want: []string{"Username cannot exceed 15 characters", "Username can only contain letters and numbers"},
		},
		{
			name: "wrong domain and mismatch",
			form: model.RegisterForm{Username: "alice123", Email: "alice@gmail.com", Password: "longpass1", ConfirmPassword: "longpass2"},
			want: []string{"Please use your school email address ending in @my.unt.edu", "Passwords do not match!"},
		},
		{
			name: "password too long",
			form: model.RegisterForm{Username: "alice123", Email: "a@my.unt.edu", Password: string(make([]byte, 71)), ConfirmPassword: string(make([]byte, 71))},
			want: []string{"Password cannot exceed 70 characters"},
		},
		{
			name: "three multibyte characters",
			form: model.RegisterForm{Username: "alice123", Email: "a@my.unt.edu", Password: "€€€", ConfirmPassword: "€€€"},
			want: []string{"Password must be at least 8 characters"},
		},
		{
			name: "under 70 characters but over 72 bytes",
			form: model.RegisterForm{Username: "alice123", Email: "a@my.unt.edu", Password: strings.Repeat("é", 37), ConfirmPassword: strings.Repeat("é", 37)},
			want: []string{"Password is too long"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestAuthService(t)
			_, err := svc.BeginRegistration(context.Background(), tt.form)
			require.Error(t, err)
			assert.Equal(t, tt.want, Messages(err))
		})
	}
}

func TestBeginRegistration_MultibytePassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	password := strings.Repeat("é", 36)

	_, err := svc.BeginRegistration(context.Background(), model.RegisterForm{
		Username: "alice123", Email: "alice@my.unt.edu", Password: password, ConfirmPassword: password,
	})
	assert.NoError(t, err)
}

func TestBeginRegistration_Taken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	register(t, svc, "alice123", "alice@my.unt.edu", "longpass1", "blue")

	_, err := svc.BeginRegistration(context.Background(), model.RegisterForm{
		Username: "alice123", Email: "other@my.unt.edu", Password: "longpass1", ConfirmPassword: "longpass1",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.BeginRegistration(context.Background(), model.RegisterForm{
		Username: "bob", Email: "alice@my.unt.edu", Password: "longpass1", ConfirmPassword: "longpass1",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCompleteRegistration(t *testing.T) {
	svc, store, _ := newTestAuthService(t)

	session := register(t, svc, "alice123", "alice@my.unt.edu", "longpass1", " Blue ")
	assert.False(t, session.IsAdmin)

	claims, err := crypto.ValidateSessionToken(session.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice123", claims.Username)

	user, err := store.Users().GetByUsername(context.Background(), "alice123")
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, user.ID)
	assert.True(t, crypto.VerifySecretAnswer("blue", user.SecurityAnswerHash))
	assert.False(t, user.IsAdmin)
}

func TestCompleteRegistration_AdminFromConfig(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	session := register(t, svc, "root", "root@my.unt.edu", "longpass1", "blue")
	assert.True(t, session.IsAdmin)
}

func TestCompleteRegistration_AdminIgnoresCase(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthService(store.Users(), nil, AuthConfig{
		Secret:             testSecret,
		SessionExpiry:      time.Hour,
		RegistrationExpiry: 5 * time.Minute,
		EmailDomain:        "@my.unt.edu",
		AdminUsernames:     []string{"Root"},
	})

	session := register(t, svc, "root", "root@my.unt.edu", "longpass1", "blue")
	assert.True(t, session.IsAdmin)

	n, err := store.Users().PromoteAdmins(context.Background(), []string{"Root"})
	require.NoError(t, err)
	assert.Zero(t, n, "already an admin")
}

func TestCompleteRegistration_Failures(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.CompleteRegistration(ctx, "garbage", "blue")
	assert.ErrorIs(t, err, ErrRegistrationExpired)

	session, err := crypto.GenerateSessionToken(1, "alice123", false, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = svc.CompleteRegistration(ctx, session, "blue")
	assert.ErrorIs(t, err, ErrRegistrationExpired, "a session token is not a pending registration")

	pending, err := svc.BeginRegistration(ctx, model.RegisterForm{
		Username: "alice123", Email: "alice@my.unt.edu", Password: "longpass1", ConfirmPassword: "longpass1",
	})
	require.NoError(t, err)
	_, err = svc.CompleteRegistration(ctx, pending.Token, "   ")
	assert.ErrorIs(t, err, ErrAnswerRequired)
}

func TestCompleteRegistration_RaceLoser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	form := model.RegisterForm{Username: "alice123", Email: "alice@my.unt.edu", Password: "longpass1", ConfirmPassword: "longpass1"}

	first, err := svc.BeginRegistration(ctx, form)
	require.NoError(t, err)
	second, err := svc.BeginRegistration(ctx, form)
	require.NoError(t, err)

	_, err = svc.CompleteRegistration(ctx, first.Token, "blue")
	require.NoError(t, err)
	_, err = svc.CompleteRegistration(ctx, second.Token, "green")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	register(t, svc, "alice123", "alice@my.unt.edu", "longpass1", "blue")

	tests := []struct {
		name    string
		form    model.LoginForm
		wantErr error
	}{
		{name: "valid", form: model.LoginForm{Username: " alice123 ", Password: "longpass1"}},
		{name: "wrong password", form: model.LoginForm{Username: "alice123", Password: "wrongpass"}, wantErr: ErrInvalidCredentials},
		{name: "unknown user", form: model.LoginForm{Username: "nobody", Password: "longpass1"}, wantErr: ErrInvalidCredentials},
		{name: "blank username", form: model.LoginForm{Username: "  ", Password: "longpass1"}, wantErr: ErrInvalidCredentials},
		{name: "blank password", form: model.LoginForm{Username: "alice123"}, wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(context.Background(), tt.form)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, []string{"Invalid username / password."}, Messages(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.Token)
		})
	}
}

func TestLogin_UnknownUserRunsHashCompare(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	var hashes []string
	svc.verifyPassword = func(password, hash string) bool {
		hashes = append(hashes, hash)
		return false
	}

	_, err := svc.Login(context.Background(), model.LoginForm{Username: "nobody", Password: "longpass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hashes, 1)
	assert.Equal(t, dummyHash(), hashes[0])
	assert.False(t, crypto.VerifyPassword("longpass1", dummyHash()))
}

func TestResetPassword_UnknownUserRunsHashCompare(t *testing.T) {
	svc, store, _ := newTestAuthService(t)
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &model.User{Username: "noanswer", PasswordHash: "h"}))

	calls := 0
	svc.verifyAnswer = func(answer, hash string) bool {
		calls++
		assert.Equal(t, dummyHash(), hash)
		return false
	}

	for _, username := range []string{"nobody", "noanswer"} {
		err := svc.ResetPassword(ctx, model.ForgotPasswordForm{
			Username: username, SecurityAnswer: "blue", Password: "newpass12", ConfirmPassword: "newpass12",
		})
		assert.ErrorIs(t, err, ErrRecoveryFailed)
	}
	assert.Equal(t, 2, calls)
}

func TestResetPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	register(t, svc, "alice123", "alice@my.unt.edu", "longpass1", "blue")

	err := svc.ResetPassword(ctx, model.ForgotPasswordForm{
		Username: "alice123", SecurityAnswer: "green", Password: "newpass12", ConfirmPassword: "newpass12",
	})
	assert.ErrorIs(t, err, ErrRecoveryFailed)

	err = svc.ResetPassword(ctx, model.ForgotPasswordForm{
		Username: "nobody", SecurityAnswer: "blue", Password: "newpass12", ConfirmPassword: "newpass12",
	})
	assert.ErrorIs(t, err, ErrRecoveryFailed)

	err = svc.ResetPassword(ctx, model.ForgotPasswordForm{
		Username: "alice123", SecurityAnswer: "BLUE ", Password: "newpass12", ConfirmPassword: "newpass12",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, model.LoginForm{Username: "alice123", Password: "longpass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, model.LoginForm{Username: "alice123", Password: "newpass12"})
	assert.NoError(t, err)
}

func TestResetPassword_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	err := svc.ResetPassword(context.Background(), model.ForgotPasswordForm{Password: "short", ConfirmPassword: "other"})
	assert.Equal(t, []string{
		"Username or security answer is incorrect.",
		"Password must be at least 8 characters",
		"Passwords do not match!",
	}, Messages(err))

	tests := []struct {
		name     string
		password string
		want     string
	}{
		{name: "three multibyte characters", password: "€€€", want: "Password must be at least 8 characters"},
		{name: "under 70 characters but over 72 bytes", password: strings.Repeat("é", 37), want: "Password is too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(context.Background(), model.ForgotPasswordForm{
				Username: "alice123", SecurityAnswer: "blue", Password: tt.password, ConfirmPassword: tt.password,
			})
			assert.Equal(t, []string{tt.want}, Messages(err))
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, store, _ := newTestAuthService(t)
	ctx := context.Background()
	register(t, svc, "alice123", "alice@my.unt.edu", "longpass1", "blue")
	register(t, svc, "bob", "bob@my.unt.edu", "longpass1", "red")

	alice, err := store.Users().GetByUsername(ctx, "alice123")
	require.NoError(t, err)

	err = svc.UpdateSettings(ctx, alice.ID, model.SettingsForm{Email: "bob@my.unt.edu"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	err = svc.UpdateSettings(ctx, alice.ID, model.SettingsForm{Email: "alice@gmail.com"})
	assert.Len(t, Messages(err), 1)

	require.NoError(t, svc.UpdateSettings(ctx, alice.ID, model.SettingsForm{Email: "a2@my.unt.edu"}))
	user, err := svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2@my.unt.edu", user.Email)
	assert.True(t, crypto.VerifySecretAnswer("blue", user.SecurityAnswerHash), "blank answer keeps the old one")

	require.NoError(t, svc.UpdateSettings(ctx, alice.ID, model.SettingsForm{Email: "a2@my.unt.edu", SecurityAnswer: "Green"}))
	user, err = svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, crypto.VerifySecretAnswer("green", user.SecurityAnswerHash))
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, denylist := newTestAuthService(t)
	ctx := context.Background()
	session := register(t, svc, "alice123", "alice@my.unt.edu", "longpass1", "blue")

	claims, err := crypto.ValidateSessionToken(session.Token, testSecret)
	require.NoError(t, err)

	identity := model.Identity{UserID: claims.UserID, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}
	require.NoError(t, svc.Logout(ctx, identity))

	revoked, err := denylist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.NoError(t, svc.Logout(ctx, model.Anonymous))
}
