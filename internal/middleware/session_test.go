package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridepool/ridepool-go/internal/crypto"
	"github.com/ridepool/ridepool-go/internal/model"
)

const testSecret = "test-secret"

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], s.err
}

func identityThrough(t *testing.T, mw func(http.Handler) http.Handler, cookie *http.Cookie) model.Identity {
	t.Helper()
	var got model.Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "session middleware never rejects")
	return got
}

func sessionCookie(t *testing.T, userID int64, isAdmin bool, expiry time.Duration) *http.Cookie {
	t.Helper()
	token, err := crypto.GenerateSessionToken(userID, "alice123", isAdmin, testSecret, expiry)
	require.NoError(t, err)
	return &http.Cookie{Name: SessionCookieName, Value: token}
}

func TestSession_ValidCookie(t *testing.T) {
	got := identityThrough(t, Session(testSecret, nil), sessionCookie(t, 42, true, time.Hour))

	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "alice123", got.Username)
	assert.True(t, got.IsAdministrator())
	assert.NotEmpty(t, got.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, 5*time.Second)
}

func TestSession_Anonymous(t *testing.T) {
	expired := signedCookieAt(t, time.Now().Add(-25*time.Hour), 24*time.Hour)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "empty cookie", cookie: &http.Cookie{Name: SessionCookieName, Value: ""}},
		{name: "garbage", cookie: &http.Cookie{Name: SessionCookieName, Value: "not-a-token"}},
		{name: "expired", cookie: expired},
		{name: "other cookie name", cookie: &http.Cookie{Name: "session", Value: sessionCookie(t, 1, false, time.Hour).Value}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := identityThrough(t, Session(testSecret, nil), tt.cookie)
			assert.Equal(t, model.Anonymous, got)
		})
	}
}

// signedCookieAt builds a correctly signed session cookie issued at issuedAt.
func signedCookieAt(t *testing.T, issuedAt time.Time, expiry time.Duration) *http.Cookie {
	t.Helper()
	claims := crypto.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "expired-token",
			Issuer:    "ridepool",
			Audience:  jwt.ClaimStrings{"ridepool-session"},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiry)),
		},
		UserID:   1,
		Username: "alice123",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: SessionCookieName, Value: token}
}

func TestSession_Revoked(t *testing.T) {
	cookie := sessionCookie(t, 42, false, time.Hour)
	claims, err := crypto.ValidateSessionToken(cookie.Value, testSecret)
	require.NoError(t, err)

	revoked := stubRevocations{revoked: map[string]bool{claims.ID: true}}
	assert.Equal(t, model.Anonymous, identityThrough(t, Session(testSecret, revoked), cookie))

	failing := stubRevocations{err: errors.New("redis down")}
	assert.Equal(t, model.Anonymous, identityThrough(t, Session(testSecret, failing), cookie))

	clean := stubRevocations{}
	assert.Equal(t, int64(42), identityThrough(t, Session(testSecret, clean), cookie).UserID)
}

func TestIdentityFromContext_Default(t *testing.T) {
	assert.Equal(t, model.Anonymous, IdentityFromContext(context.Background()))
}

func TestGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		guard    func(http.Handler) http.Handler
		identity model.Identity
		want     int
	}{
		{name: "auth anonymous", guard: RequireAuthenticated, identity: model.Anonymous, want: http.StatusFound},
		{name: "auth user", guard: RequireAuthenticated, identity: model.Identity{UserID: 1}, want: http.StatusOK},
		{name: "admin anonymous", guard: RequireAdmin, identity: model.Anonymous, want: http.StatusFound},
		{name: "admin user", guard: RequireAdmin, identity: model.Identity{UserID: 1}, want: http.StatusFound},
		{name: "admin flag without user", guard: RequireAdmin, identity: model.Identity{IsAdmin: true}, want: http.StatusFound},
		{name: "admin admin", guard: RequireAdmin, identity: model.Identity{UserID: 1, IsAdmin: true}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			rec := httptest.NewRecorder()

			tt.guard(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusFound {
				assert.Equal(t, "/", rec.Header().Get("Location"))
			}
		})
	}
}
