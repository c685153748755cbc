package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ridepool/ridepool-go/internal/crypto"
	"github.com/ridepool/ridepool-go/internal/model"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "ridepool_session"

type contextKey string

const identityKey contextKey = "identity"

// RevocationChecker reports whether a session token ID has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Session returns middleware that resolves the session cookie to an identity.
// It never rejects a request: a missing, invalid, expired or revoked token
// yields model.Anonymous. revocations may be nil.
func Session(secret string, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := resolve(r, secret, revocations)
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(r *http.Request, secret string, revocations RevocationChecker) model.Identity {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return model.Anonymous
	}

	claims, err := crypto.ValidateSessionToken(cookie.Value, secret)
	if err != nil {
		return model.Anonymous
	}

	if revocations != nil {
		revoked, err := revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			slog.Warn("session revocation lookup failed", "error", err)
			return model.Anonymous
		}
		if revoked {
			return model.Anonymous
		}
	}

	return model.Identity{
		UserID:    claims.UserID,
		Username:  claims.Username,
		IsAdmin:   claims.IsAdmin,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// IdentityFromContext returns the identity attached by Session, or
// model.Anonymous when there is none.
func IdentityFromContext(ctx context.Context) model.Identity {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	if !ok {
		return model.Anonymous
	}
	return identity
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
