package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ridepool/ridepool-go/internal/middleware"
	"github.com/ridepool/ridepool-go/internal/view"
)

// PendingCookieName is the cookie carrying a pending registration token.
const PendingCookieName = "ridepool_pending_registration"

const maxFormBytes = 64 << 10

// Cookies writes the session and pending registration cookies.
type Cookies struct {
	Secure bool
}

func (c Cookies) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c Cookies) setSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	c.set(w, middleware.SessionCookieName, token, time.Until(expiresAt))
}

func (c Cookies) clearSession(w http.ResponseWriter) {
	c.clear(w, middleware.SessionCookieName)
}

func (c Cookies) setPending(w http.ResponseWriter, token string, expiresAt time.Time) {
	c.set(w, PendingCookieName, token, time.Until(expiresAt))
}

func (c Cookies) clearPending(w http.ResponseWriter) {
	c.clear(w, PendingCookieName)
}

// pages renders views with the request identity filled in.
type pages struct {
	renderer view.Renderer
}

func (p pages) render(w http.ResponseWriter, r *http.Request, status int, name string, page view.Page) {
	page.Identity = middleware.IdentityFromContext(r.Context())
	if err := p.renderer.Render(w, status, name, page); err != nil {
		slog.Error("render failed", "page", name, "error", err)
		http.Error(w, "Something went wrong.", http.StatusInternalServerError)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusFound)
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, "Something went wrong.", http.StatusInternalServerError)
}

// parseForm reads a urlencoded body of bounded size.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request.", http.StatusBadRequest)
		return false
	}
	return true
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func urlID(r *http.Request) (int64, bool) {
	return parseID(chi.URLParam(r, "id"))
}
