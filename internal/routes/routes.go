// Package routes wires handlers and middleware onto the router.
package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ridepool/ridepool-go/internal/handler"
	"github.com/ridepool/ridepool-go/internal/middleware"
)

// RateLimit configures the per-IP limiter on credential endpoints.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Deps are the handlers and settings the routes need. Metrics may be nil.
type Deps struct {
	Auth     *handler.AuthHandler
	Posts    *handler.PostHandler
	Settings *handler.SettingsHandler
	Admin    *handler.AdminHandler

	Secret         string
	Revocations    middleware.RevocationChecker
	AllowedOrigins []string
	RateLimit      RateLimit
	Metrics        http.Handler
}

// Setup registers every route on r. ctx bounds background work started by
// middleware.
func Setup(ctx context.Context, r chi.Router, d Deps) {
	r.Use(chimw.RequestID)
	r.Use(middleware.Session(d.Secret, d.Revocations))
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	if len(d.AllowedOrigins) > 0 {
		r.Use(middleware.CSRF(d.AllowedOrigins))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Get("/", d.Auth.HandleHome)
	r.Get("/login", d.Auth.HandleLoginPage)
	r.Get("/signup", d.Auth.HandleSignupPage)
	r.Get("/security-question", d.Auth.HandleSecurityQuestionPage)
	r.Get("/forgot-password", d.Auth.HandleForgotPasswordPage)
	r.Get("/logout", d.Auth.HandleLogout)

	r.Get("/post/{id}", d.Posts.HandlePost)
	r.Get("/find-ride", d.Posts.HandleFindRide)
	r.Get("/ride-details/{id}", d.Posts.HandleRideDetails)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, d.RateLimit.RPS, d.RateLimit.Burst))
		r.Post("/login", d.Auth.HandleLogin)
		r.Post("/register", d.Auth.HandleRegister)
		r.Post("/security-question", d.Auth.HandleSecurityQuestion)
		r.Post("/forgot-password", d.Auth.HandleForgotPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthenticated)
		r.Get("/dashboard", d.Posts.HandleDashboard)
		r.Get("/create-post", d.Posts.HandleCreatePostPage)
		r.Post("/create-post", d.Posts.HandleCreatePost)
		r.Get("/edit-post/{id}", d.Posts.HandleEditPostPage)
		r.Post("/edit-post/{id}", d.Posts.HandleEditPost)
		r.Post("/delete-post/{id}", d.Posts.HandleDeletePost)
		r.Post("/flag/{id}", d.Posts.HandleFlag)
		r.Post("/request-to-join", d.Posts.HandleRequestToJoin)

		r.Get("/settings", d.Settings.HandleSettings)
		r.Get("/edit-settings", d.Settings.HandleEditSettingsPage)
		r.Post("/edit-settings", d.Settings.HandleEditSettings)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/admin", d.Admin.HandleAdmin)
		r.Post("/admin/approve/{id}", d.Admin.HandleApprove)
		r.Post("/admin/delete/{id}", d.Admin.HandleDelete)
		r.Post("/admin/dismiss/{id}", d.Admin.HandleDismiss)
	})
}
