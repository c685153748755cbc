// Package view defines the rendering context handed to page templates.
package view

import (
	"net/http"

	"github.com/ridepool/ridepool-go/internal/model"
)

// Page names.
const (
	Home             = "home"
	Login            = "login"
	Signup           = "signup"
	SecurityQuestion = "security-question"
	ForgotPassword   = "forgot-password"
	Dashboard        = "dashboard"
	CreatePost       = "create-post"
	EditPost         = "edit-post"
	PostDetail       = "post"
	FindRide         = "find-ride"
	RideDetails      = "ride-details"
	Settings         = "settings"
	EditSettings     = "edit-settings"
	Admin            = "admin"
)

// Page is everything a template may show. Handlers fill only the fields a
// page needs.
type Page struct {
	Title    string
	Identity model.Identity
	Errors   []string
	Notice   string

	Form any

	Posts        []model.Post
	Flagged      []model.Post
	Post         *model.Post
	IsAuthor     bool
	JoinRequests []model.JoinRequest

	User            *model.User
	PendingUsername string
}

// Renderer writes a named page with the given status.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page Page) error
}
