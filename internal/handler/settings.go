package handler

import (
	"errors"
	"net/http"

	"github.com/ridepool/ridepool-go/internal/middleware"
	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/service"
	"github.com/ridepool/ridepool-go/internal/view"
)

// SettingsHandler handles the account settings pages.
type SettingsHandler struct {
	pages
	service *service.AuthService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc *service.AuthService, renderer view.Renderer) *SettingsHandler {
	return &SettingsHandler{pages: pages{renderer: renderer}, service: svc}
}

// HandleSettings handles GET /settings requests.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, view.Settings, view.Page{User: user})
}

// HandleEditSettingsPage handles GET /edit-settings requests.
func (h *SettingsHandler) HandleEditSettingsPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, view.EditSettings, view.Page{User: user, Form: model.SettingsForm{Email: user.Email}})
}

// HandleEditSettings handles POST /edit-settings requests.
func (h *SettingsHandler) HandleEditSettings(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	form := model.SettingsForm{
		Email:          r.PostFormValue("email"),
		SecurityAnswer: r.PostFormValue("answer"),
	}

	if err := h.service.UpdateSettings(r.Context(), identity.UserID, form); err != nil {
		if msgs := service.Messages(err); msgs != nil {
			user, ok := h.currentUser(w, r)
			if !ok {
				return
			}
			h.render(w, r, http.StatusUnprocessableEntity, view.EditSettings, view.Page{
				Errors: msgs,
				User:   user,
				Form:   model.SettingsForm{Email: form.Email},
			})
			return
		}
		serverError(w, r, err)
		return
	}

	redirect(w, r, "/settings")
}

// currentUser loads the signed-in user. A session for a user that no longer
// exists goes home.
func (h *SettingsHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			redirect(w, r, "/")
			return nil, false
		}
		serverError(w, r, err)
		return nil, false
	}
	return user, true
}
