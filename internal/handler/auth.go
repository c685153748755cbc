package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ridepool/ridepool-go/internal/middleware"
	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/service"
	"github.com/ridepool/ridepool-go/internal/view"
)

// AuthHandler handles sign-in, sign-up and password recovery pages.
type AuthHandler struct {
	pages
	service *service.AuthService
	posts   *service.PostService
	cookies Cookies
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, posts *service.PostService, renderer view.Renderer, cookies Cookies) *AuthHandler {
	return &AuthHandler{
		pages:   pages{renderer: renderer},
		service: svc,
		posts:   posts,
		cookies: cookies,
	}
}

// HandleHome handles GET / requests. Signed-in users see their own posts.
func (h *AuthHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if !identity.IsAuthenticated() {
		h.render(w, r, http.StatusOK, view.Home, view.Page{})
		return
	}

	posts, err := h.posts.ListByAuthor(r.Context(), identity.UserID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.Dashboard, view.Page{Posts: posts})
}

// HandleLoginPage handles GET /login requests.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Login, view.Page{Form: model.LoginForm{}})
}

// HandleLogin handles POST /login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	form := model.LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	session, err := h.service.Login(r.Context(), form)
	if err != nil {
		if msgs := service.Messages(err); msgs != nil {
			loginsTotal.WithLabelValues("failure").Inc()
			form.Password = ""
			h.render(w, r, http.StatusUnprocessableEntity, view.Login, view.Page{Errors: msgs, Form: form})
			return
		}
		serverError(w, r, err)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	h.cookies.setSession(w, session.Token, session.ExpiresAt)
	if session.IsAdmin {
		redirect(w, r, "/admin")
		return
	}
	redirect(w, r, "/")
}

// HandleSignupPage handles GET /signup requests.
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Signup, view.Page{Form: model.RegisterForm{}})
}

// HandleRegister handles POST /register requests. It stages the sign-up and
// moves on to the security question.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	form := model.RegisterForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	pending, err := h.service.BeginRegistration(r.Context(), form)
	if err != nil {
		if msgs := service.Messages(err); msgs != nil {
			form.Password, form.ConfirmPassword = "", ""
			h.render(w, r, http.StatusUnprocessableEntity, view.Signup, view.Page{Errors: msgs, Form: form})
			return
		}
		serverError(w, r, err)
		return
	}

	h.cookies.setPending(w, pending.Token, pending.ExpiresAt)
	redirect(w, r, "/security-question")
}

// HandleSecurityQuestionPage handles GET /security-question requests.
func (h *AuthHandler) HandleSecurityQuestionPage(w http.ResponseWriter, r *http.Request) {
	username, err := h.service.PendingUsername(pendingToken(r))
	if err != nil {
		h.cookies.clearPending(w)
		redirect(w, r, "/signup")
		return
	}
	h.render(w, r, http.StatusOK, view.SecurityQuestion, view.Page{PendingUsername: username})
}

// HandleSecurityQuestion handles POST /security-question requests. It creates
// the account and signs the new user in.
func (h *AuthHandler) HandleSecurityQuestion(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	token := pendingToken(r)
	session, err := h.service.CompleteRegistration(r.Context(), token, r.PostFormValue("answer"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationExpired):
			h.cookies.clearPending(w)
			redirect(w, r, "/signup")
		case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
			h.cookies.clearPending(w)
			h.render(w, r, http.StatusConflict, view.Signup, view.Page{Errors: service.Messages(err), Form: model.RegisterForm{}})
		case service.Messages(err) != nil:
			username, _ := h.service.PendingUsername(token)
			h.render(w, r, http.StatusUnprocessableEntity, view.SecurityQuestion, view.Page{Errors: service.Messages(err), PendingUsername: username})
		default:
			serverError(w, r, err)
		}
		return
	}

	registrationsTotal.Inc()
	h.cookies.clearPending(w)
	h.cookies.setSession(w, session.Token, session.ExpiresAt)
	redirect(w, r, "/")
}

// HandleForgotPasswordPage handles GET /forgot-password requests.
func (h *AuthHandler) HandleForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.ForgotPassword, view.Page{Form: model.ForgotPasswordForm{}})
}

// HandleForgotPassword handles POST /forgot-password requests.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	form := model.ForgotPasswordForm{
		Username:        r.PostFormValue("username"),
		SecurityAnswer:  r.PostFormValue("answer"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	if err := h.service.ResetPassword(r.Context(), form); err != nil {
		if msgs := service.Messages(err); msgs != nil {
			passwordResetsTotal.WithLabelValues("failure").Inc()
			h.render(w, r, http.StatusUnprocessableEntity, view.ForgotPassword, view.Page{
				Errors: msgs,
				Form:   model.ForgotPasswordForm{Username: form.Username},
			})
			return
		}
		serverError(w, r, err)
		return
	}

	passwordResetsTotal.WithLabelValues("success").Inc()
	h.render(w, r, http.StatusOK, view.Login, view.Page{
		Notice: "Your password has been reset. Please log in.",
		Form:   model.LoginForm{Username: form.Username},
	})
}

// HandleLogout handles GET /logout requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if err := h.service.Logout(r.Context(), identity); err != nil {
		slog.Warn("session revocation failed", "user_id", identity.UserID, "error", err)
	}
	h.cookies.clearSession(w)
	redirect(w, r, "/")
}

func pendingToken(r *http.Request) string {
	cookie, err := r.Cookie(PendingCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
