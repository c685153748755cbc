package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ridepool/ridepool-go/internal/middleware"
	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/service"
	"github.com/ridepool/ridepool-go/internal/view"
)

// PostHandler handles ride post pages.
type PostHandler struct {
	pages
	service *service.PostService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(svc *service.PostService, renderer view.Renderer) *PostHandler {
	return &PostHandler{pages: pages{renderer: renderer}, service: svc}
}

// HandleDashboard handles GET /dashboard requests.
func (h *PostHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	posts, err := h.service.ListByAuthor(r.Context(), identity.UserID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.Dashboard, view.Page{Posts: posts})
}

// HandleCreatePostPage handles GET /create-post requests.
func (h *PostHandler) HandleCreatePostPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.CreatePost, view.Page{Form: model.PostForm{}})
}

// HandleCreatePost handles POST /create-post requests.
func (h *PostHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	form := postForm(r)
	post, err := h.service.Create(r.Context(), middleware.IdentityFromContext(r.Context()), form)
	if err != nil {
		if msgs := service.Messages(err); msgs != nil {
			h.render(w, r, http.StatusUnprocessableEntity, view.CreatePost, view.Page{Errors: msgs, Form: form})
			return
		}
		h.fail(w, r, err)
		return
	}

	postEventsTotal.WithLabelValues("created").Inc()
	redirect(w, r, postURL(post.ID))
}

// HandleEditPostPage handles GET /edit-post/{id} requests.
func (h *PostHandler) HandleEditPostPage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		redirect(w, r, "/")
		return
	}

	post, err := h.service.GetForEdit(r.Context(), middleware.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.EditPost, view.Page{Post: post, Form: model.FormFromPost(post)})
}

// HandleEditPost handles POST /edit-post/{id} requests.
func (h *PostHandler) HandleEditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		redirect(w, r, "/")
		return
	}
	if !parseForm(w, r) {
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	form := postForm(r)
	post, err := h.service.Update(r.Context(), identity, id, form)
	if err != nil {
		if msgs := service.Messages(err); msgs != nil {
			existing, loadErr := h.service.GetForEdit(r.Context(), identity, id)
			if loadErr != nil {
				h.fail(w, r, loadErr)
				return
			}
			h.render(w, r, http.StatusUnprocessableEntity, view.EditPost, view.Page{Errors: msgs, Post: existing, Form: form})
			return
		}
		h.fail(w, r, err)
		return
	}

	postEventsTotal.WithLabelValues("updated").Inc()
	redirect(w, r, postURL(post.ID))
}

// HandleDeletePost handles POST /delete-post/{id} requests.
func (h *PostHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		redirect(w, r, "/")
		return
	}

	if err := h.service.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}

	postEventsTotal.WithLabelValues("deleted").Inc()
	redirect(w, r, "/")
}

// HandlePost handles GET /post/{id} requests.
func (h *PostHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, view.PostDetail)
}

// HandleRideDetails handles GET /ride-details/{id} requests.
func (h *PostHandler) HandleRideDetails(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, view.RideDetails)
}

// HandleFindRide handles GET /find-ride requests.
func (h *PostHandler) HandleFindRide(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.FindRide, view.Page{Posts: posts})
}

// HandleFlag handles POST /flag/{id} requests.
func (h *PostHandler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		redirect(w, r, "/")
		return
	}

	if err := h.service.Flag(r.Context(), middleware.IdentityFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}

	postEventsTotal.WithLabelValues("flagged").Inc()
	redirect(w, r, "/find-ride")
}

// HandleRequestToJoin handles POST /request-to-join requests.
func (h *PostHandler) HandleRequestToJoin(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	id, ok := parseID(r.PostFormValue("post_id"))
	if !ok {
		redirect(w, r, "/")
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	err := h.service.RequestToJoin(r.Context(), identity, id)
	if err != nil && service.Messages(err) == nil {
		h.fail(w, r, err)
		return
	}

	detail, loadErr := h.service.Get(r.Context(), identity, id)
	if loadErr != nil {
		h.fail(w, r, loadErr)
		return
	}

	page := view.Page{
		Post:         detail.Post,
		IsAuthor:     detail.IsAuthor,
		JoinRequests: detail.JoinRequests,
		Errors:       service.Messages(err),
	}
	status := http.StatusUnprocessableEntity
	if err == nil {
		joinRequestsTotal.Inc()
		page.Notice = "Your request to join this ride has been sent."
		status = http.StatusOK
	}
	h.render(w, r, status, view.RideDetails, page)
}

func (h *PostHandler) show(w http.ResponseWriter, r *http.Request, name string) {
	id, ok := urlID(r)
	if !ok {
		redirect(w, r, "/")
		return
	}

	detail, err := h.service.Get(r.Context(), middleware.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, name, view.Page{
		Post:         detail.Post,
		IsAuthor:     detail.IsAuthor,
		JoinRequests: detail.JoinRequests,
	})
}

// fail redirects home when the post cannot be acted on and reports anything
// else as a server error.
func (h *PostHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if isPostRejection(err) {
		redirect(w, r, "/")
		return
	}
	serverError(w, r, err)
}

// isPostRejection reports whether err means the post is missing, not the
// viewer's, or not in a status that allows the action.
func isPostRejection(err error) bool {
	return errors.Is(err, service.ErrPostNotFound) ||
		errors.Is(err, service.ErrForbidden) ||
		errors.Is(err, model.ErrInvalidTransition)
}

func postForm(r *http.Request) model.PostForm {
	return model.PostForm{
		RideTo:   r.PostFormValue("rideTo"),
		RideFrom: r.PostFormValue("rideFrom"),
		RideDate: r.PostFormValue("rideDate"),
		RideTime: r.PostFormValue("rideTime"),
		Fare:     r.PostFormValue("fare"),
	}
}

func postURL(id int64) string {
	return "/post/" + strconv.FormatInt(id, 10)
}
