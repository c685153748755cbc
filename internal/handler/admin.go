package handler

import (
	"context"
	"net/http"

	"github.com/ridepool/ridepool-go/internal/middleware"
	"github.com/ridepool/ridepool-go/internal/model"
	"github.com/ridepool/ridepool-go/internal/service"
	"github.com/ridepool/ridepool-go/internal/view"
)

// AdminHandler handles the moderation pages.
type AdminHandler struct {
	pages
	service *service.PostService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.PostService, renderer view.Renderer) *AdminHandler {
	return &AdminHandler{pages: pages{renderer: renderer}, service: svc}
}

// HandleAdmin handles GET /admin requests.
func (h *AdminHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	flagged, err := h.service.ListFlagged(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.Admin, view.Page{Flagged: flagged, Posts: posts})
}

// HandleApprove handles POST /admin/approve/{id} requests.
func (h *AdminHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "approved", h.service.Approve)
}

// HandleDismiss handles POST /admin/dismiss/{id} requests.
func (h *AdminHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "dismissed", h.service.Dismiss)
}

// HandleDelete handles POST /admin/delete/{id} requests.
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "admin_deleted", h.service.AdminDelete)
}

type moderation func(ctx context.Context, viewer model.Identity, id int64) error

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, event string, action moderation) {
	id, ok := urlID(r)
	if !ok {
		redirect(w, r, "/admin")
		return
	}

	if err := action(r.Context(), middleware.IdentityFromContext(r.Context()), id); err != nil {
		if isPostRejection(err) {
			redirect(w, r, "/admin")
			return
		}
		serverError(w, r, err)
		return
	}

	postEventsTotal.WithLabelValues(event).Inc()
	redirect(w, r, "/admin")
}
