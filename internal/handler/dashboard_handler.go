package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fe-v2/internal/container"
	"fe-v2/internal/middleware"
)

// DashboardHandler serves the protected pages
type DashboardHandler struct {
	container *container.Container
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(container *container.Container) *DashboardHandler {
	return &DashboardHandler{
		container: container,
	}
}

type dashboardView struct {
	Identity   string
	LogoutPath string
	ProjectID  string
}

// Show handles GET / and the landing route. It expects RouteGuard in front.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, dashboardTemplate, h.view(r, ""), h.container.GetLogger())
}

// Project handles GET /project/{id}
func (h *DashboardHandler) Project(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, dashboardTemplate, h.view(r, chi.URLParam(r, "id")), h.container.GetLogger())
}

func (h *DashboardHandler) view(r *http.Request, projectID string) dashboardView {
	user := middleware.GetUser(r.Context())
	return dashboardView{
		// name first, then email, as the header always showed
		Identity:   user.DisplayName(),
		LogoutPath: "/logout",
		ProjectID:  projectID,
	}
}

// NotFound renders the 404 page
func (h *DashboardHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusNotFound, notFoundTemplate, map[string]string{
		"Path": r.URL.Path,
		"Home": "/",
	}, h.container.GetLogger())
}
