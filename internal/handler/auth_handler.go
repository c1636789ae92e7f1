package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"fe-v2/internal/container"
	"fe-v2/internal/domain"
	"fe-v2/internal/middleware"
	"fe-v2/internal/service/callback"
	"fe-v2/pkg/errors"
)

// AuthHandler handles the login, callback and logout routes
type AuthHandler struct {
	container *container.Container
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(container *container.Container) *AuthHandler {
	return &AuthHandler{
		container: container,
	}
}

// LoginPage handles GET /login. A signed-in user goes straight to the landing
// route.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	cfg := h.container.GetConfig()
	snap := h.container.GetSessionService().Snapshot()

	if snap.AuthReady && snap.IsAuthenticated {
		http.Redirect(w, r, cfg.LandingPath, http.StatusFound)
		return
	}

	renderPage(w, http.StatusOK, loginTemplate, map[string]string{
		"StartPath": cfg.LoginPath + "/start",
		"From":      r.URL.Query().Get("from"),
	}, h.container.GetLogger())
}

// StartLogin handles GET /login/start by sending the user agent to the
// identity provider
func (h *AuthHandler) StartLogin(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	target, err := h.container.GetLoginService().AuthorizationURL(r.Context())
	if err != nil {
		logger.WithError(err).Error("Failed to start login")
		writeErrorResponse(w, r, errors.NewInternalError("Failed to start login", err), logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles the identity provider redirect. Every outcome is a
// redirect; failures never reach the user as an error page.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger().WithField("request_id", middleware.GetRequestID(r.Context()))
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		logger.WithFields(map[string]interface{}{
			"error":             providerErr,
			"error_description": q.Get("error_description"),
		}).Warn("Identity provider returned an error")
	}

	out, err := h.container.GetCallbackService().Run(r.Context(), callback.Params{
		Code:  q.Get("code"),
		State: q.Get("state"),
	})
	if err != nil {
		// every call gets a fresh flow; this is a sequencing bug
		logger.WithError(err).Error("Callback flow did not run")
		out.Target = h.container.GetConfig().LoginPath
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, out.Target, http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	if err := h.container.GetSessionService().Clear(r.Context()); err != nil {
		logger.WithError(err).Warn("Session cleared locally but storage delete failed")
	}

	http.Redirect(w, r, h.container.GetConfig().LoginPath, http.StatusSeeOther)
}

// SessionResponse represents the session state response
type SessionResponse struct {
	User            *domain.UserProfile `json:"user"`
	IsAuthenticated bool                `json:"is_authenticated"`
	AuthReady       bool                `json:"auth_ready"`
	Timestamp       time.Time           `json:"timestamp"`
}

// Session handles GET /api/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()
	snap := h.container.GetSessionService().Snapshot()

	response := SessionResponse{
		User:            snap.User,
		IsAuthenticated: snap.IsAuthenticated,
		AuthReady:       snap.AuthReady,
		Timestamp:       time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode session response")
	}
}

// APINotFound answers unknown /api routes with a JSON error instead of the HTML page
func (h *AuthHandler) APINotFound(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewNotFoundError("no such endpoint").WithDetail("path", r.URL.Path)
	writeErrorResponse(w, r, appErr, h.container.GetLogger())
}
