// Package handler contains the HTTP handlers of the wellness tracker.
//
// Two kinds of routes exist:
//
//	pages (GET /, POST /register, GET /dashboard) render HTML or redirect
//	actions (POST /complete_task, ...) take and return JSON
//
// Handlers parse the request, call the service, and translate the result.
// Points, unlocks and sessions are the service's business.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/auth"
	"github.com/sakif/wellness-tracker/internal/model"
	"github.com/sakif/wellness-tracker/internal/service"
)

// Wellness is the service surface the handlers use.
type Wellness interface {
	Avatars() []model.Avatar
	LoggedIn(ctx context.Context, sessionID string) (bool, error)
	Register(ctx context.Context, sessionID string, form service.Registration) (*model.UserRecord, error)
	Dashboard(ctx context.Context, sessionID string) (*service.DashboardView, error)
	CompleteTask(ctx context.Context, sessionID string, taskID, minutes int) (*service.TaskResult, error)
	CompleteStudy(ctx context.Context, sessionID string, minutes int) (int, error)
	StopStudy(ctx context.Context, sessionID string) (int, error)
	UpdateMostUsedApp(ctx context.Context, sessionID, appName string) (int, error)
	ChangeAvatar(ctx context.Context, sessionID string, avatarID int) error
	Ping(ctx context.Context) error
}

// LoginPage is the data handed to the login template.
type LoginPage struct {
	Title   string
	Avatars []model.Avatar
}

// DashboardPage is the data handed to the dashboard template.
type DashboardPage struct {
	Title string
	*service.DashboardView
}

// PageHandler serves the HTML pages.
type PageHandler struct {
	svc      Wellness
	renderer Renderer
	logger   *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc Wellness, renderer Renderer, logger *slog.Logger) *PageHandler {
	return &PageHandler{svc: svc, renderer: renderer, logger: logger}
}

// HandleIndex shows the registration form with the avatar catalog.
//
// HTTP: GET /
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, PageLogin, LoginPage{
		Title:   "Wellness Tracker",
		Avatars: h.svc.Avatars(),
	})
}

// HandleRegister creates the session's user record from the form.
//
// HTTP: POST /register
//
// Success redirects to the dashboard. A missing field redirects back to the
// form; whatever was typed is discarded.
func (h *PageHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := auth.SessionIDFromContext(r.Context())

	_, err := h.svc.Register(r.Context(), sessionID, registrationForm(r))
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// HandleDashboard renders the user's progress. Without a registered user it
// quietly redirects to the form.
//
// HTTP: GET /dashboard
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := auth.SessionIDFromContext(r.Context())

	view, err := h.svc.Dashboard(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, PageDashboard, DashboardPage{
		Title:         "Dashboard - Wellness Tracker",
		DashboardView: view,
	})
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, page, data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
