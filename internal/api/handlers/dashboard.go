package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrfeedback/internal/core"
	"qrfeedback/internal/dashboard"
)

// SnapshotLoader assembles the combined dashboard payload.
// Implemented by dashboard.Service.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, userID string) (*dashboard.Snapshot, error)
}

// DashboardHandler serves the owner's landing view.
type DashboardHandler struct {
	snapshots SnapshotLoader
	logger    *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler with the provided
// dependencies.
func NewDashboardHandler(snapshots SnapshotLoader, l *slog.Logger) *DashboardHandler {
	if l == nil {
		l = slog.Default()
	}
	return &DashboardHandler{snapshots: snapshots, logger: l}
}

// RegisterRoutes mounts dashboard routes on the provided chi.Router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Get)
}

// Get handles GET /v1/dashboard. The profile and forms list are fetched in
// parallel; a slow read gets one retry before the request fails.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	snap, err := h.snapshots.Snapshot(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snap})
}
