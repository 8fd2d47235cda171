package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrfeedback/internal/billing"
	"qrfeedback/internal/core"
	"qrfeedback/internal/types"
)

// ProfileGetter fetches the caller's profile.
// Implemented by db.ProfileRepository.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*types.Profile, error)
}

// ProfileView is the profile payload plus the catalog display name of the
// plan, so clients render "Pro" without duplicating catalog data.
type ProfileView struct {
	*types.Profile
	PlanName string `json:"plan_name"`
}

// ProfileHandler serves the account profile.
type ProfileHandler struct {
	profiles ProfileGetter
	catalog  billing.Catalog
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler with the provided
// dependencies.
func NewProfileHandler(profiles ProfileGetter, catalog billing.Catalog, l *slog.Logger) *ProfileHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ProfileHandler{profiles: profiles, catalog: catalog, logger: l}
}

// RegisterRoutes mounts profile routes on the provided chi.Router.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.Get)
}

// Get handles GET /v1/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: ProfileView{
		Profile:  profile,
		PlanName: billing.FormatPlanName(h.catalog, profile.Plan),
	}})
}
