// Package handlers contains the HTTP handler implementations for the
// QRFeedback API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"qrfeedback/internal/core"
	"qrfeedback/internal/qr"
	"qrfeedback/internal/types"
)

// --- Service Interfaces ---
//
// Handler dependencies are defined as local interfaces so each handler is
// testable against mocks and decoupled from concrete implementations.

// FormRepo defines the data access contract for form reads and the builder
// save. Mirrors the concrete db.FormRepository methods used by this handler.
type FormRepo interface {
	GetByID(ctx context.Context, id, userID string) (*types.Form, error)
	ListByUser(ctx context.Context, userID string) ([]types.Form, error)
	Update(ctx context.Context, form *types.Form) error
}

// FormMutator routes form creation and deletion through the dashboard's
// optimistic cache. Implemented by dashboard.Service.
type FormMutator interface {
	CreateForm(ctx context.Context, form types.Form) error
	DeleteForm(ctx context.Context, userID, formID string) error
}

// FormLimitChecker enforces the plan's form ceiling before creation.
type FormLimitChecker interface {
	CheckFormLimit(ctx context.Context, userID string) error
}

// --- Request Models ---

// CreateFormRequest is the request body for POST /v1/forms. New forms start
// with an empty question list; questions are added through the builder save.
type CreateFormRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// UpdateFormRequest is the request body for PUT /v1/forms/{id}: the builder
// save. The question list is replaced wholesale; last write wins, there is
// no version check.
type UpdateFormRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description,omitempty" validate:"max=2000"`
	Questions   []types.Question `json:"questions"`
}

// QRPayloadResponse is the body for GET /v1/forms/{id}/qr.
type QRPayloadResponse struct {
	Payload string `json:"payload"`
}

// --- Handler ---

// FormHandler manages the owner-facing form CRUD surface.
type FormHandler struct {
	repo       FormRepo
	mutator    FormMutator
	limits     FormLimitChecker
	validator  *core.Validator
	logger     *slog.Logger
	appBaseURL string
}

// NewFormHandler creates a new FormHandler with the provided dependencies.
func NewFormHandler(
	repo FormRepo,
	mutator FormMutator,
	limits FormLimitChecker,
	v *core.Validator,
	l *slog.Logger,
	appBaseURL string,
) *FormHandler {
	if l == nil {
		l = slog.Default()
	}
	return &FormHandler{
		repo:       repo,
		mutator:    mutator,
		limits:     limits,
		validator:  v,
		logger:     l,
		appBaseURL: appBaseURL,
	}
}

// RegisterRoutes mounts form routes on the provided chi.Router.
func (h *FormHandler) RegisterRoutes(r chi.Router) {
	r.Route("/forms", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/qr", h.QRPayload)
		})
	})
}

// Create handles POST /v1/forms.
//
//  1. Decode and validate the request.
//  2. Enforce the plan's form limit (denial happens before any write).
//  3. Persist through the optimistic cache.
//  4. Return 201 Created with the new form.
func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	var req CreateFormRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.limits.CheckFormLimit(r.Context(), actor.UserID); err != nil {
		core.Error(w, r, err)
		return
	}

	form := types.Form{
		ID:          "form_" + uuid.New().String(),
		UserID:      actor.UserID,
		Title:       req.Title,
		Description: req.Description,
		Questions:   types.QuestionList{},
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.mutator.CreateForm(r.Context(), form); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: form})
}

// List handles GET /v1/forms. Forms are returned newest first.
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	forms, err := h.repo.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: forms})
}

// Get handles GET /v1/forms/{id}. A form owned by someone else yields the
// same not-found response as a missing form.
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	form, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: form})
}

// Update handles PUT /v1/forms/{id}: the builder save. The title,
// description, and full question list are replaced. Questions without an ID
// are new and get a server-generated one; the whole list is then validated
// as a unit.
func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	var req UpdateFormRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	questions := make(types.QuestionList, len(req.Questions))
	for i, q := range req.Questions {
		if q.ID == "" {
			q.ID = "q_" + uuid.New().String()
		}
		questions[i] = q
	}
	if err := types.ValidateQuestions(questions); err != nil {
		core.Error(w, r, err)
		return
	}

	form, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	form.Title = req.Title
	form.Description = req.Description
	form.Questions = questions

	if err := h.repo.Update(r.Context(), form); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: form})
}

// Delete handles DELETE /v1/forms/{id}. The delete is applied to the cached
// dashboard list before the database confirms it; a failed delete rolls the
// cache back and surfaces the error.
func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	if err := h.mutator.DeleteForm(r.Context(), actor.UserID, chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QRPayload handles GET /v1/forms/{id}/qr. Returns the respondent URL that
// the client renders into a QR image.
func (h *FormHandler) QRPayload(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	form, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: QRPayloadResponse{Payload: qr.Payload(form.ID, h.appBaseURL)},
	})
}
