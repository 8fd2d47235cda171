package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"qrfeedback/internal/core"
	"qrfeedback/internal/types"
)

// PublicFormGetter fetches a form without owner scoping, for respondents.
type PublicFormGetter interface {
	GetPublic(ctx context.Context, id string) (*types.Form, error)
}

// ResponseCreator persists a validated submission.
type ResponseCreator interface {
	Create(ctx context.Context, resp *types.Response) error
}

// ResponseLimitChecker enforces the form owner's monthly response ceiling.
type ResponseLimitChecker interface {
	CheckResponseLimit(ctx context.Context, ownerID string) error
}

// PublicForm is the respondent-facing view of a form. The owner's identity
// stays private.
type PublicForm struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Questions   types.QuestionList `json:"questions"`
}

// SubmitFeedbackRequest is the request body for POST /v1/feedback/{formID}.
type SubmitFeedbackRequest struct {
	Answers types.AnswerList `json:"answers"`
}

// FeedbackHandler serves the public respondent surface: fetching a form by
// its QR link and submitting a response. Neither operation is authenticated;
// holding the form ID is the only credential.
type FeedbackHandler struct {
	forms     PublicFormGetter
	responses ResponseCreator
	limits    ResponseLimitChecker
	logger    *slog.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler with the provided
// dependencies.
func NewFeedbackHandler(
	forms PublicFormGetter,
	responses ResponseCreator,
	limits ResponseLimitChecker,
	l *slog.Logger,
) *FeedbackHandler {
	if l == nil {
		l = slog.Default()
	}
	return &FeedbackHandler{
		forms:     forms,
		responses: responses,
		limits:    limits,
		logger:    l,
	}
}

// RegisterRoutes mounts the public feedback routes.
func (h *FeedbackHandler) RegisterRoutes(r chi.Router) {
	r.Route("/feedback/{formID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/", h.Submit)
	})
}

// Get handles GET /v1/feedback/{formID}.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.GetPublic(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: PublicForm{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		Questions:   form.Questions,
	}})
}

// Submit handles POST /v1/feedback/{formID}.
//
//  1. Fetch the form.
//  2. Validate the submission: every question answered with a type-correct
//     value, no unknown question references. Validation failures never reach
//     the database.
//  3. Enforce the owner's monthly response limit (denial before the write).
//  4. Persist and return 201 Created.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitFeedbackRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	form, err := h.forms.GetPublic(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := types.ValidateSubmission(form, req.Answers); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.limits.CheckResponseLimit(r.Context(), form.UserID); err != nil {
		core.Error(w, r, err)
		return
	}

	resp := &types.Response{
		ID:          "resp_" + uuid.New().String(),
		FormID:      form.ID,
		Answers:     req.Answers,
		SubmittedAt: time.Now().UTC(),
	}

	if err := h.responses.Create(r.Context(), resp); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: resp})
}
