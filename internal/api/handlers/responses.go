package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"

	"qrfeedback/internal/core"
	"qrfeedback/internal/export"
	"qrfeedback/internal/types"
)

// OwnedFormGetter fetches a form scoped to its owner.
type OwnedFormGetter interface {
	GetByID(ctx context.Context, id, userID string) (*types.Form, error)
}

// ResponseLister returns a form's responses, newest first.
type ResponseLister interface {
	ListByForm(ctx context.Context, formID string) ([]types.Response, error)
}

// ResponseHandler serves the owner-facing response views: the raw list and
// the CSV export.
type ResponseHandler struct {
	forms     OwnedFormGetter
	responses ResponseLister
	logger    *slog.Logger
}

// NewResponseHandler creates a new ResponseHandler with the provided
// dependencies.
func NewResponseHandler(forms OwnedFormGetter, responses ResponseLister, l *slog.Logger) *ResponseHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ResponseHandler{
		forms:     forms,
		responses: responses,
		logger:    l,
	}
}

// RegisterRoutes mounts response routes under the form subtree.
func (h *ResponseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/forms/{id}/responses", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/export", h.Export)
	})
}

// List handles GET /v1/forms/{id}/responses. Ownership is checked by
// fetching the form first; a not-owned form yields not-found before any
// responses are read.
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	form, err := h.forms.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	responses, err := h.responses.ListByForm(r.Context(), form.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: responses})
}

// Export handles GET /v1/forms/{id}/responses/export: the CSV download.
// The body is gzip-compressed when the client advertises support.
func (h *ResponseHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := core.RequireActor(w, r)
	if !ok {
		return
	}

	form, err := h.forms.GetByID(r.Context(), chi.URLParam(r, "id"), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	responses, err := h.responses.ListByForm(r.Context(), form.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	doc := export.CSV(form, responses)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(form.Title)+`"`)

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		gz := gzip.NewWriter(w)
		if _, err := gz.Write([]byte(doc)); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to write gzipped export",
				"form_id", form.ID,
				"error", err,
			)
		}
		if err := gz.Close(); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to flush gzipped export",
				"form_id", form.ID,
				"error", err,
			)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write export",
			"form_id", form.ID,
			"error", err,
		)
	}
}
