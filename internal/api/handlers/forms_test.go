package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrfeedback/internal/core"
	"qrfeedback/internal/types"
)

// =============================================================================
// Mock Implementations for Form Handler
// =============================================================================

type mockFormRepo struct {
	getByIDFn    func(ctx context.Context, id, userID string) (*types.Form, error)
	listByUserFn func(ctx context.Context, userID string) ([]types.Form, error)
	updateFn     func(ctx context.Context, form *types.Form) error

	lastUpdated *types.Form
}

func (m *mockFormRepo) GetByID(ctx context.Context, id, userID string) (*types.Form, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, userID)
	}
	return &types.Form{
		ID:     id,
		UserID: userID,
		Title:  "Coffee Shop Feedback",
		Questions: types.QuestionList{
			{ID: "q_1", Type: types.QuestionRating, Text: "How was your visit?"},
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *mockFormRepo) ListByUser(ctx context.Context, userID string) ([]types.Form, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []types.Form{}, nil
}

func (m *mockFormRepo) Update(ctx context.Context, form *types.Form) error {
	m.lastUpdated = form
	if m.updateFn != nil {
		return m.updateFn(ctx, form)
	}
	return nil
}

type mockFormMutator struct {
	createFormFn func(ctx context.Context, form types.Form) error
	deleteFormFn func(ctx context.Context, userID, formID string) error

	lastCreated *types.Form
	deleteCalls []string
}

func (m *mockFormMutator) CreateForm(ctx context.Context, form types.Form) error {
	m.lastCreated = &form
	if m.createFormFn != nil {
		return m.createFormFn(ctx, form)
	}
	return nil
}

func (m *mockFormMutator) DeleteForm(ctx context.Context, userID, formID string) error {
	m.deleteCalls = append(m.deleteCalls, formID)
	if m.deleteFormFn != nil {
		return m.deleteFormFn(ctx, userID, formID)
	}
	return nil
}

type mockFormLimits struct {
	checkFormLimitFn func(ctx context.Context, userID string) error
	checkCalls       int
}

func (m *mockFormLimits) CheckFormLimit(ctx context.Context, userID string) error {
	m.checkCalls++
	if m.checkFormLimitFn != nil {
		return m.checkFormLimitFn(ctx, userID)
	}
	return nil
}

// =============================================================================
// Test Helper
// =============================================================================

func newTestFormHandler() (*FormHandler, *mockFormRepo, *mockFormMutator, *mockFormLimits) {
	repo := &mockFormRepo{}
	mutator := &mockFormMutator{}
	limits := &mockFormLimits{}

	logger := slogDiscard()
	handler := NewFormHandler(repo, mutator, limits, core.NewValidator(logger), logger, "https://qrfeedback.ai")

	return handler, repo, mutator, limits
}

func contextWithActor(userID string) context.Context {
	return types.WithActor(context.Background(), types.Actor{
		UserID: userID,
		Email:  "owner@example.com",
	})
}

// =============================================================================
// Create Tests
// =============================================================================

func TestFormHandler_Create_Success(t *testing.T) {
	handler, _, mutator, limits := newTestFormHandler()

	body, err := json.Marshal(CreateFormRequest{
		Title:       "Coffee Shop Feedback",
		Description: "Tell us how we did",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/forms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, limits.checkCalls)

	created := mutator.lastCreated
	require.NotNil(t, created)
	assert.Equal(t, "user_1", created.UserID)
	assert.Equal(t, "Coffee Shop Feedback", created.Title)
	assert.Contains(t, created.ID, "form_")
	assert.NotNil(t, created.Questions)
	assert.Empty(t, created.Questions)
}

func TestFormHandler_Create_MissingTitle(t *testing.T) {
	handler, _, mutator, _ := newTestFormHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/forms", bytes.NewReader([]byte(`{"description":"no title"}`)))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, mutator.lastCreated)
}

func TestFormHandler_Create_LimitExceeded(t *testing.T) {
	handler, _, mutator, limits := newTestFormHandler()

	limits.checkFormLimitFn = func(ctx context.Context, userID string) error {
		return types.NewAppErrorWithDetails(
			types.ErrCodeLimitForms,
			"free plan allows 3 forms",
			nil,
			map[string]any{"current": 3, "limit": 3, "plan": "free"},
		)
	}

	body, err := json.Marshal(CreateFormRequest{Title: "One Too Many"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/forms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)

	var errResp core.APIErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, string(types.ErrCodeLimitForms), errResp.Error.Code)
	assert.Contains(t, errResp.Error.Message, "free")
	assert.Contains(t, errResp.Error.Message, "3")

	// Denied before any write.
	assert.Nil(t, mutator.lastCreated)
}

func TestFormHandler_Create_NoAuth(t *testing.T) {
	handler, _, _, _ := newTestFormHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/forms", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// =============================================================================
// List / Get Tests
// =============================================================================

func TestFormHandler_List_Success(t *testing.T) {
	handler, repo, _, _ := newTestFormHandler()

	repo.listByUserFn = func(ctx context.Context, userID string) ([]types.Form, error) {
		assert.Equal(t, "user_1", userID)
		return []types.Form{
			{ID: "form_b", UserID: userID, Title: "Newest"},
			{ID: "form_a", UserID: userID, Title: "Oldest"},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/forms", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	handler.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []types.Form `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "form_b", resp.Data[0].ID)
}

func TestFormHandler_Get_NotFound(t *testing.T) {
	handler, repo, _, _ := newTestFormHandler()

	repo.getByIDFn = func(ctx context.Context, id, userID string) (*types.Form, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
	}

	r := chi.NewRouter()
	r.Get("/forms/{id}", handler.Get)

	req := httptest.NewRequest(http.MethodGet, "/forms/form_missing", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// A form owned by someone else is indistinguishable from a missing one: the
// repo scopes by (id, user_id) and the handler passes the error through.
func TestFormHandler_Get_WrongOwnerLooksLikeNotFound(t *testing.T) {
	handler, repo, _, _ := newTestFormHandler()

	repo.getByIDFn = func(ctx context.Context, id, userID string) (*types.Form, error) {
		if userID != "owner_1" {
			return nil, types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
		}
		return &types.Form{ID: id, UserID: userID}, nil
	}

	r := chi.NewRouter()
	r.Get("/forms/{id}", handler.Get)

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1", nil)
	req = req.WithContext(contextWithActor("intruder"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// =============================================================================
// Update (Builder Save) Tests
// =============================================================================

func TestFormHandler_Update_ReplacesQuestions(t *testing.T) {
	handler, repo, _, _ := newTestFormHandler()

	body, err := json.Marshal(UpdateFormRequest{
		Title: "Renamed Form",
		Questions: []types.Question{
			{ID: "q_1", Type: types.QuestionRating, Text: "How was it?"},
			{Type: types.QuestionMultiple, Text: "Visit again?", Options: []string{"Yes", "No"}},
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Put("/forms/{id}", handler.Update)

	req := httptest.NewRequest(http.MethodPut, "/forms/form_1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	updated := repo.lastUpdated
	require.NotNil(t, updated)
	assert.Equal(t, "Renamed Form", updated.Title)
	require.Len(t, updated.Questions, 2)
	assert.Equal(t, "q_1", updated.Questions[0].ID)
	// Questions without IDs get a server-generated one.
	assert.Contains(t, updated.Questions[1].ID, "q_")
}

func TestFormHandler_Update_InvalidQuestionBlocked(t *testing.T) {
	handler, repo, _, _ := newTestFormHandler()

	// Multiple-choice with no options never reaches the repo.
	body, err := json.Marshal(UpdateFormRequest{
		Title: "Broken Builder State",
		Questions: []types.Question{
			{Type: types.QuestionMultiple, Text: "Pick one"},
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Put("/forms/{id}", handler.Update)

	req := httptest.NewRequest(http.MethodPut, "/forms/form_1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, repo.lastUpdated)
}

// =============================================================================
// Delete Tests
// =============================================================================

func TestFormHandler_Delete_Success(t *testing.T) {
	handler, _, mutator, _ := newTestFormHandler()

	r := chi.NewRouter()
	r.Delete("/forms/{id}", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/forms/form_1", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, mutator.deleteCalls, 1)
	assert.Equal(t, "form_1", mutator.deleteCalls[0])
}

func TestFormHandler_Delete_NotFound(t *testing.T) {
	handler, _, mutator, _ := newTestFormHandler()

	mutator.deleteFormFn = func(ctx context.Context, userID, formID string) error {
		return types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
	}

	r := chi.NewRouter()
	r.Delete("/forms/{id}", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/forms/form_missing", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// =============================================================================
// QR Payload Tests
// =============================================================================

func TestFormHandler_QRPayload(t *testing.T) {
	handler, _, _, _ := newTestFormHandler()

	r := chi.NewRouter()
	r.Get("/forms/{id}/qr", handler.QRPayload)

	req := httptest.NewRequest(http.MethodGet, "/forms/form_xyz123/qr", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data QRPayloadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "https://qrfeedback.ai/feedback/form_xyz123", resp.Data.Payload)
}

// =============================================================================
// Route Registration Test
// =============================================================================

func TestFormHandler_RegisterRoutes(t *testing.T) {
	handler, _, _, _ := newTestFormHandler()

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	registered := make(map[string]bool)
	err := chi.Walk(r, func(method, route string, h http.Handler, mw ...func(http.Handler) http.Handler) error {
		registered[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, rt := range []string{
		"POST /forms/",
		"GET /forms/",
		"GET /forms/{id}/",
		"PUT /forms/{id}/",
		"DELETE /forms/{id}/",
		"GET /forms/{id}/qr",
	} {
		assert.True(t, registered[rt], "route not registered: %s", rt)
	}
}
