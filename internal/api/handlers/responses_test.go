package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrfeedback/internal/types"
)

// =============================================================================
// Mock Implementations for Response Handler
// =============================================================================

type mockOwnedFormGetter struct {
	getByIDFn func(ctx context.Context, id, userID string) (*types.Form, error)
}

func (m *mockOwnedFormGetter) GetByID(ctx context.Context, id, userID string) (*types.Form, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, userID)
	}
	return &types.Form{
		ID:     id,
		UserID: userID,
		Title:  "Coffee Shop Feedback",
		Questions: types.QuestionList{
			{ID: "q_1", Type: types.QuestionRating, Text: "How was your visit?"},
			{ID: "q_2", Type: types.QuestionText, Text: "Anything else?"},
		},
	}, nil
}

type mockResponseLister struct {
	listByFormFn func(ctx context.Context, formID string) ([]types.Response, error)
}

func (m *mockResponseLister) ListByForm(ctx context.Context, formID string) ([]types.Response, error) {
	if m.listByFormFn != nil {
		return m.listByFormFn(ctx, formID)
	}
	return []types.Response{
		{
			ID:     "resp_1",
			FormID: formID,
			Answers: types.AnswerList{
				{QuestionID: "q_1", Value: types.RatingAnswer(5)},
				{QuestionID: "q_2", Value: types.TextAnswer(`Loved the "flat white"`)},
			},
			SubmittedAt: time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
	}, nil
}

func newTestResponseHandler() (*ResponseHandler, *mockOwnedFormGetter, *mockResponseLister) {
	forms := &mockOwnedFormGetter{}
	responses := &mockResponseLister{}
	return NewResponseHandler(forms, responses, slogDiscard()), forms, responses
}

func responseRouter(h *ResponseHandler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// =============================================================================
// List Tests
// =============================================================================

func TestResponseHandler_List_Success(t *testing.T) {
	handler, _, _ := newTestResponseHandler()

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1/responses", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	responseRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []types.Response `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "resp_1", resp.Data[0].ID)
}

func TestResponseHandler_List_FormNotOwned(t *testing.T) {
	handler, forms, responses := newTestResponseHandler()

	forms.getByIDFn = func(ctx context.Context, id, userID string) (*types.Form, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
	}
	listCalled := false
	responses.listByFormFn = func(ctx context.Context, formID string) ([]types.Response, error) {
		listCalled = true
		return nil, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1/responses", nil)
	req = req.WithContext(contextWithActor("intruder"))

	rr := httptest.NewRecorder()
	responseRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, listCalled)
}

func TestResponseHandler_List_NoAuth(t *testing.T) {
	handler, _, _ := newTestResponseHandler()

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1/responses", nil)
	rr := httptest.NewRecorder()
	responseRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// =============================================================================
// Export Tests
// =============================================================================

func TestResponseHandler_Export_CSV(t *testing.T) {
	handler, _, _ := newTestResponseHandler()

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1/responses/export", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	responseRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Coffee Shop Feedback-responses.csv"`, rr.Header().Get("Content-Disposition"))

	body := rr.Body.String()
	assert.Contains(t, body, `"Submitted At","How was your visit?","Anything else?"`)
	assert.Contains(t, body, `"2026-03-15 10:30:00","5","Loved the ""flat white"""`)
}

func TestResponseHandler_Export_Gzip(t *testing.T) {
	handler, _, _ := newTestResponseHandler()

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1/responses/export", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	responseRouter(handler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	defer gz.Close()

	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"Submitted At"`)
}

func TestResponseHandler_Export_EmptyForm(t *testing.T) {
	handler, _, responses := newTestResponseHandler()

	responses.listByFormFn = func(ctx context.Context, formID string) ([]types.Response, error) {
		return []types.Response{}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/forms/form_1/responses/export", nil)
	req = req.WithContext(contextWithActor("user_1"))

	rr := httptest.NewRecorder()
	responseRouter(handler).ServeHTTP(rr, req)

	// Header row only.
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"Submitted At","How was your visit?","Anything else?"`, rr.Body.String())
}
