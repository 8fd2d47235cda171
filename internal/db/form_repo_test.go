package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qrfeedback/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows for Query ---

// mockRows implements pgx.Rows for testing Query results.
type mockRows struct {
	data    [][]any
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newMockRows(data [][]any) *mockRows {
	return &mockRows{data: data, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case **string:
			if row[i] == nil {
				*v = nil
			} else {
				s := row[i].(string)
				*v = &s
			}
		case *time.Time:
			*v = row[i].(time.Time)
		case *int:
			*v = row[i].(int)
		case *types.QuestionList:
			*v = row[i].(types.QuestionList)
		case *types.AnswerList:
			*v = row[i].(types.AnswerList)
		case *types.PlanTier:
			*v = row[i].(types.PlanTier)
		}
	}
	return nil
}

func (r *mockRows) Close()                                        { r.closed = true }
func (r *mockRows) Err() error                                    { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription  { return nil }
func (r *mockRows) RawValues() [][]byte                           { return nil }
func (r *mockRows) Values() ([]any, error)                        { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                               { return nil }

// --- FormRepository Tests ---

func TestFormRepository_Create_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	form := &types.Form{
		ID:     "form_abc",
		UserID: "user_1",
		Title:  "Coffee Survey",
		Questions: types.QuestionList{
			{ID: "q_1", Type: types.QuestionRating, Text: "How was it?"},
		},
	}

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(context.Background(), form)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestFormRepository_Create_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Create(context.Background(), &types.Form{ID: "form_abc", UserID: "user_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestFormRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "form_abc"
		*dest[1].(*string) = "user_1"
		*dest[2].(*string) = "Coffee Survey"
		desc := "Tell us what you think"
		*dest[3].(**string) = &desc
		*dest[4].(*types.QuestionList) = types.QuestionList{
			{ID: "q_1", Type: types.QuestionText, Text: "Comments?"},
		}
		*dest[5].(*time.Time) = created
		return nil
	}}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"form_abc", "user_1"}).
		Return(row)

	form, err := repo.GetByID(context.Background(), "form_abc", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "form_abc", form.ID)
	assert.Equal(t, "Tell us what you think", form.Description)
	require.Len(t, form.Questions, 1)
	assert.Equal(t, created, form.CreatedAt)
}

func TestFormRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	form, err := repo.GetByID(context.Background(), "form_missing", "user_1")
	require.Error(t, err)
	assert.Nil(t, form)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundForm, appErr.Code)
}

// Ownership scoping: a form owned by someone else scans as no rows and must
// surface the same not-found error as a missing form.
func TestFormRepository_GetByID_WrongOwner(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"form_abc", "user_2"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), "form_abc", "user_2")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundForm, appErr.Code)
}

func TestFormRepository_GetPublic_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "form_abc"
		*dest[1].(*string) = "user_1"
		*dest[2].(*string) = "Coffee Survey"
		*dest[3].(**string) = nil
		*dest[4].(*types.QuestionList) = types.QuestionList{}
		*dest[5].(*time.Time) = time.Now()
		return nil
	}}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"form_abc"}).
		Return(row)

	form, err := repo.GetPublic(context.Background(), "form_abc")
	require.NoError(t, err)
	assert.Equal(t, "form_abc", form.ID)
	assert.Empty(t, form.Description)
}

func TestFormRepository_ListByUser_NewestFirst(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	newer := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := newMockRows([][]any{
		{"form_b", "user_1", "Second", nil, types.QuestionList{}, newer},
		{"form_a", "user_1", "First", nil, types.QuestionList{}, older},
	})

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			sql := args.Get(1).(string)
			assert.Contains(t, sql, "ORDER BY f.created_at DESC")
		}).
		Return(rows, nil)

	forms, err := repo.ListByUser(context.Background(), "user_1")
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "form_b", forms[0].ID)
	assert.Equal(t, "form_a", forms[1].ID)
}

func TestFormRepository_ListByUser_Empty(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(nil), nil)

	forms, err := repo.ListByUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.NotNil(t, forms)
	assert.Empty(t, forms)
}

func TestFormRepository_ListByUser_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return((*mockRows)(nil), errors.New("connection refused"))

	forms, err := repo.ListByUser(context.Background(), "user_1")
	require.Error(t, err)
	assert.Nil(t, forms)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestFormRepository_Update_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.Update(context.Background(), &types.Form{
		ID:     "form_abc",
		UserID: "user_1",
		Title:  "Renamed",
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestFormRepository_Update_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Update(context.Background(), &types.Form{ID: "form_missing", UserID: "user_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundForm, appErr.Code)
}

func TestFormRepository_Delete_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"form_abc", "user_1"}).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := repo.Delete(context.Background(), "form_abc", "user_1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestFormRepository_Delete_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	err := repo.Delete(context.Background(), "form_missing", "user_1")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundForm, appErr.Code)
}

func TestFormRepository_CountForms(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = 3
		return nil
	}}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"user_1"}).
		Return(row)

	count, err := repo.CountForms(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestFormRepository_CountForms_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewFormRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	_, err := repo.CountForms(context.Background(), "user_1")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
