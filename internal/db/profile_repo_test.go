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

func TestProfileRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	created := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "user_1"
		*dest[1].(*string) = "owner@example.com"
		name := "Sam Owner"
		*dest[2].(**string) = &name
		*dest[3].(*types.PlanTier) = types.PlanPro
		cust := "cus_123"
		*dest[4].(**string) = &cust
		*dest[5].(*time.Time) = created
		return nil
	}}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"user_1"}).
		Return(row)

	profile, err := repo.GetByID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", profile.ID)
	assert.Equal(t, "Sam Owner", profile.FullName)
	assert.Equal(t, types.PlanPro, profile.Plan)
	assert.Equal(t, "cus_123", profile.StripeCustomerID)
}

func TestProfileRepository_GetByID_NullableFields(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "user_1"
		*dest[1].(*string) = "owner@example.com"
		*dest[2].(**string) = nil
		*dest[3].(*types.PlanTier) = types.PlanFree
		*dest[4].(**string) = nil
		*dest[5].(*time.Time) = time.Now()
		return nil
	}}

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(row)

	profile, err := repo.GetByID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Empty(t, profile.FullName)
	assert.Empty(t, profile.StripeCustomerID)
}

func TestProfileRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	profile, err := repo.GetByID(context.Background(), "user_missing")
	require.Error(t, err)
	assert.Nil(t, profile)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)
}

func TestProfileRepository_GetPlan(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*types.PlanTier) = types.PlanBusiness
		return nil
	}}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"user_1"}).
		Return(row)

	plan, err := repo.GetPlan(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, types.PlanBusiness, plan)
}

func TestProfileRepository_GetPlan_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetPlan(context.Background(), "user_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)
}

// Ensure must be idempotent so it can run on every authenticated request
// without clobbering an existing profile.
func TestProfileRepository_Ensure(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			sql := args.Get(1).(string)
			assert.Contains(t, sql, "ON CONFLICT (id) DO NOTHING")
		}).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	err := repo.Ensure(context.Background(), "user_1", "owner@example.com", "Sam Owner")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestProfileRepository_UpdatePlan_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{types.PlanPro, "user_1"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.UpdatePlan(context.Background(), "user_1", types.PlanPro)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestProfileRepository_UpdatePlan_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.UpdatePlan(context.Background(), "user_missing", types.PlanPro)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)
}

func TestProfileRepository_UpdateStripeCustomerID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewProfileRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.UpdateStripeCustomerID(context.Background(), "user_1", "cus_123")
	require.NoError(t, err)
	db.AssertExpectations(t)
}
