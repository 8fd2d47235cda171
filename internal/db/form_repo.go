package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"qrfeedback/internal/types"
)

// FormRepository provides data access for the forms table. Every owner-facing
// method scopes its query by user_id so one account can never read or mutate
// another account's forms.
type FormRepository struct {
	db DBTX
}

// NewFormRepository creates a new FormRepository backed by the given database
// connection (pool or transaction).
func NewFormRepository(db DBTX) *FormRepository {
	return &FormRepository{db: db}
}

// formColumns defines the standard set of columns selected for form queries.
// Used consistently across all query methods to avoid column drift.
const formColumns = `f.id, f.user_id, f.title, f.description, f.questions, f.created_at`

// scanForm scans a single form row into a types.Form struct. The columns must
// match the order defined in formColumns.
func scanForm(row pgx.Row) (*types.Form, error) {
	var form types.Form
	var description *string

	err := row.Scan(
		&form.ID,
		&form.UserID,
		&form.Title,
		&description,
		&form.Questions,
		&form.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description != nil {
		form.Description = *description
	}
	return &form, nil
}

// Create inserts a new form record. The caller must set the ID (prefixed
// UUID, e.g. "form_...") and owner before calling.
func (r *FormRepository) Create(ctx context.Context, form *types.Form) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO forms (id, user_id, title, description, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		form.ID,
		form.UserID,
		form.Title,
		nilIfEmpty(form.Description),
		form.Questions,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create form", err)
	}
	return nil
}

// GetByID retrieves a form owned by the given user. Returns a not-found error
// both when the form does not exist and when it belongs to someone else, so
// callers cannot distinguish the two cases.
func (r *FormRepository) GetByID(ctx context.Context, id, userID string) (*types.Form, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+formColumns+`
		 FROM forms f
		 WHERE f.id = $1 AND f.user_id = $2`,
		id, userID,
	)

	form, err := scanForm(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve form", err)
	}
	return form, nil
}

// GetPublic retrieves a form by ID without owner scoping. Used by the
// respondent-facing feedback endpoints, where anyone holding the form ID may
// read the questionnaire.
func (r *FormRepository) GetPublic(ctx context.Context, id string) (*types.Form, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+formColumns+`
		 FROM forms f
		 WHERE f.id = $1`,
		id,
	)

	form, err := scanForm(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve form", err)
	}
	return form, nil
}

// ListByUser returns all forms owned by the given user, newest first.
func (r *FormRepository) ListByUser(ctx context.Context, userID string) ([]types.Form, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+formColumns+`
		 FROM forms f
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list forms", err)
	}
	defer rows.Close()

	forms := []types.Form{}
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan form row", err)
		}
		forms = append(forms, *form)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate form rows", err)
	}
	return forms, nil
}

// Update overwrites the mutable fields of a form (title, description,
// questions). Last write wins; there is no version check. Returns a not-found
// error if the form does not exist or is owned by someone else.
func (r *FormRepository) Update(ctx context.Context, form *types.Form) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE forms
		 SET title = $1,
		     description = $2,
		     questions = $3
		 WHERE id = $4 AND user_id = $5`,
		form.Title,
		nilIfEmpty(form.Description),
		form.Questions,
		form.ID,
		form.UserID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update form", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
	}
	return nil
}

// Delete removes a form permanently. Responses reference the form with
// ON DELETE CASCADE, so they go with it.
func (r *FormRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM forms WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete form", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundForm, "form not found", nil)
	}
	return nil
}

// CountForms returns the number of forms the user currently owns. Used by
// plan limit enforcement before creating a new form.
func (r *FormRepository) CountForms(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM forms WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count forms", err)
	}
	return count, nil
}
