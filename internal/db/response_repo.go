package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"qrfeedback/internal/types"
)

// ResponseRepository provides data access for the responses table. Responses
// are append-only: they are created by respondents and read by form owners,
// never updated or deleted individually.
type ResponseRepository struct {
	db DBTX
}

// NewResponseRepository creates a new ResponseRepository backed by the given
// database connection (pool or transaction).
func NewResponseRepository(db DBTX) *ResponseRepository {
	return &ResponseRepository{db: db}
}

const responseColumns = `r.id, r.form_id, r.answers, r.submitted_at`

func scanResponse(row pgx.Row) (*types.Response, error) {
	var resp types.Response
	err := row.Scan(
		&resp.ID,
		&resp.FormID,
		&resp.Answers,
		&resp.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Create inserts a new response record. The caller must set the ID (prefixed
// UUID, e.g. "resp_...") and validate the answers against the form's
// questions before calling.
func (r *ResponseRepository) Create(ctx context.Context, resp *types.Response) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO responses (id, form_id, answers, submitted_at)
		 VALUES ($1, $2, $3, NOW())`,
		resp.ID,
		resp.FormID,
		resp.Answers,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create response", err)
	}
	return nil
}

// ListByForm returns all responses submitted to the given form, newest first.
// The caller is responsible for verifying form ownership before listing.
func (r *ResponseRepository) ListByForm(ctx context.Context, formID string) ([]types.Response, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+responseColumns+`
		 FROM responses r
		 WHERE r.form_id = $1
		 ORDER BY r.submitted_at DESC`,
		formID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list responses", err)
	}
	defer rows.Close()

	responses := []types.Response{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan response row", err)
		}
		responses = append(responses, *resp)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate response rows", err)
	}
	return responses, nil
}

// CountResponsesThisMonth returns how many responses were submitted across
// all of the user's forms since the start of the current calendar month
// (UTC). Used by plan limit enforcement before accepting a new submission.
func (r *ResponseRepository) CountResponsesThisMonth(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM responses r
		 JOIN forms f ON f.id = r.form_id
		 WHERE f.user_id = $1
		   AND r.submitted_at >= date_trunc('month', NOW() AT TIME ZONE 'UTC')`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count monthly responses", err)
	}
	return count, nil
}
