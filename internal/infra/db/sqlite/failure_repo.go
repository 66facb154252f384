package sqlite

import (
	"context"
	"database/sql"

	"github.com/bryanwahyu/remix-lens/internal/domain/failures"
	"github.com/bryanwahyu/remix-lens/internal/infra/db/dbutil"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

const failureColumns = `id, tenant_id, analysis_id, media_url, attempt, kind, message, original_preview, cleaned_preview, details_json, created_at`

func (r *FailureRepository) Save(ctx context.Context, f *failures.Failure) error {
	const q = `
INSERT INTO remix_analysis_failures
  (tenant_id, analysis_id, media_url, attempt, kind, message, original_preview, cleaned_preview, details_json, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
`
	res, err := r.db.ExecContext(ctx, q,
		dbutil.StringOrDash(f.TenantID), dbutil.StringOrDash(f.AnalysisID), f.MediaURL, f.Attempt,
		dbutil.StringOrDash(f.Kind), dbutil.StringOrDash(f.Message), f.OriginalPreview, f.CleanedPreview,
		dbutil.DetailsJSON(f.DetailsJSON), toUnix(f.CreatedAt),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

func (r *FailureRepository) ListByAnalysis(ctx context.Context, tenant string, analysisID string, limit int) ([]*failures.Failure, error) {
	const q = `SELECT ` + failureColumns + `
FROM remix_analysis_failures
WHERE tenant_id = ? AND analysis_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	return r.list(ctx, q, tenant, analysisID, dbutil.Limit(limit))
}

func (r *FailureRepository) Recent(ctx context.Context, tenant string, limit int) ([]*failures.Failure, error) {
	const q = `SELECT ` + failureColumns + `
FROM remix_analysis_failures
WHERE tenant_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	return r.list(ctx, q, tenant, dbutil.Limit(limit))
}

func (r *FailureRepository) list(ctx context.Context, q string, args ...any) ([]*failures.Failure, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*failures.Failure
	for rows.Next() {
		var f failures.Failure
		var created int64
		if err := rows.Scan(&f.ID, &f.TenantID, &f.AnalysisID, &f.MediaURL, &f.Attempt, &f.Kind, &f.Message,
			&f.OriginalPreview, &f.CleanedPreview, &f.DetailsJSON, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = fromUnix(created)
		out = append(out, &f)
	}
	return out, rows.Err()
}
