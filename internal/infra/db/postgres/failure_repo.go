package postgres

import (
	"context"
	"database/sql"
	"time"

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
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id;`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return r.db.QueryRowContext(ctx, q,
		dbutil.StringOrDash(f.TenantID), dbutil.StringOrDash(f.AnalysisID), f.MediaURL, f.Attempt,
		dbutil.StringOrDash(f.Kind), dbutil.StringOrDash(f.Message), f.OriginalPreview, f.CleanedPreview,
		dbutil.DetailsJSON(f.DetailsJSON), created,
	).Scan(&f.ID)
}

func (r *FailureRepository) ListByAnalysis(ctx context.Context, tenant string, analysisID string, limit int) ([]*failures.Failure, error) {
	const q = `SELECT ` + failureColumns + `
FROM remix_analysis_failures
WHERE tenant_id = $1 AND analysis_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3;`
	return r.list(ctx, q, tenant, analysisID, dbutil.Limit(limit))
}

func (r *FailureRepository) Recent(ctx context.Context, tenant string, limit int) ([]*failures.Failure, error) {
	const q = `SELECT ` + failureColumns + `
FROM remix_analysis_failures
WHERE tenant_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
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
		if err := rows.Scan(&f.ID, &f.TenantID, &f.AnalysisID, &f.MediaURL, &f.Attempt, &f.Kind, &f.Message,
			&f.OriginalPreview, &f.CleanedPreview, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
