package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/remix-lens/internal/domain/analyst"
	"github.com/bryanwahyu/remix-lens/internal/infra/db/dbutil"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

const analysisColumns = `id, tenant_id, media_url, object_key, record_json, strategy, attempts, created_at`

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *analyst.Analysis) error {
	const q = `
INSERT INTO remix_analyses
  (id, tenant_id, media_url, object_key, title, style, record_json, strategy, attempts, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  media_url=VALUES(media_url), object_key=VALUES(object_key), title=VALUES(title), style=VALUES(style),
  record_json=VALUES(record_json), strategy=VALUES(strategy), attempts=VALUES(attempts);
`
	rec, err := dbutil.EncodeRecord(a.Record)
	if err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, q,
		a.ID, dbutil.StringOrDash(a.TenantID), dbutil.StringOrDash(a.MediaURL), a.ObjectKey,
		a.Record.Title, a.Record.Style, rec, a.Strategy, a.Attempts, createdAt,
	)
	return err
}

// Get by ID + Tenant
func (r *AnalystRepository) Get(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM remix_analyses WHERE tenant_id=? AND id=? LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analyst.ErrNotFound
	}
	return a, err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) (analyst.Page, error) {
	page, pageSize = analyst.NormalizePaging(page, pageSize)
	offset := (page - 1) * pageSize

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM remix_analyses WHERE tenant_id=?`, tenant).Scan(&total); err != nil {
		return analyst.Page{}, err
	}

	const q = `SELECT ` + analysisColumns + `
FROM remix_analyses
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return analyst.Page{}, err
	}
	defer rows.Close()

	var out []*analyst.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return analyst.Page{}, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return analyst.Page{}, err
	}
	return analyst.NewPage(out, page, pageSize, total), nil
}

// Delete removes one analysis; its failure rows are kept for auditing.
func (r *AnalystRepository) Delete(ctx context.Context, tenant string, id analyst.AnalysisID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM remix_analyses WHERE tenant_id=? AND id=?`, tenant, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return analyst.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*analyst.Analysis, error) {
	var a analyst.Analysis
	var rec string
	if err := row.Scan(&a.ID, &a.TenantID, &a.MediaURL, &a.ObjectKey, &rec, &a.Strategy, &a.Attempts, &a.CreatedAt); err != nil {
		return nil, err
	}
	record, err := dbutil.DecodeRecord(rec)
	if err != nil {
		return nil, err
	}
	a.Record = record
	return &a, nil
}
