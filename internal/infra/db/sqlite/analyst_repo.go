package sqlite

import (
	"context"
	"database/sql"
	"errors"

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
ON CONFLICT (id) DO UPDATE SET
  media_url=excluded.media_url,
  object_key=excluded.object_key,
  title=excluded.title,
  style=excluded.style,
  record_json=excluded.record_json,
  strategy=excluded.strategy,
  attempts=excluded.attempts;
`
	rec, err := dbutil.EncodeRecord(a.Record)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		string(a.ID), dbutil.StringOrDash(a.TenantID), dbutil.StringOrDash(a.MediaURL), a.ObjectKey,
		a.Record.Title, a.Record.Style, rec, a.Strategy, a.Attempts, toUnix(a.CreatedAt),
	)
	return err
}

// Get by ID + Tenant
func (r *AnalystRepository) Get(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM remix_analyses WHERE tenant_id=? AND id=? LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, tenant, string(id)))
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

func (r *AnalystRepository) Delete(ctx context.Context, tenant string, id analyst.AnalysisID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM remix_analyses WHERE tenant_id=? AND id=?`, tenant, string(id))
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
	var (
		a       analyst.Analysis
		id      string
		rec     string
		created int64
	)
	if err := row.Scan(&id, &a.TenantID, &a.MediaURL, &a.ObjectKey, &rec, &a.Strategy, &a.Attempts, &created); err != nil {
		return nil, err
	}
	record, err := dbutil.DecodeRecord(rec)
	if err != nil {
		return nil, err
	}
	a.ID = analyst.AnalysisID(id)
	a.Record = record
	a.CreatedAt = fromUnix(created)
	return &a, nil
}
