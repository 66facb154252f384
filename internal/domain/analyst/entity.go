package analyst

import (
	"errors"
	"time"

	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
)

// AnalysisID identifier type
type AnalysisID string

// ErrNotFound is returned when an analysis does not exist for the tenant.
var ErrNotFound = errors.New("analysis not found")

// Analysis is a stored pipeline result for one media item.
type Analysis struct {
	ID        AnalysisID      `json:"id"`
	TenantID  string          `json:"tenant_id"`
	MediaURL  string          `json:"media_url"`
	ObjectKey string          `json:"object_key,omitempty"`
	Record    analysis.Record `json:"record"`
	Strategy  string          `json:"strategy,omitempty"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}

// Page is one page of analyses, newest first.
type Page struct {
	Data       []*Analysis `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// NewPage fills in the paging metadata around data.
func NewPage(data []*Analysis, page, pageSize int, total int64) Page {
	if data == nil {
		data = []*Analysis{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page{Data: data, Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

// NormalizePaging clamps page to >= 1 and pageSize to [1, 100], defaulting to 20.
func NormalizePaging(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
