package failures

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
)

// Failure is one pipeline run that did not produce a record. It stores the
// bounded previews carried by the pipeline error, never the full model output.
type Failure struct {
	ID              int64     `json:"id"`
	TenantID        string    `json:"tenant_id"`
	AnalysisID      string    `json:"analysis_id"`
	MediaURL        string    `json:"media_url,omitempty"`
	Attempt         int       `json:"attempt"`
	Kind            string    `json:"kind"`
	Message         string    `json:"message"`
	OriginalPreview string    `json:"original_preview,omitempty"`
	CleanedPreview  string    `json:"cleaned_preview,omitempty"`
	DetailsJSON     string    `json:"details_json,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// New builds a Failure from a pipeline error. Errors that are not
// *analysis.Error are recorded with kind "unknown".
func New(tenant, analysisID, mediaURL string, attempt int, err error, at time.Time) *Failure {
	f := &Failure{
		TenantID:   tenant,
		AnalysisID: analysisID,
		MediaURL:   mediaURL,
		Attempt:    attempt,
		Kind:       "unknown",
		CreatedAt:  at,
	}
	if err == nil {
		return f
	}
	f.Message = err.Error()
	var pe *analysis.Error
	if errors.As(err, &pe) {
		f.Kind = string(pe.Kind)
		f.OriginalPreview = pe.OriginalPreview
		f.CleanedPreview = pe.CleanedPreview
		f.DetailsJSON = detailsJSON(pe)
	}
	return f
}

func detailsJSON(e *analysis.Error) string {
	d := e.Details()
	// previews already live in their own columns
	delete(d, "original_preview")
	delete(d, "cleaned_preview")
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}
