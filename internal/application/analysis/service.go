// Package analysis holds the use cases around the extraction pipeline: asking
// the model about a media item, running the shared pipeline on its answer and
// storing the result or the failure.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/remix-lens/internal/application"
	"github.com/bryanwahyu/remix-lens/internal/domain/ai"
	domain "github.com/bryanwahyu/remix-lens/internal/domain/analysis"
	"github.com/bryanwahyu/remix-lens/internal/domain/analyst"
	"github.com/bryanwahyu/remix-lens/internal/domain/failures"
	"github.com/bryanwahyu/remix-lens/internal/domain/media"
	"github.com/bryanwahyu/remix-lens/internal/platform/logger"
)

// ErrInvalidInput is returned for commands the service refuses before doing any work.
var ErrInvalidInput = errors.New("invalid input")

// Observer receives pipeline and model events. The HTTP metrics implement it.
type Observer interface {
	PipelineOutcome(kind, strategy string)
	ModelAttempt(result string, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) PipelineOutcome(string, string) {}
func (nopObserver) ModelAttempt(string, time.Duration) {}

// Service implements the analysis use cases. It is safe for concurrent use.
type Service struct {
	Model       ai.Client
	Pipeline    *domain.Pipeline
	Repo        analyst.Repository
	FailureRepo failures.Repository
	Media       media.Store
	Clock       application.Clock
	Logger      *logger.Logger
	Observer    Observer
	// MaxAttempts bounds how often the model is re-queried when its answer
	// cannot be turned into a record. Values below 1 mean 1.
	MaxAttempts int
}

// AnalyzeCommand asks for one media item to be analyzed. Exactly one of
// MediaURL and ObjectKey is set.
type AnalyzeCommand struct {
	TenantID  string
	MediaURL  string
	ObjectKey string
}

// ExhaustedError is returned by Analyze when every attempt produced a pipeline
// error. It unwraps to the last one.
type ExhaustedError struct {
	AnalysisID string
	Attempts   int
	Err        error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("analysis %s failed after %d attempt(s): %v", e.AnalysisID, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Analyze asks the model about the media, runs the pipeline over the answer
// and stores the record. Pipeline errors are recorded as failures and the model
// is asked again up to MaxAttempts times. Model errors are returned at once.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*analyst.Analysis, error) {
	tenant := strings.TrimSpace(cmd.TenantID)
	if tenant == "" {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}
	if (cmd.MediaURL == "") == (cmd.ObjectKey == "") {
		return nil, fmt.Errorf("%w: exactly one of media_url and object_key is required", ErrInvalidInput)
	}

	mediaURL, err := s.resolveMedia(ctx, tenant, cmd)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := s.log().With("tenant", tenant, "analysis_id", id)
	attempts := s.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		raw, err := s.Model.Describe(ctx, mediaURL)
		if err != nil {
			s.observer().ModelAttempt("error", time.Since(start))
			log.Error("model describe failed", "attempt", attempt, "error", err)
			return nil, fmt.Errorf("describe media: %w", err)
		}
		s.observer().ModelAttempt("ok", time.Since(start))

		out, perr := s.Pipeline.RunDetailed(raw)
		if perr == nil {
			s.observer().PipelineOutcome("ok", string(out.Strategy))
			a := &analyst.Analysis{
				ID:        analyst.AnalysisID(id),
				TenantID:  tenant,
				MediaURL:  cmd.MediaURL,
				ObjectKey: cmd.ObjectKey,
				Record:    out.Record,
				Strategy:  string(out.Strategy),
				Attempts:  attempt,
				CreatedAt: s.now(),
			}
			if err := s.Repo.Save(ctx, a); err != nil {
				return nil, fmt.Errorf("save analysis: %w", err)
			}
			log.Info("analysis stored", "attempt", attempt, "strategy", out.Strategy)
			return a, nil
		}

		lastErr = perr
		s.observer().PipelineOutcome(errorKind(perr), "")
		s.recordFailure(ctx, log, failures.New(tenant, id, cmd.MediaURL, attempt, perr, s.now()))
		log.Warn("model output rejected", "attempt", attempt, "kind", errorKind(perr), "error", perr)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, &ExhaustedError{AnalysisID: id, Attempts: attempts, Err: lastErr}
}

// Extract runs the pipeline over text the caller already has. Nothing is stored.
func (s *Service) Extract(ctx context.Context, tenant, raw string) (domain.Outcome, error) {
	out, err := s.Pipeline.RunDetailed(raw)
	if err != nil {
		s.observer().PipelineOutcome(errorKind(err), "")
		var pe *domain.Error
		if errors.As(err, &pe) {
			s.log().Info("extract rejected", "tenant", tenant, "kind", pe.Kind,
				"original_len", pe.OriginalLen, "original_preview", pe.OriginalPreview)
		}
		return domain.Outcome{}, err
	}
	s.observer().PipelineOutcome("ok", string(out.Strategy))
	return out, nil
}

// Get ambil 1 analysis by id
func (s *Service) Get(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// List returns one page of the tenant's analyses, newest first.
func (s *Service) List(ctx context.Context, tenant string, page, pageSize int) (analyst.Page, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// Failures lists the rejected attempts of one analysis, newest first. The
// analysis itself may not exist when every attempt failed.
func (s *Service) Failures(ctx context.Context, tenant, analysisID string, limit int) ([]*failures.Failure, error) {
	if s.FailureRepo == nil {
		return []*failures.Failure{}, nil
	}
	out, err := s.FailureRepo.ListByAnalysis(ctx, tenant, analysisID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*failures.Failure{}
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, tenant string, id analyst.AnalysisID) error {
	return s.Repo.Delete(ctx, tenant, id)
}

// PresignUpload reserves an object key for a new upload and returns the URL to PUT it to.
func (s *Service) PresignUpload(ctx context.Context, tenant, filename string) (media.PresignedURL, error) {
	if s.Media == nil {
		return media.PresignedURL{}, fmt.Errorf("%w: media storage is not configured", ErrInvalidInput)
	}
	key, err := media.ObjectKey(tenant, filename, s.now())
	if err != nil {
		return media.PresignedURL{}, err
	}
	return s.Media.PresignUpload(ctx, key)
}

func (s *Service) resolveMedia(ctx context.Context, tenant string, cmd AnalyzeCommand) (string, error) {
	if cmd.MediaURL != "" {
		return cmd.MediaURL, nil
	}
	if s.Media == nil {
		return "", fmt.Errorf("%w: media storage is not configured", ErrInvalidInput)
	}
	if !media.OwnedBy(cmd.ObjectKey, tenant) {
		return "", fmt.Errorf("%w: object key does not belong to tenant", ErrInvalidInput)
	}
	ok, err := s.Media.Exists(ctx, cmd.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("stat media: %w", err)
	}
	if !ok {
		return "", media.ErrNotFound
	}
	u, err := s.Media.PresignDownload(ctx, cmd.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("presign media: %w", err)
	}
	return u.URL, nil
}

func (s *Service) recordFailure(ctx context.Context, log *logger.Logger, f *failures.Failure) {
	if s.FailureRepo == nil {
		return
	}
	if err := s.FailureRepo.Save(ctx, f); err != nil {
		log.Error("save failure", "attempt", f.Attempt, "error", err)
	}
}

func (s *Service) attempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) log() *logger.Logger {
	if s.Logger == nil {
		return logger.Nop()
	}
	return s.Logger
}

func (s *Service) observer() Observer {
	if s.Observer == nil {
		return nopObserver{}
	}
	return s.Observer
}

func errorKind(err error) string {
	var pe *domain.Error
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "unknown"
}
