package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/productlens/ingest/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// IngestConfig holds configuration for the batch orchestrator
type IngestConfig struct {
	MaxToProcess int // 0 processes every identifier
	Workers      int
}

// IngestService drives identifiers through fetch and normalization.
// A failure for one identifier becomes an error record; it never stops the batch.
type IngestService struct {
	fetcher      domain.CatalogFetcher
	normalizer   domain.RecordNormalizer
	maxToProcess int
	workers      int
	progress     *RunProgress
	progressLog  *rate.Sometimes
}

// NewIngestService creates a new orchestrator with dependencies
func NewIngestService(
	fetcher domain.CatalogFetcher,
	normalizer domain.RecordNormalizer,
	config IngestConfig,
) *IngestService {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	maxToProcess := config.MaxToProcess
	if maxToProcess < 0 {
		maxToProcess = 0
	}

	return &IngestService{
		fetcher:      fetcher,
		normalizer:   normalizer,
		maxToProcess: maxToProcess,
		workers:      workers,
		progress:     &RunProgress{},
		progressLog:  &rate.Sometimes{First: 1, Every: 25, Interval: 10 * time.Second},
	}
}

// Progress exposes live counters of the current or last run
func (s *IngestService) Progress() *RunProgress {
	return s.progress
}

// Run processes the identifiers and returns one record per distinct
// identifier, in first-seen order, together with the run summary.
func (s *IngestService) Run(ctx context.Context, ids []string) ([]domain.CanonicalRecord, *domain.ErrorSummary) {
	queue := PrepareIdentifiers(ids, s.maxToProcess)
	runID := uuid.NewString()
	s.progress.start(runID, len(queue))

	log.Printf("[INGEST] Run %s: %d identifiers (%d received, workers=%d)", runID, len(queue), len(ids), s.workers)

	records := make([]domain.CanonicalRecord, len(queue))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range queue {
		g.Go(func() error {
			records[i] = s.processOne(ctx, id)
			s.progress.record(!records[i].Failed())
			s.progressLog.Do(func() {
				snap := s.progress.Snapshot()
				log.Printf("[INGEST] Progress: %d/%d processed (%d ok, %d failed)",
					snap.Processed, snap.Total, snap.Succeeded, snap.Failed)
			})
			return nil
		})
	}
	_ = g.Wait()

	summary := domain.NewErrorSummary()
	for i := range records {
		if records[i].Failed() {
			summary.RecordFailure(domain.EntryFromRecord(&records[i]))
		} else {
			summary.RecordSuccess()
		}
	}

	s.progress.finish(summary)
	log.Printf("[INGEST] Run %s finished: %d processed, %d succeeded, %d failed",
		runID, summary.Total, summary.Succeeded, summary.Failed)

	return records, summary
}

// processOne fetches and normalizes a single identifier
func (s *IngestService) processOne(ctx context.Context, id string) domain.CanonicalRecord {
	raw, err := s.fetcher.Fetch(ctx, id)
	if err != nil {
		log.Printf("[INGEST] %s: %v", id, err)

		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return domain.NewErrorRecord(id, fetchErr.RecordError())
		}
		return domain.NewErrorRecord(id, &domain.RecordError{
			Class:   domain.ClassFetchError,
			Message: err.Error(),
		})
	}

	record := s.normalizer.Normalize(id, raw)
	if record.Error != nil {
		log.Printf("[INGEST] %s: normalized with error: %s", id, record.Error.Message)
	}
	return record
}

// PrepareIdentifiers removes duplicates keeping first-seen order, then keeps
// the first max entries when max is positive.
func PrepareIdentifiers(ids []string, max int) []string {
	seen := make(map[string]struct{}, len(ids))
	queue := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, id)
	}

	if max > 0 && len(queue) > max {
		queue = queue[:max]
	}
	return queue
}
