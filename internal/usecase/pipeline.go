package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/productlens/ingest/internal/domain"
)

// SnapshotSink receives the full record set of a run before it is persisted
type SnapshotSink interface {
	Save(records []domain.CanonicalRecord) error
}

// RunResult is everything a finished pipeline run produced
type RunResult struct {
	Records []domain.CanonicalRecord
	Summary *domain.ErrorSummary
	Upsert  *domain.UpsertResult
}

// Pipeline wires the orchestrator to the document store.
// Flow: ensure indexes -> fetch and normalize -> snapshot -> upsert
type Pipeline struct {
	ingest   *IngestService
	store    domain.DocumentStore
	snapshot SnapshotSink
}

// NewPipeline creates a pipeline; snapshot may be nil
func NewPipeline(ingest *IngestService, store domain.DocumentStore, snapshot SnapshotSink) *Pipeline {
	return &Pipeline{
		ingest:   ingest,
		store:    store,
		snapshot: snapshot,
	}
}

// Run executes one batch. Index provisioning failure aborts before any fetch;
// a store-wide write failure is returned together with the records already built.
func (p *Pipeline) Run(ctx context.Context, ids []string) (*RunResult, error) {
	if err := p.store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	records, summary := p.ingest.Run(ctx, ids)
	result := &RunResult{Records: records, Summary: summary}

	if p.snapshot != nil {
		if err := p.snapshot.Save(records); err != nil {
			log.Printf("[INGEST] Snapshot write failed: %v", err)
		}
	}

	upsert, err := p.store.UpsertBatch(ctx, records)
	result.Upsert = upsert
	if err != nil {
		return result, fmt.Errorf("upsert batch: %w", err)
	}

	for _, failure := range upsert.Failed {
		log.Printf("[STORE] Not persisted: %v", failure)
	}
	log.Printf("[STORE] Upserted %d of %d records (%d failed)", upsert.Upserted, len(records), len(upsert.Failed))

	return result, nil
}
