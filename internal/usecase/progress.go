package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/productlens/ingest/internal/domain"
)

// RunProgress tracks counters of the running batch; safe for concurrent use
type RunProgress struct {
	mu         sync.RWMutex
	runID      string
	startedAt  time.Time
	finishedAt time.Time
	total      int
	summary    *domain.ErrorSummary

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// ProgressSnapshot is a point-in-time copy of the counters
type ProgressSnapshot struct {
	RunID      string     `json:"runId"`
	Running    bool       `json:"running"`
	Total      int        `json:"total"`
	Processed  int64      `json:"processed"`
	Succeeded  int64      `json:"succeeded"`
	Failed     int64      `json:"failed"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (p *RunProgress) start(runID string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runID = runID
	p.total = total
	p.startedAt = time.Now()
	p.finishedAt = time.Time{}
	p.summary = nil
	p.processed.Store(0)
	p.succeeded.Store(0)
	p.failed.Store(0)
}

func (p *RunProgress) record(ok bool) {
	p.processed.Add(1)
	if ok {
		p.succeeded.Add(1)
	} else {
		p.failed.Add(1)
	}
}

func (p *RunProgress) finish(summary *domain.ErrorSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishedAt = time.Now()
	p.summary = summary
}

// Summary returns the error summary of the last finished run, or nil
func (p *RunProgress) Summary() *domain.ErrorSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

// Snapshot returns the current counters
func (p *RunProgress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := ProgressSnapshot{
		RunID:     p.runID,
		Total:     p.total,
		Processed: p.processed.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
	if !p.startedAt.IsZero() {
		started := p.startedAt
		snap.StartedAt = &started
		snap.Running = p.finishedAt.IsZero()
	}
	if !p.finishedAt.IsZero() {
		finished := p.finishedAt
		snap.FinishedAt = &finished
	}
	return snap
}
