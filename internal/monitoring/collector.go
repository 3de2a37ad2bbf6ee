package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/qualify"
	"github.com/sells-group/leadscout/internal/store"
)

// RunSummary accumulates counts over a single scrape-and-qualify run. It is
// safe for concurrent use; scrapers and the qualifier report into it from
// their own goroutines.
type RunSummary struct {
	mu sync.Mutex

	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Scraped    map[model.Source]int    `json:"scraped"`
	Failures   map[model.Source]string `json:"failures,omitempty"`
	Invalid    int                     `json:"invalid"`
	Screened   map[string]int          `json:"screened,omitempty"`
	Passed     int                     `json:"passed"`
	Inserted   int                     `json:"inserted"`
	Merged     int                     `json:"merged"`
	Evaluated  int                     `json:"evaluated"`
	Qualified  int                     `json:"qualified"`
	Accepted   int                     `json:"accepted"`
	EvalFailed int                     `json:"eval_failed"`
	ByProvider map[model.Provider]int  `json:"by_provider,omitempty"`
}

// NewRunSummary starts a run summary clocked from now.
func NewRunSummary() *RunSummary {
	return &RunSummary{
		RunID:      uuid.New().String(),
		StartedAt:  time.Now().UTC(),
		Scraped:    make(map[model.Source]int),
		Failures:   make(map[model.Source]string),
		Screened:   make(map[string]int),
		ByProvider: make(map[model.Provider]int),
	}
}

// AddScraped records n raw leads pulled from a source.
func (s *RunSummary) AddScraped(source model.Source, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scraped[source] += n
}

// AddFailure records a scrape failure for a source.
func (s *RunSummary) AddFailure(source model.Source, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures[source] = err.Error()
}

// AddInvalid records a lead dropped by structural validation.
func (s *RunSummary) AddInvalid() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalid++
}

// AddScreened records a lead rejected by the pre-validation cascade at the
// named stage.
func (s *RunSummary) AddScreened(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Screened[stage]++
}

// AddPassed records a lead that survived pre-validation.
func (s *RunSummary) AddPassed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Passed++
}

// AddStored records a store upsert outcome.
func (s *RunSummary) AddStored(effect store.Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch effect {
	case store.EffectInserted:
		s.Inserted++
	case store.EffectMerged:
		s.Merged++
	}
}

// SetOutcome folds the qualification outcome into the summary.
func (s *RunSummary) SetOutcome(out qualify.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Evaluated = out.Evaluated
	s.Qualified = out.Qualified
	s.Accepted = out.Accepted
	s.EvalFailed = out.Failed
	for p, n := range out.ByProvider {
		s.ByProvider[p] = n
	}
}

// Finish stamps the end of the run.
func (s *RunSummary) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinishedAt = time.Now().UTC()
}

// Snapshot returns a copy safe to hand to other goroutines.
func (s *RunSummary) Snapshot() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := RunSummary{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Invalid:    s.Invalid,
		Passed:     s.Passed,
		Inserted:   s.Inserted,
		Merged:     s.Merged,
		Evaluated:  s.Evaluated,
		Qualified:  s.Qualified,
		Accepted:   s.Accepted,
		EvalFailed: s.EvalFailed,
		Scraped:    make(map[model.Source]int, len(s.Scraped)),
		Failures:   make(map[model.Source]string, len(s.Failures)),
		Screened:   make(map[string]int, len(s.Screened)),
		ByProvider: make(map[model.Provider]int, len(s.ByProvider)),
	}
	for k, v := range s.Scraped {
		cp.Scraped[k] = v
	}
	for k, v := range s.Failures {
		cp.Failures[k] = v
	}
	for k, v := range s.Screened {
		cp.Screened[k] = v
	}
	for k, v := range s.ByProvider {
		cp.ByProvider[k] = v
	}
	return &cp
}

// TotalScraped sums raw lead counts across sources.
func (s *RunSummary) TotalScraped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.Scraped {
		total += n
	}
	return total
}

// Log writes the one-line run summary.
func (s *RunSummary) Log() {
	snap := s.Snapshot()
	total := 0
	for _, n := range snap.Scraped {
		total += n
	}
	zap.L().Info("run summary",
		zap.String("run_id", snap.RunID),
		zap.Int("scraped", total),
		zap.Int("invalid", snap.Invalid),
		zap.Any("screened", snap.Screened),
		zap.Int("passed", snap.Passed),
		zap.Int("inserted", snap.Inserted),
		zap.Int("merged", snap.Merged),
		zap.Int("evaluated", snap.Evaluated),
		zap.Int("qualified", snap.Qualified),
		zap.Int("accepted", snap.Accepted),
		zap.Int("eval_failed", snap.EvalFailed),
		zap.Any("by_provider", snap.ByProvider),
		zap.Int("scrape_failures", len(snap.Failures)),
		zap.Duration("elapsed", snap.FinishedAt.Sub(snap.StartedAt)),
	)
}

// MetricsSnapshot holds a point-in-time view of the lead store plus the most
// recent run, served on /v1/summary.
type MetricsSnapshot struct {
	TotalLeads     int         `json:"total_leads"`
	QualifiedLeads int         `json:"qualified_leads"`
	TopConfidence  float64     `json:"top_confidence"`
	LastRun        *RunSummary `json:"last_run,omitempty"`
	CollectedAt    time.Time   `json:"collected_at"`
}

// Collector gathers metrics from the store and the last completed run.
type Collector struct {
	store store.Store

	mu      sync.Mutex
	lastRun *RunSummary
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// RecordRun stores the snapshot of a completed run for later collection.
func (c *Collector) RecordRun(s *RunSummary) {
	snap := s.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRun = snap
}

// Collect gathers a snapshot of store and run metrics. minConfidence is the
// acceptance threshold used to count qualified leads.
func (c *Collector) Collect(ctx context.Context, minConfidence float64) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{CollectedAt: time.Now().UTC()}

	total, err := c.store.CountLeads(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count leads")
	}
	snap.TotalLeads = total

	qualified, err := c.store.ListQualified(ctx, minConfidence)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list qualified")
	}
	snap.QualifiedLeads = len(qualified)
	if len(qualified) > 0 && qualified[0].Qualification != nil {
		snap.TopConfidence = qualified[0].Qualification.Confidence
	}

	c.mu.Lock()
	snap.LastRun = c.lastRun
	c.mu.Unlock()

	return snap, nil
}
