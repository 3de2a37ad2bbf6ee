package qualify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

const (
	defaultMaxConcurrent = 5
	defaultMinConfidence = 0.7
)

// ExhaustedError means every provider in the chain failed for a lead.
type ExhaustedError struct {
	PrimaryErr   error
	SecondaryErr error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted: primary: %v; secondary: %v", e.PrimaryErr, e.SecondaryErr)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{e.PrimaryErr, e.SecondaryErr}
}

// Config tunes the orchestrator. Zero values take defaults.
type Config struct {
	// MaxConcurrent bounds in-flight provider calls during QualifyAll.
	MaxConcurrent int
	// MaxLeads caps how many evaluations QualifyAll dispatches; each
	// dispatch costs a provider call. Zero means unlimited.
	MaxLeads int
	// MinConfidence is the inclusive acceptance threshold.
	MinConfidence float64
	// Restrict, when set, limits qualification to one service offering.
	Restrict model.ServiceTag

	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

// Orchestrator drives lead qualification across a primary and secondary
// provider. Quota exhaustion on the primary fails over to the secondary
// immediately, without retrying the primary; transient failures are retried
// on the same provider first. Each provider is gated by its own circuit
// breaker so a dead provider stops being probed on every lead.
type Orchestrator struct {
	primary   Provider
	secondary Provider

	primaryCB   *resilience.CircuitBreaker
	secondaryCB *resilience.CircuitBreaker

	cfg Config
	now func() time.Time
}

// New creates an orchestrator over a primary and secondary provider.
func New(primary, secondary Provider, cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	return &Orchestrator{
		primary:     primary,
		secondary:   secondary,
		primaryCB:   resilience.NewCircuitBreaker(cfg.Breaker),
		secondaryCB: resilience.NewCircuitBreaker(cfg.Breaker),
		cfg:         cfg,
		now:         time.Now,
	}
}

// Qualify evaluates a single lead. The primary provider is tried first; any
// failure that survives its retry budget falls through to the secondary.
// When both fail the returned error is an *ExhaustedError carrying both
// causes.
func (o *Orchestrator) Qualify(ctx context.Context, lead *model.Lead) (*model.QualificationResult, error) {
	req := Request{Title: lead.Title, Content: lead.Content, Restrict: o.cfg.Restrict}

	result, primaryErr := o.evaluate(ctx, o.primary, o.primaryCB, req)
	if primaryErr == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	zap.L().Warn("primary provider failed, failing over",
		zap.String("provider", string(o.primary.Name())),
		zap.Bool("quota", resilience.IsQuota(primaryErr)),
		zap.String("url", lead.URL),
		zap.Error(primaryErr))

	result, secondaryErr := o.evaluate(ctx, o.secondary, o.secondaryCB, req)
	if secondaryErr == nil {
		return result, nil
	}

	return nil, &ExhaustedError{PrimaryErr: primaryErr, SecondaryErr: secondaryErr}
}

// evaluate runs one provider under its circuit breaker and retry budget.
// Only transient failures are retried; quota and open-circuit errors abort
// immediately so failover happens without burning the retry budget.
func (o *Orchestrator) evaluate(ctx context.Context, p Provider, cb *resilience.CircuitBreaker, req Request) (*model.QualificationResult, error) {
	cfg := o.cfg.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(string(p.Name()), "qualify")
	}

	result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.QualificationResult, error) {
		if err := cb.Allow(); err != nil {
			return nil, err
		}
		res, evalErr := p.Evaluate(ctx, req)
		cb.Record(evalErr)
		return res, evalErr
	})
	if err != nil {
		return nil, err
	}

	result.EvaluatedAt = o.now()
	return result, nil
}

// Outcome summarizes a QualifyAll run.
type Outcome struct {
	Evaluated  int
	Qualified  int
	Accepted   int
	Failed     int
	Skipped    int
	ByProvider map[model.Provider]int
}

// QualifyAll evaluates leads with bounded concurrency, attaching each verdict
// to its lead in place. MaxLeads caps evaluations dispatched, not acceptances:
// every dispatch is a paid provider call, so the cap must hold even when
// nothing clears the acceptance bar. Leads past the cap are counted as
// skipped. Provider failures are isolated per lead and counted, never fatal
// to the run; only context cancellation aborts early.
func (o *Orchestrator) QualifyAll(ctx context.Context, leads []*model.Lead) (*Outcome, error) {
	outcome := &Outcome{ByProvider: make(map[model.Provider]int)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrent)

	dispatched := 0
	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}
		if o.cfg.MaxLeads > 0 && dispatched >= o.cfg.MaxLeads {
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			continue
		}
		dispatched++

		lead := lead
		g.Go(func() error {
			result, err := o.Qualify(ctx, lead)

			mu.Lock()
			defer mu.Unlock()
			outcome.Evaluated++
			if err != nil {
				outcome.Failed++
				zap.L().Error("qualification failed",
					zap.String("url", lead.URL),
					zap.Error(err))
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			lead.Qualification = result
			outcome.ByProvider[result.Provider]++
			if result.IsQualified {
				outcome.Qualified++
			}
			if Accept(result, o.cfg.MinConfidence, o.cfg.Restrict) {
				outcome.Accepted++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcome, err
	}

	zap.L().Info("qualification run complete",
		zap.Int("evaluated", outcome.Evaluated),
		zap.Int("qualified", outcome.Qualified),
		zap.Int("accepted", outcome.Accepted),
		zap.Int("failed", outcome.Failed),
		zap.Int("skipped", outcome.Skipped))

	return outcome, nil
}
