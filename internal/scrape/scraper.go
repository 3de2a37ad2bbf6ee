// Package scrape collects raw leads from the configured source platforms.
package scrape

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/model"
)

// Scraper collects leads from one source platform.
type Scraper interface {
	Source() model.Source
	Scrape(ctx context.Context) ([]model.Lead, error)
}

// RunResult aggregates the output of a fan-out over all scrapers.
type RunResult struct {
	Leads  []model.Lead
	Errors map[model.Source]error
}

// RunAll runs every scraper concurrently. A failing source is recorded in
// Errors and does not stop the others; only context cancellation aborts
// the whole run.
func RunAll(ctx context.Context, scrapers []Scraper) (*RunResult, error) {
	result := &RunResult{Errors: make(map[model.Source]error)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, sc := range scrapers {
		sc := sc
		g.Go(func() error {
			leads, err := sc.Scrape(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				zap.L().Error("source scrape failed",
					zap.String("source", string(sc.Source())),
					zap.Error(err))
				result.Errors[sc.Source()] = err
				return nil
			}
			zap.L().Info("source scraped",
				zap.String("source", string(sc.Source())),
				zap.Int("leads", len(leads)))
			result.Leads = append(result.Leads, leads...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// matchesKeywords reports whether text contains any of the keywords,
// case-insensitively. An empty keyword list matches everything.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
