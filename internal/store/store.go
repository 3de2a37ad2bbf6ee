// Package store persists leads, deduplicated by URL.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// ErrNotFound is returned when a lead URL has no record.
var ErrNotFound = eris.New("lead not found")

// Effect reports what an upsert did.
type Effect string

const (
	EffectInserted Effect = "inserted"
	EffectMerged   Effect = "merged"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Source        model.Source `json:"source,omitempty"`
	QualifiedOnly bool         `json:"qualified_only,omitempty"`
	Limit         int          `json:"limit,omitempty"`
	Offset        int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead pipeline. Leads are
// keyed by URL: upserting a URL that already exists merges the new
// observation into the stored record instead of duplicating it.
type Store interface {
	UpsertLead(ctx context.Context, lead *model.Lead) (Effect, error)
	GetLead(ctx context.Context, url string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	// ListQualified returns accepted leads ordered by confidence, highest
	// first.
	ListQualified(ctx context.Context, minConfidence float64) ([]model.Lead, error)
	CountLeads(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// MergeLead folds a fresh observation of a URL into its stored record.
// The observation with the newer post timestamp supplies the content
// fields. Qualification never regresses: an evaluated record beats an
// unevaluated one, and between two verdicts the later evaluation wins.
// Both backends share this policy so switching databases never changes
// merge behavior.
func MergeLead(existing, incoming *model.Lead) *model.Lead {
	merged := *existing

	if !incoming.Timestamp.Before(existing.Timestamp) {
		merged.ID = incoming.ID
		merged.Source = incoming.Source
		merged.Title = incoming.Title
		merged.Content = incoming.Content
		merged.Author = incoming.Author
		merged.Timestamp = incoming.Timestamp
		merged.Engagement = incoming.Engagement
	}

	merged.Qualification = mergeQualification(existing.Qualification, incoming.Qualification)
	return &merged
}

func mergeQualification(prev, next *model.QualificationResult) *model.QualificationResult {
	switch {
	case next == nil:
		return prev
	case prev == nil:
		return next
	case next.EvaluatedAt.Before(prev.EvaluatedAt):
		return prev
	default:
		return next
	}
}
