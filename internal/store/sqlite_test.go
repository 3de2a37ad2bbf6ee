package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func redditLead(id string, posted time.Time) *model.Lead {
	return &model.Lead{
		ID:         model.NewLeadID(model.SourceReddit, id),
		Source:     model.SourceReddit,
		URL:        "https://reddit.com/r/web3/comments/" + id,
		Title:      "Looking for a tokenization platform",
		Content:    "We need help tokenizing our real estate portfolio.",
		Author:     "u/founder",
		Timestamp:  posted,
		Engagement: 7,
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	lead := redditLead("t3_abc", time.Now().UTC())
	effect, err := s.UpsertLead(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, EffectInserted, effect)

	got, err := s.GetLead(ctx, lead.URL)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, got.ID)
	assert.Equal(t, lead.Content, got.Content)
	assert.Nil(t, got.Qualification)

	n, err := s.CountLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_GetLead_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetLead(context.Background(), "https://reddit.com/nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_UpsertDeduplicatesByURL(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := redditLead("t3_abc", time.Now().UTC().Add(-time.Hour))
	_, err := s.UpsertLead(ctx, first)
	require.NoError(t, err)

	second := redditLead("t3_abc", time.Now().UTC())
	second.Content = "Updated post body after edit."
	second.Engagement = 55

	effect, err := s.UpsertLead(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, EffectMerged, effect)

	n, err := s.CountLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "same URL must not create a second row")

	got, err := s.GetLead(ctx, first.URL)
	require.NoError(t, err)
	assert.Equal(t, "Updated post body after edit.", got.Content)
	assert.Equal(t, 55, got.Engagement)
}

func TestSQLiteStore_MergePreservesQualification(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	evaluated := redditLead("t3_abc", time.Now().UTC().Add(-time.Hour))
	evaluated.Qualification = &model.QualificationResult{
		IsQualified:  true,
		Confidence:   0.85,
		Reason:       "asks for a tokenization platform",
		ServiceMatch: []model.ServiceTag{model.ServiceRWA},
		Provider:     model.ProviderOpenAI,
		EvaluatedAt:  time.Now().UTC().Add(-30 * time.Minute),
	}
	_, err := s.UpsertLead(ctx, evaluated)
	require.NoError(t, err)

	// Re-scrape of the same URL carries no verdict.
	rescrape := redditLead("t3_abc", time.Now().UTC())
	effect, err := s.UpsertLead(ctx, rescrape)
	require.NoError(t, err)
	assert.Equal(t, EffectMerged, effect)

	got, err := s.GetLead(ctx, evaluated.URL)
	require.NoError(t, err)
	require.NotNil(t, got.Qualification, "merge erased the verdict")
	assert.Equal(t, 0.85, got.Qualification.Confidence)
	assert.Equal(t, model.ProviderOpenAI, got.Qualification.Provider)
	assert.True(t, got.Qualification.Matches(model.ServiceRWA))
}

func TestSQLiteStore_LaterEvaluationReplacesEarlier(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	lead := redditLead("t3_abc", time.Now().UTC())
	lead.Qualification = &model.QualificationResult{
		IsQualified: true,
		Confidence:  0.9,
		Provider:    model.ProviderOpenAI,
		EvaluatedAt: time.Now().UTC().Add(-time.Hour),
	}
	_, err := s.UpsertLead(ctx, lead)
	require.NoError(t, err)

	reevaluated := redditLead("t3_abc", time.Now().UTC())
	reevaluated.Qualification = &model.QualificationResult{
		IsQualified: false,
		Confidence:  0.2,
		Provider:    model.ProviderGemini,
		EvaluatedAt: time.Now().UTC(),
	}
	_, err = s.UpsertLead(ctx, reevaluated)
	require.NoError(t, err)

	got, err := s.GetLead(ctx, lead.URL)
	require.NoError(t, err)
	require.NotNil(t, got.Qualification)
	assert.False(t, got.Qualification.IsQualified)
	assert.Equal(t, model.ProviderGemini, got.Qualification.Provider)
}

func TestSQLiteStore_ListLeadsFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	reddit := redditLead("t3_abc", time.Now().UTC())
	_, err := s.UpsertLead(ctx, reddit)
	require.NoError(t, err)

	discord := &model.Lead{
		ID:        model.NewLeadID(model.SourceDiscord, "123456"),
		Source:    model.SourceDiscord,
		URL:       "https://discord.com/channels/1/2/123456",
		Content:   "Anyone know a good Web3 developer?",
		Author:    "builder#0001",
		Timestamp: time.Now().UTC(),
		Qualification: &model.QualificationResult{
			IsQualified: true,
			Confidence:  0.8,
			Provider:    model.ProviderOpenAI,
			EvaluatedAt: time.Now().UTC(),
		},
	}
	_, err = s.UpsertLead(ctx, discord)
	require.NoError(t, err)

	bySource, err := s.ListLeads(ctx, LeadFilter{Source: model.SourceReddit})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, reddit.URL, bySource[0].URL)

	qualified, err := s.ListLeads(ctx, LeadFilter{QualifiedOnly: true})
	require.NoError(t, err)
	require.Len(t, qualified, 1)
	assert.Equal(t, discord.URL, qualified[0].URL)

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_ConcurrentUpsertsSameURL(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lead := redditLead("t3_same", time.Now().UTC())
			lead.Engagement = i
			_, err := s.UpsertLead(ctx, lead)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	n, err := s.CountLeads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ListLeadsZeroLimitUnbounded(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	const total = 120
	for i := 0; i < total; i++ {
		lead := redditLead(fmt.Sprintf("t3_%03d", i), time.Now().UTC())
		_, err := s.UpsertLead(ctx, lead)
		require.NoError(t, err)
	}

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, total)

	limited, err := s.ListLeads(ctx, LeadFilter{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, limited, 5)

	rest, err := s.ListLeads(ctx, LeadFilter{Offset: 100})
	require.NoError(t, err)
	assert.Len(t, rest, total-100)
}

func TestSQLiteStore_ListQualifiedOrdering(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	confidences := []float64{0.72, 0.95, 0.81, 0.4}
	for i, c := range confidences {
		lead := redditLead("t3_"+string(rune('a'+i)), time.Now().UTC())
		lead.Qualification = &model.QualificationResult{
			IsQualified: c >= 0.5,
			Confidence:  c,
			Provider:    model.ProviderOpenAI,
			EvaluatedAt: time.Now().UTC(),
		}
		_, err := s.UpsertLead(ctx, lead)
		require.NoError(t, err)
	}

	got, err := s.ListQualified(ctx, 0.7)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var order []float64
	for _, l := range got {
		order = append(order, l.Qualification.Confidence)
	}
	assert.Equal(t, []float64{0.95, 0.81, 0.72}, order)
}
