package monitoring

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/qualify"
	"github.com/sells-group/leadscout/internal/store"
)

// fakeStore implements store.Store with canned data for collector tests.
type fakeStore struct {
	total     int
	qualified []model.Lead
	countErr  error
}

func (f *fakeStore) UpsertLead(ctx context.Context, lead *model.Lead) (store.Effect, error) {
	return store.EffectInserted, nil
}

func (f *fakeStore) GetLead(ctx context.Context, url string) (*model.Lead, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	return nil, nil
}

func (f *fakeStore) ListQualified(ctx context.Context, minConfidence float64) ([]model.Lead, error) {
	return f.qualified, nil
}

func (f *fakeStore) CountLeads(ctx context.Context) (int, error) {
	return f.total, f.countErr
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

func TestCollector_EmptyStore(t *testing.T) {
	c := NewCollector(&fakeStore{})

	snap, err := c.Collect(context.Background(), 0.7)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.TotalLeads)
	assert.Equal(t, 0, snap.QualifiedLeads)
	assert.Zero(t, snap.TopConfidence)
	assert.Nil(t, snap.LastRun)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_StoreMetrics(t *testing.T) {
	st := &fakeStore{
		total: 12,
		qualified: []model.Lead{
			{URL: "https://a", Qualification: &model.QualificationResult{IsQualified: true, Confidence: 0.91}},
			{URL: "https://b", Qualification: &model.QualificationResult{IsQualified: true, Confidence: 0.74}},
		},
	}
	c := NewCollector(st)

	snap, err := c.Collect(context.Background(), 0.7)
	require.NoError(t, err)

	assert.Equal(t, 12, snap.TotalLeads)
	assert.Equal(t, 2, snap.QualifiedLeads)
	assert.InDelta(t, 0.91, snap.TopConfidence, 0.001)
}

func TestCollector_StoreError(t *testing.T) {
	c := NewCollector(&fakeStore{countErr: eris.New("boom")})

	_, err := c.Collect(context.Background(), 0.7)
	assert.Error(t, err)
}

func TestCollector_RecordRun(t *testing.T) {
	c := NewCollector(&fakeStore{})

	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 10)
	run.AddScraped(model.SourceDiscord, 4)
	run.AddInvalid()
	run.AddScreened("spam")
	run.AddPassed()
	run.AddStored(store.EffectInserted)
	run.AddStored(store.EffectMerged)
	run.SetOutcome(qualify.Outcome{
		Evaluated: 8,
		Qualified: 3,
		Accepted:  2,
		Failed:    1,
		ByProvider: map[model.Provider]int{
			model.ProviderOpenAI: 7,
			model.ProviderGemini: 1,
		},
	})
	run.Finish()
	c.RecordRun(run)

	snap, err := c.Collect(context.Background(), 0.7)
	require.NoError(t, err)

	require.NotNil(t, snap.LastRun)
	assert.Equal(t, 10, snap.LastRun.Scraped[model.SourceReddit])
	assert.Equal(t, 4, snap.LastRun.Scraped[model.SourceDiscord])
	assert.Equal(t, 1, snap.LastRun.Invalid)
	assert.Equal(t, 1, snap.LastRun.Screened["spam"])
	assert.Equal(t, 1, snap.LastRun.Passed)
	assert.Equal(t, 1, snap.LastRun.Inserted)
	assert.Equal(t, 1, snap.LastRun.Merged)
	assert.Equal(t, 8, snap.LastRun.Evaluated)
	assert.Equal(t, 2, snap.LastRun.Accepted)
	assert.Equal(t, 7, snap.LastRun.ByProvider[model.ProviderOpenAI])
	assert.False(t, snap.LastRun.FinishedAt.IsZero())
}

func TestRunSummary_SnapshotIsCopy(t *testing.T) {
	run := NewRunSummary()
	run.AddScraped(model.SourceSlack, 3)

	snap := run.Snapshot()
	run.AddScraped(model.SourceSlack, 2)

	assert.Equal(t, 3, snap.Scraped[model.SourceSlack])
	assert.Equal(t, 5, run.TotalScraped())
}
