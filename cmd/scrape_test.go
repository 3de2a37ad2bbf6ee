package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/scrape"
)

func TestParseRestrict(t *testing.T) {
	tag, err := parseRestrict("")
	require.NoError(t, err)
	assert.Equal(t, model.ServiceTag(""), tag)

	tag, err = parseRestrict("RWA")
	require.NoError(t, err)
	assert.Equal(t, model.ServiceRWA, tag)

	tag, err = parseRestrict("ai")
	require.NoError(t, err)
	assert.Equal(t, model.ServiceAIML, tag)

	tag, err = parseRestrict("all")
	require.NoError(t, err)
	assert.Equal(t, model.ServiceTag(""), tag)

	_, err = parseRestrict("bogus")
	assert.Error(t, err)
}

func TestApplyServicePreset(t *testing.T) {
	presets := scrape.DefaultPresets()
	defaults := presets.Keywords

	applyServicePreset(presets, "rwa")
	rwa, _ := scrape.KeywordPreset("rwa")
	assert.Equal(t, rwa, presets.Keywords)

	// Unknown names keep the current vocabulary.
	applyServicePreset(presets, "Web3")
	assert.Equal(t, rwa, presets.Keywords)

	presets = scrape.DefaultPresets()
	applyServicePreset(presets, "")
	assert.Equal(t, defaults, presets.Keywords)
}

func TestBuildScrapers_SkipsUnconfiguredSources(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	scrapers, err := buildScrapers(
		[]string{"reddit", "discord", "slack", "linkedin_public", "linkedin_apify"},
		scrape.DefaultPresets(),
	)
	require.NoError(t, err)

	// Discord, Slack and Apify need credentials; Reddit and the public
	// LinkedIn scraper do not.
	sources := make(map[model.Source]bool)
	for _, s := range scrapers {
		sources[s.Source()] = true
	}
	assert.True(t, sources[model.SourceReddit])
	assert.True(t, sources[model.SourceLinkedInPublic])
	assert.False(t, sources[model.SourceDiscord])
	assert.False(t, sources[model.SourceSlack])
	assert.False(t, sources[model.SourceLinkedInApify])
}

func TestBuildScrapers_UnknownSource(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	_, err := buildScrapers([]string{"myspace"}, scrape.DefaultPresets())
	assert.Error(t, err)
}

func TestScreenAndStore(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	st := newTestStore(t)
	summary := monitoring.NewRunSummary()

	invalid := sampleLead("not-a-url")
	invalid.URL = "not-a-url"
	spam := sampleLead("https://reddit.com/spam")
	spam.Content = "Buy now! Limited time offer, click here for our promo"
	good := sampleLead("https://reddit.com/good")
	good.Content = "We are looking for a consultant to help tokenize our fund, any recommendations?"

	stored, err := screenAndStore(context.Background(),
		st, []model.Lead{invalid, spam, good}, summary)
	require.NoError(t, err)

	require.Len(t, stored, 1)
	assert.Equal(t, "https://reddit.com/good", stored[0].URL)

	snap := summary.Snapshot()
	assert.Equal(t, 1, snap.Invalid)
	assert.Equal(t, 1, snap.Passed)
	assert.Equal(t, 1, snap.Inserted)
}

func TestScreenAndStore_DuplicateURLsMerge(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	st := newTestStore(t)
	summary := monitoring.NewRunSummary()

	first := sampleLead("https://reddit.com/dup")
	first.Content = "Looking for a blockchain development partner for a pilot"
	second := sampleLead("https://reddit.com/dup")
	second.Content = "Looking for a blockchain development partner, budget approved"
	noSignal := sampleLead("https://reddit.com/quiet")
	noSignal.Content = "Great weather in the city today"

	stored, err := screenAndStore(context.Background(),
		st, []model.Lead{first, second, noSignal}, summary)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	snap := summary.Snapshot()
	assert.Equal(t, 1, snap.Inserted)
	assert.Equal(t, 1, snap.Merged)
	assert.Equal(t, 1, snap.Screened["implicit"])

	count, err := st.CountLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
