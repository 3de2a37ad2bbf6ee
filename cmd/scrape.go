package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/prevalidate"
	"github.com/sells-group/leadscout/internal/scrape"
	"github.com/sells-group/leadscout/internal/store"
)

var (
	scrapeSources         []string
	scrapeService         string
	scrapeMaxLeads        int
	scrapeMinConfidence   float64
	scrapeSkipPrevalidate bool
	scrapeQualify         bool
	scrapePresetsPath     string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape all sources for candidate leads",
	Long:  "Fans out over the configured sources, validates and screens the results, and stores survivors. With --qualify, runs LLM qualification in the same invocation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		restrict, err := parseRestrict(scrapeService)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		presetsPath := scrapePresetsPath
		if presetsPath == "" {
			presetsPath = cfg.Scrape.PresetsPath
		}
		presets, err := scrape.LoadPresets(presetsPath)
		if err != nil {
			return err
		}
		applyServicePreset(presets, scrapeService)

		sources := scrapeSources
		if len(sources) == 0 {
			sources = cfg.Scrape.Sources
		}
		scrapers, err := buildScrapers(sources, presets)
		if err != nil {
			return err
		}
		if len(scrapers) == 0 {
			return eris.New("no sources available to scrape")
		}

		summary := monitoring.NewRunSummary()

		result, err := scrape.RunAll(ctx, scrapers)
		if err != nil {
			return eris.Wrap(err, "scrape run")
		}
		for src, srcErr := range result.Errors {
			summary.AddFailure(src, srcErr)
		}
		perSource := make(map[model.Source]int)
		for i := range result.Leads {
			perSource[result.Leads[i].Source]++
		}
		for src, n := range perSource {
			summary.AddScraped(src, n)
		}

		stored, err := screenAndStore(ctx, st, result.Leads, summary)
		if err != nil {
			return err
		}

		if scrapeQualify && len(stored) > 0 {
			orch, err := initOrchestrator(scrapeMaxLeads, restrict, scrapeMinConfidence)
			if err != nil {
				return err
			}

			outcome, err := orch.QualifyAll(ctx, stored)
			if err != nil {
				return eris.Wrap(err, "qualify leads")
			}
			summary.SetOutcome(*outcome)

			for _, lead := range stored {
				if lead.Qualification == nil {
					continue
				}
				if _, err := st.UpsertLead(ctx, lead); err != nil {
					return eris.Wrapf(err, "store verdict for %s", lead.URL)
				}
			}
		}

		summary.Finish()
		summary.Log()
		return nil
	},
}

// screenAndStore validates and screens raw leads, upserts survivors, and
// returns pointers to the stored leads for optional qualification.
func screenAndStore(ctx context.Context, st store.Store, leads []model.Lead, summary *monitoring.RunSummary) ([]*model.Lead, error) {
	vocab := prevalidate.DefaultVocabulary()
	if path := cfg.Scrape.VocabularyPath; path != "" {
		loaded, err := prevalidate.LoadVocabulary(path)
		if err != nil {
			return nil, err
		}
		vocab = loaded
	}
	screener := prevalidate.New(vocab)

	var stored []*model.Lead
	for i := range leads {
		lead := &leads[i]

		if err := lead.Validate(); err != nil {
			summary.AddInvalid()
			zap.L().Warn("dropping invalid lead",
				zap.String("url", lead.URL),
				zap.Error(err),
			)
			continue
		}

		if !scrapeSkipPrevalidate && !cfg.Scrape.SkipPrevalidate {
			verdict := screener.Screen(lead)
			if !verdict.Pass {
				summary.AddScreened(verdict.Stage.String())
				continue
			}
		}
		summary.AddPassed()

		effect, err := st.UpsertLead(ctx, lead)
		if err != nil {
			return nil, eris.Wrapf(err, "store lead %s", lead.URL)
		}
		summary.AddStored(effect)
		stored = append(stored, lead)
	}
	return stored, nil
}

// applyServicePreset swaps the scraping keywords for the named service
// preset. Names without a preset (plain tags like "Web3") leave the
// keywords alone and only restrict qualification.
func applyServicePreset(presets *scrape.Presets, service string) {
	if service == "" {
		return
	}
	kws, ok := scrape.KeywordPreset(service)
	if !ok {
		return
	}
	presets.Keywords = kws
	zap.L().Info("using service keyword preset",
		zap.String("service", service),
		zap.Int("keywords", len(kws)),
	)
}

// parseRestrict maps the --service flag to a service tag. Empty and "all"
// mean no restriction; "ai" is shorthand for the AI/ML tag.
func parseRestrict(s string) (model.ServiceTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case "ai":
		return model.ServiceAIML, nil
	}
	return model.ParseServiceTag(s)
}

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeSources, "sources", nil, "sources to scrape (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeService, "service", "", "service preset: selects scraping keywords and restricts qualification (rwa, crypto, ai, blockchain, general, all)")
	scrapeCmd.Flags().IntVar(&scrapeMaxLeads, "max-leads", 0, "evaluate at most this many leads (0 = unlimited)")
	scrapeCmd.Flags().Float64Var(&scrapeMinConfidence, "min-confidence", 0, "acceptance threshold (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeSkipPrevalidate, "skip-prevalidate", false, "send every valid lead to qualification")
	scrapeCmd.Flags().BoolVar(&scrapeQualify, "qualify", false, "qualify stored leads in the same run")
	scrapeCmd.Flags().StringVar(&scrapePresetsPath, "presets", "", "path to YAML presets file")
	rootCmd.AddCommand(scrapeCmd)
}
