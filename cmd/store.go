package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/qualify"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/scrape"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/gemini"
	"github.com/sells-group/leadscout/pkg/openai"
	sfpkg "github.com/sells-group/leadscout/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADSCOUT_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}

// initOrchestrator wires the OpenAI primary and Gemini fallback providers.
// maxLeads and restrict come from command flags; zero values mean unlimited
// and unrestricted.
func initOrchestrator(maxLeads int, restrict model.ServiceTag, minConfidence float64) (*qualify.Orchestrator, error) {
	if cfg.OpenAI.Key == "" {
		return nil, eris.New("openai API key is required (LEADSCOUT_OPENAI_KEY)")
	}
	if cfg.Gemini.Key == "" {
		return nil, eris.New("gemini API key is required (LEADSCOUT_GEMINI_KEY)")
	}

	primary := qualify.NewOpenAIProvider(openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
	))
	secondary := qualify.NewGeminiProvider(gemini.NewClient(cfg.Gemini.Key,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
	))

	retry := resilience.DefaultRetryConfig()
	if cfg.Qualify.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Qualify.MaxRetries
	}
	if minConfidence <= 0 {
		minConfidence = cfg.Qualify.MinConfidence
	}

	return qualify.New(primary, secondary, qualify.Config{
		MaxConcurrent: cfg.Qualify.MaxConcurrent,
		MaxLeads:      maxLeads,
		MinConfidence: minConfidence,
		Restrict:      restrict,
		Retry:         retry,
	}), nil
}

// buildScrapers assembles the scraper set for the requested sources. Sources
// whose credentials are missing are skipped with a warning rather than
// failing the whole run.
func buildScrapers(sources []string, presets *scrape.Presets) ([]scrape.Scraper, error) {
	var scrapers []scrape.Scraper

	for _, name := range sources {
		src, err := model.ParseSource(name)
		if err != nil {
			return nil, err
		}

		switch src {
		case model.SourceReddit:
			rcfg := cfg.Reddit
			if len(rcfg.Subreddits) == 0 {
				rcfg.Subreddits = presets.Subreddits
			}
			if len(rcfg.SearchPhrases) == 0 {
				rcfg.SearchPhrases = presets.SearchPhrases
			}
			scrapers = append(scrapers, scrape.NewReddit(rcfg))

		case model.SourceDiscord:
			if cfg.Discord.BotToken == "" {
				zap.L().Warn("discord bot token not configured, skipping source")
				continue
			}
			dcfg := cfg.Discord
			if len(dcfg.Keywords) == 0 {
				dcfg.Keywords = presets.Keywords
			}
			scrapers = append(scrapers, scrape.NewDiscord(dcfg))

		case model.SourceSlack:
			if cfg.Slack.BotToken == "" {
				zap.L().Warn("slack bot token not configured, skipping source")
				continue
			}
			scfg := cfg.Slack
			if len(scfg.Keywords) == 0 {
				scfg.Keywords = presets.Keywords
			}
			scrapers = append(scrapers, scrape.NewSlack(scfg))

		case model.SourceLinkedInPublic:
			lcfg := cfg.LinkedIn
			if len(lcfg.Keywords) == 0 {
				lcfg.Keywords = presets.Keywords
			}
			scrapers = append(scrapers, scrape.NewLinkedInPublic(lcfg))

		case model.SourceLinkedInApify:
			if cfg.LinkedIn.ApifyToken == "" {
				zap.L().Warn("apify token not configured, skipping source")
				continue
			}
			lcfg := cfg.LinkedIn
			if len(lcfg.Keywords) == 0 {
				lcfg.Keywords = presets.Keywords
			}
			scrapers = append(scrapers, scrape.NewLinkedInApify(lcfg))
		}
	}

	return scrapers, nil
}
