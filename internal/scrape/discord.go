package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/model"
)

const discordBaseURL = "https://discord.com/api/v10"

// DiscordConfig configures the Discord scraper.
type DiscordConfig struct {
	BotToken   string   `yaml:"bot_token" mapstructure:"bot_token"`
	ChannelIDs []string `yaml:"channel_ids" mapstructure:"channel_ids"`
	Keywords   []string `yaml:"keywords" mapstructure:"keywords"`
	MaxResults int      `yaml:"max_results" mapstructure:"max_results"`
	// RateLimit is requests per second. Discord allows 50/s per bot.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DiscordScraper reads recent messages from configured channels through the
// bot API. Messages are keyword-filtered before becoming leads since Discord
// channels carry mostly unrelated chatter.
type DiscordScraper struct {
	cfg     DiscordConfig
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewDiscord creates a Discord scraper.
func NewDiscord(cfg DiscordConfig) *DiscordScraper {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	perSecond := cfg.RateLimit
	if perSecond <= 0 {
		perSecond = 50
	}
	return &DiscordScraper{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		baseURL: discordBaseURL,
	}
}

func (s *DiscordScraper) Source() model.Source {
	return model.SourceDiscord
}

func (s *DiscordScraper) Scrape(ctx context.Context) ([]model.Lead, error) {
	if s.cfg.BotToken == "" {
		return nil, eris.New("discord: bot token not configured")
	}

	var leads []model.Lead
	for _, channelID := range s.cfg.ChannelIDs {
		channelLeads, err := s.scrapeChannel(ctx, channelID)
		if err != nil {
			return nil, eris.Wrapf(err, "discord: scrape channel %s", channelID)
		}
		leads = append(leads, channelLeads...)
	}
	return leads, nil
}

type discordChannel struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

type discordMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    struct {
		Username string `json:"username"`
		Bot      bool   `json:"bot"`
	} `json:"author"`
	Reactions []struct {
		Count int `json:"count"`
	} `json:"reactions"`
}

func (s *DiscordScraper) scrapeChannel(ctx context.Context, channelID string) ([]model.Lead, error) {
	var channel discordChannel
	if err := s.get(ctx, fmt.Sprintf("%s/channels/%s", s.baseURL, channelID), &channel); err != nil {
		return nil, err
	}

	var messages []discordMessage
	endpoint := fmt.Sprintf("%s/channels/%s/messages?limit=%d", s.baseURL, channelID, s.cfg.MaxResults)
	if err := s.get(ctx, endpoint, &messages); err != nil {
		return nil, err
	}

	var leads []model.Lead
	for _, msg := range messages {
		if msg.Author.Bot || msg.Content == "" {
			continue
		}
		if !matchesKeywords(msg.Content, s.cfg.Keywords) {
			continue
		}

		engagement := 0
		for _, r := range msg.Reactions {
			engagement += r.Count
		}

		leads = append(leads, model.Lead{
			ID:         model.NewLeadID(model.SourceDiscord, msg.ID),
			Source:     model.SourceDiscord,
			URL:        fmt.Sprintf("https://discord.com/channels/%s/%s/%s", channel.GuildID, channelID, msg.ID),
			Title:      "#" + channel.Name,
			Content:    msg.Content,
			Author:     msg.Author.Username,
			Timestamp:  msg.Timestamp.UTC(),
			Engagement: engagement,
		})
	}
	return leads, nil
}

func (s *DiscordScraper) get(ctx context.Context, endpoint string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bot "+s.cfg.BotToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return eris.Wrap(json.Unmarshal(body, out), "decode response")
}
