package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/model"
)

const slackBaseURL = "https://slack.com/api"

// SlackConfig configures the Slack scraper.
type SlackConfig struct {
	BotToken   string   `yaml:"bot_token" mapstructure:"bot_token"`
	Workspace  string   `yaml:"workspace" mapstructure:"workspace"`
	ChannelIDs []string `yaml:"channel_ids" mapstructure:"channel_ids"`
	Keywords   []string `yaml:"keywords" mapstructure:"keywords"`
	MaxResults int      `yaml:"max_results" mapstructure:"max_results"`
	// RateLimit is requests per second. conversations.history is Tier 1,
	// one request per second.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SlackScraper reads recent messages from configured channels through the
// Web API. Like Discord, messages are keyword-filtered before becoming leads.
type SlackScraper struct {
	cfg     SlackConfig
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewSlack creates a Slack scraper.
func NewSlack(cfg SlackConfig) *SlackScraper {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	perSecond := cfg.RateLimit
	if perSecond <= 0 {
		perSecond = 1
	}
	return &SlackScraper{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		baseURL: slackBaseURL,
	}
}

func (s *SlackScraper) Source() model.Source {
	return model.SourceSlack
}

func (s *SlackScraper) Scrape(ctx context.Context) ([]model.Lead, error) {
	if s.cfg.BotToken == "" {
		return nil, eris.New("slack: bot token not configured")
	}

	var leads []model.Lead
	for _, channelID := range s.cfg.ChannelIDs {
		channelLeads, err := s.scrapeChannel(ctx, channelID)
		if err != nil {
			return nil, eris.Wrapf(err, "slack: scrape channel %s", channelID)
		}
		leads = append(leads, channelLeads...)
	}
	return leads, nil
}

type slackHistoryResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages []struct {
		Type      string `json:"type"`
		Subtype   string `json:"subtype"`
		User      string `json:"user"`
		Text      string `json:"text"`
		TS        string `json:"ts"`
		Reactions []struct {
			Count int `json:"count"`
		} `json:"reactions"`
	} `json:"messages"`
}

func (s *SlackScraper) scrapeChannel(ctx context.Context, channelID string) ([]model.Lead, error) {
	params := url.Values{
		"channel": {channelID},
		"limit":   {strconv.Itoa(s.cfg.MaxResults)},
	}

	var history slackHistoryResponse
	if err := s.get(ctx, "conversations.history", params, &history); err != nil {
		return nil, err
	}
	if !history.OK {
		return nil, eris.Errorf("slack API error: %s", history.Error)
	}

	var leads []model.Lead
	for _, msg := range history.Messages {
		if msg.Type != "message" || msg.Subtype != "" || msg.Text == "" || msg.User == "" {
			continue
		}
		if !matchesKeywords(msg.Text, s.cfg.Keywords) {
			continue
		}

		ts, err := parseSlackTS(msg.TS)
		if err != nil {
			continue
		}

		engagement := 0
		for _, r := range msg.Reactions {
			engagement += r.Count
		}

		leads = append(leads, model.Lead{
			ID:         model.NewLeadID(model.SourceSlack, channelID+"/"+msg.TS),
			Source:     model.SourceSlack,
			URL:        s.messageURL(channelID, msg.TS),
			Content:    msg.Text,
			Author:     msg.User,
			Timestamp:  ts,
			Engagement: engagement,
		})
	}
	return leads, nil
}

// messageURL builds the archive permalink for a message.
func (s *SlackScraper) messageURL(channelID, ts string) string {
	workspace := s.cfg.Workspace
	if workspace == "" {
		workspace = "app"
	}
	return fmt.Sprintf("https://%s.slack.com/archives/%s/p%s",
		workspace, channelID, strings.ReplaceAll(ts, ".", ""))
}

// parseSlackTS converts a Slack "seconds.microseconds" timestamp.
func parseSlackTS(ts string) (time.Time, error) {
	secs, _, found := strings.Cut(ts, ".")
	if !found {
		return time.Time{}, eris.Errorf("malformed slack timestamp %q", ts)
	}
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse slack timestamp %q", ts)
	}
	return time.Unix(n, 0).UTC(), nil
}

func (s *SlackScraper) get(ctx context.Context, method string, params url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	endpoint := s.baseURL + "/" + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.BotToken)

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
