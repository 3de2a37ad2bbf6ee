package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/model"
)

const redditBaseURL = "https://www.reddit.com"

// RedditConfig configures the Reddit scraper.
type RedditConfig struct {
	UserAgent     string   `yaml:"user_agent" mapstructure:"user_agent"`
	Subreddits    []string `yaml:"subreddits" mapstructure:"subreddits"`
	SearchPhrases []string `yaml:"search_phrases" mapstructure:"search_phrases"`
	MaxResults    int      `yaml:"max_results" mapstructure:"max_results"`
	// RateLimit is requests per minute. Reddit allows 60/min unauthenticated.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RedditScraper pulls recent posts from help-seeking subreddits via the
// public listing API, plus targeted search for high-intent phrases. The
// subreddit selection does the pre-filtering here, so no keyword filter is
// applied to listings.
type RedditScraper struct {
	cfg     RedditConfig
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewReddit creates a Reddit scraper.
func NewReddit(cfg RedditConfig) *RedditScraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "leadscout/1.0"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	perMinute := cfg.RateLimit
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RedditScraper{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		baseURL: redditBaseURL,
	}
}

func (s *RedditScraper) Source() model.Source {
	return model.SourceReddit
}

func (s *RedditScraper) Scrape(ctx context.Context) ([]model.Lead, error) {
	var leads []model.Lead

	for _, sub := range s.cfg.Subreddits {
		posts, err := s.listNew(ctx, sub)
		if err != nil {
			return nil, eris.Wrapf(err, "reddit: scrape r/%s", sub)
		}
		leads = append(leads, posts...)
	}

	for _, phrase := range s.cfg.SearchPhrases {
		posts, err := s.search(ctx, phrase)
		if err != nil {
			return nil, eris.Wrapf(err, "reddit: search %q", phrase)
		}
		leads = append(leads, posts...)
	}

	return leads, nil
}

func (s *RedditScraper) listNew(ctx context.Context, subreddit string) ([]model.Lead, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=%d", s.baseURL, url.PathEscape(subreddit), s.cfg.MaxResults)
	return s.fetchListing(ctx, endpoint)
}

func (s *RedditScraper) search(ctx context.Context, phrase string) ([]model.Lead, error) {
	endpoint := fmt.Sprintf("%s/search.json?q=%s&t=month&limit=20", s.baseURL, url.QueryEscape(phrase))
	return s.fetchListing(ctx, endpoint)
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

func (s *RedditScraper) fetchListing(ctx context.Context, endpoint string) ([]model.Lead, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "reddit: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create request")
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: fetch listing")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("reddit: listing returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: read listing")
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, eris.Wrap(err, "reddit: decode listing")
	}

	var leads []model.Lead
	for _, child := range listing.Data.Children {
		lead, ok := s.toLead(child.Data)
		if !ok {
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func (s *RedditScraper) toLead(post redditPost) (model.Lead, bool) {
	if post.Author == "" || post.Author == "[deleted]" {
		return model.Lead{}, false
	}
	content := post.SelfText
	if content == "" {
		content = post.Title
	}
	if content == "" {
		return model.Lead{}, false
	}

	return model.Lead{
		ID:         model.NewLeadID(model.SourceReddit, post.Name),
		Source:     model.SourceReddit,
		URL:        s.baseURL + post.Permalink,
		Title:      post.Title,
		Content:    content,
		Author:     "u/" + post.Author,
		Timestamp:  time.Unix(int64(post.CreatedUTC), 0).UTC(),
		Engagement: post.Score + post.NumComments,
	}, true
}
