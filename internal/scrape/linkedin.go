package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/model"
)

const apifyBaseURL = "https://api.apify.com/v2"

// LinkedInConfig configures both LinkedIn scrapers.
type LinkedInConfig struct {
	Keywords   []string `yaml:"keywords" mapstructure:"keywords"`
	MaxResults int      `yaml:"max_results" mapstructure:"max_results"`

	// Apify settings. When Token is empty the Apify scraper is disabled
	// and only the public search scraper runs.
	ApifyToken   string `yaml:"apify_token" mapstructure:"apify_token"`
	ApifyActorID string `yaml:"apify_actor_id" mapstructure:"apify_actor_id"`
	// DailyRunCap bounds Apify actor runs per day to control spend.
	DailyRunCap int `yaml:"daily_run_cap" mapstructure:"daily_run_cap"`
}

// LinkedInPublicScraper fetches the public content search page without
// authentication. Best effort: LinkedIn serves logged-out visitors an
// inconsistent page, so extraction is lenient and an empty result is not an
// error.
type LinkedInPublicScraper struct {
	cfg     LinkedInConfig
	http    *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewLinkedInPublic creates the unauthenticated LinkedIn scraper.
func NewLinkedInPublic(cfg LinkedInConfig) *LinkedInPublicScraper {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	return &LinkedInPublicScraper{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
		baseURL: "https://www.linkedin.com",
	}
}

func (s *LinkedInPublicScraper) Source() model.Source {
	return model.SourceLinkedInPublic
}

// publicKeywordLimit caps how many keywords the public scraper searches,
// since each search is a full page fetch against an unauthenticated session.
const publicKeywordLimit = 5

func (s *LinkedInPublicScraper) Scrape(ctx context.Context) ([]model.Lead, error) {
	keywords := s.cfg.Keywords
	if len(keywords) > publicKeywordLimit {
		keywords = keywords[:publicKeywordLimit]
	}

	var leads []model.Lead
	for _, kw := range keywords {
		kwLeads, err := s.searchKeyword(ctx, kw)
		if err != nil {
			return nil, eris.Wrapf(err, "linkedin: search %q", kw)
		}
		leads = append(leads, kwLeads...)
	}
	return leads, nil
}

func (s *LinkedInPublicScraper) searchKeyword(ctx context.Context, keyword string) ([]model.Lead, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit wait")
	}

	endpoint := fmt.Sprintf("%s/search/results/content/?keywords=%s&origin=GLOBAL_SEARCH_HEADER",
		s.baseURL, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch search page")
	}
	defer resp.Body.Close()

	// Logged-out sessions frequently get redirected or rate limited.
	// Treat anything but a clean page as no results.
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "read search page")
	}

	return s.extractPosts(string(body)), nil
}

var (
	linkedinPostRe = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*update-components-text[^"]*"[^>]*>(.*?)</div>`)
	linkedinURNRe  = regexp.MustCompile(`urn:li:activity:(\d+)`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
)

// extractPosts pulls post bodies out of the search results HTML. The markup
// shifts often, so this matches loosely and drops anything implausible.
func (s *LinkedInPublicScraper) extractPosts(html string) []model.Lead {
	urns := linkedinURNRe.FindAllStringSubmatch(html, -1)
	texts := linkedinPostRe.FindAllStringSubmatch(html, -1)

	var leads []model.Lead
	for i, m := range texts {
		if i >= len(urns) || i >= s.cfg.MaxResults {
			break
		}
		content := strings.TrimSpace(htmlTagRe.ReplaceAllString(m[1], " "))
		content = strings.Join(strings.Fields(content), " ")
		if len(content) < 30 {
			continue
		}

		activityID := urns[i][1]
		leads = append(leads, model.Lead{
			ID:        model.NewLeadID(model.SourceLinkedInPublic, activityID),
			Source:    model.SourceLinkedInPublic,
			URL:       fmt.Sprintf("https://www.linkedin.com/feed/update/urn:li:activity:%s/", activityID),
			Content:   content,
			Author:    "LinkedIn User",
			Timestamp: time.Now().UTC(),
		})
	}
	return leads
}

// LinkedInApifyScraper drives an Apify actor that searches LinkedIn posts,
// then reads the run's dataset. Actor runs cost money, so runs are capped
// per day.
type LinkedInApifyScraper struct {
	cfg     LinkedInConfig
	http    *http.Client
	baseURL string

	runsToday int
	windowDay string
	now       func() time.Time
}

// NewLinkedInApify creates the Apify-backed LinkedIn scraper.
func NewLinkedInApify(cfg LinkedInConfig) *LinkedInApifyScraper {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.ApifyActorID == "" {
		cfg.ApifyActorID = "curious_coder~linkedin-post-search-scraper"
	}
	if cfg.DailyRunCap <= 0 {
		cfg.DailyRunCap = 10
	}
	return &LinkedInApifyScraper{
		cfg:     cfg,
		http:    &http.Client{Timeout: 120 * time.Second},
		baseURL: apifyBaseURL,
		now:     time.Now,
	}
}

func (s *LinkedInApifyScraper) Source() model.Source {
	return model.SourceLinkedInApify
}

func (s *LinkedInApifyScraper) Scrape(ctx context.Context) ([]model.Lead, error) {
	if s.cfg.ApifyToken == "" {
		return nil, eris.New("linkedin: apify token not configured")
	}

	var leads []model.Lead
	for _, kw := range s.cfg.Keywords {
		if !s.allowRun() {
			break
		}
		items, err := s.runActor(ctx, kw)
		if err != nil {
			return nil, eris.Wrapf(err, "linkedin: apify run for %q", kw)
		}
		leads = append(leads, items...)
	}
	return leads, nil
}

// allowRun enforces the daily actor-run cap.
func (s *LinkedInApifyScraper) allowRun() bool {
	day := s.now().UTC().Format("2006-01-02")
	if day != s.windowDay {
		s.windowDay = day
		s.runsToday = 0
	}
	if s.runsToday >= s.cfg.DailyRunCap {
		return false
	}
	s.runsToday++
	return true
}

type apifyRun struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

type apifyPost struct {
	Text       string `json:"text"`
	Commentary string `json:"commentary"`
	AuthorName string `json:"authorName"`
	PostURL    string `json:"postUrl"`
	URL        string `json:"url"`
	PostID     string `json:"postId"`
	PostedAt   string `json:"postedAt"`
	Likes      int    `json:"likes"`
	Reactions  struct {
		Total int `json:"total"`
	} `json:"reactions"`
}

func (s *LinkedInApifyScraper) runActor(ctx context.Context, keyword string) ([]model.Lead, error) {
	searchURL := fmt.Sprintf("https://www.linkedin.com/search/results/content/?keywords=%s", url.QueryEscape(keyword))
	input := map[string]any{
		"urls":     []string{searchURL},
		"maxPosts": s.cfg.MaxResults,
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "marshal actor input")
	}

	// Run the actor synchronously; Apify blocks until the run finishes or
	// the wait window expires.
	endpoint := fmt.Sprintf("%s/acts/%s/runs?token=%s&waitForFinish=120",
		s.baseURL, url.PathEscape(s.cfg.ApifyActorID), url.QueryEscape(s.cfg.ApifyToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(inputJSON)))
	if err != nil {
		return nil, eris.Wrap(err, "create run request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "start actor run")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read run response")
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("actor run returned %d: %s", resp.StatusCode, body)
	}

	var run apifyRun
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, eris.Wrap(err, "decode run response")
	}
	if run.Data.Status != "SUCCEEDED" {
		return nil, eris.Errorf("actor run %s finished with status %s", run.Data.ID, run.Data.Status)
	}

	return s.fetchDataset(ctx, run.Data.DefaultDatasetID)
}

func (s *LinkedInApifyScraper) fetchDataset(ctx context.Context, datasetID string) ([]model.Lead, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?token=%s",
		s.baseURL, url.PathEscape(datasetID), url.QueryEscape(s.cfg.ApifyToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create dataset request")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch dataset")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read dataset")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("dataset fetch returned %d", resp.StatusCode)
	}

	var items []apifyPost
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, eris.Wrap(err, "decode dataset items")
	}

	var leads []model.Lead
	for _, item := range items {
		lead, ok := s.toLead(item)
		if !ok {
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func (s *LinkedInApifyScraper) toLead(item apifyPost) (model.Lead, bool) {
	content := item.Text
	if content == "" {
		content = item.Commentary
	}
	if content == "" {
		return model.Lead{}, false
	}

	postURL := item.PostURL
	if postURL == "" {
		postURL = item.URL
	}
	if postURL == "" && item.PostID != "" {
		postURL = fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", item.PostID)
	}
	if postURL == "" {
		return model.Lead{}, false
	}

	author := item.AuthorName
	if author == "" {
		author = "LinkedIn User"
	}

	posted := time.Now().UTC()
	if item.PostedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.PostedAt); err == nil {
			posted = t.UTC()
		}
	}

	engagement := item.Likes
	if item.Reactions.Total > engagement {
		engagement = item.Reactions.Total
	}

	nativeID := item.PostID
	if nativeID == "" {
		nativeID = postURL
	}

	return model.Lead{
		ID:         model.NewLeadID(model.SourceLinkedInApify, nativeID),
		Source:     model.SourceLinkedInApify,
		URL:        postURL,
		Content:    content,
		Author:     author,
		Timestamp:  posted,
		Engagement: engagement,
	}, true
}
