// Package model defines the lead domain types shared across the pipeline.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Source identifies the platform a lead was scraped from.
type Source string

const (
	SourceReddit         Source = "reddit"
	SourceDiscord        Source = "discord"
	SourceSlack          Source = "slack"
	SourceLinkedInPublic Source = "linkedin_public"
	SourceLinkedInApify  Source = "linkedin_apify"
)

// AllSources returns every known source in stable order.
func AllSources() []Source {
	return []Source{
		SourceReddit,
		SourceDiscord,
		SourceSlack,
		SourceLinkedInPublic,
		SourceLinkedInApify,
	}
}

// ParseSource validates a source name from CLI or config input.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSources() {
		if src == known {
			return src, nil
		}
	}
	return "", eris.Errorf("unknown source %q", s)
}

// ErrInvalidLead is the sentinel for leads that fail structural validation.
// Such leads are reported and excluded before the cascade; they never reach
// the store.
var ErrInvalidLead = eris.New("invalid lead")

// maxContentLength caps lead body text; longer content is almost always a
// pasted article or spam dump rather than an inquiry.
const maxContentLength = 10000

// Lead is one scraped candidate post or message.
type Lead struct {
	ID            string               `json:"id"`
	Source        Source               `json:"source"`
	URL           string               `json:"url"`
	Title         string               `json:"title,omitempty"`
	Content       string               `json:"content"`
	Author        string               `json:"author"`
	Timestamp     time.Time            `json:"timestamp"`
	Engagement    int                  `json:"engagement"`
	Qualification *QualificationResult `json:"qualification,omitempty"`
}

// NewLeadID derives a stable lead identifier from the source and the
// platform-native id, so re-scrapes of the same post produce the same ID.
func NewLeadID(source Source, nativeID string) string {
	return fmt.Sprintf("%s:%s", source, nativeID)
}

// Validate checks required fields. All failures wrap ErrInvalidLead.
func (l *Lead) Validate() error {
	if _, err := ParseSource(string(l.Source)); err != nil {
		return eris.Wrapf(ErrInvalidLead, "source %q", l.Source)
	}
	if strings.TrimSpace(l.Author) == "" {
		return eris.Wrap(ErrInvalidLead, "author is empty")
	}
	if strings.TrimSpace(l.Content) == "" {
		return eris.Wrap(ErrInvalidLead, "content is empty")
	}
	if len(l.Content) > maxContentLength {
		return eris.Wrapf(ErrInvalidLead, "content exceeds %d chars", maxContentLength)
	}
	if !strings.HasPrefix(l.URL, "http://") && !strings.HasPrefix(l.URL, "https://") {
		return eris.Wrapf(ErrInvalidLead, "url %q is not absolute", l.URL)
	}
	if l.Timestamp.IsZero() {
		return eris.Wrap(ErrInvalidLead, "timestamp is zero")
	}
	return nil
}

// Text returns title and content joined for matching and prompting.
func (l *Lead) Text() string {
	if l.Title == "" {
		return l.Content
	}
	return l.Title + "\n\n" + l.Content
}
