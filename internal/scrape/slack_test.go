package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSlackScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations.history" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("channel"); got != "C012345" {
			t.Errorf("channel = %q", got)
		}
		w.Write([]byte(`{
			"ok": true,
			"messages": [
				{
					"type": "message",
					"user": "U777",
					"text": "Need help integrating a crypto payment rail, any suggestions?",
					"ts": "1735000000.000100",
					"reactions": [{"count": 4}]
				},
				{
					"type": "message",
					"subtype": "channel_join",
					"user": "U888",
					"text": "has joined the channel",
					"ts": "1735000001.000100"
				}
			]
		}`))
	}))
	defer server.Close()

	s := NewSlack(SlackConfig{
		BotToken:   "xoxb-test",
		Workspace:  "acme",
		ChannelIDs: []string{"C012345"},
		Keywords:   []string{"need help"},
	})
	s.baseURL = server.URL

	leads, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1 (subtype filtered)", len(leads))
	}

	lead := leads[0]
	if lead.URL != "https://acme.slack.com/archives/C012345/p1735000000000100" {
		t.Errorf("URL = %q", lead.URL)
	}
	if lead.Author != "U777" {
		t.Errorf("Author = %q", lead.Author)
	}
	if lead.Engagement != 4 {
		t.Errorf("Engagement = %d", lead.Engagement)
	}
	if lead.Timestamp.Unix() != 1735000000 {
		t.Errorf("Timestamp = %v", lead.Timestamp)
	}
}

func TestSlackScrapeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}))
	defer server.Close()

	s := NewSlack(SlackConfig{BotToken: "xoxb-test", ChannelIDs: []string{"C0"}})
	s.baseURL = server.URL

	_, err := s.Scrape(context.Background())
	if err == nil {
		t.Fatal("expected error for not-ok response")
	}
}

func TestParseSlackTS(t *testing.T) {
	if _, err := parseSlackTS("garbage"); err == nil {
		t.Error("expected error for malformed timestamp")
	}
	ts, err := parseSlackTS("1735000000.000100")
	if err != nil {
		t.Fatalf("parseSlackTS: %v", err)
	}
	if ts.Unix() != 1735000000 {
		t.Errorf("ts = %v", ts)
	}
}
