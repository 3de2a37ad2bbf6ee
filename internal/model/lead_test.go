package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validLead() Lead {
	return Lead{
		ID:         NewLeadID(SourceReddit, "t3_abc123"),
		Source:     SourceReddit,
		URL:        "https://reddit.com/r/rwa/comments/abc123",
		Title:      "Looking for a tokenization platform",
		Content:    "We need help tokenizing a real estate portfolio, any recommendations?",
		Author:     "u/founder",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Engagement: 4,
	}
}

func TestLeadValidate_OK(t *testing.T) {
	l := validLead()
	if err := l.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLeadValidate_Failures(t *testing.T) {
	cases := map[string]func(*Lead){
		"bad source":       func(l *Lead) { l.Source = "myspace" },
		"empty author":     func(l *Lead) { l.Author = "  " },
		"empty content":    func(l *Lead) { l.Content = "" },
		"oversize content": func(l *Lead) { l.Content = strings.Repeat("x", maxContentLength+1) },
		"relative url":     func(l *Lead) { l.URL = "reddit.com/r/rwa" },
		"zero timestamp":   func(l *Lead) { l.Timestamp = time.Time{} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			l := validLead()
			mutate(&l)
			err := l.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidLead) {
				t.Errorf("error does not wrap ErrInvalidLead: %v", err)
			}
		})
	}
}

func TestNewLeadID_Stable(t *testing.T) {
	a := NewLeadID(SourceDiscord, "msg-42")
	b := NewLeadID(SourceDiscord, "msg-42")
	if a != b {
		t.Errorf("ids differ: %s vs %s", a, b)
	}
	if a == NewLeadID(SourceSlack, "msg-42") {
		t.Error("ids collide across sources")
	}
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("  Reddit ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != SourceReddit {
		t.Errorf("got %q", src)
	}
	if _, err := ParseSource("telegram"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestParseServiceTag(t *testing.T) {
	tag, err := ParseServiceTag("ai/ml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != ServiceAIML {
		t.Errorf("got %q", tag)
	}
	if _, err := ParseServiceTag("fintech"); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestQualificationMatches(t *testing.T) {
	q := QualificationResult{ServiceMatch: []ServiceTag{ServiceRWA, ServiceBlockchain}}
	if !q.Matches(ServiceRWA) {
		t.Error("expected RWA match")
	}
	if q.Matches(ServiceCrypto) {
		t.Error("did not expect Crypto match")
	}
}

func TestLeadText(t *testing.T) {
	l := validLead()
	if got := l.Text(); !strings.HasPrefix(got, l.Title) || !strings.HasSuffix(got, l.Content) {
		t.Errorf("unexpected text: %q", got)
	}
	l.Title = ""
	if got := l.Text(); got != l.Content {
		t.Errorf("unexpected text without title: %q", got)
	}
}
