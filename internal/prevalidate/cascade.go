// Package prevalidate implements the cost gate: a three-stage phrase
// cascade that rejects obvious non-inquiries before any paid inference
// call. It is pure and deterministic; only a small minority of scraped
// leads should survive it.
package prevalidate

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadscout/internal/model"
)

// Stage identifies which cascade stage decided a verdict.
type Stage int

const (
	// StageSpam rejects on stacked spam/promotion/hiring indicators.
	StageSpam Stage = iota + 1
	// StageExplicit passes on a single explicit help-seeking phrase.
	StageExplicit
	// StageImplicit passes on two or more distinct implicit signal
	// categories, or rejects when neither stage 2 nor stage 3 fires.
	StageImplicit
)

func (s Stage) String() string {
	switch s {
	case StageSpam:
		return "spam"
	case StageExplicit:
		return "explicit"
	case StageImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of screening a single lead.
type Verdict struct {
	Pass           bool     `json:"pass"`
	Stage          Stage    `json:"stage"`
	MatchedSignals []string `json:"matched_signals,omitempty"`
}

// spamRejectThreshold tolerates a single spam/hiring phrase to avoid
// false positives on ordinary text; two distinct indicators reject.
const spamRejectThreshold = 2

// implicitPassThreshold: any single implicit signal is too weak alone.
const implicitPassThreshold = 2

// Screener applies the cascade against a vocabulary.
type Screener struct {
	vocab Vocabulary
}

// New creates a screener with the given vocabulary.
func New(vocab Vocabulary) *Screener {
	return &Screener{vocab: vocab}
}

// Screen runs the cascade against a lead's title and content. It
// short-circuits on the first rejecting stage. A lead passes only when it
// survives stage 1 and satisfies stage 2 or stage 3.
func (s *Screener) Screen(lead *model.Lead) Verdict {
	text := Normalize(lead.Text())

	// Stage 1: stacked spam or hiring indicators are a hard reject.
	spamHits := matchAll(text, s.vocab.Spam)
	hiringHits := matchAll(text, s.vocab.Hiring)
	if len(spamHits) >= spamRejectThreshold || len(hiringHits) >= spamRejectThreshold {
		return Verdict{
			Pass:           false,
			Stage:          StageSpam,
			MatchedSignals: append(spamHits, hiringHits...),
		}
	}

	// Stage 2: one explicit help-seeking phrase is enough.
	if hits := matchAll(text, s.vocab.Explicit); len(hits) > 0 {
		return Verdict{
			Pass:           true,
			Stage:          StageExplicit,
			MatchedSignals: hits,
		}
	}

	// Stage 3: weaker signals need two distinct categories.
	var categories []string
	var hits []string
	for cat, phrases := range s.vocab.Implicit {
		catHits := matchAll(text, phrases)
		if len(catHits) > 0 {
			categories = append(categories, cat)
			hits = append(hits, catHits...)
		}
	}
	sort.Strings(categories)

	if len(categories) >= implicitPassThreshold {
		return Verdict{
			Pass:           true,
			Stage:          StageImplicit,
			MatchedSignals: hits,
		}
	}

	return Verdict{
		Pass:           false,
		Stage:          StageImplicit,
		MatchedSignals: hits,
	}
}

// Normalize lowercases, applies Unicode NFKC, and collapses whitespace so
// phrase matching is stable across platforms and copy-paste artifacts.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}

func matchAll(text string, phrases []string) []string {
	var hits []string
	for _, p := range phrases {
		if strings.Contains(text, p) {
			hits = append(hits, p)
		}
	}
	return hits
}
