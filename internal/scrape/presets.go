package scrape

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Presets bundles the tunable scraping vocabulary: which keywords flag a
// message as lead-shaped, which subreddits to watch, and which phrases to
// search for directly.
type Presets struct {
	Keywords      []string `yaml:"keywords"`
	Subreddits    []string `yaml:"subreddits"`
	SearchPhrases []string `yaml:"search_phrases"`
}

// DefaultPresets returns the built-in scraping vocabulary.
func DefaultPresets() *Presets {
	return &Presets{
		Keywords: []string{
			"looking for",
			"need help",
			"recommendation",
			"suggestions",
			"outsource",
			"consultant",
			"agency",
		},
		Subreddits: []string{
			"rwa",
		},
		SearchPhrases: []string{
			"need help tokenizing",
			"looking for tokenization service",
			"best RWA platform",
			"real estate tokenization service",
			"need asset tokenization",
			"tokenization provider",
			"how to tokenize assets",
			"tokenization platform recommendation",
		},
	}
}

// servicePresets maps a service preset name to the keyword set scrapers
// filter on. "general" is the default vocabulary and "all" is the union of
// every set.
var servicePresets = map[string][]string{
	"rwa": {
		"tokenize",
		"tokenization",
		"real world asset",
		"rwa platform",
		"asset tokenization",
		"security token",
		"fractional ownership",
	},
	"crypto": {
		"crypto integration",
		"defi",
		"token launch",
		"crypto exchange",
		"wallet integration",
		"crypto development",
	},
	"ai": {
		"ai automation",
		"machine learning",
		"ml model",
		"chatbot",
		"llm integration",
		"ai consultant",
	},
	"blockchain": {
		"blockchain development",
		"smart contract",
		"dapp",
		"web3",
		"distributed ledger",
		"custom blockchain",
	},
}

// KeywordPreset returns the keyword set for a service preset name, matched
// case-insensitively. Returns false for unknown names.
func KeywordPreset(name string) ([]string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "general":
		return DefaultPresets().Keywords, true
	case "all":
		var all []string
		all = append(all, DefaultPresets().Keywords...)
		for _, svc := range []string{"rwa", "crypto", "ai", "blockchain"} {
			all = append(all, servicePresets[svc]...)
		}
		return all, true
	}
	kws, ok := servicePresets[key]
	return kws, ok
}

// LoadPresets reads a YAML preset file, filling unset sections from the
// defaults. An empty path returns the defaults unchanged.
func LoadPresets(path string) (*Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read presets %s", path)
	}

	var loaded Presets
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, eris.Wrapf(err, "parse presets %s", path)
	}

	if len(loaded.Keywords) > 0 {
		presets.Keywords = loaded.Keywords
	}
	if len(loaded.Subreddits) > 0 {
		presets.Subreddits = loaded.Subreddits
	}
	if len(loaded.SearchPhrases) > 0 {
		presets.SearchPhrases = loaded.SearchPhrases
	}
	return presets, nil
}
