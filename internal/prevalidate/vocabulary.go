package prevalidate

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Vocabulary holds the phrase sets driving the cascade. All phrases are
// matched case-insensitively as substrings of the normalized lead text.
type Vocabulary struct {
	// Spam phrases indicate self-promotion or announcements (stage 1).
	Spam []string `yaml:"spam"`
	// Hiring phrases indicate job postings, which are the inverse of a
	// service inquiry (stage 1).
	Hiring []string `yaml:"hiring"`
	// Explicit phrases are direct help-seeking language (stage 2).
	Explicit []string `yaml:"explicit"`
	// Implicit maps a signal category to its phrases (stage 3). Passing
	// requires matches in at least two distinct categories.
	Implicit map[string][]string `yaml:"implicit"`
}

// DefaultVocabulary returns the built-in phrase sets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Spam: []string{
			"check out our", "our platform offers", "we provide services",
			"proud to announce", "join our webinar", "register now",
			"click here", "buy now", "limited time offer",
			"visit our website", "dm for more", "link in bio",
			"excited to announce", "just launched",
		},
		Hiring: []string{
			"we are hiring", "we're hiring", "job opening",
			"apply now", "submit your resume", "send cv to",
			"position available", "now accepting applications",
		},
		Explicit: []string{
			"looking for",
			"need advice", "need help", "need guidance",
			"need suggestions", "need recommendations",
			"seeking advice", "seeking help", "seeking recommendations",
			"any advice", "any suggestions", "any recommendations",
			"anyone recommend", "anyone suggest", "anyone know",
			"does anyone", "can someone",
			"who can help", "where can i", "how do i", "what should i",
			"help me", "help needed", "advice needed",
			"recommendations needed", "suggestions welcome",
			"looking to hire", "considering", "evaluating", "exploring options",
			"which is best", "what's the best", "whats the best",
			"best way to", "best solution", "best platform",
		},
		Implicit: map[string][]string{
			"problem": {
				"struggling with", "having trouble", "can't figure out",
				"issues with", "problems with", "challenge with",
				"difficulty with", "stuck on", "blocked by",
			},
			"budget": {
				"considering hiring", "thinking about", "planning to",
				"budget for", "budget:", "price range", "cost estimate",
				"willing to pay", "looking to invest",
			},
			"experience": {
				"has anyone", "anyone experienced", "anyone here",
				"anyone tried", "anyone worked with",
			},
			"resource": {
				"what tool", "which platform", "which service",
				"recommend", "suggestion", "advice",
			},
			"need": {
				"we need", "i need", "our company needs",
				"our project requires", "requirement for",
				"must have", "essential to have",
			},
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file and merges it over the
// defaults. Phrases in the file extend the built-in sets; implicit
// categories merge by name.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()

	data, err := os.ReadFile(path)
	if err != nil {
		return v, eris.Wrapf(err, "prevalidate: read vocabulary %s", path)
	}

	var extra Vocabulary
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return v, eris.Wrap(err, "prevalidate: parse vocabulary")
	}

	v.Spam = append(v.Spam, extra.Spam...)
	v.Hiring = append(v.Hiring, extra.Hiring...)
	v.Explicit = append(v.Explicit, extra.Explicit...)
	for cat, phrases := range extra.Implicit {
		if v.Implicit == nil {
			v.Implicit = make(map[string][]string)
		}
		v.Implicit[cat] = append(v.Implicit[cat], phrases...)
	}

	return v, nil
}
