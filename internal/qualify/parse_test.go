package qualify

import (
	"testing"

	"github.com/sells-group/leadscout/internal/model"
)

func TestParseVerdict(t *testing.T) {
	raw := `{"is_qualified": true, "confidence_score": 0.85, "reason": "asks for a tokenization platform", "service_match": ["RWA", "Blockchain"]}`
	result, err := parseVerdict(raw)
	if err != nil {
		t.Fatalf("parseVerdict: %v", err)
	}
	if !result.IsQualified {
		t.Error("IsQualified = false")
	}
	if result.Confidence != 0.85 {
		t.Errorf("Confidence = %v", result.Confidence)
	}
	if len(result.ServiceMatch) != 2 || result.ServiceMatch[0] != model.ServiceRWA {
		t.Errorf("ServiceMatch = %v", result.ServiceMatch)
	}
}

func TestParseVerdictMarkdownFences(t *testing.T) {
	raw := "```json\n{\"is_qualified\": false, \"confidence_score\": 0.1, \"reason\": \"discussion only\", \"service_match\": []}\n```"
	result, err := parseVerdict(raw)
	if err != nil {
		t.Fatalf("parseVerdict: %v", err)
	}
	if result.IsQualified {
		t.Error("IsQualified = true")
	}
	if result.Confidence != 0.1 {
		t.Errorf("Confidence = %v", result.Confidence)
	}
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	for raw, want := range map[string]float64{
		`{"is_qualified": true, "confidence_score": 1.7}`:  1,
		`{"is_qualified": true, "confidence_score": -0.3}`: 0,
	} {
		result, err := parseVerdict(raw)
		if err != nil {
			t.Fatalf("parseVerdict(%q): %v", raw, err)
		}
		if result.Confidence != want {
			t.Errorf("parseVerdict(%q).Confidence = %v, want %v", raw, result.Confidence, want)
		}
	}
}

func TestParseVerdictDropsUnknownTags(t *testing.T) {
	raw := `{"is_qualified": true, "confidence_score": 0.8, "service_match": ["ai/ml", "quantum", "web3"]}`
	result, err := parseVerdict(raw)
	if err != nil {
		t.Fatalf("parseVerdict: %v", err)
	}
	want := []model.ServiceTag{model.ServiceAIML, model.ServiceWeb3}
	if len(result.ServiceMatch) != len(want) {
		t.Fatalf("ServiceMatch = %v, want %v", result.ServiceMatch, want)
	}
	for i := range want {
		if result.ServiceMatch[i] != want[i] {
			t.Errorf("ServiceMatch[%d] = %q, want %q", i, result.ServiceMatch[i], want[i])
		}
	}
}

func TestParseVerdictErrors(t *testing.T) {
	cases := []string{
		"",
		"not json",
		`{"confidence_score": 0.5}`,
		`{"is_qualified": true}`,
	}
	for _, raw := range cases {
		if _, err := parseVerdict(raw); err == nil {
			t.Errorf("parseVerdict(%q) succeeded, want error", raw)
		}
	}
}
