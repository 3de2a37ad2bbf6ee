package qualify

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// verdictWire is the JSON shape providers are instructed to return.
type verdictWire struct {
	IsQualified     *bool    `json:"is_qualified"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Reason          string   `json:"reason"`
	ServiceMatch    []string `json:"service_match"`
}

// parseVerdict decodes a provider's raw completion into a result. Models
// sometimes wrap the JSON in markdown fences despite instructions, so those
// are stripped first. Unknown service tags are dropped, and the confidence
// score is clamped to [0, 1].
func parseVerdict(raw string) (*model.QualificationResult, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, eris.New("empty verdict")
	}

	var wire verdictWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, eris.Wrapf(err, "decode verdict %q", truncate(cleaned, 200))
	}
	if wire.IsQualified == nil {
		return nil, eris.New("verdict missing is_qualified")
	}
	if wire.ConfidenceScore == nil {
		return nil, eris.New("verdict missing confidence_score")
	}

	confidence := *wire.ConfidenceScore
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	var tags []model.ServiceTag
	for _, s := range wire.ServiceMatch {
		tag, err := model.ParseServiceTag(s)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}

	return &model.QualificationResult{
		IsQualified:  *wire.IsQualified,
		Confidence:   confidence,
		Reason:       wire.Reason,
		ServiceMatch: tags,
	}, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
