package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Provider identifies which inference backend produced a verdict.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ServiceTag is one entry in the fixed service vocabulary.
type ServiceTag string

const (
	ServiceRWA        ServiceTag = "RWA"
	ServiceCrypto     ServiceTag = "Crypto"
	ServiceAIML       ServiceTag = "AI/ML"
	ServiceBlockchain ServiceTag = "Blockchain"
	ServiceWeb3       ServiceTag = "Web3"
	ServiceGeneral    ServiceTag = "General"
)

// AllServiceTags returns the full service vocabulary in stable order.
func AllServiceTags() []ServiceTag {
	return []ServiceTag{
		ServiceRWA,
		ServiceCrypto,
		ServiceAIML,
		ServiceBlockchain,
		ServiceWeb3,
		ServiceGeneral,
	}
}

// ParseServiceTag matches a tag case-insensitively against the vocabulary.
func ParseServiceTag(s string) (ServiceTag, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, tag := range AllServiceTags() {
		if norm == strings.ToLower(string(tag)) {
			return tag, nil
		}
	}
	return "", eris.Errorf("unknown service tag %q", s)
}

// QualificationResult is the verdict a provider attached to a lead.
// Confidence is only meaningful alongside IsQualified; a lead with no
// result has never been evaluated, which is distinct from rejected.
type QualificationResult struct {
	IsQualified  bool         `json:"is_qualified"`
	Confidence   float64      `json:"confidence_score"`
	Reason       string       `json:"reason"`
	ServiceMatch []ServiceTag `json:"service_match"`
	Provider     Provider     `json:"llm_provider"`
	EvaluatedAt  time.Time    `json:"evaluated_at"`
}

// Matches reports whether the verdict's service set contains the tag.
func (q *QualificationResult) Matches(tag ServiceTag) bool {
	for _, t := range q.ServiceMatch {
		if t == tag {
			return true
		}
	}
	return false
}
