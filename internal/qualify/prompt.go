package qualify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/leadscout/internal/model"
)

// promptContentLimit caps how much lead content is sent to a provider.
const promptContentLimit = 2000

const systemPrompt = `You are qualifying sales leads. ONLY qualify if someone is ACTIVELY SEEKING our services.

OUR SERVICES:
- RWA: Tokenizing real-world assets on blockchain
- Crypto: DeFi, crypto integration, exchanges
- Web3: Web3 apps, smart contracts, dApps
- Blockchain: Custom blockchain, distributed ledger, consensus
- AI/ML: AI automation, ML models, chatbots, neural networks

QUALIFICATION RULES:

HIGH CONFIDENCE (0.8-1.0) - QUALIFY ONLY IF:
1. Contains a help-seeking phrase, for example:
   "looking for [service/consultant/agency/solution/platform]",
   "need help [with/implementing/building]",
   "recommend a [service/tool/platform/consultant]",
   "anyone know [a good/any/where to find]",
   "seeking [expert/consultant/developer/agency]",
   "can someone help me [with/find]",
   "suggestions for [service/platform/tool]",
   "best [platform/service/tool] for",
   "who can help [me/us] with",
   "where can I find [service/consultant]"
2. AND describes a problem or need related to our services
3. AND is clearly asking for external help, not DIY or learning

MODERATE (0.4-0.7) - UNCERTAIN:
- Asks vague "how to" without clearly seeking a service
- Discusses challenges but does not explicitly ask for help
- Educational questions that might lead to a service need
- Mentions considering hiring but unclear

LOW (0.0-0.3) - DO NOT QUALIFY:
- Just discussing or learning about a topic, no help request
- Sharing news, articles, opinions, updates
- Promoting their own product or service
- Explaining concepts to others
- Announcing their own solution or launch

CRITICAL RULES:
1. Be STRICT: only qualify if EXPLICITLY asking for external service or help
2. Quote the exact help-seeking phrase found in your reason
3. If no help-seeking phrase is present, set is_qualified=false
4. Discussions about topics are not service requests
5. Learning or curiosity is not a service inquiry

Respond with ONLY valid JSON, no markdown fences, in this exact format:
{
  "is_qualified": true or false,
  "confidence_score": 0.0 to 1.0,
  "reason": "Quote the help-seeking phrase found, or explain why not qualified (1-2 sentences)",
  "service_match": subset of ["RWA", "Crypto", "Web3", "Blockchain", "AI/ML"] or []
}`

// truncateContent caps s at limit bytes, backing off to a rune boundary so
// the cut never produces invalid UTF-8.
func truncateContent(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// buildPrompt renders the user message for a single lead evaluation.
func buildPrompt(req Request) string {
	content := truncateContent(req.Content, promptContentLimit)

	text := content
	if req.Title != "" {
		text = req.Title + "\n\n" + content
	}

	var b strings.Builder
	if req.Restrict != "" && req.Restrict != model.ServiceGeneral {
		fmt.Fprintf(&b, "MANDATORY FILTER: %s SERVICE ONLY\n\n", strings.ToUpper(string(req.Restrict)))
		fmt.Fprintf(&b, "You MUST ONLY qualify leads asking for the %s service specifically.\n", req.Restrict)
		fmt.Fprintf(&b, "- If asking for %s: check if qualified using the rules\n", req.Restrict)
		b.WriteString("- If asking for OTHER services: set is_qualified=false, confidence_score=0.0\n")
		b.WriteString("- If unclear which service: set confidence_score to at most 0.3\n\n")
	}
	b.WriteString("Lead Content:\n")
	b.WriteString(text)
	return b.String()
}
