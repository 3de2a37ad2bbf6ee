package qualify

import "github.com/sells-group/leadscout/internal/model"

// Accept decides whether a verdict clears the acceptance bar. The confidence
// threshold is inclusive. When restrict names a specific service the verdict
// must match it; the General tag restricts nothing. Accept is a pure
// predicate over the verdict, so re-applying it never changes the answer.
func Accept(result *model.QualificationResult, minConfidence float64, restrict model.ServiceTag) bool {
	if result == nil || !result.IsQualified {
		return false
	}
	if result.Confidence < minConfidence {
		return false
	}
	if restrict != "" && restrict != model.ServiceGeneral && !result.Matches(restrict) {
		return false
	}
	return true
}
