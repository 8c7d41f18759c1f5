package pregrade

import (
	"fmt"
	"strings"
)

// ArgumentGrader checks free-form reasoning answers for coverage of the
// theses listed in the reference, separated by ";". Every thesis must be
// found (fuzzily) somewhere in the submission for full credit; partial
// coverage yields a proportional score so graders see how close it was.
type ArgumentGrader struct{}

func (ArgumentGrader) Grade(given, reference string) Result {
	theses := splitTheses(reference)
	if len(theses) == 0 {
		return Result{Comment: "reference has no theses"}
	}

	givenText := strings.Join(normalizeWords(given), " ")
	var missing []string
	for _, thesis := range theses {
		thesisText := strings.Join(normalizeWords(thesis), " ")
		if thesisText == "" {
			continue
		}
		if partialRatio(thesisText, givenText) < fuzzyThreshold(len(strings.Fields(thesisText))) {
			missing = append(missing, thesis)
		}
	}

	if len(missing) == 0 {
		return Result{Score: 1}
	}

	covered := len(theses) - len(missing)
	return Result{
		Score:   float64(covered) / float64(len(theses)),
		Comment: fmt.Sprintf("missing: %s", strings.Join(missing, "; ")),
	}
}

func splitTheses(reference string) []string {
	var theses []string
	for _, part := range strings.Split(reference, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			theses = append(theses, trimmed)
		}
	}
	return theses
}
