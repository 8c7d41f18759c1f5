package pregrade

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([\p{L}\p{N}_-]+)\}`)
	rangePattern       = regexp.MustCompile(`\[(-?\d+(?:\.\d+)?)\s*-\s*(-?\d+(?:\.\d+)?)\]`)
	choicePattern      = regexp.MustCompile(`\[([^\[\]|]+(?:\|[^\[\]|]+)+)\]`)
)

// ParamGrader handles references that depend on the student's other
// answers: "{voltage} * 2" is resolved by substituting the answer whose
// element carries customId "voltage", then compared like a fixed answer.
// Range specs "[1-5]" and choice specs "[red|blue]" are checked in place.
type ParamGrader struct {
	params map[string]Candidate
	fixed  FixedGrader
}

func NewParamGrader(params map[string]Candidate) ParamGrader {
	return ParamGrader{params: params}
}

func (g ParamGrader) Grade(given, reference string) Result {
	resolved, ok := g.resolve(reference)
	if !ok {
		return Result{Comment: "depends on an answer that is still empty or wrong"}
	}

	if rangePattern.MatchString(resolved) || choicePattern.MatchString(resolved) {
		return gradeSpec(given, resolved)
	}

	return g.fixed.Grade(given, resolved)
}

// resolve substitutes each {name} placeholder with the referenced
// candidate's submitted answer. A placeholder naming a missing or empty
// answer makes the reference unresolvable.
func (g ParamGrader) resolve(reference string) (string, bool) {
	unresolved := false
	resolved := placeholderPattern.ReplaceAllStringFunc(reference, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		candidate, ok := g.params[name]
		if !ok || strings.TrimSpace(candidate.Given) == "" {
			unresolved = true
			return m
		}
		return strings.TrimSpace(candidate.Given)
	})
	return resolved, !unresolved
}

// gradeSpec matches the answer against a reference containing range or
// choice specs. Literal fragments between specs must appear verbatim.
func gradeSpec(given, reference string) Result {
	pattern := buildSpecPattern(reference)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Result{Comment: "reference answer is malformed"}
	}

	match := re.FindStringSubmatch(normalizeSpace(given))
	if match == nil {
		return Result{Comment: "does not match the expected form"}
	}

	ranges := rangePattern.FindAllStringSubmatch(reference, -1)
	for i, bounds := range ranges {
		value, err := strconv.ParseFloat(match[i+1], 64)
		if err != nil {
			return Result{Comment: "expected a number"}
		}
		lo, _ := strconv.ParseFloat(bounds[1], 64)
		hi, _ := strconv.ParseFloat(bounds[2], 64)
		if value < lo || value > hi {
			return Result{Comment: "value is outside the accepted range"}
		}
	}

	return Result{Score: 1}
}

// buildSpecPattern turns a reference with specs into an anchored regexp:
// ranges become captured number groups, choices become alternations, and
// everything else is matched literally with collapsed whitespace.
func buildSpecPattern(reference string) string {
	var b strings.Builder
	b.WriteString(`(?i)^\s*`)

	rest := normalizeSpace(reference)
	for len(rest) > 0 {
		rangeLoc := rangePattern.FindStringIndex(rest)
		choiceLoc := choicePattern.FindStringIndex(rest)

		loc, isRange := rangeLoc, true
		if loc == nil || (choiceLoc != nil && choiceLoc[0] < loc[0]) {
			loc, isRange = choiceLoc, false
		}
		if loc == nil {
			b.WriteString(literalPattern(rest))
			break
		}

		b.WriteString(literalPattern(rest[:loc[0]]))
		if isRange {
			b.WriteString(`(-?\d+(?:\.\d+)?)`)
		} else {
			body := choicePattern.FindStringSubmatch(rest[loc[0]:loc[1]])[1]
			options := strings.Split(body, "|")
			escaped := make([]string, len(options))
			for i, option := range options {
				escaped[i] = regexp.QuoteMeta(strings.TrimSpace(option))
			}
			b.WriteString(`(?:` + strings.Join(escaped, "|") + `)`)
		}
		rest = rest[loc[1]:]
	}

	b.WriteString(`\s*$`)
	return b.String()
}

func literalPattern(s string) string {
	parts := strings.Fields(s)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return strings.Join(parts, `\s+`)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
