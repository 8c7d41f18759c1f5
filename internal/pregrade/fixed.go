package pregrade

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	digitPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// FixedGrader compares a submitted answer to a single expected value. It
// tries increasingly forgiving comparisons: numeric match, exact word
// match, prefix match, then fuzzy similarity with a length-scaled
// threshold.
type FixedGrader struct{}

func (FixedGrader) Grade(given, reference string) Result {
	givenDigits := digitPattern.FindAllString(given, -1)
	refDigits := digitPattern.FindAllString(reference, -1)
	if len(refDigits) > 0 {
		if containsAll(givenDigits, refDigits) {
			return Result{Score: 1}
		}
		return Result{Comment: "expected a different value"}
	}

	givenWords := normalizeWords(given)
	refWords := normalizeWords(reference)
	if len(givenWords) == 0 || len(refWords) == 0 {
		return Result{Comment: "answer is empty"}
	}

	if wordsEqual(givenWords, refWords) {
		return Result{Score: 1}
	}

	if prefixMatch(givenWords, refWords) {
		return Result{Score: 1, Comment: "matched as abbreviation"}
	}

	joinedGiven := strings.Join(givenWords, " ")
	joinedRef := strings.Join(refWords, " ")
	threshold := fuzzyThreshold(len(refWords))
	if score := partialRatio(joinedGiven, joinedRef); score >= threshold {
		return Result{Score: 1, Comment: fmt.Sprintf("close match (%.0f%%)", score)}
	}

	return Result{Comment: "does not match the expected answer"}
}

// fuzzyThreshold loosens with reference length: a one-word answer must hit
// 85%, long prose bottoms out at 70%.
func fuzzyThreshold(wordCount int) float64 {
	return math.Max(70, 92-7*math.Log(float64(wordCount+1)))
}

func normalizeWords(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// prefixMatch accepts answers where every submitted word abbreviates the
// corresponding reference word, e.g. "max volt" for "maximum voltage".
func prefixMatch(given, ref []string) bool {
	if len(given) != len(ref) {
		return false
	}
	for i := range given {
		if !strings.HasPrefix(ref[i], given[i]) {
			return false
		}
	}
	return true
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

// partialRatio returns the best similarity (0..100) of the shorter string
// against any same-length window of the longer one, so extra surrounding
// prose does not sink an otherwise correct answer.
func partialRatio(a, b string) float64 {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	best := ratio(shorter, longer)
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := longer[start : start+len(shorter)]
		if r := ratio(shorter, window); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func ratio(a, b []rune) float64 {
	dist := levenshtein(a, b)
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	if max == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(max))
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
