package pregrade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labreport-go-api/internal/element"
)

func TestFixedGraderNumeric(t *testing.T) {
	g := FixedGrader{}

	require.Equal(t, 1.0, g.Grade("the answer is 42", "42").Score)
	require.Equal(t, 1.0, g.Grade("4", "4").Score)
	require.Equal(t, 0.0, g.Grade("41", "42").Score)
	require.Equal(t, 1.0, g.Grade("R = 3.5 Ohm", "3.5").Score)
}

func TestFixedGraderWords(t *testing.T) {
	g := FixedGrader{}

	require.Equal(t, 1.0, g.Grade("Ohm's law", "ohms law").Score)
	require.Equal(t, 1.0, g.Grade("max volt", "maximum voltage").Score, "prefix abbreviation")
	require.Equal(t, 0.0, g.Grade("current", "voltage").Score)
}

func TestFixedGraderFuzzy(t *testing.T) {
	g := FixedGrader{}

	// One transposition in a long-enough answer still passes the
	// length-scaled threshold.
	require.Equal(t, 1.0, g.Grade("kirchhoffs voltage law", "kirchoffs voltage law").Score)
	require.Equal(t, 0.0, g.Grade("completely different", "kirchoffs voltage law").Score)
}

func TestParamGraderSubstitution(t *testing.T) {
	params := map[string]Candidate{
		"base": {CustomID: "base", Given: "10"},
	}
	g := NewParamGrader(params)

	require.Equal(t, 1.0, g.Grade("10", "{base}").Score)
	require.Equal(t, 0.0, g.Grade("11", "{base}").Score)

	res := g.Grade("5", "{missing}")
	require.Equal(t, 0.0, res.Score)
	require.Contains(t, res.Comment, "depends")
}

func TestParamGraderRangeAndChoice(t *testing.T) {
	g := NewParamGrader(nil)

	require.Equal(t, 1.0, g.Grade("3", "[1-5]").Score)
	require.Equal(t, 1.0, g.Grade("1.5", "[1-5]").Score)
	require.Equal(t, 0.0, g.Grade("7", "[1-5]").Score)
	require.Equal(t, 0.0, g.Grade("abc", "[1-5]").Score)

	require.Equal(t, 1.0, g.Grade("red", "[red|blue]").Score)
	require.Equal(t, 1.0, g.Grade("Blue", "[red|blue]").Score)
	require.Equal(t, 0.0, g.Grade("green", "[red|blue]").Score)

	require.Equal(t, 1.0, g.Grade("R = 4 Ohm", "R = [1-5] Ohm").Score)
	require.Equal(t, 0.0, g.Grade("R = 9 Ohm", "R = [1-5] Ohm").Score)
}

func TestArgumentGraderCoverage(t *testing.T) {
	g := ArgumentGrader{}
	ref := "resistance rises with temperature; metals conduct electricity"

	full := g.Grade("metals conduct electricity because resistance rises with temperature", ref)
	require.Equal(t, 1.0, full.Score)

	partial := g.Grade("resistance rises with temperature", ref)
	require.InDelta(t, 0.5, partial.Score, 1e-9)
	require.Contains(t, partial.Comment, "metals conduct electricity")
}

func TestServiceGradesByKind(t *testing.T) {
	simpleID := uuid.New()
	paramID := uuid.New()
	baseID := uuid.New()

	candidates := []Candidate{
		{ElementID: baseID, CustomID: "v", Kind: element.AnswerSimple, Given: "12", Reference: "12"},
		{ElementID: simpleID, Kind: element.AnswerSimple, Given: "4", Reference: "4"},
		{ElementID: paramID, Kind: element.AnswerParam, Given: "12", Reference: "{v}"},
		{ElementID: uuid.New(), Kind: element.AnswerSimple, Given: "", Reference: "skipped"},
	}

	svc := NewService(candidates)
	graded := svc.Grade(candidates)

	require.Len(t, graded, 3)
	require.Equal(t, 1.0, graded[simpleID].Score)
	require.Equal(t, 1.0, graded[paramID].Score)
}
