package element

import (
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func answerNode(weight float64) *Node {
	return &Node{Element: newTestElement(TypeAnswer, nil, Properties{Weight: weight})}
}

func TestTotalWeightWalksNestedContainers(t *testing.T) {
	table := &Node{Element: newTestElement(TypeTable, nil, Properties{})}
	row := &Node{Element: newTestElement(TypeRow, nil, Properties{})}
	cell := &Node{Element: newTestElement(TypeCell, nil, Properties{})}
	question := &Node{Element: newTestElement(TypeQuestion, nil, Properties{})}

	question.Children = []*Node{answerNode(4)}
	cell.Children = []*Node{question}
	row.Children = []*Node{cell}
	table.Children = []*Node{row}

	roots := []*Node{table, answerNode(6)}
	require.InDelta(t, 10, TotalWeight(roots), 1e-9)
}

func TestCalcFinalScoreSharesSumToMax(t *testing.T) {
	weights := []float64{10, 5, 3, 2, 0.5}
	var roots []*Node
	for _, w := range weights {
		roots = append(roots, answerNode(w))
	}

	const maxScore = 30.0
	scale := NewWeightScale(roots, maxScore)

	var total float64
	for _, w := range weights {
		share, err := strconv.ParseFloat(scale.CalcFinalScore(w), 64)
		require.NoError(t, err)
		total += share
	}

	tolerance := float64(len(weights)) * 0.005
	require.LessOrEqual(t, math.Abs(total-maxScore), tolerance)
}

func TestCalcFinalScoreZeroSumGuard(t *testing.T) {
	scale := NewWeightScale(nil, 100)
	require.Equal(t, "0.00", scale.CalcFinalScore(10))
	require.Equal(t, "0.00", scale.CalcFinalScore(0))
}

func TestChangeWeightsSumClampsAtZero(t *testing.T) {
	scale := NewWeightScale([]*Node{answerNode(5)}, 10)

	scale.ChangeWeightsSum(-3)
	require.InDelta(t, 2, scale.CurrentWeightsSum(), 1e-9)

	scale.ChangeWeightsSum(-10)
	require.Zero(t, scale.CurrentWeightsSum())
	require.Equal(t, "0.00", scale.CalcFinalScore(5))
}

func TestResetRestoresInitialSum(t *testing.T) {
	scale := NewWeightScale([]*Node{answerNode(5), answerNode(15)}, 40)

	scale.ChangeWeightsSum(10)
	require.InDelta(t, 30, scale.CurrentWeightsSum(), 1e-9)

	scale.Reset()
	require.InDelta(t, 20, scale.CurrentWeightsSum(), 1e-9)
	require.Equal(t, fmt.Sprintf("%.2f", 10.0), scale.CalcFinalScore(5))
}
