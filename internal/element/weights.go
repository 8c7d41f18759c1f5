package element

import "fmt"

// WeightScale converts per-answer weights into shares of a report's
// maximum score. One instance lives per report edit session; all mutation
// happens on the request path that owns it.
type WeightScale struct {
	initialWeightsSum float64
	currentWeightsSum float64
	maxScore          float64
}

// NewWeightScale sums the answer weights reachable from the given roots
// and fixes the report's maximum score. The scale must be built from the
// full, unfiltered element tree so condensed views do not skew the totals.
func NewWeightScale(roots []*Node, maxScore float64) *WeightScale {
	total := TotalWeight(roots)
	return &WeightScale{
		initialWeightsSum: total,
		currentWeightsSum: total,
		maxScore:          clampNonNegative(maxScore),
	}
}

// TotalWeight recursively sums the weight of every answer element in the
// tree, regardless of nesting depth or the types in between.
func TotalWeight(roots []*Node) float64 {
	var sum float64
	for _, node := range roots {
		if node.Type == TypeAnswer {
			sum += node.Properties.Weight
		}
		sum += TotalWeight(node.Children)
	}
	return sum
}

// Share returns the slice of the maximum score a single answer weight is
// worth. A zero weight sum yields 0 rather than dividing by zero.
func (s *WeightScale) Share(weight float64) float64 {
	if s.currentWeightsSum <= 0 {
		return 0
	}
	return weight / s.currentWeightsSum * s.maxScore
}

// CalcFinalScore is Share formatted to two decimals for display.
func (s *WeightScale) CalcFinalScore(weight float64) string {
	return fmt.Sprintf("%.2f", s.Share(weight))
}

// ChangeWeightsSum applies a weight-edit delta to the running sum. The sum
// is clamped at zero: repeated negative edits cannot push it below what a
// valid template could ever produce.
func (s *WeightScale) ChangeWeightsSum(delta float64) {
	s.currentWeightsSum += delta
	if s.currentWeightsSum < 0 {
		s.currentWeightsSum = 0
	}
}

// Reset restores the sum captured at construction, used when a weight edit
// form is reset.
func (s *WeightScale) Reset() {
	s.currentWeightsSum = s.initialWeightsSum
}

// CurrentWeightsSum exposes the live sum for score projections.
func (s *WeightScale) CurrentWeightsSum() float64 {
	return s.currentWeightsSum
}

// MaxScore exposes the report-level ceiling.
func (s *WeightScale) MaxScore() float64 {
	return s.maxScore
}

func clampNonNegative(maxScore float64) float64 {
	if maxScore < 0 {
		return 0
	}
	return maxScore
}
