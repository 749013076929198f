package stats

import (
	"fmt"
	"math"

	"github.com/triathematician/blaisemath-sub005/internal/model"
)

// Avg returns the arithmetic mean of values.
func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns population standard deviation.
func Std(values []float64) (float64, error) {
	mean, err := Avg(values)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, value := range values {
		diff := mean - value
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

// Summarize returns the zero Summary for an empty sample.
func Summarize(values []float64) model.Summary {
	if len(values) == 0 {
		return model.Summary{}
	}
	out := model.Summary{Count: len(values), Min: values[0], Max: values[0]}
	out.Mean, _ = Avg(values)
	out.Std, _ = Std(values)
	for _, value := range values[1:] {
		if value < out.Min {
			out.Min = value
		}
		if value > out.Max {
			out.Max = value
		}
	}
	return out
}

// CooperationValue is how much the full roster outperforms the partial one on
// average. It is zero when either sample is empty.
func CooperationValue(full, partial []float64) float64 {
	fullMean, err := Avg(full)
	if err != nil {
		return 0
	}
	partialMean, err := Avg(partial)
	if err != nil {
		return 0
	}
	return fullMean - partialMean
}
