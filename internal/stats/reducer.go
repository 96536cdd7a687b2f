package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoData is returned when a reducer is applied to an empty series.
var ErrNoData = errors.New("stats: no data")

// Kind enumerates the available reducers.
type Kind int

const (
	KindMean Kind = iota
	KindStandardDeviation
	KindMin
	KindMax
	KindVariance
	KindMode
	KindPercentile
	KindMedian
)

var kindNames = map[Kind]string{
	KindMean:              "mean",
	KindStandardDeviation: "standard_deviation",
	KindMin:               "min",
	KindMax:               "max",
	KindVariance:          "variance",
	KindMode:              "mode",
	KindPercentile:        "percentile",
	KindMedian:            "median",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Reducer is one statistic of the battery. Param is only meaningful for
// KindPercentile.
type Reducer struct {
	Kind  Kind
	Param Percentile
}

// Name returns the label used in report headers, e.g. "mean" or
// "percentile95.3".
func (r Reducer) Name() string {
	if r.Kind == KindPercentile {
		return r.Kind.String() + r.Param.String()
	}
	return r.Kind.String()
}

// Apply reduces xs to a single value. xs is not modified.
func (r Reducer) Apply(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoData
	}

	switch r.Kind {
	case KindMean:
		return stat.Mean(xs, nil), nil
	case KindStandardDeviation:
		_, variance := stat.PopMeanVariance(xs, nil)
		return math.Sqrt(variance), nil
	case KindMin:
		return floats.Min(xs), nil
	case KindMax:
		return floats.Max(xs), nil
	case KindVariance:
		_, variance := stat.PopMeanVariance(xs, nil)
		return variance, nil
	case KindMode:
		return mode(xs), nil
	case KindPercentile:
		return percentile(xs, float64(r.Param)), nil
	case KindMedian:
		return percentile(xs, 50), nil
	default:
		return 0, fmt.Errorf("stats: unsupported reducer %s", r.Kind)
	}
}

// Battery returns the fixed ordered list of reducers applied to every
// reported series, with tail as the last percentile.
func Battery(tail Percentile) []Reducer {
	return []Reducer{
		{Kind: KindMean},
		{Kind: KindStandardDeviation},
		{Kind: KindMin},
		{Kind: KindMax},
		{Kind: KindVariance},
		{Kind: KindMode},
		{Kind: KindPercentile, Param: 25},
		{Kind: KindMedian},
		{Kind: KindPercentile, Param: 75},
		{Kind: KindPercentile, Param: tail},
	}
}

// Summarize applies every reducer to xs, in order.
func Summarize(battery []Reducer, xs []float64) ([]float64, error) {
	if len(xs) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, len(battery))
	for i, r := range battery {
		v, err := r.Apply(xs)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// percentile interpolates linearly between the two closest ranks of the
// sorted series, with rank p/100*(n-1).
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 1 {
		return xs[0]
	}

	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	if p <= 0 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	frac := rank - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// mode returns the most frequent value; ties go to the value seen first.
func mode(xs []float64) float64 {
	counts := make(map[float64]int, len(xs))
	var top int
	for _, x := range xs {
		counts[x]++
		top = max(top, counts[x])
	}

	for _, x := range xs {
		if counts[x] == top {
			return x
		}
	}
	return xs[0]
}

