// Package statistics runs the small set of tests students apply to their
// own datasets: descriptive summaries, the independent samples t-test,
// Pearson correlation and the 2x2 chi-square test of independence.
package statistics

import (
	"errors"
	"math"

	mstats "github.com/montanaflynn/stats"
)

var (
	ErrTooFewValues = errors.New("statistics: each sample needs at least 2 values")
	ErrLengths      = errors.New("statistics: samples differ in length")
	ErrNoVariance   = errors.New("statistics: a sample has no variance")
	ErrEmptyTable   = errors.New("statistics: contingency table is empty")
	ErrZeroExpected = errors.New("statistics: expected count is zero where observed is not")
)

// Descriptive summarizes one sample. SD is the sample standard deviation.
type Descriptive struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Describe summarizes xs. A single value has SD 0.
func Describe(xs []float64) (Descriptive, error) {
	if len(xs) == 0 {
		return Descriptive{}, ErrTooFewValues
	}
	data := mstats.Float64Data(xs)
	d := Descriptive{N: len(xs)}
	var err error
	if d.Mean, err = data.Mean(); err != nil {
		return Descriptive{}, err
	}
	if d.Median, err = data.Median(); err != nil {
		return Descriptive{}, err
	}
	if d.Min, err = data.Min(); err != nil {
		return Descriptive{}, err
	}
	if d.Max, err = data.Max(); err != nil {
		return Descriptive{}, err
	}
	if len(xs) > 1 {
		if d.SD, err = mstats.StandardDeviationSample(data); err != nil {
			return Descriptive{}, err
		}
	}
	return d, nil
}

// TTest is the result of a two-tailed independent samples t-test with pooled
// variance.
type TTest struct {
	T      float64
	DF     int
	P      float64
	Group1 Descriptive
	Group2 Descriptive
}

// IndependentT compares the means of a and b.
func IndependentT(a, b []float64) (TTest, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTest{}, ErrTooFewValues
	}
	d1, err := Describe(a)
	if err != nil {
		return TTest{}, err
	}
	d2, err := Describe(b)
	if err != nil {
		return TTest{}, err
	}
	n1, n2 := float64(d1.N), float64(d2.N)
	df := d1.N + d2.N - 2
	pooled := ((n1-1)*d1.SD*d1.SD + (n2-1)*d2.SD*d2.SD) / float64(df)
	if pooled == 0 {
		return TTest{}, ErrNoVariance
	}
	t := (d1.Mean - d2.Mean) / (math.Sqrt(pooled) * math.Sqrt(1/n1+1/n2))
	return TTest{T: t, DF: df, P: StudentTTwoTailed(t, df), Group1: d1, Group2: d2}, nil
}

// Correlation is a Pearson coefficient with its two-tailed significance.
// T is zero when |R| is 1 and P is then 0.
type Correlation struct {
	R  float64
	T  float64
	DF int
	P  float64
	N  int
}

// Pearson correlates paired samples x and y.
func Pearson(x, y []float64) (Correlation, error) {
	if len(x) != len(y) {
		return Correlation{}, ErrLengths
	}
	if len(x) < 2 {
		return Correlation{}, ErrTooFewValues
	}
	for _, s := range [][]float64{x, y} {
		sd, err := mstats.StandardDeviationSample(s)
		if err != nil {
			return Correlation{}, err
		}
		if sd == 0 {
			return Correlation{}, ErrNoVariance
		}
	}
	r, err := mstats.Pearson(x, y)
	if err != nil {
		return Correlation{}, err
	}
	c := Correlation{R: r, DF: len(x) - 2, N: len(x)}
	if c.DF == 0 {
		c.P = 1
		return c, nil
	}
	if rest := 1 - r*r; rest > 0 {
		c.T = r * math.Sqrt(float64(c.DF)/rest)
		c.P = StudentTTwoTailed(c.T, c.DF)
	}
	return c, nil
}

// ChiSquare is a 2x2 test of independence. P is the upper tail.
type ChiSquare struct {
	Chi2     float64
	DF       int
	P        float64
	Expected [2][2]float64
}

// ChiSquare2x2 tests the observed counts for independence. Cells where both
// the expected and observed counts are zero contribute nothing.
func ChiSquare2x2(observed [2][2]float64) (ChiSquare, error) {
	rows := [2]float64{observed[0][0] + observed[0][1], observed[1][0] + observed[1][1]}
	cols := [2]float64{observed[0][0] + observed[1][0], observed[0][1] + observed[1][1]}
	total := rows[0] + rows[1]
	if total == 0 {
		return ChiSquare{}, ErrEmptyTable
	}
	out := ChiSquare{DF: 1}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			e := rows[i] * cols[j] / total
			out.Expected[i][j] = e
			if e == 0 {
				if observed[i][j] != 0 {
					return ChiSquare{}, ErrZeroExpected
				}
				continue
			}
			d := observed[i][j] - e
			out.Chi2 += d * d / e
		}
	}
	// One degree of freedom: the upper tail is erfc(sqrt(x/2)).
	out.P = math.Erfc(math.Sqrt(out.Chi2 / 2))
	return out, nil
}
