package analysis

import (
	"errors"
	"fmt"

	"github.com/zerlake/thesisai/internal/app/system/statistics"
)

// groupValues splits the numeric dv of each row by its iv category, keeping
// categories in first-seen order.
func groupValues(rows []map[string]any, iv, dv string) ([]string, map[string][]float64) {
	var order []string
	groups := map[string][]float64{}
	for _, row := range rows {
		name, ok := category(row[iv])
		if !ok {
			continue
		}
		v, ok := number(row[dv])
		if !ok {
			continue
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], v)
	}
	return order, groups
}

func descriptive(rows []map[string]any, iv, dv string) (Result, string, error) {
	var values []float64
	for _, row := range rows {
		if v, ok := number(row[dv]); ok {
			values = append(values, v)
		}
	}
	all, err := statistics.Describe(values)
	if err != nil {
		return Result{}, "dv", errors.New("has no numeric values")
	}
	res := Result{
		Test:      "Descriptive Statistics",
		Statistic: fmt.Sprintf("M = %s, SD = %s", fixed(all.Mean), fixed(all.SD)),
		Details:   map[string]any{dv: all},
		Interpretation: fmt.Sprintf("%s (N=%d) had a mean of %s (SD=%s), ranging from %s to %s.",
			dv, all.N, fixed(all.Mean), fixed(all.SD), fixed(all.Min), fixed(all.Max)),
	}
	if iv == "" {
		return res, "", nil
	}
	order, groups := groupValues(rows, iv, dv)
	byGroup := map[string]statistics.Descriptive{}
	for _, name := range order {
		d, err := statistics.Describe(groups[name])
		if err != nil {
			return Result{}, "iv", err
		}
		byGroup[name] = d
	}
	res.Details["groups"] = byGroup
	return res, "", nil
}

func independentT(rows []map[string]any, iv, dv string) (Result, string, error) {
	order, groups := groupValues(rows, iv, dv)
	if len(order) != 2 {
		return Result{}, "iv", fmt.Errorf("must have exactly two groups, found %d", len(order))
	}
	g1, g2 := order[0], order[1]
	t, err := statistics.IndependentT(groups[g1], groups[g2])
	if err != nil {
		return Result{}, "dv", err
	}
	return Result{
		Test:        "Independent Samples T-test",
		Statistic:   fmt.Sprintf("t(%d) = %s", t.DF, fixed(t.T)),
		PValue:      pValue(t.P),
		Significant: t.P < alpha,
		Details: map[string]any{
			"Mean " + g1: fixed(t.Group1.Mean),
			"Mean " + g2: fixed(t.Group2.Mean),
			"N " + g1:    t.Group1.N,
			"N " + g2:    t.Group2.N,
		},
		Interpretation: fmt.Sprintf("An independent samples t-test was conducted to compare the mean %s between %s (M=%s, SD=%s) and %s (M=%s, SD=%s). The results indicated %s in %s between the two groups.",
			dv, g1, fixed(t.Group1.Mean), fixed(t.Group1.SD), g2, fixed(t.Group2.Mean), fixed(t.Group2.SD),
			significance(t.P, "a statistically significant difference", "no statistically significant difference"), dv),
	}, "", nil
}

func pearson(rows []map[string]any, iv, dv string) (Result, string, error) {
	var xs, ys []float64
	for _, row := range rows {
		x, okX := number(row[iv])
		y, okY := number(row[dv])
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	c, err := statistics.Pearson(xs, ys)
	if err != nil {
		return Result{}, "data", err
	}
	direction := "negative"
	if c.R > 0 {
		direction = "positive"
	}
	return Result{
		Test:        "Pearson Correlation",
		Statistic:   fmt.Sprintf("r(%d) = %s", c.DF, fixed(c.R)),
		PValue:      pValue(c.P),
		Significant: c.P < alpha,
		Details: map[string]any{
			"Correlation Coefficient (r)": fixed(c.R),
			"R-squared (R²)":              fixed(c.R * c.R),
			"Sample Size (N)":             c.N,
		},
		Interpretation: fmt.Sprintf("A Pearson product-moment correlation was computed to assess the relationship between %s and %s. The results indicated %s %s linear relationship between %s and %s.",
			iv, dv, significance(c.P, "a statistically significant", "no statistically significant"), direction, iv, dv),
	}, "", nil
}

func chiSquare(rows []map[string]any, iv, dv string) (Result, string, error) {
	var ivCats, dvCats []string
	index := func(cats *[]string, c string) int {
		for i, have := range *cats {
			if have == c {
				return i
			}
		}
		*cats = append(*cats, c)
		return len(*cats) - 1
	}
	type pair struct{ i, j int }
	var pairs []pair
	for _, row := range rows {
		a, okA := category(row[iv])
		b, okB := category(row[dv])
		if okA && okB {
			pairs = append(pairs, pair{index(&ivCats, a), index(&dvCats, b)})
		}
	}
	if len(ivCats) != 2 || len(dvCats) != 2 {
		return Result{}, "data", errors.New("chi-square needs two categories in each variable")
	}
	var observed [2][2]float64
	for _, p := range pairs {
		observed[p.i][p.j]++
	}
	res, err := statistics.ChiSquare2x2(observed)
	if err != nil {
		return Result{}, "data", err
	}
	var expected [2][2]string
	for i := range expected {
		for j := range expected[i] {
			expected[i][j] = fixed(res.Expected[i][j])
		}
	}
	return Result{
		Test:        "Chi-Square Test",
		Statistic:   fmt.Sprintf("χ²(%d) = %s", res.DF, fixed(res.Chi2)),
		PValue:      pValue(res.P),
		Significant: res.P < alpha,
		Details: map[string]any{
			"Observed Counts": observed,
			"Expected Counts": expected,
			iv:                ivCats,
			dv:                dvCats,
		},
		Interpretation: fmt.Sprintf("A Chi-Square test for independence was performed to examine the relationship between %s and %s. The results indicated %s between %s and %s.",
			iv, dv, significance(res.P, "a statistically significant association", "no statistically significant association"), iv, dv),
	}, "", nil
}
