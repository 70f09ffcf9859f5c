package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
)

var unit = check.Params{"mean": 0, "std": 1}

func ints(vals ...int64) *frame.Column { return frame.Ints("x", vals...) }

func seq(from, to, step int64) *frame.Column {
	var vals []int64
	for v := from; v != to; v += step {
		vals = append(vals, v)
	}
	return ints(vals...)
}

func TestNelsonRule1(t *testing.T) {
	assert.Equal(t, []string{
		"At 0: 3 is three standard deviations above the mean of 0.0",
		"At 1: -3 is three standard deviations below the mean of 0.0",
	}, onColumn(NelsonRule1, ints(3, -3, 2, -2), unit))

	floats := frame.Floats("x", -5, 4, 3.5)
	assert.Equal(t, []string{
		"At 1: 4.0 is three standard deviations above the mean of 0.0",
		"At 2: 3.5 is three standard deviations above the mean of 0.0",
		"At 0: -5.0 is three standard deviations below the mean of 0.0",
	}, onColumn(NelsonRule1, floats, unit))
}

func TestNelsonRule2(t *testing.T) {
	mean := check.Params{"mean": 0}
	assert.Equal(t, []string{"At 0: 9 data points in sequence are above the mean of 0.0"},
		onColumn(NelsonRule2, seq(1, 10, 1), mean))
	assert.Equal(t, []string{"At 0: 9 data points in sequence are below the mean of 0.0"},
		onColumn(NelsonRule2, seq(-1, -10, -1), mean))
	assert.Empty(t, onColumn(NelsonRule2, seq(-4, 5, 1), mean))

	// A point on the mean closes a qualifying run.
	closed := ints(1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1)
	assert.Equal(t, []string{"At 0: 9 data points in sequence are above the mean of 0.0"},
		onColumn(NelsonRule2, closed, mean))

	switched := ints(-1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1)
	assert.Equal(t, []string{"At 1: 9 data points in sequence are above the mean of 0.0"},
		onColumn(NelsonRule2, switched, mean))
}

func TestNelsonRule3(t *testing.T) {
	assert.Equal(t, []string{"At 0: 6 data points in sequence are increasing"},
		onColumn(NelsonRule3, seq(0, 6, 1), nil))
	assert.Equal(t, []string{"At 0: 6 data points in sequence are decreasing"},
		onColumn(NelsonRule3, seq(0, -6, -1), nil))
	assert.Empty(t, onColumn(NelsonRule3, ints(0, 1, 0, 1, 0, 1), nil))
	assert.Empty(t, onColumn(NelsonRule3, ints(0, 0, 0, 0, 0, 0), nil))

	// A flat step restarts the run at the point before the next move.
	assert.Equal(t, []string{"At 3: 6 data points in sequence are increasing"},
		onColumn(NelsonRule3, ints(0, 1, 2, 2, 3, 4, 5, 6, 7), nil))

	withNulls := frame.Floats("x", 0, 1, math.NaN(), 2, 3, 4, 5)
	assert.Equal(t, []string{"At 0: 6 data points in sequence are increasing"},
		onColumn(NelsonRule3, withNulls, nil))
}

func TestNelsonRule4(t *testing.T) {
	alt := ints(0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1)
	assert.Equal(t, []string{"At 0: 14 data points in sequence alternate in direction"},
		onColumn(NelsonRule4, alt, nil))

	broken := ints(0, 1, 0, 1, 1, 1, 1, 1, 0, 1, 0, 1, 0, 1)
	assert.Empty(t, onColumn(NelsonRule4, broken, nil))

	// Flat steps never count as alternation.
	flat := ints(5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)
	assert.Empty(t, onColumn(NelsonRule4, flat, nil))

	flatBreak := ints(0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1)
	assert.Equal(t, []string{"At 0: 14 data points in sequence alternate in direction"},
		onColumn(NelsonRule4, flatBreak, nil))
}

func TestNelsonRule5(t *testing.T) {
	assert.Equal(t, []string{"At 0: 2 out of 3 points in a row are more than 2 standard deviations above the mean."},
		onColumn(NelsonRule5, frame.Floats("x", 2.1, 1, 2.1), unit))
	assert.Equal(t, []string{"At 0: 2 out of 3 points in a row are more than 2 standard deviations below the mean."},
		onColumn(NelsonRule5, frame.Floats("x", -2.1, 1, -2.1), unit))
	assert.Empty(t, onColumn(NelsonRule5, frame.Floats("x", 2.1, 1, -2.1), unit))
	assert.Empty(t, onColumn(NelsonRule5, frame.Floats("x", 2.0, 1, 2.1), unit))

	sliding := frame.Floats("x", 0, 2.5, 2.5, 2.5)
	assert.Equal(t, []string{
		"At 0: 2 out of 3 points in a row are more than 2 standard deviations above the mean.",
		"At 1: 3 out of 3 points in a row are more than 2 standard deviations above the mean.",
	}, onColumn(NelsonRule5, sliding, unit))
}

func TestNelsonRule6(t *testing.T) {
	assert.Equal(t, []string{"At 0: 4 out of 5 points in a row are more than 1 standard deviations above the mean."},
		onColumn(NelsonRule6, frame.Floats("x", 2, 1.1, 2, 0, 1.5), unit))
	assert.Equal(t, []string{"At 0: 4 out of 5 points in a row are more than 1 standard deviations below the mean."},
		onColumn(NelsonRule6, frame.Floats("x", -2, -1.1, -2, 0, -1.5), unit))
	assert.Empty(t, onColumn(NelsonRule6, frame.Floats("x", 2, 1.1, -2, 0, 1.5), unit))
	assert.Empty(t, onColumn(NelsonRule6, frame.Floats("x", 0.5, 1, 0.5, 4, 0), unit))
}

func TestNelsonRule7(t *testing.T) {
	assert.Equal(t, []string{"At 0: 15 points in a row are all within 1 standard deviation of the mean on either side of the mean."},
		onColumn(NelsonRule7, ints(0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0), unit))
	assert.Empty(t, onColumn(NelsonRule7, ints(0, 1, 0, 1, 1, 2, 1, 1, 0, 1, 0, 1, 0, 1, 0), unit))

	// Adjacent qualifying windows merge, then the run is closed by an outlier.
	long := ints(0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 5)
	assert.Equal(t, []string{"At 0: 17 points in a row are all within 1 standard deviation of the mean on either side of the mean."},
		onColumn(NelsonRule7, long, unit))
}

func TestNelsonRule8(t *testing.T) {
	assert.Equal(t, []string{"At 0: 8 points in a row exist with none within 1 standard deviation of the mean and the points are in both directions from the mean."},
		onColumn(NelsonRule8, ints(2, 4, 2, -4, 6, -10, 7, 2), unit))
	assert.Empty(t, onColumn(NelsonRule8, ints(2, 0, 2, -4, 6, 0, 7, 2), unit))

	assert.Equal(t, []string{"At 0: 9 points in a row exist with none within 1 standard deviation of the mean and the points are in both directions from the mean."},
		onColumn(NelsonRule8, ints(2, 4, 2, -4, 6, -10, 7, 2, -3), unit))
}

func TestNelsonDegenerateInput(t *testing.T) {
	constant := frame.Floats("x", 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4)
	for name, fn := range map[string]check.Func{
		"rule1": NelsonRule1, "rule5": NelsonRule5, "rule6": NelsonRule6,
		"rule7": NelsonRule7, "rule8": NelsonRule8,
	} {
		assert.Empty(t, onColumn(fn, constant, nil), name)
		assert.Empty(t, onColumn(fn, constant, check.Params{"mean": 4, "std": math.NaN()}), name)
	}

	text := frame.Strings("s", "1", "2", "3", "4", "5", "6", "7", "8", "9")
	for i, fn := range []check.Func{NelsonRule1, NelsonRule2, NelsonRule3, NelsonRule4, NelsonRule5, NelsonRule6, NelsonRule7, NelsonRule8} {
		assert.Empty(t, onColumn(fn, text, nil), "rule %d on text", i+1)
		assert.Empty(t, onColumn(fn, frame.Floats("x"), nil), "rule %d on empty", i+1)
	}
}

func TestNelsonPreservesRowKeys(t *testing.T) {
	tbl := frame.MustTable("t", []string{"a", "b", "c", "d", "e", "f"}, seq(0, 6, 1))
	col, _ := tbl.Column("x")
	assert.Equal(t, []string{"At a: 6 data points in sequence are increasing"}, onColumn(NelsonRule3, col, nil))
}

func TestRuleStopsWhenConsumerStops(t *testing.T) {
	col := ints(5, 5, -5, -5)
	n := 0
	for range NelsonRule1(check.Input{Column: col, Params: unit}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestNelsonRule1LargeIntegers(t *testing.T) {
	assert.Equal(t, []string{"At 0: 1234567890123456789 is three standard deviations above the mean of 0.0"},
		onColumn(NelsonRule1, ints(1234567890123456789, 0), unit))
}

func TestNelsonWindowLongerThanSeries(t *testing.T) {
	huge := check.Params{"mean": 0, "std": 1, "window": 1e12, "threshold": 1}
	for name, fn := range map[string]check.Func{
		"rule5": NelsonRule5, "rule6": NelsonRule6, "rule7": NelsonRule7, "rule8": NelsonRule8,
	} {
		assert.NotPanics(t, func() {
			assert.Empty(t, onColumn(fn, ints(5, 5, 5, 5), huge), name)
		}, name)
	}
	exact := check.Params{"mean": 0, "std": 1, "window": 4, "threshold": 4}
	assert.Equal(t, []string{"At 0: 4 out of 4 points in a row are more than 2 standard deviations above the mean."},
		onColumn(NelsonRule5, ints(5, 5, 5, 5), exact))
}
