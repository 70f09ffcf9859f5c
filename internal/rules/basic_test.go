package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
)

func texts(seq func(func(check.Message) bool)) []string {
	out := []string{}
	for m := range seq {
		out = append(out, m.Text)
	}
	return out
}

func onColumn(fn check.Func, col *frame.Column, p check.Params) []string {
	return texts(fn(check.Input{Column: col, Params: p}))
}

func TestCountsCoverColumn(t *testing.T) {
	col := frame.Floats("x", 1, math.NaN(), 0, 0, math.NaN())
	assert.Equal(t, []string{"2 NaN values"}, onColumn(CountNaN, col, nil))
	assert.Equal(t, []string{"2 values are 0"}, onColumn(CountZeroes, col, nil))
	assert.Equal(t, []string{"float64"}, onColumn(DataType, col, nil))
	assert.Equal(t, col.Len(), col.NullCount()+col.NonNullCount())

	text := frame.Strings("s", "0", "a")
	assert.Equal(t, []string{"0 values are 0"}, onColumn(CountZeroes, text, nil))
	assert.Equal(t, []string{"object"}, onColumn(DataType, text, nil))
	assert.Equal(t, []string{"0 NaN values"}, onColumn(CountNaN, text, nil))
}

func TestSuspiciousValues(t *testing.T) {
	col := frame.Ints("n", 65535, 1, 65535, 4294967295)
	assert.Equal(t, []string{
		"Suspicious number 65535 appears 2 times",
		"Suspicious number 4294967295 appears 1 times",
	}, onColumn(SuspiciousValues, col, nil))
	assert.Empty(t, onColumn(SuspiciousValues, frame.Strings("s", "65535"), nil))
}

func TestRepeatedDigits(t *testing.T) {
	col := frame.Ints("n", 11, -222, 11, 5, 999999, 1111111)
	assert.Equal(t, []string{
		"The value 11 appears 2 times",
		"The value 999999 appears 1 times",
		"The value -222 appears 1 times",
	}, onColumn(RepeatedDigits, col, nil))

	got := onColumn(RepeatedDigits, col, check.Params{"digit_count": 7})
	assert.Contains(t, got, "The value 1111111 appears 1 times")
	assert.Empty(t, onColumn(RepeatedDigits, col, check.Params{"digit_count": 1}))
}

func TestSuspiciousLength(t *testing.T) {
	tbl := frame.MustTable("t", nil, frame.Ints("n", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	run := func(p check.Params) []string {
		return texts(SuspiciousLength(check.Input{Table: tbl, Params: p}))
	}
	assert.Empty(t, run(nil))
	assert.Equal(t, []string{"Dataframe length is suspicious: 10"}, run(check.Params{"threshold": 65525}))
	assert.Empty(t, run(check.Params{"threshold": 65524}))
}

func TestDuplicateRowsSkipsAllNull(t *testing.T) {
	tbl := frame.MustTable("t", []string{"a", "b", "c", "d"},
		frame.NewColumn("x", frame.Float, []frame.Cell{frame.Num(1), frame.Null, frame.Num(1), frame.Null}),
		frame.NewColumn("y", frame.Text, []frame.Cell{frame.Str("k"), frame.Null, frame.Str("k"), frame.Null}),
	)
	var got []check.Message
	for m := range DuplicateRows(check.Input{Table: tbl}) {
		got = append(got, m)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "1 duplicates for the following row", got[0].Text)
	assert.Equal(t, []string{"a"}, got[0].Rows)
}

func TestDuplicateValuesReferenceFirstOccurrence(t *testing.T) {
	col := frame.Floats("x", 2, 1.5, 2, math.NaN(), math.NaN(), 1.5, 1.5)
	var got []check.Message
	for m := range DuplicateValues(check.Input{Column: col}) {
		got = append(got, m)
	}
	assert.Equal(t, []check.Message{
		check.WithRows("1 duplicates for the value 2.0", "0"),
		check.WithRows("2 duplicates for the value 1.5", "1"),
	}, got)
}

func TestPossiblyNumeric(t *testing.T) {
	col := frame.NewColumn("s", frame.Text, []frame.Cell{
		frame.Str("1"), frame.Str("2.5"), frame.Str("abc"), frame.Null, frame.Str("1 000"),
	})
	assert.Equal(t, []string{"3 out of 4 (75%) of non-null values appear numeric"}, onColumn(PossiblyNumeric, col, nil))

	eighth := frame.Strings("s", "1", "a", "b", "c", "d", "e", "f", "g")
	assert.Equal(t, []string{"1 out of 8 (12%) of non-null values appear numeric"}, onColumn(PossiblyNumeric, eighth, nil))

	allNull := frame.NewColumn("s", frame.Text, []frame.Cell{frame.Null, frame.Null})
	assert.Empty(t, onColumn(PossiblyNumeric, allNull, nil))
	assert.Empty(t, onColumn(PossiblyNumeric, frame.Ints("n", 1), nil))
}

func TestBenfordsLaw(t *testing.T) {
	col := frame.Floats("x", 1, 10, 100, 1000, 0, math.NaN())
	got := onColumn(BenfordsLaw, col, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Digit 1 appeared 4, expected 1", got[0])
	assert.InDelta(t, 1.204, 4*math.Log10(2), 0.001)

	mixed := frame.Floats("x", 3, 0.3, -30, 2, 21, 9)
	assert.Equal(t, []string{
		"Digit 3 appeared 3, expected 1",
		"Digit 2 appeared 2, expected 1",
		"Digit 9 appeared 1, expected 0",
	}, onColumn(BenfordsLaw, mixed, nil))

	assert.Empty(t, onColumn(BenfordsLaw, frame.Floats("x", 0, 0), nil))
	assert.Empty(t, onColumn(BenfordsLaw, frame.Strings("s", "1"), nil))
}

func TestLeadingDigit(t *testing.T) {
	cases := map[float64]int{0.3: 3, 1e-320: 1, 9.999999999999998: 9, -42: 4, 1e300: 1}
	for x, want := range cases {
		assert.Equal(t, want, leadingDigit(x), "leadingDigit(%v)", x)
	}
}

func TestRegisterOrderAndTags(t *testing.T) {
	r := check.NewRegistry()
	require.NoError(t, Register(r))
	want := []string{
		"Data Type", "Count NaN", "Count Zeroes", "Detect suspicious values",
		"Detect repeated digits", "Suspicious dataframe length", "Duplicate rows",
		"Duplicate values", "Possibly numeric", "Benford's law",
		"Nelson Rule 1", "Nelson Rule 2", "Nelson Rule 3", "Nelson Rule 4",
		"Nelson Rule 5", "Nelson Rule 6", "Nelson Rule 7", "Nelson Rule 8",
	}
	var got []string
	for _, c := range r.All() {
		got = append(got, c.Name)
	}
	assert.Equal(t, want, got)

	assert.Len(t, r.Select(check.ParseTags("nelson"), nil), 8)
	assert.Len(t, r.Select(check.ParseTags("basic"), check.ParseTags("nelson,benford")), 9)
	assert.Empty(t, r.Select(check.ParseTags("nope"), nil))

	tableChecks := 0
	for _, c := range r.All() {
		if c.OnTable {
			tableChecks++
		}
	}
	assert.Equal(t, 2, tableChecks)

	// A second registration of the same rules must fail on duplicate names.
	assert.ErrorIs(t, Register(r), check.ErrInvalidCheck)
	assert.Same(t, Default(), Default())
}

func TestDuplicateValuesLargeIntegers(t *testing.T) {
	assert.Empty(t, onColumn(DuplicateValues, frame.Ints("id", 1234567890123456789, 1234567890123456788), nil))
	assert.Equal(t, []string{"1 duplicates for the value 1234567890123456789"},
		onColumn(DuplicateValues, frame.Ints("id", 1234567890123456789, 1234567890123456789), nil))
}
