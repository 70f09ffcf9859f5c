// Package rules is the built-in check library: basic sanity checks,
// Benford's law and the eight Nelson control-chart rules.
//
// Every rule is a plain check.Func and can be called directly; Register
// wires them into a registry in their canonical display order.
package rules

import (
	"fmt"
	"iter"
	"math"
	"regexp"
	"strconv"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
)

// Sentinels typical of integer overflow or unset fields.
var suspiciousValues = []float64{65535, 2147483647, 4294967295}

// Row counts at which spreadsheet exports silently truncate.
var suspiciousLengths = []int{65535, 1048576}

var numericLike = regexp.MustCompile(`^[\d., ]+$`)

func empty(func(check.Message) bool) {}

func one(m check.Message) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) { yield(m) }
}

// DataType reports the column's element kind.
func DataType(in check.Input) iter.Seq[check.Message] {
	if in.Column == nil {
		return empty
	}
	return one(check.Text(in.Column.Kind().String()))
}

// CountNaN reports the number of missing values, including zero.
func CountNaN(in check.Input) iter.Seq[check.Message] {
	if in.Column == nil {
		return empty
	}
	return one(check.Text(fmt.Sprintf("%d NaN values", in.Column.NullCount())))
}

// CountZeroes reports how many values equal 0. Text columns always report 0.
func CountZeroes(in check.Input) iter.Seq[check.Message] {
	if in.Column == nil {
		return empty
	}
	return one(check.Text(fmt.Sprintf("%d values are 0", in.Column.CountEqual(0))))
}

// SuspiciousValues flags occurrences of well-known sentinel integers.
func SuspiciousValues(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if in.Column == nil {
			return
		}
		for _, v := range suspiciousValues {
			n := in.Column.CountEqual(v)
			if n == 0 {
				continue
			}
			if !yield(check.Text(fmt.Sprintf("Suspicious number %s appears %d times", formatInt(v), n))) {
				return
			}
		}
	}
}

// RepeatedDigits flags values like 11, 222 or -4444 with 2 to digit_count
// digits. Positive patterns come first, by digit then length.
func RepeatedDigits(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if in.Column == nil {
			return
		}
		maxLen := in.Params.Int("digit_count", 6)
		for _, sign := range []float64{1, -1} {
			for d := 1; d <= 9; d++ {
				for n := 2; n <= maxLen; n++ {
					v := sign * float64(d) * (math.Pow10(n) - 1) / 9
					count := in.Column.CountEqual(v)
					if count == 0 {
						continue
					}
					if !yield(check.Text(fmt.Sprintf("The value %s appears %d times", formatInt(v), count))) {
						return
					}
				}
			}
		}
	}
}

// SuspiciousLength flags a table whose row count is within threshold of a
// known truncation boundary.
func SuspiciousLength(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if in.Table == nil {
			return
		}
		t := in.Params.Int("threshold", 5)
		n := in.Table.Len()
		for _, b := range suspiciousLengths {
			if b-t <= n && n <= b+t {
				if !yield(check.Text(fmt.Sprintf("Dataframe length is suspicious: %d", n))) {
					return
				}
			}
		}
	}
}

// DuplicateRows reports every group of identical rows, referencing the first.
func DuplicateRows(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if in.Table == nil {
			return
		}
		for _, g := range in.Table.DuplicateRowGroups() {
			msg := check.WithRows(fmt.Sprintf("%d duplicates for the following row", g.Duplicates()), g.Keys[0])
			if !yield(msg) {
				return
			}
		}
	}
}

// DuplicateValues reports every repeated non-null value, referencing its
// first occurrence.
func DuplicateValues(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if in.Column == nil {
			return
		}
		for _, g := range in.Column.DuplicateGroups() {
			msg := check.WithRows(fmt.Sprintf("%d duplicates for the value %s", g.Duplicates(), g.Value), g.Keys[0])
			if !yield(msg) {
				return
			}
		}
	}
}

// PossiblyNumeric reports how many text values look like numbers.
func PossiblyNumeric(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		col := in.Column
		if col == nil || col.Kind() != frame.Text {
			return
		}
		var total, matched int
		for i := range col.Len() {
			if col.IsNull(i) {
				continue
			}
			total++
			if numericLike.MatchString(col.Text(i)) {
				matched++
			}
		}
		if total == 0 {
			return
		}
		pct := math.RoundToEven(float64(matched) / float64(total) * 100)
		yield(check.Text(fmt.Sprintf("%d out of %d (%s%%) of non-null values appear numeric", matched, total, formatInt(pct))))
	}
}

func formatInt(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// formatParam renders a parameter without a trailing ".0".
func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
