package rules

import (
	"fmt"
	"iter"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/tabproof/internal/check"
)

// BenfordsLaw tallies the leading digit of every non-zero value and
// compares it with the count Benford's law predicts.
func BenfordsLaw(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		col := in.Column
		if col == nil || !col.Kind().Numeric() {
			return
		}
		var counts [10]int
		total := 0
		for i := range col.Len() {
			x, ok := col.Float(i)
			if !ok || x == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
				continue
			}
			counts[leadingDigit(x)]++
			total++
		}
		if total == 0 {
			return
		}

		digits := make([]int, 0, 9)
		for d := 1; d <= 9; d++ {
			if counts[d] > 0 {
				digits = append(digits, d)
			}
		}
		sort.SliceStable(digits, func(i, j int) bool {
			return counts[digits[i]] > counts[digits[j]]
		})
		for _, d := range digits {
			expected := float64(total) * math.Log10(1+1/float64(d))
			msg := fmt.Sprintf("Digit %d appeared %d, expected %s", d, counts[d], formatInt(math.RoundToEven(expected)))
			if !yield(check.Text(msg)) {
				return
			}
		}
	}
}

// leadingDigit returns the most significant decimal digit of a finite,
// non-zero x. It reads the shortest decimal form, so 0.3 yields 3 even
// though 0.3/10^-1 is 2.9999999999999996 in binary.
func leadingDigit(x float64) int {
	s := strconv.FormatFloat(math.Abs(x), 'e', -1, 64)
	return int(s[0] - '0')
}
