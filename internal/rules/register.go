package rules

import (
	"fmt"
	"sync"

	"github.com/KaramelBytes/tabproof/internal/check"
)

type entry struct {
	fn   check.Func
	name string
	opts []check.Option
}

func builtin() []entry {
	basic := check.Tags("basic")
	nelson := check.Tags("nelson", "numeric")
	return []entry{
		{DataType, "Data Type", []check.Option{basic}},
		{CountNaN, "Count NaN", []check.Option{basic}},
		{CountZeroes, "Count Zeroes", []check.Option{basic}},
		{SuspiciousValues, "Detect suspicious values", []check.Option{basic}},
		{RepeatedDigits, "Detect repeated digits", []check.Option{basic, check.Defaults(check.Params{"digit_count": 6})}},
		{SuspiciousLength, "Suspicious dataframe length", []check.Option{basic, check.OnTable(), check.Defaults(check.Params{"threshold": 5})}},
		{DuplicateRows, "Duplicate rows", []check.Option{basic, check.OnTable()}},
		{DuplicateValues, "Duplicate values", []check.Option{basic}},
		{PossiblyNumeric, "Possibly numeric", []check.Option{basic}},
		{BenfordsLaw, "Benford's law", []check.Option{check.Tags("benford", "numeric")}},
		{NelsonRule1, "Nelson Rule 1", []check.Option{nelson, check.Defaults(check.Params{"std_mult": 3})}},
		{NelsonRule2, "Nelson Rule 2", []check.Option{nelson, check.Defaults(check.Params{"threshold": 9})}},
		{NelsonRule3, "Nelson Rule 3", []check.Option{nelson, check.Defaults(check.Params{"threshold": 6})}},
		{NelsonRule4, "Nelson Rule 4", []check.Option{nelson, check.Defaults(check.Params{"threshold": 14})}},
		{NelsonRule5, "Nelson Rule 5", []check.Option{nelson, check.Defaults(check.Params{"std_mult": 2, "window": 3, "threshold": 2})}},
		{NelsonRule6, "Nelson Rule 6", []check.Option{nelson, check.Defaults(check.Params{"std_mult": 1, "window": 5, "threshold": 4})}},
		{NelsonRule7, "Nelson Rule 7", []check.Option{nelson, check.Defaults(check.Params{"std_mult": 1, "window": 15, "threshold": 15})}},
		{NelsonRule8, "Nelson Rule 8", []check.Option{nelson, check.Defaults(check.Params{"std_mult": 1, "window": 8, "threshold": 8})}},
	}
}

// Register adds every built-in rule to r in display order.
func Register(r *check.Registry) error {
	for _, e := range builtin() {
		if _, err := r.Register(e.fn, e.name, e.opts...); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultReg  *check.Registry
)

// Default returns the process-wide registry holding the built-in rules.
func Default() *check.Registry {
	defaultOnce.Do(func() {
		defaultReg = check.NewRegistry()
		if err := Register(defaultReg); err != nil {
			panic(err)
		}
	})
	return defaultReg
}
