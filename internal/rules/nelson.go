package rules

import (
	"fmt"
	"iter"
	"math"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
)

// The Nelson rules scan a numeric column once in row order. Nulls are
// skipped; row keys of the remaining points are preserved. mean and std
// params override the column's own statistics.

const (
	ruleBand7 = "points in a row are all within 1 standard deviation of the mean on either side of the mean."
	ruleBand8 = "points in a row exist with none within 1 standard deviation of the mean and the points are in both directions from the mean."
)

// points yields (row key, value) for every non-null value of a numeric column.
func points(col *frame.Column) iter.Seq2[string, float64] {
	return func(yield func(string, float64) bool) {
		if col == nil || !col.Kind().Numeric() {
			return
		}
		for i := range col.Len() {
			x, ok := col.Float(i)
			if !ok {
				continue
			}
			if !yield(col.Key(i), x) {
				return
			}
		}
	}
}

func numeric(col *frame.Column) bool {
	return col != nil && col.Kind().Numeric()
}

func moments(in check.Input) (mean, std float64) {
	mean, ok := in.Params.Lookup("mean")
	if !ok {
		mean = in.Column.Mean()
	}
	std, ok = in.Params.Lookup("std")
	if !ok {
		std = in.Column.Std()
	}
	return mean, std
}

// spread reports whether std can separate points from the mean at all.
func spread(std float64) bool {
	return std > 0 && !math.IsInf(std, 0)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// NelsonRule1 flags points at least std_mult standard deviations from the mean.
func NelsonRule1(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if !numeric(in.Column) {
			return
		}
		mean, std := moments(in)
		if !spread(std) {
			return
		}
		band := in.Params.Float("std_mult", 3) * std
		col := in.Column
		above := func(x float64) bool { return x >= mean+band }
		below := func(x float64) bool { return x <= mean-band }
		for _, side := range []struct {
			word string
			hit  func(float64) bool
		}{{"above", above}, {"below", below}} {
			for i := range col.Len() {
				x, ok := col.Float(i)
				if !ok || !side.hit(x) {
					continue
				}
				msg := fmt.Sprintf("At %s: %s is three standard deviations %s the mean of %s", col.Key(i), col.Format(i), side.word, frame.FormatFloat(mean))
				if !yield(check.Text(msg)) {
					return
				}
			}
		}
	}
}

// NelsonRule2 flags runs of at least threshold points on one side of the mean.
// A point equal to the mean ends both runs.
func NelsonRule2(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if !numeric(in.Column) {
			return
		}
		mean, _ := moments(in)
		threshold := in.Params.Int("threshold", 9)
		var above, below int
		var first string
		emit := func(n int, side string) bool {
			if n < threshold {
				return true
			}
			return yield(check.Text(fmt.Sprintf("At %s: %d data points in sequence are %s the mean of %s", first, n, side, frame.FormatFloat(mean))))
		}
		for k, x := range points(in.Column) {
			switch {
			case x > mean:
				if !emit(below, "below") {
					return
				}
				below = 0
				if above == 0 {
					first = k
				}
				above++
			case x < mean:
				if !emit(above, "above") {
					return
				}
				above = 0
				if below == 0 {
					first = k
				}
				below++
			default:
				if !emit(above, "above") || !emit(below, "below") {
					return
				}
				above, below = 0, 0
			}
		}
		if emit(above, "above") {
			emit(below, "below")
		}
	}
}

// NelsonRule3 flags at least threshold points in a strictly increasing or
// decreasing sequence. A flat step ends the run; the next non-flat step
// starts a new one at the point before it.
func NelsonRule3(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if !numeric(in.Column) {
			return
		}
		threshold := in.Params.Int("threshold", 6)
		const unset = 2
		var (
			count        int
			first, prevK string
			prev         float64
			started      bool
		)
		dir := unset
		emit := func() bool {
			if count < threshold || dir == 0 || dir == unset {
				return true
			}
			word := "increasing"
			if dir < 0 {
				word = "decreasing"
			}
			return yield(check.Text(fmt.Sprintf("At %s: %d data points in sequence are %s", first, count, word)))
		}
		for k, x := range points(in.Column) {
			if !started {
				started = true
				prev, prevK = x, k
				continue
			}
			step := sign(x - prev)
			if step != dir {
				if !emit() {
					return
				}
				first, count, dir = prevK, 1, step
			}
			prev, prevK = x, k
			if step != 0 {
				count++
			}
		}
		emit()
	}
}

// NelsonRule4 flags at least threshold points alternating in direction.
// The count starts at 3 on the first alternation; a flat step breaks it.
func NelsonRule4(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if !numeric(in.Column) {
			return
		}
		threshold := in.Params.Int("threshold", 14)
		var (
			n, count, trend int
			active          bool
			first, k1, k2   string
			prev            float64
		)
		emit := func() bool {
			if !active || count < threshold {
				return true
			}
			return yield(check.Text(fmt.Sprintf("At %s: %d data points in sequence alternate in direction", first, count)))
		}
		for k, x := range points(in.Column) {
			n++
			if n > 1 {
				step := sign(x - prev)
				alternates := step != 0 && trend != 0 && step == -trend
				switch {
				case alternates && !active:
					active, first, count = true, k2, 3
				case alternates:
					count++
				case active:
					if !emit() {
						return
					}
					active = false
				}
				trend = step
			}
			prev = x
			k2, k1 = k1, k
		}
		emit()
	}
}

// NelsonRule5 flags windows of 3 with at least 2 points beyond 2 standard
// deviations on the same side.
func NelsonRule5(in check.Input) iter.Seq[check.Message] {
	return outsideWindow(in, 2, 3, 2)
}

// NelsonRule6 flags windows of 5 with at least 4 points beyond 1 standard
// deviation on the same side.
func NelsonRule6(in check.Input) iter.Seq[check.Message] {
	return outsideWindow(in, 1, 5, 4)
}

type sided struct {
	key  string
	side int
}

func outsideWindow(in check.Input, stdMult float64, window, threshold int) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if !numeric(in.Column) {
			return
		}
		mean, std := moments(in)
		if !spread(std) {
			return
		}
		stdMult = in.Params.Float("std_mult", stdMult)
		window = in.Params.Int("window", window)
		threshold = in.Params.Int("threshold", threshold)
		// A window longer than the series never fills.
		if window < 1 || window > in.Column.NonNullCount() {
			return
		}
		band := stdMult * std
		buf := newRing[sided](window)
		var above, below int
		for k, x := range points(in.Column) {
			s := 0
			if x > mean+band {
				s = 1
			} else if x < mean-band {
				s = -1
			}
			if old, evicted := buf.push(sided{k, s}); evicted {
				switch old.side {
				case 1:
					above--
				case -1:
					below--
				}
			}
			switch s {
			case 1:
				above++
			case -1:
				below++
			}
			if !buf.full() {
				continue
			}
			first := buf.first().key
			if above >= threshold {
				if !yield(check.Text(windowMessage(first, above, window, stdMult, "above"))) {
					return
				}
			}
			if below >= threshold {
				if !yield(check.Text(windowMessage(first, below, window, stdMult, "below"))) {
					return
				}
			}
		}
	}
}

func windowMessage(first string, n, window int, stdMult float64, side string) string {
	return fmt.Sprintf("At %s: %d out of %d points in a row are more than %s standard deviations %s the mean.",
		first, n, window, formatParam(stdMult), side)
}

// NelsonRule7 flags 15 or more points in a row within 1 standard deviation
// of the mean.
func NelsonRule7(in check.Input) iter.Seq[check.Message] {
	return bandRun(in, 15, 15, ruleBand7, func(lo, x, hi float64) bool {
		return lo <= x && x <= hi
	})
}

// NelsonRule8 flags 8 or more points in a row with none within 1 standard
// deviation of the mean.
func NelsonRule8(in check.Input) iter.Seq[check.Message] {
	return bandRun(in, 8, 8, ruleBand8, func(lo, x, hi float64) bool {
		return x < lo || x > hi
	})
}

type hit struct {
	key string
	ok  bool
}

// bandRun merges consecutive qualifying windows into one finding. The first
// window contributes its hit count; each further window adds one point.
func bandRun(in check.Input, window, threshold int, text string, match func(lo, x, hi float64) bool) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if !numeric(in.Column) {
			return
		}
		mean, std := moments(in)
		if !spread(std) {
			return
		}
		band := in.Params.Float("std_mult", 1) * std
		window = in.Params.Int("window", window)
		threshold = in.Params.Int("threshold", threshold)
		// A window longer than the series never fills.
		if window < 1 || window > in.Column.NonNullCount() {
			return
		}
		lo, hi := mean-band, mean+band

		buf := newRing[hit](window)
		var hits, count int
		var first string
		active := false
		for k, x := range points(in.Column) {
			h := hit{k, match(lo, x, hi)}
			if old, evicted := buf.push(h); evicted && old.ok {
				hits--
			}
			if h.ok {
				hits++
			}
			if !buf.full() {
				continue
			}
			switch {
			case hits >= threshold && !active:
				active, first, count = true, buf.first().key, hits
			case hits >= threshold:
				count++
			case active:
				if !yield(check.Text(fmt.Sprintf("At %s: %d %s", first, count, text))) {
					return
				}
				active, count = false, 0
			}
		}
		if active {
			yield(check.Text(fmt.Sprintf("At %s: %d %s", first, count, text)))
		}
	}
}

// ring is a fixed-size FIFO window.
type ring[T any] struct {
	buf   []T
	start int
	n     int
}

func newRing[T any](size int) *ring[T] {
	return &ring[T]{buf: make([]T, size)}
}

// push appends v, returning the evicted element when the ring was full.
func (r *ring[T]) push(v T) (old T, evicted bool) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return old, false
	}
	old = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return old, true
}

func (r *ring[T]) full() bool { return r.n == len(r.buf) }

func (r *ring[T]) first() T { return r.buf[r.start] }
