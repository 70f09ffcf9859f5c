// Package check defines the unit of analysis of the inspector: a named,
// tagged function that streams Messages for one column or a whole table,
// and the Registry that holds checks in registration order.
package check

import (
	"iter"
	"math"
	"slices"
	"strings"

	"github.com/KaramelBytes/tabproof/internal/frame"
)

// Message is one finding. Rows, when non-nil, lists the row keys the
// finding is evidence for.
type Message struct {
	Text string   `json:"text" msgpack:"text"`
	Rows []string `json:"rows,omitempty" msgpack:"rows,omitempty"`
}

// Text returns a plain message.
func Text(s string) Message { return Message{Text: s} }

// WithRows returns a message referencing the given rows.
func WithRows(s string, rows ...string) Message {
	return Message{Text: s, Rows: append([]string{}, rows...)}
}

func (m Message) String() string { return m.Text }

// HasRows reports whether the message carries row references.
func (m Message) HasRows() bool { return m.Rows != nil }

// Params are tunable numeric parameters (thresholds, windows, mean/std).
type Params map[string]float64

// Lookup returns a parameter and whether it was set.
func (p Params) Lookup(name string) (float64, bool) {
	v, ok := p[name]
	return v, ok
}

// Float returns the parameter or def when unset.
func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Int returns the parameter truncated to int, or def when unset or not finite.
func (p Params) Int(name string, def int) int {
	v, ok := p[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return int(v)
}

// Merge returns a new Params with over applied on top of p.
func (p Params) Merge(over Params) Params {
	out := make(Params, len(p)+len(over))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Input is what a check receives. Column is nil for whole-table checks.
type Input struct {
	Table  *frame.Table
	Column *frame.Column
	Params Params
}

// Func produces a finite, single-use sequence of findings. Producing
// nothing means "no findings", including when the check does not apply.
type Func func(in Input) iter.Seq[Message]

// Check is a registered Func with its metadata.
type Check struct {
	// ID is the registration ordinal; it defines display and execution order.
	ID       int
	Name     string
	Tags     []string
	OnTable  bool
	Defaults Params

	fn Func
}

// Func returns the underlying function unchanged.
func (c *Check) Func() Func { return c.fn }

// Run invokes the check with its defaults overlaid by in.Params.
func (c *Check) Run(in Input) iter.Seq[Message] {
	in.Params = c.Defaults.Merge(in.Params)
	return c.fn(in)
}

func (c *Check) String() string { return c.Name }

// TagSet is a normalized set of tags.
type TagSet map[string]struct{}

// ParseTags accepts single tags, lists, and comma-separated strings in any
// combination and returns the trimmed, non-empty set.
func ParseTags(v ...string) TagSet {
	set := TagSet{}
	for _, s := range v {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				set[part] = struct{}{}
			}
		}
	}
	return set
}

// Intersects reports whether any of tags is in the set.
func (s TagSet) Intersects(tags []string) bool {
	for _, t := range tags {
		if _, ok := s[t]; ok {
			return true
		}
	}
	return false
}

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
