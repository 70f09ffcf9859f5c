package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrShape is returned when columns and row keys disagree in length or naming.
	ErrShape = errors.New("frame shape mismatch")
	// ErrUnknownRow is returned by Take for row keys the table does not contain.
	ErrUnknownRow = errors.New("unknown row key")
)

// Kind is the element kind of a column.
type Kind int

const (
	Text Kind = iota
	Int
	Float
	Bool
)

// String returns a dtype-like label for the kind.
func (k Kind) String() string {
	switch k {
	case Int:
		return "int64"
	case Float:
		return "float64"
	case Bool:
		return "bool"
	default:
		return "object"
	}
}

// Numeric reports whether values of this kind are numbers.
func (k Kind) Numeric() bool { return k == Int || k == Float }

// Cell is a single value. Num holds numeric and boolean (0/1) values,
// Str holds text values. Int holds the exact value of an Int cell; Num then
// carries its float64 approximation for statistics.
type Cell struct {
	Num  float64
	Int  int64
	Str  string
	Null bool
}

// Num returns a numeric cell.
func Num(f float64) Cell { return Cell{Num: f} }

// Integer returns an exact integer cell.
func Integer(i int64) Cell { return Cell{Num: float64(i), Int: i} }

// Str returns a text cell.
func Str(s string) Cell { return Cell{Str: s} }

// Null is the missing value.
var Null = Cell{Null: true}

// Column is an immutable, ordered sequence of cells with row keys.
type Column struct {
	name  string
	kind  Kind
	keys  []string
	cells []Cell
}

// NewColumn builds a column with positional row keys ("0", "1", ...).
// Float NaN cells are stored as null. Int cells built with Num take the
// integer part of Num.
func NewColumn(name string, kind Kind, cells []Cell) *Column {
	cp := make([]Cell, len(cells))
	for i, c := range cells {
		if !c.Null && kind != Text && math.IsNaN(c.Num) {
			c = Null
		}
		if !c.Null && kind == Int {
			if c.Int == 0 && c.Num != 0 {
				c.Int = int64(c.Num)
			}
			c.Num = float64(c.Int)
		}
		cp[i] = c
	}
	return &Column{name: name, kind: kind, keys: positionalKeys(len(cp)), cells: cp}
}

// Floats is a convenience constructor for float columns. NaN values are null.
func Floats(name string, vals ...float64) *Column {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		cells[i] = Num(v)
	}
	return NewColumn(name, Float, cells)
}

// Ints is a convenience constructor for integer columns.
func Ints(name string, vals ...int64) *Column {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		cells[i] = Integer(v)
	}
	return NewColumn(name, Int, cells)
}

// Strings is a convenience constructor for text columns without nulls.
func Strings(name string, vals ...string) *Column {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		cells[i] = Str(v)
	}
	return NewColumn(name, Text, cells)
}

// WithKeys returns a copy of the column bound to the given row keys.
func (c *Column) WithKeys(keys []string) (*Column, error) {
	if len(keys) != len(c.cells) {
		return nil, fmt.Errorf("%w: column %q has %d values for %d keys", ErrShape, c.name, len(c.cells), len(keys))
	}
	cp := *c
	cp.keys = keys
	return &cp, nil
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.cells) }

// Key returns the row key of the i-th value.
func (c *Column) Key(i int) string { return c.keys[i] }

// Keys returns the row keys. The slice is shared and must not be modified.
func (c *Column) Keys() []string { return c.keys }

// IsNull reports whether the i-th value is missing.
func (c *Column) IsNull(i int) bool { return c.cells[i].Null }

// Float returns the numeric value at i. ok is false for nulls and text columns.
func (c *Column) Float(i int) (float64, bool) {
	cell := c.cells[i]
	if cell.Null || c.kind == Text {
		return 0, false
	}
	return cell.Num, true
}

// Text returns the raw string of a text cell, or the formatted value otherwise.
func (c *Column) Text(i int) string {
	if c.kind == Text && !c.cells[i].Null {
		return c.cells[i].Str
	}
	return c.Format(i)
}

// Format renders the i-th value for display.
func (c *Column) Format(i int) string {
	cell := c.cells[i]
	if cell.Null {
		return "NaN"
	}
	switch c.kind {
	case Text:
		return cell.Str
	case Int:
		return strconv.FormatInt(cell.Int, 10)
	case Bool:
		if cell.Num != 0 {
			return "True"
		}
		return "False"
	default:
		return FormatFloat(cell.Num)
	}
}

// NullCount returns the number of missing values.
func (c *Column) NullCount() int {
	n := 0
	for _, cell := range c.cells {
		if cell.Null {
			n++
		}
	}
	return n
}

// NonNullCount returns the number of present values.
func (c *Column) NonNullCount() int { return len(c.cells) - c.NullCount() }

// CountEqual counts non-null values equal to x. Text columns never match.
// Int columns compare exactly, so x must be integral to match.
func (c *Column) CountEqual(x float64) int {
	switch c.kind {
	case Text:
		return 0
	case Int:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0
		}
		return c.countInt(int64(x))
	}
	n := 0
	for _, cell := range c.cells {
		if !cell.Null && cell.Num == x {
			n++
		}
	}
	return n
}

func (c *Column) countInt(x int64) int {
	n := 0
	for _, cell := range c.cells {
		if !cell.Null && cell.Int == x {
			n++
		}
	}
	return n
}

// Mean returns the mean of non-null values, NaN when there are none.
func (c *Column) Mean() float64 {
	if c.kind == Text {
		return math.NaN()
	}
	// Welford
	var n int
	var mean float64
	for _, cell := range c.cells {
		if cell.Null {
			continue
		}
		n++
		mean += (cell.Num - mean) / float64(n)
	}
	if n == 0 {
		return math.NaN()
	}
	return mean
}

// Std returns the sample standard deviation (n-1 denominator) of non-null
// values, NaN with fewer than two values.
func (c *Column) Std() float64 {
	if c.kind == Text {
		return math.NaN()
	}
	var n int
	var mean, m2 float64
	for _, cell := range c.cells {
		if cell.Null {
			continue
		}
		n++
		delta := cell.Num - mean
		mean += delta / float64(n)
		m2 += delta * (cell.Num - mean)
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(m2 / float64(n-1))
}

// Group is a set of rows sharing one value, in first-occurrence order.
type Group struct {
	Value string
	Keys  []string
}

// Duplicates is the number of repeats beyond the first occurrence.
func (g Group) Duplicates() int { return len(g.Keys) - 1 }

// DuplicateGroups returns groups of equal non-null values that occur more
// than once, ordered by first occurrence.
func (c *Column) DuplicateGroups() []Group {
	groups := make(map[string]*Group)
	order := make([]string, 0)
	for i, cell := range c.cells {
		if cell.Null {
			continue
		}
		id := c.identity(cell)
		g, ok := groups[id]
		if !ok {
			g = &Group{Value: c.Format(i)}
			groups[id] = g
			order = append(order, id)
		}
		g.Keys = append(g.Keys, c.keys[i])
	}
	var out []Group
	for _, id := range order {
		if g := groups[id]; len(g.Keys) > 1 {
			out = append(out, *g)
		}
	}
	return out
}

// identity is the equality key used for duplicate detection.
func (c *Column) identity(cell Cell) string {
	if cell.Null {
		return "\x00null"
	}
	switch c.kind {
	case Text:
		return "s" + cell.Str
	case Int:
		return "i" + strconv.FormatInt(cell.Int, 10)
	}
	v := cell.Num
	if v == 0 {
		v = 0 // fold -0
	}
	return "n" + strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatFloat renders a float in shortest round-trip form, appending ".0"
// to integral values and switching to exponent form for very large or very
// small magnitudes.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func positionalKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}
