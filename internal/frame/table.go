// Package frame is the read-only table model the inspector runs against:
// named columns of typed cells sharing a single row-key ordering.
//
// Tables and columns are immutable once built, so they can be shared by
// reference across goroutines.
package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is an ordered set of named columns sharing one row-key ordering.
type Table struct {
	name   string
	keys   []string
	cols   []*Column
	byName map[string]int
	rows   map[string]int
}

// NewTable binds the columns to keys. A nil keys slice means positional keys.
// Columns must all have len(keys) values and unique names; keys must be unique.
func NewTable(name string, keys []string, cols ...*Column) (*Table, error) {
	n := len(keys)
	if keys == nil {
		if len(cols) > 0 {
			n = cols[0].Len()
		}
		keys = positionalKeys(n)
	}
	t := &Table{
		name:   name,
		keys:   keys,
		cols:   make([]*Column, 0, len(cols)),
		byName: make(map[string]int, len(cols)),
		rows:   make(map[string]int, n),
	}
	for i, k := range keys {
		if _, dup := t.rows[k]; dup {
			return nil, fmt.Errorf("%w: duplicate row key %q", ErrShape, k)
		}
		t.rows[k] = i
	}
	for _, c := range cols {
		if _, dup := t.byName[c.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c.Name())
		}
		bound, err := c.WithKeys(keys)
		if err != nil {
			return nil, err
		}
		t.byName[c.Name()] = len(t.cols)
		t.cols = append(t.cols, bound)
	}
	return t, nil
}

// MustTable is NewTable that panics on error; intended for fixtures.
func MustTable(name string, keys []string, cols ...*Column) *Table {
	t, err := NewTable(name, keys, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.keys) }

// Keys returns the row keys. The slice is shared and must not be modified.
func (t *Table) Keys() []string { return t.keys }

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column { return t.cols }

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether the table contains a row with the given key.
func (t *Table) Has(key string) bool {
	_, ok := t.rows[key]
	return ok
}

// Row returns the formatted values of the row at position i.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Format(i)
	}
	return out
}

// Take returns the subset of rows with the given keys, in the given order.
func (t *Table) Take(keys []string) (*Table, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		pos, ok := t.rows[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRow, k)
		}
		idx[i] = pos
	}
	cols := make([]*Column, len(t.cols))
	for j, c := range t.cols {
		cells := make([]Cell, len(idx))
		for i, pos := range idx {
			cells[i] = c.cells[pos]
		}
		cols[j] = &Column{name: c.name, kind: c.kind, cells: cells}
	}
	sub := append([]string(nil), keys...)
	return NewTable(t.name, sub, cols...)
}

// DuplicateRowGroups returns groups of rows identical across every column,
// ordered by first occurrence. Rows where every value is null are skipped.
func (t *Table) DuplicateRowGroups() []Group {
	groups := make(map[string]*Group)
	order := make([]string, 0)
	var b strings.Builder
	for i, key := range t.keys {
		b.Reset()
		allNull := true
		for _, c := range t.cols {
			cell := c.cells[i]
			if !cell.Null {
				allNull = false
			}
			id := c.identity(cell)
			b.WriteString(strconv.Itoa(len(id)))
			b.WriteByte(':')
			b.WriteString(id)
		}
		if allNull {
			continue
		}
		id := b.String()
		g, ok := groups[id]
		if !ok {
			g = &Group{Value: strings.Join(t.Row(i), ", ")}
			groups[id] = g
			order = append(order, id)
		}
		g.Keys = append(g.Keys, key)
	}
	var out []Group
	for _, id := range order {
		if g := groups[id]; len(g.Keys) > 1 {
			out = append(out, *g)
		}
	}
	return out
}
