package report

import (
	"github.com/KaramelBytes/tabproof/internal/check"
)

// CellState is the rendering state of one grid position.
type CellState int

const (
	NotApplicable CellState = iota
	Pending
	Done
	Failed
)

func (s CellState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "n/a"
}

// GridCell is one position of the rendered grid.
type GridCell struct {
	Slot     string
	State    CellState
	Messages []check.Message
	Err      error
}

// Row holds every slot of one check, in Columns order.
type Row struct {
	Check *check.Check
	Cells []GridCell
}

// Grid returns the canonical view: one row per check in registration order,
// one cell per slot in Columns order. It never runs a check.
func (r *Report) Grid() []Row {
	names := r.table.ColumnNames()
	rows := make([]Row, 0, len(r.checks))
	for _, c := range r.checks {
		row := Row{Check: c, Cells: make([]GridCell, 0, len(names)+1)}
		row.Cells = append(row.Cells, r.gridCell(Key{Check: c, Table: true}))
		for _, n := range names {
			row.Cells = append(row.Cells, r.gridCell(Key{Check: c, Column: n}))
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *Report) gridCell(k Key) GridCell {
	gc := GridCell{Slot: k.Slot()}
	c, ok := r.cells[k]
	if !ok {
		return gc
	}
	switch c.state {
	case statePending:
		gc.State = Pending
	case stateDone:
		gc.State, gc.Messages = Done, c.msgs
	case stateFailed:
		gc.State, gc.Err = Failed, c.err
	}
	return gc
}
