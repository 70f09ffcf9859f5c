package render

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/report"
	"github.com/KaramelBytes/tabproof/internal/utils"
)

// Document is the machine-readable form of a report. Only applicable
// cells are listed.
type Document struct {
	ID      string     `json:"id" msgpack:"id"`
	Table   string     `json:"table" msgpack:"table"`
	Rows    int        `json:"rows" msgpack:"rows"`
	Columns []string   `json:"columns" msgpack:"columns"`
	Checks  []CheckDoc `json:"checks" msgpack:"checks"`
}

type CheckDoc struct {
	Name  string    `json:"name" msgpack:"name"`
	Tags  []string  `json:"tags" msgpack:"tags"`
	Cells []CellDoc `json:"cells" msgpack:"cells"`
}

type CellDoc struct {
	Slot     string          `json:"slot" msgpack:"slot"`
	State    string          `json:"state" msgpack:"state"`
	Messages []check.Message `json:"messages,omitempty" msgpack:"messages,omitempty"`
	Error    string          `json:"error,omitempty" msgpack:"error,omitempty"`
}

// NewDocument snapshots the grid. Message lists are cut to opt's limit
// unless verbose.
func NewDocument(rep *report.Report, opt Options) Document {
	t := rep.Table()
	doc := Document{
		ID:      rep.ID(),
		Table:   t.Name(),
		Rows:    t.Len(),
		Columns: t.ColumnNames(),
		Checks:  make([]CheckDoc, 0, len(rep.Checks())),
	}
	for _, row := range rep.Grid() {
		cd := CheckDoc{Name: row.Check.Name, Tags: row.Check.Tags, Cells: []CellDoc{}}
		for _, gc := range row.Cells {
			if gc.State == report.NotApplicable {
				continue
			}
			cell := CellDoc{Slot: gc.Slot, State: gc.State.String()}
			if gc.Err != nil {
				cell.Error = gc.Err.Error()
			}
			if gc.State == report.Done {
				cell.Messages, _ = opt.visible(gc.Messages)
			}
			cd.Cells = append(cd.Cells, cell)
		}
		doc.Checks = append(doc.Checks, cd)
	}
	return doc
}

// JSON writes the report Document as indented JSON.
func JSON(w io.Writer, rep *report.Report, opt Options) error {
	b, err := utils.PrettyJSON(NewDocument(rep, opt))
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// MessagePack writes the report Document as MessagePack.
func MessagePack(w io.Writer, rep *report.Report, opt Options) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(NewDocument(rep, opt)); err != nil {
		return fmt.Errorf("encode msgpack: %w", err)
	}
	return nil
}
