package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/report"
)

// Markdown writes one section per check with a bullet per applicable slot.
func Markdown(w io.Writer, rep *report.Report, opt Options) error {
	var b strings.Builder
	t := rep.Table()
	b.WriteString("[DATA QUALITY REPORT]\n")
	if t.Name() != "" {
		b.WriteString(fmt.Sprintf("Table: %s\n", t.Name()))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", t.Len()))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(t.Columns())))
	b.WriteString(fmt.Sprintf("Report: %s\n", rep.ID()))

	for _, row := range rep.Grid() {
		b.WriteString(fmt.Sprintf("\n[%s]\n", row.Check.Name))
		for _, gc := range row.Cells {
			switch gc.State {
			case report.NotApplicable:
				continue
			case report.Pending:
				b.WriteString(fmt.Sprintf("- %s: pending\n", safeVal(gc.Slot)))
			case report.Failed:
				b.WriteString(fmt.Sprintf("- %s: error: %s\n", safeVal(gc.Slot), safeVal(gc.Err.Error())))
			case report.Done:
				writeMarkdownCell(&b, gc, opt)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownCell(b *strings.Builder, gc report.GridCell, opt Options) {
	slot := safeVal(gc.Slot)
	switch len(gc.Messages) {
	case 0:
		b.WriteString(fmt.Sprintf("- %s: no findings\n", slot))
		return
	case 1:
		b.WriteString(fmt.Sprintf("- %s: %s\n", slot, markdownMessage(gc.Messages[0], opt)))
		return
	}
	b.WriteString(fmt.Sprintf("- %s:\n", slot))
	shown, more := opt.visible(gc.Messages)
	for _, m := range shown {
		b.WriteString(fmt.Sprintf("  • %s\n", markdownMessage(m, opt)))
	}
	if more > 0 {
		b.WriteString(fmt.Sprintf("  %s\n", moreText(more)))
	}
}

func markdownMessage(m check.Message, opt Options) string {
	s := safeVal(m.Text)
	if opt.Rows && m.HasRows() {
		s += fmt.Sprintf(" (rows: %s)", safeVal(strings.Join(m.Rows, ", ")))
	}
	return s
}
