package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/KaramelBytes/tabproof/internal/report"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	checkStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	slotStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	pendingColor = color.New(color.Faint)
	failColor    = color.New(color.FgRed, color.Bold)
	cleanColor   = color.New(color.FgGreen)
	findColor    = color.New(color.FgYellow)
)

// Terminal writes a styled listing for interactive use. Not-applicable slots
// are skipped; colors follow the terminal's capabilities.
func Terminal(w io.Writer, rep *report.Report, opt Options) error {
	var b strings.Builder
	t := rep.Table()
	b.WriteString(titleStyle.Render(fmt.Sprintf("Data quality report: %s", t.Name())))
	b.WriteString(fmt.Sprintf("\n%d rows × %d columns\n", t.Len(), len(t.Columns())))

	for _, row := range rep.Grid() {
		b.WriteString("\n" + checkStyle.Render(row.Check.Name) + "\n")
		for _, gc := range row.Cells {
			if gc.State == report.NotApplicable {
				continue
			}
			slot := slotStyle.Render(gc.Slot)
			switch gc.State {
			case report.Pending:
				b.WriteString(fmt.Sprintf("  %s %s\n", slot, pendingColor.Sprint("pending")))
			case report.Failed:
				b.WriteString(fmt.Sprintf("  %s %s\n", slot, failColor.Sprintf("✗ %v", gc.Err)))
			case report.Done:
				if len(gc.Messages) == 0 {
					b.WriteString(fmt.Sprintf("  %s %s\n", slot, cleanColor.Sprint("✓")))
					continue
				}
				b.WriteString(fmt.Sprintf("  %s\n", slot))
				shown, more := opt.visible(gc.Messages)
				for _, m := range shown {
					text := m.Text
					if opt.Rows && m.HasRows() {
						text += " (rows: " + strings.Join(m.Rows, ", ") + ")"
					}
					b.WriteString(fmt.Sprintf("    %s %s\n", findColor.Sprint("⚠"), text))
				}
				if more > 0 {
					b.WriteString("    " + pendingColor.Sprint(moreText(more)) + "\n")
				}
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
