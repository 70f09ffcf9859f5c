package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
	"github.com/KaramelBytes/tabproof/internal/report"
)

const (
	naStyle    = `style="background: #ddd"`
	emptyStyle = `style="background: #eee"`
)

// HTML writes the grid as a table: a Check header column, the whole-table
// slot, then one column per table column. Messages that reference rows are
// followed by those rows as a sub-table.
func HTML(w io.Writer, rep *report.Report, opt Options) error {
	var b strings.Builder
	esc := html.EscapeString
	b.WriteString(fmt.Sprintf(`<table id="tabproof-%s"><thead><tr><th>Check</th>`, esc(rep.ID())))
	for _, col := range rep.Columns() {
		b.WriteString("<th>" + esc(col) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for ci, row := range rep.Grid() {
		b.WriteString("<tr><th>" + esc(row.Check.Name) + "</th>")
		for si, gc := range row.Cells {
			id := fmt.Sprintf("tabproof-%s-%d-%d", esc(rep.ID()), ci, si)
			switch gc.State {
			case report.NotApplicable:
				b.WriteString("<td " + naStyle + "></td>")
			case report.Pending:
				b.WriteString(fmt.Sprintf(`<td id="%s">&hellip;</td>`, id))
			case report.Failed:
				b.WriteString(fmt.Sprintf(`<td id="%s" class="error">%s</td>`, id, esc(gc.Err.Error())))
			case report.Done:
				if len(gc.Messages) == 0 {
					b.WriteString(fmt.Sprintf(`<td id="%s" %s></td>`, id, emptyStyle))
					continue
				}
				b.WriteString(fmt.Sprintf(`<td id="%s">`, id))
				writeHTMLMessages(&b, rep.Table(), gc.Messages, opt)
				b.WriteString("</td>")
			}
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHTMLMessages(b *strings.Builder, t *frame.Table, msgs []check.Message, opt Options) {
	if len(msgs) == 1 {
		b.WriteString(htmlMessage(t, msgs[0]))
		return
	}
	shown, more := opt.visible(msgs)
	b.WriteString("<ul>")
	for _, m := range shown {
		b.WriteString("<li>" + htmlMessage(t, m) + "</li>")
	}
	b.WriteString("</ul>")
	if more > 0 {
		b.WriteString("<p>" + moreText(more) + "</p>")
	}
}

func htmlMessage(t *frame.Table, m check.Message) string {
	if !m.HasRows() {
		return html.EscapeString(m.Text)
	}
	keys := make([]string, 0, len(m.Rows))
	for _, k := range m.Rows {
		if t.Has(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return html.EscapeString(m.Text)
	}
	sub, err := t.Take(keys)
	if err != nil {
		return html.EscapeString(m.Text)
	}
	return "<h4>" + html.EscapeString(m.Text) + "</h4>" + htmlTable(sub)
}

// htmlTable renders rows of t with their keys as the header column.
func htmlTable(t *frame.Table) string {
	var b strings.Builder
	b.WriteString("<table><thead><tr><th></th>")
	for _, n := range t.ColumnNames() {
		b.WriteString("<th>" + html.EscapeString(n) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for i, k := range t.Keys() {
		b.WriteString("<tr><th>" + html.EscapeString(k) + "</th>")
		for _, v := range t.Row(i) {
			b.WriteString("<td>" + html.EscapeString(v) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}
