// Package render turns a report grid into Markdown, HTML, terminal text,
// JSON or MessagePack. Renderers read report.Report.Grid only; they never
// run checks, so pending cells render as pending.
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/report"
)

// DefaultMaxItems is how many messages a cell shows when not verbose.
const DefaultMaxItems = 5

// ErrUnknownFormat is returned by Write for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// Options control how much of each cell is shown.
type Options struct {
	Verbose  bool
	MaxItems int
	// Rows lists referenced row keys in text formats. HTML always shows them.
	Rows bool
}

func (o Options) limit() int {
	if o.MaxItems <= 0 {
		return DefaultMaxItems
	}
	return o.MaxItems
}

// visible returns the messages to show and how many were cut.
func (o Options) visible(msgs []check.Message) ([]check.Message, int) {
	if o.Verbose || len(msgs) <= o.limit() {
		return msgs, 0
	}
	return msgs[:o.limit()], len(msgs) - o.limit()
}

func moreText(n int) string {
	return fmt.Sprintf("And %d more, set to verbose to see", n)
}

type writer func(w io.Writer, rep *report.Report, opt Options) error

var writers = map[string]writer{
	"markdown": Markdown,
	"md":       Markdown,
	"html":     HTML,
	"terminal": Terminal,
	"text":     Terminal,
	"json":     JSON,
	"msgpack":  MessagePack,
}

// Formats lists the accepted format names.
func Formats() []string {
	out := make([]string, 0, len(writers))
	for k := range writers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Write renders rep in the named format. Verbose on the report enables
// verbose output even when opt leaves it off.
func Write(w io.Writer, format string, rep *report.Report, opt Options) error {
	fn, ok := writers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return fmt.Errorf("%w %q (use %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	if rep.Verbose() {
		opt.Verbose = true
	}
	return fn(w, rep, opt)
}

// safeVal keeps a value on one line and out of Markdown table syntax.
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
