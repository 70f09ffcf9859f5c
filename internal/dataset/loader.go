// Package dataset loads tabular files and query results into frame tables.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/KaramelBytes/tabproof/internal/frame"
)

// Options controls how raw data becomes a table.
type Options struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, chosen by extension ('\t' for .tsv, else ',').
	Delimiter rune
	// IndexColumn names a column whose values become row keys. Values must be unique.
	IndexColumn string
	// SheetName selects an XLSX sheet by name; SheetIndex is the 1-based fallback.
	SheetName  string
	SheetIndex int
	// Numeric parsing locale. When either separator is set, or Lenient is
	// true, values like "1.234,5", "12 %" and "1 000" parse as numbers.
	DecimalSeparator   rune
	ThousandsSeparator rune
	Lenient            bool
}

func (o Options) lenient() bool {
	return o.Lenient || o.DecimalSeparator != 0 || o.ThousandsSeparator != 0
}

// Loader reads one file format.
type Loader interface {
	CanLoad(path string) bool
	Load(ctx context.Context, path string, opt Options) (*frame.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// LoadFile selects a loader based on the file name and reads the table.
func LoadFile(ctx context.Context, path string, opt Options) (*frame.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(ctx, path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a file format no loader accepts.
var ErrUnsupported = errors.New("unsupported dataset format")
