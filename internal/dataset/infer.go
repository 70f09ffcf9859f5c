package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabproof/internal/frame"
)

// Tokens read as missing values.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {},
}

func isNA(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// InferColumn builds a column from raw cell strings. Columns whose values
// are all true/false become Bool, all integers become Int, all numbers
// become Float, and anything else Text. A column with no values is Float.
func InferColumn(name string, raw []string, opt Options) *frame.Column {
	kind := inferKind(raw, opt)
	cells := make([]frame.Cell, len(raw))
	for i, v := range raw {
		if isNA(v) {
			cells[i] = frame.Null
			continue
		}
		switch kind {
		case frame.Text:
			cells[i] = frame.Str(v)
		case frame.Bool:
			b, _ := parseBool(v)
			cells[i] = frame.Num(b)
		case frame.Int:
			n, _ := parseInt(v, opt)
			cells[i] = frame.Integer(n)
		default:
			f, _, _ := parseNumber(v, opt)
			cells[i] = frame.Num(f)
		}
	}
	return frame.NewColumn(name, kind, cells)
}

func inferKind(raw []string, opt Options) frame.Kind {
	seen := 0
	bools, numeric, ints := true, true, true
	for _, v := range raw {
		if isNA(v) {
			continue
		}
		seen++
		if bools {
			if _, ok := parseBool(v); !ok {
				bools = false
			}
		}
		if numeric {
			_, isInt, ok := parseNumber(v, opt)
			if !ok {
				numeric = false
			} else if !isInt {
				ints = false
			}
		}
		if !bools && !numeric {
			return frame.Text
		}
	}
	switch {
	case seen == 0:
		return frame.Float
	case bools:
		return frame.Bool
	case ints:
		return frame.Int
	default:
		return frame.Float
	}
}

func parseBool(s string) (float64, bool) {
	switch strings.TrimSpace(s) {
	case "true", "True", "TRUE":
		return 1, true
	case "false", "False", "FALSE":
		return 0, true
	}
	return 0, false
}

// parseNumber reads a number strictly, or with locale separators when the
// options ask for it. isInt reports a value written without a fraction or
// exponent.
func parseNumber(s string, opt Options) (f float64, isInt, ok bool) {
	raw := strings.TrimSpace(s)
	if opt.lenient() {
		return parseNumeric(raw, opt)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return float64(i), true, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, false
	}
	return f, false, true
}

// parseInt reads a value inferred as an integer without going through
// float64, so values beyond 2^53 stay exact.
func parseInt(s string, opt Options) (int64, bool) {
	raw := strings.TrimSpace(s)
	if opt.lenient() {
		raw = normalizeNumeric(raw, opt)
	}
	i, err := strconv.ParseInt(raw, 10, 64)
	return i, err == nil
}

func parseNumeric(raw string, opt Options) (float64, bool, bool) {
	raw = normalizeNumeric(raw, opt)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, false
	}
	_, intErr := strconv.ParseInt(raw, 10, 64)
	return f, intErr == nil, true
}

// normalizeNumeric strips percent signs and thousands separators and
// rewrites the decimal separator as '.'.
func normalizeNumeric(raw string, opt Options) string {
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	// Normalize spaces
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	// Decide decimal separator
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	switch {
	case dec == 0 && thou == '.':
		dec = ','
	case dec == 0 && thou != 0:
		dec = '.'
	case dec == 0:
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	// Remove thousands separators (common: ',', '.', space) if they differ from decimal
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	return raw
}

// buildTable infers every column and binds row keys, taking them from
// opt.IndexColumn when set.
func buildTable(name string, header []string, rows [][]string, opt Options) (*frame.Table, error) {
	names := uniqueNames(header)
	index := -1
	if opt.IndexColumn != "" {
		for j, n := range names {
			if n == strings.TrimSpace(opt.IndexColumn) {
				index = j
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("index column %q not found; available: %s", opt.IndexColumn, strings.Join(names, ", "))
		}
	}

	var keys []string
	if index >= 0 {
		keys = make([]string, len(rows))
		for i, row := range rows {
			keys[i] = strings.TrimSpace(row[index])
		}
	}
	cols := make([]*frame.Column, 0, len(names))
	raw := make([]string, len(rows))
	for j, n := range names {
		if j == index {
			continue
		}
		for i, row := range rows {
			raw[i] = row[j]
		}
		cols = append(cols, InferColumn(n, raw, opt))
	}
	t, err := frame.NewTable(name, keys, cols...)
	if err != nil {
		return nil, fmt.Errorf("build table %s: %w", name, err)
	}
	return t, nil
}

// uniqueNames trims header cells, names blanks "Unnamed: i" and suffixes
// repeats with ".1", ".2", ...
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if c, dup := seen[n]; dup {
			seen[n] = c + 1
			n = fmt.Sprintf("%s.%d", n, c+1)
		}
		seen[n] = 0
		out[i] = n
	}
	return out
}
