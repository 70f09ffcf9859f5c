package dataset

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaramelBytes/tabproof/internal/frame"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadPostgres runs query against the database at url and returns the
// result set as a table named "query".
func LoadPostgres(ctx context.Context, url, query string, opt Options) (*frame.Table, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return QueryTable(ctx, pool, "query", query, opt)
}

// QueryTable runs query on q and converts the rows.
func QueryTable(ctx context.Context, q Querier, name, query string, opt Options) (*frame.Table, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	var records [][]any
	for rows.Next() {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return convertRows(name, names, records, opt)
}

// convertRows maps decoded Go values to typed columns: integers to Int,
// floats and numerics to Float, bools to Bool, everything else to Text.
// nil is null. A column mixing value kinds falls back to Text.
func convertRows(name string, header []string, records [][]any, opt Options) (*frame.Table, error) {
	names := uniqueNames(header)
	index := -1
	if opt.IndexColumn != "" {
		for j, n := range names {
			if n == opt.IndexColumn {
				index = j
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("index column %q not in result set", opt.IndexColumn)
		}
	}

	var keys []string
	if index >= 0 {
		keys = make([]string, len(records))
		for i, rec := range records {
			keys[i] = textOf(rec[index])
		}
	}
	var cols []*frame.Column
	for j, n := range names {
		if j == index {
			continue
		}
		kind, mixed := frame.Kind(-1), false
		for _, rec := range records {
			if rec[j] == nil {
				continue
			}
			k := kindOf(rec[j])
			switch {
			case kind < 0:
				kind = k
			case k == kind:
			case k.Numeric() && kind.Numeric():
				kind = frame.Float
			default:
				mixed = true
			}
		}
		if kind < 0 {
			kind = frame.Float
		}
		if mixed {
			kind = frame.Text
		}
		cells := make([]frame.Cell, len(records))
		for i, rec := range records {
			cells[i] = cellOf(rec[j], kind)
		}
		cols = append(cols, frame.NewColumn(n, kind, cells))
	}
	t, err := frame.NewTable(name, keys, cols...)
	if err != nil {
		return nil, fmt.Errorf("build table %s: %w", name, err)
	}
	return t, nil
}

func kindOf(v any) frame.Kind {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return frame.Int
	case uint64:
		if val > math.MaxInt64 {
			return frame.Float
		}
		return frame.Int
	case float32, float64:
		return frame.Float
	case pgtype.Numeric:
		if !val.Valid || val.NaN || val.InfinityModifier != pgtype.Finite {
			return frame.Float
		}
		if _, ok := intOf(val); ok && val.Exp >= 0 {
			return frame.Int
		}
		return frame.Float
	case bool:
		return frame.Bool
	}
	return frame.Text
}

func cellOf(v any, kind frame.Kind) frame.Cell {
	if v == nil {
		return frame.Null
	}
	if kind == frame.Text {
		return frame.Str(textOf(v))
	}
	if kind == frame.Int {
		if i, ok := intOf(v); ok {
			return frame.Integer(i)
		}
	}
	switch val := v.(type) {
	case int:
		return frame.Num(float64(val))
	case int8:
		return frame.Num(float64(val))
	case int16:
		return frame.Num(float64(val))
	case int32:
		return frame.Num(float64(val))
	case int64:
		return frame.Num(float64(val))
	case uint8:
		return frame.Num(float64(val))
	case uint16:
		return frame.Num(float64(val))
	case uint32:
		return frame.Num(float64(val))
	case uint64:
		return frame.Num(float64(val))
	case float32:
		return frame.Num(float64(val))
	case float64:
		return frame.Num(val)
	case pgtype.Numeric:
		if !val.Valid {
			return frame.Null
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return frame.Num(math.NaN())
		}
		return frame.Num(f.Float64)
	case bool:
		if val {
			return frame.Num(1)
		}
		return frame.Num(0)
	}
	return frame.Str(textOf(v))
}

// intOf returns the exact value of an integer-typed driver value.
func intOf(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case pgtype.Numeric:
		i, err := val.Int64Value()
		if err != nil || !i.Valid {
			return 0, false
		}
		return i.Int64, true
	}
	return 0, false
}

func textOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(val, 10)
	case pgtype.Numeric:
		if f, err := val.Float64Value(); err == nil && f.Valid {
			return frame.FormatFloat(f.Float64)
		}
		return ""
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}
