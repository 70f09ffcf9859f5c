// Package report orchestrates checks over a table. A Report holds one cell
// per (check, applicable slot), evaluates cells lazily or on a worker pool,
// memoizes results, and exposes them in a canonical order for renderers.
//
// A Report is not safe for concurrent use: workers only compute results and
// hand them back over a channel, and the goroutine consuming Run performs
// every write to the grid.
package report

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
)

// TableSlot is the header label of the whole-table slot.
const TableSlot = "Dataframe"

// ErrNotApplicable is returned for keys outside the report grid.
var ErrNotApplicable = errors.New("check does not apply to slot")

// Policy decides what a parallel run does when a check fails.
type Policy int

const (
	// PartialOnError marks the failed cell and keeps running the rest.
	PartialOnError Policy = iota
	// AbortOnError cancels outstanding work and reports the failure.
	AbortOnError
)

func (p Policy) String() string {
	if p == AbortOnError {
		return "abort"
	}
	return "partial"
}

// ParsePolicy accepts "partial" or "abort" (case-insensitive, empty = partial).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partial":
		return PartialOnError, nil
	case "abort":
		return AbortOnError, nil
	}
	return PartialOnError, fmt.Errorf("unknown failure policy %q (want partial or abort)", s)
}

// Key identifies one cell: a check on a column, or on the whole table.
type Key struct {
	Check  *check.Check
	Column string
	Table  bool
}

// Slot returns the header label of the key's slot.
func (k Key) Slot() string {
	if k.Table {
		return TableSlot
	}
	return k.Column
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%s]", k.Check.Name, k.Slot())
}

// Result is the materialized outcome of one cell.
type Result struct {
	Messages []check.Message
	Err      error
}

// CheckError attributes a failure to its cell.
type CheckError struct {
	Key Key
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %q on %s: %v", e.Key.Check.Name, e.Key.Slot(), e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

type cellState int

const (
	statePending cellState = iota
	stateDone
	stateFailed
)

type cell struct {
	key   Key
	state cellState
	msgs  []check.Message
	err   error
}

func (c *cell) result() Result {
	return Result{Messages: c.msgs, Err: c.err}
}

// Report is the task grid for one table and one set of checks.
type Report struct {
	id      string
	table   *frame.Table
	checks  []*check.Check
	cells   map[Key]*cell
	order   []*cell
	workers int
	par     bool
	verbose bool
	policy  Policy
	params  map[string]check.Params
	log     *zap.Logger
	err     error
}

// Option configures a Report.
type Option func(*Report)

// WithParallel runs pending cells on a worker pool.
func WithParallel(on bool) Option { return func(r *Report) { r.par = on } }

// WithWorkers sets the pool size; n <= 0 means runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option { return func(r *Report) { r.workers = n } }

// WithPolicy sets the parallel failure policy.
func WithPolicy(p Policy) Option { return func(r *Report) { r.policy = p } }

// WithParams overrides check parameters by check name.
func WithParams(p map[string]check.Params) Option { return func(r *Report) { r.params = p } }

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Report) {
		if l != nil {
			r.log = l
		}
	}
}

// WithID fixes the report id instead of generating one.
func WithID(id string) Option { return func(r *Report) { r.id = id } }

// WithVerbose records that renderers should list every message.
func WithVerbose(on bool) Option { return func(r *Report) { r.verbose = on } }

// New builds the grid: one cell per whole-table check, one cell per column
// for every other check. No check runs until results are requested.
func New(t *frame.Table, checks []*check.Check, opts ...Option) *Report {
	r := &Report{
		table:  t,
		checks: checks,
		cells:  make(map[Key]*cell),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	for _, c := range checks {
		if c.OnTable {
			r.add(Key{Check: c, Table: true})
			continue
		}
		for _, name := range t.ColumnNames() {
			r.add(Key{Check: c, Column: name})
		}
	}
	return r
}

func (r *Report) add(k Key) {
	c := &cell{key: k}
	r.cells[k] = c
	r.order = append(r.order, c)
}

func (r *Report) ID() string             { return r.id }
func (r *Report) Table() *frame.Table    { return r.table }
func (r *Report) Checks() []*check.Check { return r.checks }
func (r *Report) Verbose() bool          { return r.verbose }

// Columns returns the grid header: the whole-table slot, then column names.
func (r *Report) Columns() []string {
	return append([]string{TableSlot}, r.table.ColumnNames()...)
}

// Len returns the number of cells in the grid.
func (r *Report) Len() int { return len(r.order) }

// Err returns the failure that ended the last run, if any.
func (r *Report) Err() error { return r.err }

// Failures returns every failed cell's error in canonical order.
func (r *Report) Failures() []*CheckError {
	var out []*CheckError
	for _, c := range r.order {
		if c.state != stateFailed {
			continue
		}
		var ce *CheckError
		if errors.As(c.err, &ce) {
			out = append(out, ce)
		}
	}
	return out
}

// Get returns the result for key, computing it first if still pending.
// Later calls return the cached result without running the check again.
func (r *Report) Get(ctx context.Context, key Key) (Result, error) {
	c, ok := r.cells[key]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotApplicable, key)
	}
	if c.state == statePending {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		r.store(c, r.evaluate(key))
	}
	return c.result(), c.err
}

// ReportFor returns the messages of check c on column, or on the whole
// table when c operates on tables.
func (r *Report) ReportFor(column string, c *check.Check) ([]check.Message, error) {
	key := Key{Check: c, Column: column}
	if c.OnTable {
		key = Key{Check: c, Table: true}
	}
	res, err := r.Get(context.Background(), key)
	return res.Messages, err
}

// Execute materializes every cell and returns Err.
func (r *Report) Execute(ctx context.Context) error {
	for range r.Run(ctx) {
	}
	return r.Err()
}

// Run yields results as they become available. Serial runs follow the
// canonical order and stop at the first failure. Parallel runs yield
// already-computed cells first, then the rest in completion order.
func (r *Report) Run(ctx context.Context) iter.Seq2[Key, Result] {
	if r.par {
		return r.runParallel(ctx)
	}
	return r.runSerial(ctx)
}

func (r *Report) runSerial(ctx context.Context) iter.Seq2[Key, Result] {
	return func(yield func(Key, Result) bool) {
		r.err = nil
		for _, c := range r.order {
			if c.state == statePending {
				if err := ctx.Err(); err != nil {
					r.err = err
					return
				}
				r.store(c, r.evaluate(c.key))
			}
			if !yield(c.key, c.result()) {
				return
			}
			if c.state == stateFailed {
				r.err = c.err
				return
			}
		}
	}
}

type outcome struct {
	cell *cell
	res  Result
}

func (r *Report) runParallel(parent context.Context) iter.Seq2[Key, Result] {
	return func(yield func(Key, Result) bool) {
		r.err = nil
		var todo []*cell
		for _, c := range r.order {
			if c.state == statePending {
				todo = append(todo, c)
				continue
			}
			if !yield(c.key, c.result()) {
				return
			}
		}
		if len(todo) == 0 {
			return
		}

		ctx, cancel := context.WithCancel(parent)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(r.workers, len(todo)))
		done := make(chan outcome)
		r.log.Debug("dispatching checks", zap.Int("tasks", len(todo)), zap.Int("workers", min(r.workers, len(todo))))

		go func() {
			defer close(done)
			for _, c := range todo {
				if gctx.Err() != nil {
					break
				}
				g.Go(func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					res := r.evaluate(c.key)
					select {
					case done <- outcome{c, res}:
						return nil
					case <-gctx.Done():
						return gctx.Err()
					}
				})
			}
			_ = g.Wait()
		}()
		defer func() {
			cancel()
			for o := range done {
				r.store(o.cell, o.res)
			}
		}()

		for o := range done {
			r.store(o.cell, o.res)
			if !yield(o.cell.key, o.cell.result()) {
				return
			}
			if o.res.Err != nil && r.policy == AbortOnError {
				r.err = o.res.Err
				return
			}
		}
		if err := parent.Err(); err != nil {
			r.err = err
		}
	}
}

// evaluate runs one check and materializes its messages. It only reads
// shared state and may run on any goroutine.
func (r *Report) evaluate(k Key) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			err, ok := p.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", p)
			}
			res = Result{Err: &CheckError{Key: k, Err: err}}
		}
	}()
	in := check.Input{Table: r.table, Params: r.params[k.Check.Name]}
	if !k.Table {
		col, ok := r.table.Column(k.Column)
		if !ok {
			return Result{Err: &CheckError{Key: k, Err: fmt.Errorf("unknown column %q", k.Column)}}
		}
		in.Column = col
	}
	msgs := []check.Message{}
	for m := range k.Check.Run(in) {
		msgs = append(msgs, m)
	}
	return Result{Messages: msgs}
}

func (r *Report) store(c *cell, res Result) {
	if c.state != statePending {
		return
	}
	if res.Err != nil {
		c.state, c.err = stateFailed, res.Err
		r.log.Warn("check failed",
			zap.String("check", c.key.Check.Name),
			zap.String("column", c.key.Slot()),
			zap.Error(res.Err))
		return
	}
	c.state, c.msgs = stateDone, res.Messages
	r.log.Debug("check finished",
		zap.String("check", c.key.Check.Name),
		zap.String("column", c.key.Slot()),
		zap.Int("messages", len(res.Messages)))
}
