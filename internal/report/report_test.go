package report

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
	"github.com/KaramelBytes/tabproof/internal/rules"
)

var errBoom = errors.New("boom")

func fixture() *frame.Table {
	return frame.MustTable("t", nil,
		frame.Floats("a", 1, 2, 0, 65535),
		frame.Ints("b", 0, 0, 7, 7),
		frame.Strings("s", "x", "y", "x", "1.5"),
	)
}

// echo names its slot and counts invocations.
func echo(calls *atomic.Int64) check.Func {
	return func(in check.Input) iter.Seq[check.Message] {
		calls.Add(1)
		return func(yield func(check.Message) bool) {
			if in.Column == nil {
				yield(check.Text("table " + in.Table.Name()))
				return
			}
			yield(check.Text("column " + in.Column.Name()))
		}
	}
}

func boom(in check.Input) iter.Seq[check.Message] {
	return func(yield func(check.Message) bool) {
		if in.Column != nil && in.Column.Name() == "b" {
			panic(errBoom)
		}
		yield(check.Text("ok"))
	}
}

type testChecks struct {
	reg   *check.Registry
	calls *atomic.Int64
}

func newChecks(t *testing.T, withBoom bool) testChecks {
	t.Helper()
	tc := testChecks{reg: check.NewRegistry(), calls: new(atomic.Int64)}
	tc.reg.MustRegister(echo(tc.calls), "Echo", check.Tags("basic"))
	if withBoom {
		tc.reg.MustRegister(boom, "Boom", check.Tags("basic"))
	}
	tc.reg.MustRegister(echo(tc.calls), "Whole", check.Tags("basic"), check.OnTable())
	return tc
}

func key(t *testing.T, reg *check.Registry, name, column string) Key {
	t.Helper()
	c, ok := reg.Lookup(name)
	if !ok {
		t.Fatalf("unknown check %q", name)
	}
	if c.OnTable {
		return Key{Check: c, Table: true}
	}
	return Key{Check: c, Column: column}
}

// messages flattens the grid into slot-addressed message lists.
func messages(r *Report) map[string][]check.Message {
	out := map[string][]check.Message{}
	for _, row := range r.Grid() {
		for _, gc := range row.Cells {
			if gc.State == Done {
				out[row.Check.Name+"/"+gc.Slot] = gc.Messages
			}
		}
	}
	return out
}

func states(r *Report) map[string]CellState {
	out := map[string]CellState{}
	for _, row := range r.Grid() {
		for _, gc := range row.Cells {
			out[row.Check.Name+"/"+gc.Slot] = gc.State
		}
	}
	return out
}

func TestGridShape(t *testing.T) {
	tc := newChecks(t, false)
	r := New(fixture(), tc.reg.All())

	if r.Len() != 7 {
		t.Fatalf("Len = %d, want 7", r.Len())
	}
	if diff := cmp.Diff([]string{"Dataframe", "a", "b", "s"}, r.Columns()); diff != "" {
		t.Fatalf("Columns mismatch (-want +got):\n%s", diff)
	}
	want := map[string]CellState{
		"Echo/Dataframe": NotApplicable, "Echo/a": Pending, "Echo/b": Pending, "Echo/s": Pending,
		"Whole/Dataframe": Pending, "Whole/a": NotApplicable, "Whole/b": NotApplicable, "Whole/s": NotApplicable,
	}
	if diff := cmp.Diff(want, states(r)); diff != "" {
		t.Fatalf("grid states mismatch (-want +got):\n%s", diff)
	}
	if tc.calls.Load() != 0 {
		t.Fatalf("building the grid ran %d checks", tc.calls.Load())
	}
	if r.ID() == "" {
		t.Fatal("expected generated report id")
	}
}

func TestGetMemoizes(t *testing.T) {
	tc := newChecks(t, false)
	r := New(fixture(), tc.reg.All(), WithID("fixed"))
	ctx := context.Background()
	k := key(t, tc.reg, "Echo", "a")

	for i := 0; i < 3; i++ {
		res, err := r.Get(ctx, k)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff([]check.Message{check.Text("column a")}, res.Messages); diff != "" {
			t.Fatalf("messages mismatch (-want +got):\n%s", diff)
		}
	}
	if tc.calls.Load() != 1 {
		t.Fatalf("check ran %d times, want 1", tc.calls.Load())
	}

	whole, _ := tc.reg.Lookup("Whole")
	msgs, err := r.ReportFor("", whole)
	if err != nil || len(msgs) != 1 || msgs[0].Text != "table t" {
		t.Fatalf("ReportFor(whole) = %v, %v", msgs, err)
	}

	if err := r.Execute(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if tc.calls.Load() != 4 {
		t.Fatalf("check ran %d times after Execute, want 4", tc.calls.Load())
	}
	if err := r.Execute(ctx); err != nil || tc.calls.Load() != 4 {
		t.Fatalf("second Execute re-ran checks: calls=%d err=%v", tc.calls.Load(), err)
	}
	if r.ID() != "fixed" {
		t.Fatalf("ID = %q", r.ID())
	}
}

func TestGetNotApplicable(t *testing.T) {
	tc := newChecks(t, false)
	r := New(fixture(), tc.reg.All())
	echoCheck, _ := tc.reg.Lookup("Echo")

	if _, err := r.Get(context.Background(), Key{Check: echoCheck, Table: true}); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("table slot of column check: err = %v", err)
	}
	if _, err := r.ReportFor("missing", echoCheck); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("unknown column: err = %v", err)
	}
}

func TestSerialAndParallelAgree(t *testing.T) {
	defer goleak.VerifyNone(t)
	tbl := frame.MustTable("t", nil,
		frame.Floats("x", 0, 0, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 65535, 123456),
		frame.Ints("y", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14),
		frame.Strings("z", "a", "1", "2", "a", "3", "", "4", "5", "6", "7", "8", "9", "1", "a"),
	)
	ctx := context.Background()
	serial := New(tbl, rules.Default().All())
	if err := serial.Execute(ctx); err != nil {
		t.Fatalf("serial: %v", err)
	}
	for _, workers := range []int{1, 3, 16} {
		par := New(tbl, rules.Default().All(), WithParallel(true), WithWorkers(workers))
		seen := map[string]int{}
		for k, res := range par.Run(ctx) {
			if res.Err != nil {
				t.Fatalf("workers=%d %s: %v", workers, k, res.Err)
			}
			seen[k.String()]++
		}
		if len(seen) != serial.Len() {
			t.Fatalf("workers=%d: yielded %d keys, want %d", workers, len(seen), serial.Len())
		}
		for k, n := range seen {
			if n != 1 {
				t.Fatalf("workers=%d: %s yielded %d times", workers, k, n)
			}
		}
		if diff := cmp.Diff(messages(serial), messages(par)); diff != "" {
			t.Fatalf("workers=%d grid mismatch (-serial +parallel):\n%s", workers, diff)
		}
	}
}

func TestSerialRunOrder(t *testing.T) {
	tc := newChecks(t, false)
	r := New(fixture(), tc.reg.All())
	var got []string
	for k := range r.Run(context.Background()) {
		got = append(got, k.String())
	}
	want := []string{"Echo[a]", "Echo[b]", "Echo[s]", "Whole[Dataframe]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialAbortsOnFailure(t *testing.T) {
	tc := newChecks(t, true)
	r := New(fixture(), tc.reg.All(), WithPolicy(PartialOnError))

	err := r.Execute(context.Background())
	var ce *CheckError
	if !errors.As(err, &ce) {
		t.Fatalf("Execute err = %v, want *CheckError", err)
	}
	if !errors.Is(err, errBoom) || ce.Key.Check.Name != "Boom" || ce.Key.Column != "b" {
		t.Fatalf("unexpected failure %v", ce)
	}
	if !strings.Contains(err.Error(), `check "Boom" on b`) {
		t.Fatalf("error text %q", err.Error())
	}
	st := states(r)
	if st["Boom/a"] != Done || st["Boom/b"] != Failed || st["Boom/s"] != Pending || st["Whole/Dataframe"] != Pending {
		t.Fatalf("states after abort: %v", st)
	}
}

func TestParallelPartialOnError(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newChecks(t, true)
	r := New(fixture(), tc.reg.All(), WithParallel(true), WithWorkers(2))

	if err := r.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	failures := r.Failures()
	if len(failures) != 1 || failures[0].Key.Column != "b" {
		t.Fatalf("Failures = %v", failures)
	}
	for slot, s := range states(r) {
		if s == Pending {
			t.Fatalf("%s still pending", slot)
		}
	}
	res, err := r.Get(context.Background(), key(t, tc.reg, "Boom", "b"))
	if !errors.Is(err, errBoom) || !errors.Is(res.Err, errBoom) {
		t.Fatalf("Get on failed cell: %v / %v", res.Err, err)
	}
}

func TestParallelAbortOnError(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newChecks(t, true)
	r := New(fixture(), tc.reg.All(), WithParallel(true), WithWorkers(1), WithPolicy(AbortOnError))

	err := r.Execute(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Execute err = %v, want boom", err)
	}
	if st := states(r); st["Boom/b"] != Failed {
		t.Fatalf("Boom/b state %v", st["Boom/b"])
	}
}

func TestParallelEarlyBreak(t *testing.T) {
	defer goleak.VerifyNone(t)
	r := New(fixture(), rules.Default().All(), WithParallel(true), WithWorkers(4))
	for range r.Run(context.Background()) {
		break
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err after break: %v", err)
	}
	// Remaining cells can still be materialized.
	if err := r.Execute(context.Background()); err != nil {
		t.Fatalf("Execute after break: %v", err)
	}
	for slot, s := range states(r) {
		if s == Pending {
			t.Fatalf("%s still pending", slot)
		}
	}
}

func TestParallelYieldsCachedFirst(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newChecks(t, false)
	r := New(fixture(), tc.reg.All(), WithParallel(true))
	k := key(t, tc.reg, "Echo", "s")
	if _, err := r.Get(context.Background(), k); err != nil {
		t.Fatal(err)
	}
	var first Key
	n := 0
	for got := range r.Run(context.Background()) {
		if n == 0 {
			first = got
		}
		n++
	}
	if first != k || n != 4 {
		t.Fatalf("first = %s, n = %d", first, n)
	}
	if tc.calls.Load() != 4 {
		t.Fatalf("calls = %d, want 4", tc.calls.Load())
	}
}

func TestCanceledContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, par := range []bool{false, true} {
		tc := newChecks(t, false)
		r := New(fixture(), tc.reg.All(), WithParallel(par))
		if err := r.Execute(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("parallel=%v: err = %v", par, err)
		}
		if tc.calls.Load() != 0 {
			t.Fatalf("parallel=%v: %d checks ran on canceled context", par, tc.calls.Load())
		}
	}
}

func TestInspect(t *testing.T) {
	tc := newChecks(t, true)
	if _, err := Inspect(fixture(), tc.reg, Request{Params: map[string]check.Params{"Nope": {"x": 1}}}); err == nil || !strings.Contains(err.Error(), "Nope") {
		t.Fatalf("unknown params: err = %v", err)
	}

	r, err := Inspect(fixture(), rules.Default(), Request{Include: []string{"nelson"}, Exclude: []string{"benford"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range r.Checks() {
		if !slices.Contains(c.Tags, "nelson") {
			t.Fatalf("selected %s without nelson tag", c.Name)
		}
	}
	if len(r.Checks()) != 8 {
		t.Fatalf("selected %d checks, want 8", len(r.Checks()))
	}
}

func TestInspectParamsReachChecks(t *testing.T) {
	tbl := frame.MustTable("t", nil, frame.Floats("v", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15))
	r, err := Inspect(tbl, rules.Default(), Request{
		Include: []string{"nelson"},
		Params:  map[string]check.Params{"Nelson Rule 3": {"threshold": 10}},
	})
	if err != nil {
		t.Fatal(err)
	}
	rule3, _ := rules.Default().Lookup("Nelson Rule 3")
	msgs, err := r.ReportFor("v", rule3)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "increasing") {
		t.Fatalf("Rule 3 messages = %v", msgs)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PartialOnError, "partial": PartialOnError, "ABORT": AbortOnError} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("stop"); err == nil {
		t.Fatal("expected error")
	}
}
