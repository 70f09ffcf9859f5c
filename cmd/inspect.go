package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/dataset"
	"github.com/KaramelBytes/tabproof/internal/frame"
	"github.com/KaramelBytes/tabproof/internal/render"
	"github.com/KaramelBytes/tabproof/internal/report"
	"github.com/KaramelBytes/tabproof/internal/rules"
)

var (
	insInclude    []string
	insExclude    []string
	insParallel   bool
	insWorkers    int
	insVerbose    bool
	insFormat     string
	insOutput     string
	insOutputDir  string
	insPolicy     string
	insDelimiter  string
	insIndexCol   string
	insSheetName  string
	insSheetIndex int
	insMaxRows    int
	insMaxItems   int
	insDecimal    string
	insThousands  string
	insLenient    bool
	insRows       bool
	insParams     []string
	insPgURL      string
	insQuery      string
	insQuiet      bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Run data-quality checks over CSV/TSV/XLSX files or a PostgreSQL query",
	Example: `  tabproof inspect sales.csv
  tabproof inspect data/*.csv --parallel --format markdown --output-dir reports
  tabproof inspect book.xlsx --sheet-name Data --include nelson --exclude benford
  tabproof inspect readings.csv --param "Nelson Rule 1:std_mult=2.5" --verbose
  cat sales.csv | tabproof inspect -
  tabproof inspect --pg-url postgres://localhost/shop --query "select * from orders"`,
	RunE: runInspect,
}

type input struct {
	name string
	load func(ctx context.Context) (*frame.Table, error)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logContext(cmd)
	st := settings()
	f := cmd.Flags()

	opt, err := loaderOptions(f.Changed("max-rows"))
	if err != nil {
		return err
	}

	inputs, err := collectInputs(cmd, args, opt)
	if err != nil {
		return err
	}
	if len(inputs) > 1 && insOutput != "" {
		return fmt.Errorf("--output takes a single input; use --output-dir for %d inputs", len(inputs))
	}

	reg := rules.Default()
	params, err := mergeParams(reg, st.Params, insParams)
	if err != nil {
		return err
	}

	req := report.Request{
		Include:  st.Include,
		Exclude:  st.Exclude,
		Parallel: st.Parallel,
		Workers:  st.Workers,
		Verbose:  st.Verbose,
		Params:   params,
		Logger:   logger,
	}
	if f.Changed("include") {
		req.Include = insInclude
	}
	if f.Changed("exclude") {
		req.Exclude = insExclude
	}
	if f.Changed("parallel") {
		req.Parallel = insParallel
	}
	if f.Changed("workers") {
		req.Workers = insWorkers
	}
	if f.Changed("verbose") {
		req.Verbose = insVerbose
	}
	policy := st.FailurePolicy
	if f.Changed("policy") {
		policy = insPolicy
	}
	if req.Policy, err = report.ParsePolicy(policy); err != nil {
		return err
	}

	format := st.Format
	if f.Changed("format") {
		format = insFormat
	}
	ropt := render.Options{MaxItems: st.MaxItems, Rows: insRows}
	if f.Changed("max-items") {
		ropt.MaxItems = insMaxItems
	}

	if insOutputDir != "" {
		if err := os.MkdirAll(insOutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	stderr := cmd.ErrOrStderr()
	total := len(inputs)
	var failed error
	for i, in := range inputs {
		if !insQuiet && total > 1 {
			fmt.Fprintf(stderr, "[%d/%d] Processing %s...\n", i+1, total, in.name)
		}
		tbl, err := in.load(ctx)
		if err != nil {
			return fmt.Errorf("load %s: %w", in.name, err)
		}
		log.Debug("table loaded", zap.String("input", in.name), zap.Int("rows", tbl.Len()), zap.Int("columns", len(tbl.Columns())))

		rep, err := report.Inspect(tbl, reg, req)
		if err != nil {
			return err
		}
		runErr := rep.Execute(ctx)

		if err := writeReport(cmd, in.name, format, rep, ropt); err != nil {
			return err
		}
		if n := len(rep.Failures()); n > 0 && !insQuiet {
			fmt.Fprintf(stderr, "⚠ %d check(s) failed on %s\n", n, in.name)
		}
		if runErr != nil {
			failed = fmt.Errorf("inspect %s: %w", in.name, runErr)
			if ctx.Err() != nil {
				return failed
			}
		}
	}
	return failed
}

// loaderOptions maps loading flags and config onto dataset options.
func loaderOptions(maxRowsChanged bool) (dataset.Options, error) {
	st := settings()
	opt := dataset.Options{
		MaxRows:     st.MaxRows,
		IndexColumn: insIndexCol,
		SheetName:   insSheetName,
		SheetIndex:  insSheetIndex,
		Lenient:     insLenient,
	}
	if maxRowsChanged {
		opt.MaxRows = insMaxRows
	}
	if insDelimiter != "" {
		switch insDelimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		case "|", "pipe":
			opt.Delimiter = '|'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", insDelimiter)
		}
	}
	decimal, thousands := st.Decimal, st.Thousands
	if insDecimal != "" {
		decimal = insDecimal
	}
	if insThousands != "" {
		thousands = insThousands
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}

// collectInputs expands globs, de-duplicates paths and adds stdin ("-")
// or the PostgreSQL query when requested.
func collectInputs(cmd *cobra.Command, args []string, opt dataset.Options) ([]input, error) {
	var inputs []input
	if insPgURL != "" || insQuery != "" {
		if insPgURL == "" || insQuery == "" {
			return nil, fmt.Errorf("--pg-url and --query must be used together")
		}
		url, query := insPgURL, insQuery
		inputs = append(inputs, input{name: "query", load: func(ctx context.Context) (*frame.Table, error) {
			return dataset.LoadPostgres(ctx, url, query, opt)
		}})
	}
	var files []string
	seen := map[string]struct{}{}
	stdin := false
	for _, arg := range args {
		if arg == "-" {
			stdin = true
			continue
		}
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path; LoadFile reports a missing file
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	if stdin {
		r := cmd.InOrStdin()
		inputs = append(inputs, input{name: "stdin", load: func(ctx context.Context) (*frame.Table, error) {
			return dataset.ReadCSV(ctx, r, "stdin", opt)
		}})
	}
	for _, p := range files {
		path := p
		inputs = append(inputs, input{name: path, load: func(ctx context.Context) (*frame.Table, error) {
			return dataset.LoadFile(ctx, path, opt)
		}})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input: pass files, '-' for stdin, or --pg-url with --query")
	}
	return inputs, nil
}

// mergeParams resolves config params and --param values ("Check:name=value")
// to registered check names. --param wins over config.
func mergeParams(reg *check.Registry, fromConfig map[string]map[string]float64, flags []string) (map[string]check.Params, error) {
	out := map[string]check.Params{}
	set := func(name, key string, v float64) error {
		c, err := findCheck(reg, name)
		if err != nil {
			return err
		}
		if out[c.Name] == nil {
			out[c.Name] = check.Params{}
		}
		out[c.Name][key] = v
		return nil
	}
	names := make([]string, 0, len(fromConfig))
	for name := range fromConfig {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for key, v := range fromConfig[name] {
			if err := set(name, key, v); err != nil {
				return nil, fmt.Errorf("config params: %w", err)
			}
		}
	}
	for _, raw := range flags {
		name, key, v, err := parseParam(raw)
		if err != nil {
			return nil, err
		}
		if err := set(name, key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseParam(raw string) (name, key string, v float64, err error) {
	eq := strings.LastIndex(raw, "=")
	if eq < 0 {
		return "", "", 0, fmt.Errorf("invalid --param %q (want 'Check name:param=value')", raw)
	}
	colon := strings.LastIndex(raw[:eq], ":")
	if colon <= 0 || colon == eq-1 {
		return "", "", 0, fmt.Errorf("invalid --param %q (want 'Check name:param=value')", raw)
	}
	v, err = strconv.ParseFloat(strings.TrimSpace(raw[eq+1:]), 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid value in --param %q: %w", raw, err)
	}
	return strings.TrimSpace(raw[:colon]), strings.TrimSpace(raw[colon+1 : eq]), v, nil
}

func findCheck(reg *check.Registry, name string) (*check.Check, error) {
	if c, ok := reg.Lookup(name); ok {
		return c, nil
	}
	for _, c := range reg.All() {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown check %q (see 'tabproof checks')", name)
}

var formatExt = map[string]string{
	"markdown": ".md",
	"md":       ".md",
	"html":     ".html",
	"terminal": ".txt",
	"text":     ".txt",
	"json":     ".json",
	"msgpack":  ".msgpack",
}

// writeReport sends the rendered report to --output, a file under
// --output-dir, or stdout.
func writeReport(cmd *cobra.Command, name, format string, rep *report.Report, opt render.Options) error {
	var target string
	switch {
	case insOutput != "":
		target = insOutput
	case insOutputDir != "":
		target = outputPath(insOutputDir, name, format)
	}
	if target == "" {
		return render.Write(cmd.OutOrStdout(), format, rep, opt)
	}
	fh, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := render.Write(fh, format, rep, opt); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !insQuiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote report to %s\n", target)
	}
	return nil
}

// outputPath names a report after its input, adding __2, __3, ... instead
// of overwriting an existing file.
func outputPath(dir, name, format string) string {
	ext, ok := formatExt[strings.ToLower(format)]
	if !ok {
		ext = ".out"
	}
	base := filepath.Base(name)
	safe := strings.TrimSuffix(base, filepath.Ext(base))
	out := filepath.Join(dir, safe+".report"+ext)
	if _, statErr := os.Stat(out); statErr == nil {
		idx := 2
		for {
			cand := filepath.Join(dir, fmt.Sprintf("%s__%d.report%s", safe, idx, ext))
			if _, err := os.Stat(cand); os.IsNotExist(err) {
				return cand
			}
			idx++
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	f := inspectCmd.Flags()
	f.StringSliceVar(&insInclude, "include", nil, "only run checks with these tags (comma-separated, repeatable)")
	f.StringSliceVar(&insExclude, "exclude", nil, "skip checks with these tags (comma-separated, repeatable)")
	f.BoolVar(&insParallel, "parallel", false, "run checks on a worker pool")
	f.IntVar(&insWorkers, "workers", 0, "worker pool size (0 = number of CPUs)")
	f.BoolVarP(&insVerbose, "verbose", "v", false, "show every message instead of the first few")
	f.StringVarP(&insFormat, "format", "f", "terminal", "output format: "+strings.Join(render.Formats(), "|"))
	f.StringVarP(&insOutput, "output", "o", "", "write the report to this file (single input)")
	f.StringVar(&insOutputDir, "output-dir", "", "write one report per input into this directory")
	f.StringVar(&insPolicy, "policy", "partial", "parallel failure policy: partial|abort")
	f.StringVar(&insDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	f.StringVar(&insIndexCol, "index-col", "", "column whose values become row keys")
	f.StringVar(&insSheetName, "sheet-name", "", "XLSX: sheet name to inspect")
	f.IntVar(&insSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.IntVar(&insMaxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	f.IntVar(&insMaxItems, "max-items", 5, "messages shown per cell when not verbose")
	f.StringVar(&insDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (strict parsing if omitted)")
	f.StringVar(&insThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	f.BoolVar(&insLenient, "lenient", false, "auto-detect locale number formats like '1.234,5' and '12 %'")
	f.BoolVar(&insRows, "rows", false, "list referenced row keys in text formats")
	f.StringArrayVar(&insParams, "param", nil, "override a check parameter: 'Check name:param=value' (repeatable)")
	f.StringVar(&insPgURL, "pg-url", "", "PostgreSQL connection URL to inspect a query result")
	f.StringVar(&insQuery, "query", "", "SQL query to run with --pg-url")
	f.BoolVar(&insQuiet, "quiet", false, "suppress progress and non-essential output")
}
