package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tabproof/internal/config"
	"github.com/KaramelBytes/tabproof/internal/render"
	"github.com/KaramelBytes/tabproof/internal/report"
	"github.com/KaramelBytes/tabproof/internal/rules"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tabproof configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "parallel: %t\n", cfg.Parallel)
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "verbose: %t\n", cfg.Verbose)
		fmt.Fprintf(out, "max_items: %d\n", cfg.MaxItems)
		fmt.Fprintf(out, "failure_policy: %s\n", cfg.FailurePolicy)
		if len(cfg.Include) > 0 {
			fmt.Fprintf(out, "include: %s\n", strings.Join(cfg.Include, ","))
		}
		if len(cfg.Exclude) > 0 {
			fmt.Fprintf(out, "exclude: %s\n", strings.Join(cfg.Exclude, ","))
		}
		fmt.Fprintf(out, "format: %s\n", cfg.Format)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		if cfg.MaxRows > 0 {
			fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		}
		if cfg.Decimal != "" {
			fmt.Fprintf(out, "decimal: %s\n", cfg.Decimal)
		}
		if cfg.Thousands != "" {
			fmt.Fprintf(out, "thousands: %s\n", cfg.Thousands)
		}
		names := make([]string, 0, len(cfg.Params))
		for n := range cfg.Params {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(out, "params.%s:%s\n", n, formatDefaults(cfg.Params[n]))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. Check parameters use the key
"params.<check name>.<param>", e.g. "params.Nelson Rule 1.std_mult".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applySetting(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "parallel", "verbose":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "parallel" {
			c.Parallel = b
		} else {
			c.Verbose = b
		}
	case "workers", "max_items", "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "workers":
			c.Workers = i
		case "max_items":
			c.MaxItems = i
		default:
			c.MaxRows = i
		}
	case "failure_policy":
		p, err := report.ParsePolicy(val)
		if err != nil {
			return err
		}
		c.FailurePolicy = p.String()
	case "include":
		c.Include = splitList(val)
	case "exclude":
		c.Exclude = splitList(val)
	case "format":
		if _, ok := formatExt[strings.ToLower(val)]; !ok {
			return fmt.Errorf("invalid format: %s (use %s)", val, strings.Join(render.Formats(), ", "))
		}
		c.Format = strings.ToLower(val)
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	case "decimal":
		c.Decimal = val
	case "thousands":
		c.Thousands = val
	default:
		if strings.HasPrefix(key, "params.") {
			return setParam(c, strings.TrimPrefix(key, "params."), val)
		}
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setParam(c *cfgpkg.Global, rest, val string) error {
	dot := strings.LastIndex(rest, ".")
	if dot <= 0 || dot == len(rest)-1 {
		return fmt.Errorf("invalid params key: params.%s (want params.<check>.<param>)", rest)
	}
	chk, err := findCheck(rules.Default(), rest[:dot])
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid float for params.%s: %w", rest, err)
	}
	if c.Params == nil {
		c.Params = map[string]map[string]float64{}
	}
	name := strings.ToLower(chk.Name)
	if c.Params[name] == nil {
		c.Params[name] = map[string]float64{}
	}
	c.Params[name][rest[dot+1:]] = f
	return nil
}

func splitList(val string) []string {
	out := []string{}
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
