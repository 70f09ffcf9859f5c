package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/rules"
)

var (
	chkInclude []string
	chkExclude []string
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List registered checks with their tags and default parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		list := rules.Default().Select(check.ParseTags(chkInclude...), check.ParseTags(chkExclude...))
		if len(list) == 0 {
			fmt.Fprintln(out, "(no checks)")
			return nil
		}
		for _, c := range list {
			scope := "column"
			if c.OnTable {
				scope = "table"
			}
			fmt.Fprintf(out, "- %s [%s] (%s)%s\n", c.Name, strings.Join(c.Tags, ", "), scope, formatDefaults(c.Defaults))
		}
		return nil
	},
}

func formatDefaults(p check.Params) string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(p[k], 'f', -1, 64)
	}
	return " " + strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(checksCmd)
	checksCmd.Flags().StringSliceVar(&chkInclude, "include", nil, "only list checks with these tags")
	checksCmd.Flags().StringSliceVar(&chkExclude, "exclude", nil, "hide checks with these tags")
}
