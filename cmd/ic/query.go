package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/issuecraft/issuecraft/internal/engine"
)

var queryCmd = &cobra.Command{
	Use:     "query <statement>",
	Aliases: []string{"q"},
	Short:   "Execute one IQL statement",
	Long: `Execute one IQL statement against the workspace database.

Examples:
  ic query "CREATE PROJECT webapp WITH NAME 'Web App'"
  ic query "CREATE ISSUE OF KIND bug IN webapp WITH TITLE 'Login fails' PRIORITY high"
  ic query "SELECT issue_id, title FROM issues WHERE status = 'open' ORDER BY priority DESC"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, store, err := openEngine()
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := eng.Execute(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func printResult(res *engine.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Columns != nil {
		printTable(res)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	if res.Key != "" {
		fmt.Printf("%s %s\n", green("OK"), res.Key)
	} else {
		fmt.Printf("%s (%d affected)\n", green("OK"), res.Affected)
	}
	return nil
}

func printTable(res *engine.Result) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	header := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = color.New(color.Bold).Sprint(strings.ToUpper(col))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range res.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d rows)\n", len(res.Rows))
}
