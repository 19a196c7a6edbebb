package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emberbi/ember/internal/transformers"
)

// tabwriter layout for console tables.
const (
	tableMinWidth = 2
	tableTabWidth = 4
	tablePadding  = 2
)

// renderConsoleTable prints a rendered table to the command's stdout.
func renderConsoleTable(cmd *cobra.Command, data *transformers.TableData) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), tableMinWidth, tableTabWidth, tablePadding, ' ', 0)
	fmt.Fprintln(w, strings.Join(data.Headers, "\t"))

	separators := make([]string, len(data.Headers))
	for i, h := range data.Headers {
		separators[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(separators, "\t"))

	for _, row := range data.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}
