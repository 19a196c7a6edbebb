package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/emberbi/ember/internal/config"
	"github.com/emberbi/ember/internal/transformers"
	"github.com/emberbi/ember/internal/tui"
)

// newReportViewCmd creates "report view": run a report and browse the
// paginated rows in an interactive table.
func newReportViewCmd(getConfig func() *config.Config) *cobra.Command {
	var params reportParams

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Run a report and browse the result interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return errors.New("report view requires a terminal; use 'report run' for scripted output")
			}
			paged, display, _, err := runReport(cmd, getConfig(), params)
			if err != nil {
				return err
			}
			data, err := transformers.RowIndexTransformer{}.Transform(paged, display)
			if err != nil {
				return err
			}
			return tui.Run(data)
		},
	}
	addReportFlags(cmd, &params)
	return cmd
}
