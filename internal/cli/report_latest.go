package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/emberbi/ember/internal/config"
	"github.com/emberbi/ember/internal/executor"
	"github.com/emberbi/ember/internal/schema"
)

// newReportLatestCmd creates "report latest": fetch the most recent
// value of each requested dimension, without running a full report.
func newReportLatestCmd(getConfig func() *config.Config) *cobra.Command {
	var (
		schemaPath string
		dimensions []string
		driver     string
		dsn        string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the most recent value of each dimension",
		Long: "Print the most recent value of each requested dimension. " +
			"When --dimensions is omitted, the schema's datetime dimensions are used.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()
			slicer, err := schema.Load(schemaPath)
			if err != nil {
				return err
			}
			if len(dimensions) == 0 {
				for _, d := range slicer.Dimensions {
					if d.Kind == schema.KindDatetime {
						dimensions = append(dimensions, d.Key)
					}
				}
			}

			if driver == "" {
				driver = cfg.Database.Driver
			}
			if dsn == "" {
				dsn = cfg.Database.DSN
			}
			db, err := sqlx.Open(driver, dsn)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			latest, err := executor.New(db, slicer).Latest(cmd.Context(), dimensions...)
			if err != nil {
				return err
			}

			if output == "json" {
				rendered := make(map[string]string, len(latest))
				for dk, k := range latest {
					rendered[dk] = k.String()
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rendered)
			}

			keys := make([]string, 0, len(latest))
			for dk := range latest {
				keys = append(keys, dk)
			}
			sort.Strings(keys)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), tableMinWidth, tableTabWidth, tablePadding, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{"Dimension", "Latest"}, "\t"))
			for _, dk := range keys {
				fmt.Fprintf(w, "%s\t%s\n", dk, latest[dk].String())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Path to the slicer schema file (required)")
	cmd.Flags().StringSliceVar(&dimensions, "dimensions", nil,
		"Dimension keys to fetch (default: all datetime dimensions)")
	cmd.Flags().StringVar(&driver, "driver", "", "Database driver name")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database connection string")
	cmd.Flags().StringVar(&output, "output", "", "Output format: table or json")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
