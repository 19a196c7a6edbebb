package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/emberbi/ember/internal/cli/pagination"
	"github.com/emberbi/ember/internal/config"
	"github.com/emberbi/ember/internal/executor"
	"github.com/emberbi/ember/internal/logging"
	"github.com/emberbi/ember/internal/querybuilder"
	"github.com/emberbi/ember/internal/report"
	"github.com/emberbi/ember/internal/result"
	"github.com/emberbi/ember/internal/schema"
	"github.com/emberbi/ember/internal/transformers"
)

// reportParams holds the flags shared by report run and report view.
type reportParams struct {
	schemaPath string
	reportKey  string
	metrics    []string
	dimensions []string
	references []string
	widgets    []string
	filters    []string
	from       string
	to         string
	driver     string
	dsn        string
	output     string
	paging     pagination.Params
}

// newReportCmd groups the report subcommands.
func newReportCmd(getConfig func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Execute slicer reports",
	}
	cmd.AddCommand(newReportRunCmd(getConfig), newReportViewCmd(getConfig), newReportLatestCmd(getConfig))
	return cmd
}

// addReportFlags registers the shared report flags on a command.
func addReportFlags(cmd *cobra.Command, params *reportParams) {
	cmd.Flags().StringVar(&params.schemaPath, "schema", "", "Path to the slicer schema file (required)")
	cmd.Flags().StringVar(&params.reportKey, "report", "", "Named report from the schema to run")
	cmd.Flags().StringSliceVar(&params.metrics, "metrics", nil, "Metric keys for an ad-hoc query")
	cmd.Flags().StringSliceVar(&params.dimensions, "dimensions", nil, "Dimension keys for an ad-hoc query")
	cmd.Flags().StringSliceVar(&params.references, "references", nil,
		"Reference comparisons (wow, mom, qoq, yoy, optionally _d or _p)")
	cmd.Flags().StringSliceVar(&params.widgets, "widgets", nil,
		"Consuming widget types for an ad-hoc query (default row_index_table)")
	cmd.Flags().StringArrayVar(&params.filters, "filter", nil,
		"Dimension or metric filter expressions (e.g. 'political_party=d')")
	cmd.Flags().StringVar(&params.from, "from", "", "Lower bound (RFC3339) on the first datetime dimension")
	cmd.Flags().StringVar(&params.to, "to", "", "Upper bound (RFC3339) on the first datetime dimension")
	cmd.Flags().StringVar(&params.driver, "driver", "", "Database driver name")
	cmd.Flags().StringVar(&params.dsn, "dsn", "", "Database connection string")
	cmd.Flags().IntVar(&params.paging.Limit, "limit", pagination.DefaultLimit,
		"Maximum rows per page (per group for group-paginated widgets)")
	cmd.Flags().IntVar(&params.paging.Offset, "offset", pagination.DefaultOffset, "Rows to skip")
	cmd.Flags().IntVar(&params.paging.Page, "page", 0, "1-based page number (alternative to --offset)")
	cmd.Flags().IntVar(&params.paging.PageSize, "page-size", 0, "Rows per page for --page")
	cmd.Flags().StringSliceVar(&params.paging.Sorts, "sort", nil,
		"Sort keys, e.g. 'votes:desc' or 'wow.votes' (repeatable)")
	_ = cmd.MarkFlagRequired("schema")
}

// newReportRunCmd creates "report run": build, execute, paginate and
// render one report.
func newReportRunCmd(getConfig func() *config.Config) *cobra.Command {
	var params reportParams

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a report and print its widget payloads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if params.output == "" {
				params.output = getConfig().Output
			}
			return executeReportRun(cmd, getConfig(), params)
		},
	}
	addReportFlags(cmd, &params)
	cmd.Flags().StringVar(&params.output, "output", "", "Output format: table, json, or csv")
	return cmd
}

// runReport performs the shared pipeline of report run and report view:
// load schema, resolve the query spec and widgets, execute, paginate.
func runReport(
	cmd *cobra.Command,
	cfg *config.Config,
	params reportParams,
) (*result.Table, transformers.Display, []schema.Widget, error) {
	log := logging.FromContext(cmd.Context())
	var none transformers.Display

	slicer, err := schema.Load(params.schemaPath)
	if err != nil {
		return nil, none, nil, err
	}

	metrics, dimensions, references, widgets, err := resolveSelection(slicer, params)
	if err != nil {
		return nil, none, nil, err
	}
	display, err := transformers.NewDisplay(slicer, metrics, dimensions, references)
	if err != nil {
		return nil, none, nil, err
	}

	spec := querybuilder.Spec{
		Metrics:    metrics,
		Dimensions: dimensions,
		References: display.References,
	}
	if spec.Filters, err = parseFilters(slicer, params, dimensions); err != nil {
		return nil, none, nil, err
	}

	req, err := params.paging.ToRequest()
	if err != nil {
		return nil, none, nil, err
	}

	driver, dsn := params.driver, params.dsn
	if driver == "" {
		driver = cfg.Database.Driver
	}
	if dsn == "" {
		dsn = cfg.Database.DSN
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, none, nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	table, err := executor.New(db, slicer).Execute(cmd.Context(), spec)
	if err != nil {
		return nil, none, nil, err
	}

	paged, err := report.Paginate(table, reportWidgets(widgets), req)
	if err != nil {
		return nil, none, nil, err
	}
	log.Debug().
		Str("component", "cli").
		Int("rows_in", table.Len()).
		Int("rows_out", paged.Len()).
		Msg("report paginated")
	return paged, display, widgets, nil
}

func executeReportRun(cmd *cobra.Command, cfg *config.Config, params reportParams) error {
	paged, display, widgets, err := runReport(cmd, cfg, params)
	if err != nil {
		return err
	}

	switch params.output {
	case "csv":
		return transformers.WriteCSV(cmd.OutOrStdout(), paged, display)
	case "json":
		payloads, err := widgetPayloads(paged, display, widgets)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payloads)
	case "table", "":
		data, err := transformers.RowIndexTransformer{}.Transform(paged, display)
		if err != nil {
			return err
		}
		renderConsoleTable(cmd, data)
		return nil
	default:
		return fmt.Errorf("unknown output format: %q", params.output)
	}
}

// widgetPayloads renders one payload per widget, keyed by widget type.
func widgetPayloads(
	t *result.Table,
	display transformers.Display,
	widgets []schema.Widget,
) (map[string]any, error) {
	payloads := make(map[string]any, len(widgets))
	for _, w := range widgets {
		switch w.Type {
		case schema.WidgetPieChart:
			p, err := transformers.PieTransformer{}.Transform(t, display)
			if err != nil {
				return nil, err
			}
			payloads[string(w.Type)] = p
		case schema.WidgetLineChart, schema.WidgetAreaChart, schema.WidgetColumnChart, schema.WidgetBarChart:
			p, err := transformers.ChartTransformer{Widget: w.Type}.Transform(t, display)
			if err != nil {
				return nil, err
			}
			payloads[string(w.Type)] = p
		default:
			p, err := transformers.RowIndexTransformer{}.Transform(t, display)
			if err != nil {
				return nil, err
			}
			payloads[string(w.Type)] = p
		}
	}
	return payloads, nil
}

// resolveSelection merges the --report preset with ad-hoc flags; the
// flags win field by field.
func resolveSelection(
	slicer *schema.Slicer,
	params reportParams,
) (metrics, dimensions, references []string, widgets []schema.Widget, err error) {
	if params.reportKey != "" {
		preset, ok := slicer.Report(params.reportKey)
		if !ok {
			return nil, nil, nil, nil, fmt.Errorf("%w: report %q", schema.ErrUnknownField, params.reportKey)
		}
		metrics, dimensions, references, widgets = preset.Metrics, preset.Dimensions, preset.References, preset.Widgets
	}
	if len(params.metrics) > 0 {
		metrics = params.metrics
	}
	if len(params.dimensions) > 0 {
		dimensions = params.dimensions
	}
	if len(params.references) > 0 {
		references = params.references
	}
	if len(params.widgets) > 0 {
		widgets = widgets[:0]
		for _, w := range params.widgets {
			widgets = append(widgets, schema.Widget{Type: schema.WidgetType(w)})
		}
	}
	if len(metrics) == 0 {
		return nil, nil, nil, nil, errors.New("no metrics selected: use --report or --metrics")
	}
	if len(widgets) == 0 {
		widgets = []schema.Widget{{Type: schema.WidgetRowIndexTable}}
	}
	return metrics, dimensions, references, widgets, nil
}

// parseFilters turns --filter, --from and --to into query filters. The
// time bounds attach to the first datetime dimension in the resolved
// selection.
func parseFilters(slicer *schema.Slicer, params reportParams, dimensions []string) ([]querybuilder.Filter, error) {
	var filters []querybuilder.Filter
	for _, f := range params.filters {
		field, value, found := strings.Cut(f, "=")
		if !found {
			return nil, fmt.Errorf("invalid filter %q: want 'field=value'", f)
		}
		filters = append(filters, querybuilder.Filter{
			Field:  strings.TrimSpace(field),
			Op:     querybuilder.OpEq,
			Values: []any{strings.TrimSpace(value)},
		})
	}

	if params.from == "" && params.to == "" {
		return filters, nil
	}
	var timeDim string
	for _, dk := range dimensions {
		if d, ok := slicer.Dimension(dk); ok && d.Kind == schema.KindDatetime {
			timeDim = d.Key
			break
		}
	}
	if timeDim == "" {
		return nil, errors.New("--from/--to require a datetime dimension in the selection")
	}
	parse := func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
		}
		return t, nil
	}
	switch {
	case params.from != "" && params.to != "":
		from, err := parse(params.from)
		if err != nil {
			return nil, err
		}
		to, err := parse(params.to)
		if err != nil {
			return nil, err
		}
		filters = append(filters, querybuilder.Filter{
			Field: timeDim, Op: querybuilder.OpBetween, Values: []any{from, to},
		})
	case params.from != "":
		from, err := parse(params.from)
		if err != nil {
			return nil, err
		}
		filters = append(filters, querybuilder.Filter{
			Field: timeDim, Op: querybuilder.OpGte, Values: []any{from},
		})
	default:
		to, err := parse(params.to)
		if err != nil {
			return nil, err
		}
		filters = append(filters, querybuilder.Filter{
			Field: timeDim, Op: querybuilder.OpLte, Values: []any{to},
		})
	}
	return filters, nil
}

// reportWidgets adapts schema widgets to the paginator's interface.
func reportWidgets(widgets []schema.Widget) []report.Widget {
	out := make([]report.Widget, len(widgets))
	for i, w := range widgets {
		out[i] = w
	}
	return out
}
