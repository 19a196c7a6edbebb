package transformers

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/emberbi/ember/internal/result"
)

// TableData is a rendered row-index table: one header per row-index
// level followed by one per column, and the formatted body rows.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// RowIndexTransformer renders tables for paged tabular widgets. Metric
// cells are formatted with thousands separators; missing cells render
// empty.
type RowIndexTransformer struct{}

// Transform renders the table.
func (RowIndexTransformer) Transform(t *result.Table, display Display) (*TableData, error) {
	printer := message.NewPrinter(language.English)

	var headers []string
	for _, d := range display.Dimensions {
		headers = append(headers, d.Title())
	}
	for _, col := range t.Columns() {
		headers = append(headers, display.ColumnTitle(col.Metric, col.Reference))
	}

	rows := make([][]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		out := make([]string, 0, len(headers))
		for li, k := range row.Keys {
			if li < len(display.Dimensions) {
				out = append(out, dimensionLabel(display.Dimensions[li], k))
				continue
			}
			out = append(out, k.Display())
		}
		for _, cell := range row.Cells {
			if cell.IsNull() {
				out = append(out, "")
				continue
			}
			out = append(out, printer.Sprintf("%v", number(cell.Float)))
		}
		rows = append(rows, out)
	}
	return &TableData{Headers: headers, Rows: rows}, nil
}

// number narrows a float to an int for display when it is whole.
func number(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}

// WriteCSV renders the table as CSV.
func WriteCSV(w io.Writer, t *result.Table, display Display) error {
	data, err := RowIndexTransformer{}.Transform(t, display)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(data.Headers); err != nil {
		return err
	}
	for _, row := range data.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
