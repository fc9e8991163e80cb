package table

import (
	"fmt"
	"io"
	"strconv"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
)

// Format is an output rendering format.
type Format string

const (
	// FormatTable renders a boxed console table.
	FormatTable Format = "table"
	// FormatCSV renders comma separated values with a header row.
	FormatCSV Format = "csv"
	// FormatMarkdown renders a GitHub flavoured markdown table.
	FormatMarkdown Format = "markdown"
)

// TimeLayout is the layout timestamps are rendered with.
const TimeLayout = "2006-01-02 15:04:05"

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatCSV, FormatMarkdown}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.Errorf("unsupported output format %q (want one of %v)", s, Formats)
}

// Render writes the table to w in the given format.
//
// Arguments:
//   - w: The destination writer.
//   - t: The table to render.
//   - format: The output format.
//
// Returns:
//   - error: An error if the format is unknown or writing fails.
func Render(w io.Writer, t *Table, format Format) error {
	tw := prettytable.NewWriter()

	header := make(prettytable.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)

	for _, r := range t.Rows {
		row := make(prettytable.Row, len(r))
		for i, cell := range r {
			row[i] = FormatCell(cell)
		}
		tw.AppendRow(row)
	}

	var out string
	switch format {
	case FormatTable:
		tw.SetStyle(prettytable.StyleLight)
		out = tw.Render()
	case FormatCSV:
		out = tw.RenderCSV()
	case FormatMarkdown:
		out = tw.RenderMarkdown()
	default:
		return errors.Errorf("unsupported output format %q", format)
	}

	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return errors.Wrap(err, "failed to write table")
	}
	return nil
}

// FormatCell renders a single cell as text. Missing values render empty.
func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case int:
		return strconv.Itoa(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case time.Time:
		return c.Format(TimeLayout)
	case *time.Time:
		if c == nil {
			return ""
		}
		return c.Format(TimeLayout)
	case *float64:
		if c == nil {
			return ""
		}
		return strconv.FormatFloat(*c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}
