package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown output format %q (want text, json or csv)", s))
	}
}

// Tabular is data that renders as rows under a header.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Table is a ready-made Tabular. Data is what the JSON formatter encodes;
// when nil, the rows are encoded as objects keyed by header.
type Table struct {
	Columns []string
	Values  [][]string
	Data    any
}

// Header implements Tabular.
func (t *Table) Header() []string { return t.Columns }

// Rows implements Tabular.
func (t *Table) Rows() [][]string { return t.Values }

// MarshalJSON encodes Data, or the rows as objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	if t.Data != nil {
		return json.Marshal(t.Data)
	}
	out := make([]map[string]string, 0, len(t.Values))
	for _, row := range t.Values {
		obj := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		out = append(out, obj)
	}
	return json.Marshal(out)
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter writes Tabular data as aligned columns and anything else
// with %v.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(Tabular)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if h := t.Header(); len(h) > 0 {
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(h, "\t")))
	}
	for _, row := range t.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats Tabular data as CSV.
type CSVFormatter struct{}

// FormatTo writes data to w in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("CSV output is not supported for %T", data)
	}

	cw := csv.NewWriter(w)
	if h := t.Header(); len(h) > 0 {
		if err := cw.Write(h); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(t.Rows()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
