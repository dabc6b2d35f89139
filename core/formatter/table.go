package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/artpar/autoadmin/core/resource"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatResources prints one row per resource.
func (f *TableFormatter) FormatResources(w io.Writer, resources []resource.Resource) error {
	if len(resources) == 0 {
		fmt.Fprintln(w, "No resources found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDATABASE\tTYPE\tPROPERTIES")
	for _, s := range summarize(resources) {
		paths := make([]string, len(s.Properties))
		for i, p := range s.Properties {
			paths[i] = p.Path
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Database, s.Type, strings.Join(paths, ", "))
	}
	return tw.Flush()
}

// FormatList formats a list of records as a table.
func (f *TableFormatter) FormatList(w io.Writer, res resource.Resource, records []*resource.Record, opts FormatOptions) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	props, err := columns(res, opts.Columns, true)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		headers := make([]string, len(props))
		for i, p := range props {
			headers[i] = strings.ToUpper(p.Path())
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, rec := range records {
		values := make([]string, len(props))
		for i, p := range props {
			values[i] = f.formatValue(p, rec.Param(p.Path()), opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	if opts.Total > len(records) {
		fmt.Fprintf(w, "\n%d of %d records\n", len(records), opts.Total)
	}
	return nil
}

// FormatRecord formats a single record as label/value pairs.
func (f *TableFormatter) FormatRecord(w io.Writer, res resource.Resource, record *resource.Record, opts FormatOptions) error {
	if record == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}

	props, err := columns(res, opts.Columns, false)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range props {
		fmt.Fprintf(tw, "%s:\t%s\n", p.Label(), f.formatValue(p, record.Param(p.Path()), 0))
	}
	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Error: %s\n", err.Error())
	return werr
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(p resource.Property, val any, maxWidth int) string {
	if val == nil {
		return "-"
	}
	if p.Type() == resource.PropertyPassword {
		return "********"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case []byte:
		str = "[binary]"
	case int64:
		str = strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			str = strconv.FormatInt(int64(v), 10)
		} else {
			str = strconv.FormatFloat(v, 'f', -1, 64)
		}
	case time.Time:
		if p.Type() == resource.PropertyDate {
			str = v.Format("2006-01-02")
		} else {
			str = v.Format(time.RFC3339)
		}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			str = fmt.Sprint(v)
		} else {
			str = string(b)
		}
	}

	// Keep tabular output on one line.
	str = strings.ReplaceAll(str, "\n", " ")

	if maxWidth > 3 {
		if r := []rune(str); len(r) > maxWidth {
			str = string(r[:maxWidth-3]) + "..."
		}
	}
	return str
}
