package formatter

import (
	"encoding/json"
	"io"

	"github.com/artpar/autoadmin/core/resource"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

func (f *JSONFormatter) FormatResources(w io.Writer, resources []resource.Resource) error {
	return f.encode(w, map[string]any{"resources": summarize(resources)}, false)
}

func (f *JSONFormatter) FormatList(w io.Writer, res resource.Resource, records []*resource.Record, opts FormatOptions) error {
	doc, err := listDocument(res, records, opts)
	if err != nil {
		return err
	}
	return f.encode(w, doc, opts.Compact)
}

func (f *JSONFormatter) FormatRecord(w io.Writer, res resource.Resource, record *resource.Record, opts FormatOptions) error {
	doc, err := recordDocument(res, record, opts)
	if err != nil {
		return err
	}
	return f.encode(w, doc, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}
