package formatter

import (
	"io"

	"github.com/artpar/autoadmin/core/resource"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Name() string        { return "yaml" }
func (f *YAMLFormatter) Description() string { return "YAML output format" }

func (f *YAMLFormatter) FormatResources(w io.Writer, resources []resource.Resource) error {
	return f.encode(w, map[string]any{"resources": summarize(resources)})
}

func (f *YAMLFormatter) FormatList(w io.Writer, res resource.Resource, records []*resource.Record, opts FormatOptions) error {
	doc, err := listDocument(res, records, opts)
	if err != nil {
		return err
	}
	return f.encode(w, doc)
}

func (f *YAMLFormatter) FormatRecord(w io.Writer, res resource.Resource, record *resource.Record, opts FormatOptions) error {
	doc, err := recordDocument(res, record, opts)
	if err != nil {
		return err
	}
	return f.encode(w, doc)
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()})
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}
