// Package formatter renders resources and records for the command line.
// Formatters convert records to an output format (table, json, yaml).
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/autoadmin/core/resource"
)

// Formatter converts records to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatResources lists resources with their database and properties.
	FormatResources(w io.Writer, resources []resource.Resource) error

	// FormatList formats a page of records of one resource.
	FormatList(w io.Writer, res resource.Resource, records []*resource.Record, opts FormatOptions) error

	// FormatRecord formats a single record.
	FormatRecord(w io.Writer, res resource.Resource, record *resource.Record, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which property paths to include (nil = the
	// decorator's list or show properties).
	Columns []string

	// Total is the number of matching records when a list is one page.
	Total int

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json).
	Compact bool

	// MaxWidth truncates long values in tables (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name. An empty name selects the default.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultFmt
	}
	f, ok := r.formatters[name]
	return f, ok
}

// List returns the registered formatter names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the table, json and yaml formatters.
var DefaultRegistry = NewRegistry()

func init() {
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		if err := DefaultRegistry.Register(f); err != nil {
			panic(err)
		}
	}
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// columns resolves the properties to print. Requested paths must exist;
// otherwise the decorator's selection is used, falling back to every
// visible property.
func columns(res resource.Resource, requested []string, list bool) ([]resource.Property, error) {
	if len(requested) > 0 {
		props := make([]resource.Property, 0, len(requested))
		for _, path := range requested {
			var p resource.Property
			if d := res.Decorator(); d != nil {
				p = d.Property(path)
			} else {
				p = res.Property(path)
			}
			if p == nil {
				return nil, fmt.Errorf("%s has no property %q", res.ID(), path)
			}
			props = append(props, p)
		}
		return props, nil
	}

	if d := res.Decorator(); d != nil {
		if list {
			return d.ListProperties(), nil
		}
		return d.ShowProperties(), nil
	}

	var props []resource.Property
	for _, p := range res.Properties() {
		if p.IsVisible() {
			props = append(props, p)
		}
	}
	return props, nil
}

// project keeps the given properties of a record. Passwords never leave.
func project(rec *resource.Record, props []resource.Property) map[string]any {
	out := make(map[string]any, len(props))
	for _, p := range props {
		if p.Type() == resource.PropertyPassword {
			continue
		}
		out[p.Path()] = rec.Param(p.Path())
	}
	return out
}

// resourceSummary is the structured form of one resource listing.
type resourceSummary struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Database   string            `json:"database" yaml:"database"`
	Type       string            `json:"type" yaml:"type"`
	Properties []propertySummary `json:"properties" yaml:"properties"`
}

type propertySummary struct {
	Path      string `json:"path" yaml:"path"`
	Type      string `json:"type" yaml:"type"`
	ID        bool   `json:"id,omitempty" yaml:"id,omitempty"`
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

func summarize(resources []resource.Resource) []resourceSummary {
	out := make([]resourceSummary, 0, len(resources))
	for _, r := range resources {
		s := resourceSummary{
			ID:       r.ID(),
			Name:     r.Name(),
			Database: r.DatabaseName(),
			Type:     r.DatabaseType(),
		}
		if d := r.Decorator(); d != nil {
			s.Name = d.ResourceName()
		}
		for _, p := range r.Properties() {
			s.Properties = append(s.Properties, propertySummary{
				Path:      p.Path(),
				Type:      string(p.Type()),
				ID:        p.IsID(),
				Required:  p.IsRequired(),
				Reference: p.Reference(),
			})
		}
		out = append(out, s)
	}
	return out
}

// listDocument is the structured form of a page of records.
func listDocument(res resource.Resource, records []*resource.Record, opts FormatOptions) (map[string]any, error) {
	props, err := columns(res, opts.Columns, true)
	if err != nil {
		return nil, err
	}
	data := make([]map[string]any, len(records))
	for i, rec := range records {
		data[i] = project(rec, props)
	}
	total := opts.Total
	if total < len(records) {
		total = len(records)
	}
	return map[string]any{
		"resource": res.ID(),
		"count":    len(records),
		"total":    total,
		"data":     data,
	}, nil
}

func recordDocument(res resource.Resource, rec *resource.Record, opts FormatOptions) (map[string]any, error) {
	doc := map[string]any{"resource": res.ID(), "data": nil}
	if rec == nil {
		return doc, nil
	}
	props, err := columns(res, opts.Columns, false)
	if err != nil {
		return nil, err
	}
	doc["id"] = rec.ID()
	doc["data"] = project(rec, props)
	return doc, nil
}
