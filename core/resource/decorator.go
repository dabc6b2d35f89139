package resource

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/types"
	"github.com/expr-lang/expr/vm"
)

// MaxListProperties is how many properties the list view shows when the
// decorator does not name them.
const MaxListProperties = 6

// Decorator carries the presentation metadata of a resource.
type Decorator interface {
	// ResourceName is the display name used in titles and the menu.
	ResourceName() string

	// Parent is the menu group the resource is listed under.
	Parent() Parent

	ListProperties() []Property
	ShowProperties() []Property
	EditProperties() []Property
	FilterProperties() []Property

	// TitleProperty is the property whose value names a record, or nil.
	TitleProperty() Property

	// Property returns the decorated property at path, computed ones
	// included, or nil.
	Property(path string) Property

	// DefaultSort is applied when the list request gives no sort.
	DefaultSort() Sort

	PerPage() int

	// Populate fills computed values into a record before it is rendered.
	Populate(rec *Record) error
}

// DecoratorFactory builds the decorator for a resource during discovery.
type DecoratorFactory func(res Resource) (Decorator, error)

// DecoratorOptions configure a BaseDecorator. Every field is optional.
type DecoratorOptions struct {
	Name   string  `yaml:"name,omitempty"`
	Parent *Parent `yaml:"parent,omitempty"`

	ListProperties   []string `yaml:"list_properties,omitempty"`
	ShowProperties   []string `yaml:"show_properties,omitempty"`
	EditProperties   []string `yaml:"edit_properties,omitempty"`
	FilterProperties []string `yaml:"filter_properties,omitempty"`
	TitleProperty    string   `yaml:"title_property,omitempty"`

	// Labels overrides property labels by path.
	Labels map[string]string `yaml:"labels,omitempty"`

	// Computed declares read-only properties evaluated from record params
	// with expr-lang expressions, e.g. `first_name + " " + last_name`.
	// Column names take precedence over expr builtins of the same name.
	Computed map[string]string `yaml:"computed,omitempty"`

	SortBy        string `yaml:"sort_by,omitempty"`
	SortDirection string `yaml:"sort_direction,omitempty"`
	PerPage       int    `yaml:"per_page,omitempty"`
}

// Decorate returns a DecoratorFactory producing a BaseDecorator from opts.
func Decorate(opts DecoratorOptions) DecoratorFactory {
	return func(res Resource) (Decorator, error) {
		return NewDecorator(res, opts)
	}
}

// DefaultDecorator is the factory used when a resource is declared without one.
func DefaultDecorator(res Resource) (Decorator, error) {
	return NewDecorator(res, DecoratorOptions{})
}

// BaseDecorator is the default Decorator. It resolves property names from
// its options against the resource once, at construction.
type BaseDecorator struct {
	res      Resource
	opts     DecoratorOptions
	props    map[string]Property
	computed []computedProperty

	list, show, edit, filter []Property
	title                    Property
}

type computedProperty struct {
	prop    Property
	program *vm.Program
}

// labeledProperty overrides the label of an adapter property.
type labeledProperty struct {
	Property
	label string
}

func (p labeledProperty) Label() string { return p.label }

// NewDecorator builds a BaseDecorator. It fails when the options reference a
// property the resource does not have or a computed expression does not
// compile.
func NewDecorator(res Resource, opts DecoratorOptions) (*BaseDecorator, error) {
	d := &BaseDecorator{
		res:   res,
		opts:  opts,
		props: make(map[string]Property),
	}

	var all []Property
	for _, p := range res.Properties() {
		if label, ok := opts.Labels[p.Path()]; ok {
			p = labeledProperty{Property: p, label: label}
		}
		d.props[p.Path()] = p
		all = append(all, p)
	}

	names := make([]string, 0, len(opts.Computed))
	for name := range opts.Computed {
		names = append(names, name)
	}
	sort.Strings(names)
	// Property names go into the compile env so that a column named like an
	// expr builtin (first, len, now) reads the column.
	env := make(types.Map, len(all))
	for _, p := range all {
		env[p.Path()] = types.Any
	}
	editable := false
	sortable := false
	for i, name := range names {
		if _, exists := d.props[name]; exists {
			return nil, fmt.Errorf("resource %s: computed property %q shadows a real property", res.ID(), name)
		}
		program, err := expr.Compile(opts.Computed[name], expr.Env(env), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("resource %s: compile computed property %q: %w", res.ID(), name, err)
		}
		label := opts.Labels[name]
		p := NewProperty(PropertyOptions{
			Name:     name,
			Label:    label,
			Editable: &editable,
			Sortable: &sortable,
			Position: len(all) + i,
		})
		d.props[name] = p
		d.computed = append(d.computed, computedProperty{prop: p, program: program})
	}

	var err error
	if d.list, err = d.resolve(opts.ListProperties, d.defaultList(all)); err != nil {
		return nil, err
	}
	if d.show, err = d.resolve(opts.ShowProperties, d.defaultShow(all)); err != nil {
		return nil, err
	}
	if d.edit, err = d.resolve(opts.EditProperties, defaultEdit(all)); err != nil {
		return nil, err
	}
	if d.filter, err = d.resolve(opts.FilterProperties, defaultFilter(all)); err != nil {
		return nil, err
	}

	if opts.TitleProperty != "" {
		p, ok := d.props[opts.TitleProperty]
		if !ok {
			return nil, fmt.Errorf("resource %s: unknown title property %q", res.ID(), opts.TitleProperty)
		}
		d.title = p
	} else {
		for _, p := range all {
			if p.IsTitle() {
				d.title = p
				break
			}
		}
	}

	if opts.SortBy != "" {
		p := res.Property(opts.SortBy)
		if p == nil {
			return nil, fmt.Errorf("resource %s: unknown sort property %q", res.ID(), opts.SortBy)
		}
		if !p.IsSortable() {
			return nil, fmt.Errorf("resource %s: property %q is not sortable", res.ID(), opts.SortBy)
		}
	}

	return d, nil
}

func (d *BaseDecorator) resolve(names []string, fallback []Property) ([]Property, error) {
	if len(names) == 0 {
		return fallback, nil
	}
	out := make([]Property, 0, len(names))
	for _, name := range names {
		p, ok := d.props[name]
		if !ok {
			return nil, fmt.Errorf("resource %s: unknown property %q", d.res.ID(), name)
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *BaseDecorator) defaultList(all []Property) []Property {
	var out []Property
	for _, p := range all {
		if !p.IsVisible() {
			continue
		}
		out = append(out, p)
		if len(out) == MaxListProperties {
			return out
		}
	}
	for _, c := range d.computed {
		if len(out) == MaxListProperties {
			break
		}
		out = append(out, c.prop)
	}
	return out
}

func (d *BaseDecorator) defaultShow(all []Property) []Property {
	var out []Property
	for _, p := range all {
		if p.IsVisible() {
			out = append(out, p)
		}
	}
	for _, c := range d.computed {
		out = append(out, c.prop)
	}
	return out
}

func defaultEdit(all []Property) []Property {
	var out []Property
	for _, p := range all {
		if p.IsEditable() {
			out = append(out, p)
		}
	}
	return out
}

func defaultFilter(all []Property) []Property {
	var out []Property
	for _, p := range all {
		if !p.IsVisible() {
			continue
		}
		switch p.Type() {
		case PropertyMixed, PropertyRichText, PropertyPassword:
			continue
		}
		out = append(out, p)
	}
	return out
}

// ResourceName defaults to the resource's own name.
func (d *BaseDecorator) ResourceName() string {
	if d.opts.Name != "" {
		return d.opts.Name
	}
	return d.res.Name()
}

// Parent defaults to the resource's own parent.
func (d *BaseDecorator) Parent() Parent {
	if d.opts.Parent != nil && d.opts.Parent.Name != "" {
		return *d.opts.Parent
	}
	return d.res.Parent()
}

func (d *BaseDecorator) ListProperties() []Property   { return d.list }
func (d *BaseDecorator) ShowProperties() []Property   { return d.show }
func (d *BaseDecorator) EditProperties() []Property   { return d.edit }
func (d *BaseDecorator) FilterProperties() []Property { return d.filter }
func (d *BaseDecorator) TitleProperty() Property      { return d.title }

// Property returns a decorated property by path, including computed ones.
func (d *BaseDecorator) Property(path string) Property {
	return d.props[path]
}

func (d *BaseDecorator) DefaultSort() Sort {
	if d.opts.SortBy != "" {
		return Sort{Field: d.opts.SortBy, Direction: ParseDirection(d.opts.SortDirection)}
	}
	return Sort{}
}

func (d *BaseDecorator) PerPage() int {
	if d.opts.PerPage > 0 {
		return d.opts.PerPage
	}
	return DefaultPerPage
}

// Populate evaluates computed properties against the record params.
func (d *BaseDecorator) Populate(rec *Record) error {
	if len(d.computed) == 0 {
		return nil
	}
	env := make(map[string]any, len(rec.Params()))
	for k, v := range rec.Params() {
		env[k] = v
	}
	for _, c := range d.computed {
		out, err := expr.Run(c.program, env)
		if err != nil {
			return fmt.Errorf("resource %s: evaluate %q: %w", d.res.ID(), c.prop.Name(), err)
		}
		rec.Params()[c.prop.Path()] = out
	}
	return nil
}

var _ Decorator = (*BaseDecorator)(nil)
