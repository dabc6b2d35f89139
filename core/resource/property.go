package resource

import (
	"strings"
	"unicode"
)

// PropertyType is the display type of a property.
type PropertyType string

const (
	PropertyString    PropertyType = "string"
	PropertyNumber    PropertyType = "number"
	PropertyFloat     PropertyType = "float"
	PropertyBoolean   PropertyType = "boolean"
	PropertyDate      PropertyType = "date"
	PropertyDateTime  PropertyType = "datetime"
	PropertyRichText  PropertyType = "richtext"
	PropertyTextarea  PropertyType = "textarea"
	PropertyReference PropertyType = "reference"
	PropertyMixed     PropertyType = "mixed"
	PropertyPassword  PropertyType = "password"
)

// Property describes one field of a Resource.
type Property interface {
	// Name is the field name as the store knows it.
	Name() string

	// Path is the dotted path used to read the value from record params.
	// For flat stores it equals Name.
	Path() string

	// Label is the human-readable name shown in the views.
	Label() string

	Type() PropertyType

	// IsID reports whether this property holds the record identifier.
	IsID() bool

	// IsTitle reports whether this property is used as the record title.
	IsTitle() bool

	IsRequired() bool
	IsSortable() bool
	IsEditable() bool
	IsVisible() bool

	// AvailableValues lists allowed values for enumerated fields, nil otherwise.
	AvailableValues() []string

	// Reference names the resource id a reference property points to.
	Reference() string

	// Position orders properties when a decorator gives no explicit order.
	Position() int
}

// PropertyOptions configures a BaseProperty.
type PropertyOptions struct {
	Name            string
	Path            string
	Label           string
	Type            PropertyType
	ID              bool
	Title           bool
	Required        bool
	Sortable        *bool
	Editable        *bool
	Visible         *bool
	AvailableValues []string
	Reference       string
	Position        int
}

// BaseProperty is the default Property implementation.
// Adapters construct it directly or embed it to override single methods.
type BaseProperty struct {
	opts PropertyOptions
}

// NewProperty creates a BaseProperty. Missing options are derived from the
// name: path defaults to the name, label to a humanized name, type to string.
func NewProperty(opts PropertyOptions) *BaseProperty {
	if opts.Path == "" {
		opts.Path = opts.Name
	}
	if opts.Label == "" {
		opts.Label = Humanize(opts.Name)
	}
	if opts.Type == "" {
		opts.Type = PropertyString
	}
	if opts.Reference != "" {
		opts.Type = PropertyReference
	}
	return &BaseProperty{opts: opts}
}

func (p *BaseProperty) Name() string       { return p.opts.Name }
func (p *BaseProperty) Path() string       { return p.opts.Path }
func (p *BaseProperty) Label() string      { return p.opts.Label }
func (p *BaseProperty) Type() PropertyType { return p.opts.Type }
func (p *BaseProperty) IsID() bool         { return p.opts.ID }
func (p *BaseProperty) IsRequired() bool   { return p.opts.Required }
func (p *BaseProperty) Reference() string  { return p.opts.Reference }
func (p *BaseProperty) Position() int      { return p.opts.Position }

// IsTitle reports whether the property was declared as the title. Without an
// explicit declaration, properties named "name", "title", "email" or "subject"
// are used.
func (p *BaseProperty) IsTitle() bool {
	if p.opts.Title {
		return true
	}
	switch strings.ToLower(p.opts.Name) {
	case "name", "title", "email", "subject":
		return true
	}
	return false
}

// IsSortable defaults to true for scalar types.
func (p *BaseProperty) IsSortable() bool {
	if p.opts.Sortable != nil {
		return *p.opts.Sortable
	}
	switch p.opts.Type {
	case PropertyMixed, PropertyRichText, PropertyTextarea, PropertyPassword:
		return false
	}
	return true
}

// IsEditable defaults to true for everything except the id.
func (p *BaseProperty) IsEditable() bool {
	if p.opts.Editable != nil {
		return *p.opts.Editable
	}
	return !p.opts.ID
}

// IsVisible defaults to true for everything except passwords.
func (p *BaseProperty) IsVisible() bool {
	if p.opts.Visible != nil {
		return *p.opts.Visible
	}
	return p.opts.Type != PropertyPassword
}

func (p *BaseProperty) AvailableValues() []string {
	if len(p.opts.AvailableValues) == 0 {
		return nil
	}
	out := make([]string, len(p.opts.AvailableValues))
	copy(out, p.opts.AvailableValues)
	return out
}

var _ Property = (*BaseProperty)(nil)

// Humanize turns a field or collection name into a label:
// "created_at" becomes "Created at", "firstName" becomes "First name".
func Humanize(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	prevLower := false
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteByte(' ')
			prevLower = false
			continue
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte(' ')
			}
			if i > 0 {
				r = r - 'A' + 'a'
			}
			prevLower = false
		default:
			prevLower = r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		}
		b.WriteRune(r)
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return ""
	}
	r := []rune(out)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
