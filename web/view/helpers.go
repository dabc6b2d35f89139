package view

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/autoadmin/core/resource"
)

// Paths are the URL paths the helpers build links from.
type Paths struct {
	Root   string
	Login  string
	Logout string
}

// Branding is what the layout needs to brand pages.
type Branding struct {
	LogoURL     string
	CompanyName string
	ShowFooter  bool
}

// Helpers builds URLs and formats values for templates.
type Helpers struct {
	paths Paths
}

// NewHelpers binds helpers to the configured paths.
func NewHelpers(p Paths) *Helpers {
	p.Root = "/" + strings.Trim(p.Root, "/")
	return &Helpers{paths: p}
}

func (h *Helpers) join(parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, h.paths.Root)
	for _, p := range parts {
		escaped = append(escaped, escapeSegment(p))
	}
	return path.Join(escaped...)
}

// escapeSegment path-escapes one segment. Dot-only segments are escaped too,
// otherwise path.Join would resolve them.
func escapeSegment(s string) string {
	if s != "" && strings.Trim(s, ".") == "" {
		return strings.ReplaceAll(s, ".", "%2E")
	}
	return url.PathEscape(s)
}

func (h *Helpers) RootURL() string   { return h.paths.Root }
func (h *Helpers) LoginURL() string  { return h.paths.Login }
func (h *Helpers) LogoutURL() string { return h.paths.Logout }

// AssetURL links an embedded static file.
func (h *Helpers) AssetURL(name string) string {
	return h.join("static", name)
}

// ResourceURL links the list view of a resource.
func (h *Helpers) ResourceURL(resourceID string) string {
	return h.join("resources", resourceID)
}

// ListURL links the list view with query parameters. kv are key/value pairs
// overriding the given query.
func (h *Helpers) ListURL(resourceID string, query url.Values, kv ...string) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			q.Del(kv[i])
			continue
		}
		q.Set(kv[i], kv[i+1])
	}
	u := h.ResourceURL(resourceID)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// ResourceActionURL links an action that needs no record, e.g. "new".
func (h *Helpers) ResourceActionURL(resourceID, action string) string {
	return h.join("resources", resourceID, "actions", action)
}

// RecordActionURL links an action on one record: "show", "edit", "delete".
func (h *Helpers) RecordActionURL(resourceID, recordID, action string) string {
	return h.join("resources", resourceID, "records", recordID, action)
}

// FormatValue renders a value for the list and show views.
func (h *Helpers) FormatValue(p resource.Property, v any) string {
	if v == nil {
		return ""
	}
	if p != nil && p.Type() == resource.PropertyPassword {
		return "••••••"
	}
	switch val := v.(type) {
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		if p != nil && p.Type() == resource.PropertyDate {
			return val.Format("Jan 2, 2006")
		}
		return val.Format("Jan 2, 2006 3:04 PM")
	case []byte:
		return string(val)
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case map[string]any, resource.Params, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// InputValue renders a value for an edit form input.
func (h *Helpers) InputValue(p resource.Property, v any) string {
	if v == nil || p == nil {
		return ""
	}
	switch p.Type() {
	case resource.PropertyPassword:
		return ""
	case resource.PropertyDate:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case resource.PropertyDateTime:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02T15:04")
		}
	case resource.PropertyMixed:
		if _, ok := v.(string); !ok {
			b, err := json.MarshalIndent(v, "", "  ")
			if err == nil {
				return string(b)
			}
		}
	case resource.PropertyBoolean:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b)
		}
	}
	return h.FormatValue(p, v)
}

// Truncate shortens s to n runes for table cells.
func (h *Helpers) Truncate(s string, n int) string {
	return truncate(s, n)
}

// Field is one input of an edit form.
type Field struct {
	Property resource.Property
	Name     string
	Label    string
	Input    string // text, number, checkbox, date, datetime-local, textarea, password, select
	Value    string
	Checked  bool
	Options  []string
	Required bool
	Error    string
}

// NewField prepares a form field for property p.
func (h *Helpers) NewField(p resource.Property, value any, errMsg string) Field {
	f := Field{
		Property: p,
		Name:     p.Path(),
		Label:    p.Label(),
		Input:    inputType(p),
		Value:    h.InputValue(p, value),
		Options:  p.AvailableValues(),
		Required: p.IsRequired(),
		Error:    errMsg,
	}
	if len(f.Options) > 0 {
		f.Input = "select"
	}
	if f.Input == "checkbox" {
		f.Checked = f.Value == "true" || f.Value == "1" || f.Value == "Yes"
	}
	return f
}

func inputType(p resource.Property) string {
	switch p.Type() {
	case resource.PropertyNumber, resource.PropertyFloat:
		return "number"
	case resource.PropertyBoolean:
		return "checkbox"
	case resource.PropertyDate:
		return "date"
	case resource.PropertyDateTime:
		return "datetime-local"
	case resource.PropertyTextarea, resource.PropertyRichText, resource.PropertyMixed:
		return "textarea"
	case resource.PropertyPassword:
		return "password"
	}
	return "text"
}

// Pagination describes the page window of a list view.
type Pagination struct {
	Page    int
	PerPage int
	Total   int
}

// Pages is the number of pages, at least 1.
func (p Pagination) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.Pages() }

// Offset is the number of records before the current page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}
