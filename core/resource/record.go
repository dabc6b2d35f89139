package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Params holds the values of a record keyed by property path.
// Nested documents are stored as map[string]any and addressed with dots.
type Params map[string]any

// Get returns the value at a dotted path.
func (p Params) Get(path string) (any, bool) {
	if v, ok := p[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(p)
	for _, part := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the value at path formatted with fmt, or "" when absent.
func (p Params) String(path string) string {
	v, ok := p.Get(path)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Params:
		return m, true
	}
	return nil, false
}

// Record is one row or document of a Resource.
// Records are transient: they are produced per request and never cached.
type Record struct {
	resource Resource
	params   Params
	errors   map[string]PropertyError
	base     *PropertyError
}

// NewRecord wraps params belonging to res.
func NewRecord(res Resource, params Params) *Record {
	if params == nil {
		params = Params{}
	}
	return &Record{
		resource: res,
		params:   params,
		errors:   make(map[string]PropertyError),
	}
}

// Resource returns the owning resource.
func (r *Record) Resource() Resource { return r.resource }

// Params returns the record values.
func (r *Record) Params() Params { return r.params }

// Param returns a single value by path.
func (r *Record) Param(path string) any {
	v, _ := r.params.Get(path)
	return v
}

// ID returns the identifier taken from the resource's id property.
func (r *Record) ID() string {
	for _, p := range r.resource.Properties() {
		if p.IsID() {
			return r.params.String(p.Path())
		}
	}
	return r.params.String("id")
}

// Title returns the value of the decorator's title property, falling back to
// the id.
func (r *Record) Title() string {
	if d := r.resource.Decorator(); d != nil {
		if p := d.TitleProperty(); p != nil {
			if s := r.params.String(p.Path()); s != "" {
				return s
			}
		}
	}
	return r.ID()
}

// Errors returns the property errors captured by the last Save or Update.
func (r *Record) Errors() map[string]PropertyError { return r.errors }

// Error returns the error for a single property path.
func (r *Record) Error(path string) (PropertyError, bool) {
	e, ok := r.errors[path]
	return e, ok
}

// BaseError returns the record-level error, if any.
func (r *Record) BaseError() *PropertyError { return r.base }

// IsValid reports whether the last write produced no validation errors.
func (r *Record) IsValid() bool {
	return len(r.errors) == 0 && r.base == nil
}

// Save creates the record when it has no id and updates it otherwise.
// A *ValidationError from the resource is stored on the record and Save
// returns nil; every other error is returned.
func (r *Record) Save(ctx context.Context) error {
	if r.ID() == "" {
		params, err := r.resource.Create(ctx, r.params)
		return r.apply(params, err)
	}
	params, err := r.resource.Update(ctx, r.ID(), r.params)
	return r.apply(params, err)
}

// Create persists the record as a new one, whether or not its params
// already carry an id. Validation errors are handled as in Save.
func (r *Record) Create(ctx context.Context) error {
	params, err := r.resource.Create(ctx, r.params)
	return r.apply(params, err)
}

// Update merges params into the record and persists them.
func (r *Record) Update(ctx context.Context, params Params) error {
	id := r.ID()
	if id == "" {
		return errors.New("update: record has no id")
	}
	stored, err := r.resource.Update(ctx, id, params)
	if err == nil {
		for k, v := range params {
			r.params[k] = v
		}
	}
	return r.apply(stored, err)
}

// Delete removes the record from its resource.
func (r *Record) Delete(ctx context.Context) error {
	id := r.ID()
	if id == "" {
		return errors.New("delete: record has no id")
	}
	return r.resource.Delete(ctx, id)
}

func (r *Record) apply(params Params, err error) error {
	r.errors = make(map[string]PropertyError)
	r.base = nil
	if err != nil {
		if verr, ok := AsValidationError(err); ok {
			for k, v := range verr.PropertyErrors {
				r.errors[k] = v
			}
			r.base = verr.BaseError
			return nil
		}
		return err
	}
	if params != nil {
		r.params = params
	}
	return nil
}
