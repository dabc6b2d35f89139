package resource

import (
	"fmt"
	"strings"
)

// Filter restricts a Find or Count. Keys are property paths, values are the
// raw strings typed into the filter form. String-like properties match by
// case-insensitive substring, everything else by equality.
type Filter map[string]string

// Active returns the filter without empty values.
func (f Filter) Active() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Matches reports whether params satisfy the filter. Adapters without native
// query support (the in-memory adapter) use it directly.
func (f Filter) Matches(res Resource, params Params) bool {
	for path, want := range f.Active() {
		got, ok := params.Get(path)
		if !ok || got == nil {
			return false
		}
		prop := res.Property(path)
		if prop != nil && isTextual(prop.Type()) {
			if !strings.Contains(strings.ToLower(fmt.Sprint(got)), strings.ToLower(want)) {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func isTextual(t PropertyType) bool {
	switch t {
	case PropertyString, PropertyTextarea, PropertyRichText:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection converts user input into a Direction, defaulting to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort orders Find results.
type Sort struct {
	// Field is the property path to sort by. Empty means store order.
	Field     string
	Direction Direction
}

// FindOptions controls pagination and sorting of Find.
type FindOptions struct {
	Limit  int
	Offset int
	Sort   Sort
}

// DefaultPerPage is the list page size when none is requested.
const DefaultPerPage = 10

// Normalize applies defaults and clamps invalid values.
func (o FindOptions) Normalize() FindOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPerPage
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Sort.Direction == "" {
		o.Sort.Direction = Asc
	}
	return o
}
