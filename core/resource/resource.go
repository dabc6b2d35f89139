package resource

import (
	"context"
	"sort"
)

// Parent groups resources in the navigation menu.
type Parent struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Resource is an adapter-normalized handle to one table or collection.
type Resource interface {
	// ID is the stable identifier, unique across all resources of an admin.
	ID() string

	// Name is the default display name.
	Name() string

	// Parent is the resource's natural group, usually its database.
	Parent() Parent

	DatabaseName() string
	DatabaseType() string

	// Properties lists the fields, sorted by Position.
	Properties() []Property

	// Property returns the property at path, or nil.
	Property(path string) Property

	Count(ctx context.Context, filter Filter) (int, error)
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]*Record, error)

	// FindOne returns ErrNotFound when no record has the given id.
	FindOne(ctx context.Context, id string) (*Record, error)
	FindMany(ctx context.Context, ids []string) ([]*Record, error)

	// Create stores params and returns the stored values including the id.
	Create(ctx context.Context, params Params) (Params, error)
	Update(ctx context.Context, id string, params Params) (Params, error)
	Delete(ctx context.Context, id string) error

	Decorator() Decorator
	AssignDecorator(d Decorator)
}

// Database is a connection that can enumerate the resources it contains.
// It is consulted once, during discovery.
type Database interface {
	Resources() ([]Resource, error)
}

// Adapter plugs a data store into the admin. Given a raw store object, each
// method reports whether the adapter handles it and, if so, wraps it.
type Adapter interface {
	OpenDatabase(raw any) (Database, bool)
	OpenResource(raw any) (Resource, bool)
}

// BaseResource carries the parts of Resource every adapter shares: decorator
// storage and property lookup. Embed it and call SetProperties from the
// adapter constructor.
type BaseResource struct {
	props     []Property
	byPath    map[string]Property
	decorator Decorator
}

// SetProperties stores props sorted by Position (stable).
func (b *BaseResource) SetProperties(props []Property) {
	sorted := make([]Property, len(props))
	copy(sorted, props)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position() < sorted[j].Position()
	})
	b.props = sorted
	b.byPath = make(map[string]Property, len(sorted))
	for _, p := range sorted {
		b.byPath[p.Path()] = p
	}
}

func (b *BaseResource) Properties() []Property {
	return b.props
}

func (b *BaseResource) Property(path string) Property {
	return b.byPath[path]
}

func (b *BaseResource) Decorator() Decorator {
	return b.decorator
}

func (b *BaseResource) AssignDecorator(d Decorator) {
	b.decorator = d
}

// IDProperty returns the first property flagged as the id.
func IDProperty(res Resource) Property {
	for _, p := range res.Properties() {
		if p.IsID() {
			return p
		}
	}
	return nil
}
