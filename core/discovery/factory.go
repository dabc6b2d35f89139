// Package discovery turns raw store objects into decorated resources.
//
// Explicitly declared resources come first, in declaration order. Resources
// reported by databases follow, in database order and then in the order
// each database reports them; a discovered resource whose id is already
// declared explicitly is dropped.
package discovery

import (
	"errors"
	"fmt"

	"github.com/artpar/autoadmin/core/resource"
	"github.com/rs/zerolog"
)

var (
	// ErrNoResourceAdapter is returned when no adapter recognizes a raw model.
	ErrNoResourceAdapter = errors.New("no adapter for resource")

	// ErrNoDatabaseAdapter is returned when no adapter recognizes a raw database.
	ErrNoDatabaseAdapter = errors.New("no adapter for database")
)

// ResourceWithDecorator declares a resource together with its decorator.
// A nil Decorator falls back to resource.DefaultDecorator.
type ResourceWithDecorator struct {
	Resource  any
	Decorator resource.DecoratorFactory
}

// Factory wraps raw models and databases using registered adapters.
type Factory struct {
	adapters []resource.Adapter
	logger   zerolog.Logger
}

// NewFactory creates a factory that tries adapters in order.
func NewFactory(logger zerolog.Logger, adapters ...resource.Adapter) *Factory {
	return &Factory{adapters: adapters, logger: logger}
}

// WrapResource produces a decorated Resource from a raw model. A raw value
// that already implements resource.Resource is used as-is.
func (f *Factory) WrapResource(raw any, decorator resource.DecoratorFactory) (resource.Resource, error) {
	res, err := f.open(raw)
	if err != nil {
		return nil, err
	}
	if decorator == nil {
		decorator = resource.DefaultDecorator
	}
	d, err := decorator(res)
	if err != nil {
		return nil, fmt.Errorf("decorate %s: %w", res.ID(), err)
	}
	res.AssignDecorator(d)
	return res, nil
}

func (f *Factory) open(raw any) (resource.Resource, error) {
	if res, ok := raw.(resource.Resource); ok && res != nil {
		return res, nil
	}
	for _, a := range f.adapters {
		if res, ok := a.OpenResource(raw); ok {
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrNoResourceAdapter, raw)
}

// ParseDatabases returns the resources every database reports, flattened in
// input order. It does not deduplicate.
func (f *Factory) ParseDatabases(raws []any) ([]resource.Resource, error) {
	var out []resource.Resource
	for i, raw := range raws {
		db, err := f.openDatabase(raw)
		if err != nil {
			return nil, fmt.Errorf("databases[%d]: %w", i, err)
		}
		resources, err := db.Resources()
		if err != nil {
			return nil, fmt.Errorf("databases[%d]: list resources: %w", i, err)
		}
		f.logger.Debug().
			Int("database", i).
			Int("resources", len(resources)).
			Msg("database parsed")
		out = append(out, resources...)
	}
	return out, nil
}

func (f *Factory) openDatabase(raw any) (resource.Database, error) {
	if db, ok := raw.(resource.Database); ok && db != nil {
		return db, nil
	}
	for _, a := range f.adapters {
		if db, ok := a.OpenDatabase(raw); ok {
			return db, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrNoDatabaseAdapter, raw)
}

// Build wraps explicit resources, then appends the database-discovered ones
// whose id was not declared explicitly. Each entry of resources is either a
// raw model or a ResourceWithDecorator.
func (f *Factory) Build(databases []any, resources []any) ([]resource.Resource, error) {
	out := make([]resource.Resource, 0, len(resources))
	explicit := make(map[string]bool, len(resources))

	for i, raw := range resources {
		var decorator resource.DecoratorFactory
		switch r := raw.(type) {
		case ResourceWithDecorator:
			raw, decorator = r.Resource, r.Decorator
		case *ResourceWithDecorator:
			raw, decorator = r.Resource, r.Decorator
		}
		res, err := f.WrapResource(raw, decorator)
		if err != nil {
			return nil, fmt.Errorf("resources[%d]: %w", i, err)
		}
		explicit[res.ID()] = true
		out = append(out, res)
	}

	discovered, err := f.ParseDatabases(databases)
	if err != nil {
		return nil, err
	}
	for _, raw := range discovered {
		if explicit[raw.ID()] {
			f.logger.Debug().Str("resource", raw.ID()).Msg("discovered resource shadowed by explicit declaration")
			continue
		}
		res, err := f.WrapResource(raw, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
