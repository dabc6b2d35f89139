// Package admin wires resources, options and views into an admin interface.
//
// An Admin is built once at startup. Discovery runs in New; afterwards the
// resource list and options are read-only and safe for concurrent use.
package admin

import (
	"github.com/artpar/autoadmin/core/discovery"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/web/view"
	"github.com/rs/zerolog"
)

// Admin holds the merged options and the discovered resources.
type Admin struct {
	options   Options
	resources []resource.Resource
	byID      map[string]resource.Resource
	helpers   *view.Helpers
	logger    zerolog.Logger
}

// Option configures New.
type Option func(*Admin)

// WithLogger sets the logger used during discovery.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Admin) {
		a.logger = logger
	}
}

// New merges opts over the defaults and discovers resources.
func New(opts Options, options ...Option) (*Admin, error) {
	merged, err := MergeOptions(opts)
	if err != nil {
		return nil, err
	}

	a := &Admin{
		options: merged,
		logger:  zerolog.Nop(),
	}
	for _, o := range options {
		o(a)
	}

	factory := discovery.NewFactory(a.logger, merged.Adapters...)
	resources, err := factory.Build(merged.Databases, merged.Resources)
	if err != nil {
		return nil, err
	}

	a.resources = resources
	a.byID = make(map[string]resource.Resource, len(resources))
	for _, r := range resources {
		if _, dup := a.byID[r.ID()]; !dup {
			a.byID[r.ID()] = r
		}
	}
	a.helpers = view.NewHelpers(a.Paths())

	a.logger.Info().
		Int("databases", len(merged.Databases)).
		Int("resources", len(resources)).
		Str("root", merged.RootPath).
		Msg("admin initialized")

	return a, nil
}

// FindResource returns the first resource with the given id.
func (a *Admin) FindResource(id string) (resource.Resource, bool) {
	r, ok := a.byID[id]
	return r, ok
}

// Resources returns the resources in discovery order.
func (a *Admin) Resources() []resource.Resource {
	return a.resources
}

// Options returns the merged options.
func (a *Admin) Options() Options {
	return a.options
}

// Paths returns the configured URL paths.
func (a *Admin) Paths() view.Paths {
	return view.Paths{
		Root:   a.options.RootPath,
		Login:  a.options.LoginPath,
		Logout: a.options.LogoutPath,
	}
}

// Helpers returns view helpers bound to this admin's paths.
func (a *Admin) Helpers() *view.Helpers {
	return a.helpers
}

// Branding returns the branding as the layout consumes it.
func (a *Admin) Branding() view.Branding {
	return a.options.Branding.view()
}
