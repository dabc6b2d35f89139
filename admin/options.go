package admin

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/web/view"
)

// Default paths and branding.
const (
	DefaultRootPath    = "/admin"
	DefaultLoginPath   = "/admin/login"
	DefaultLogoutPath  = "/admin/logout"
	DefaultCompanyName = "autoadmin"
)

// Options configure an Admin. Every field is optional; zero values fall back
// to the defaults.
type Options struct {
	RootPath   string
	LoginPath  string
	LogoutPath string

	// Databases are adapter-specific connections whose resources are
	// discovered at startup.
	Databases []any

	// Resources are raw models or discovery.ResourceWithDecorator values.
	Resources []any

	Branding Branding

	// Adapters recognize raw databases and models, tried in order.
	Adapters []resource.Adapter
}

// Branding customizes the layout.
type Branding struct {
	LogoURL     string
	CompanyName string

	// SoftwareBrothers toggles the default footer branding. Nil means on;
	// it stays nil in the defaults so a supplied false survives the merge.
	SoftwareBrothers *bool
}

// ShowFooter reports whether the default footer is rendered.
func (b Branding) ShowFooter() bool {
	return b.SoftwareBrothers == nil || *b.SoftwareBrothers
}

func (b Branding) view() view.Branding {
	return view.Branding{
		LogoURL:     b.LogoURL,
		CompanyName: b.CompanyName,
		ShowFooter:  b.ShowFooter(),
	}
}

// DefaultOptions returns the options an Admin uses when none are given.
func DefaultOptions() Options {
	return Options{
		RootPath:   DefaultRootPath,
		LoginPath:  DefaultLoginPath,
		LogoutPath: DefaultLogoutPath,
		Branding: Branding{
			CompanyName: DefaultCompanyName,
		},
	}
}

// MergeOptions overlays user on the defaults. Supplied values win; omitted
// ones fall back to the default.
func MergeOptions(user Options) (Options, error) {
	merged := DefaultOptions()
	if err := mergo.Merge(&merged, user, mergo.WithOverride); err != nil {
		return Options{}, fmt.Errorf("merge options: %w", err)
	}
	return merged, nil
}

// Bool returns a pointer to b, for optional boolean options.
func Bool(b bool) *bool {
	return &b
}
