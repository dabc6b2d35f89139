package admin

import (
	"github.com/artpar/autoadmin/core/discovery"
	"github.com/artpar/autoadmin/core/resource"
)

// Aliases so callers can extend the admin importing a single package.
type (
	Resource              = resource.Resource
	Database              = resource.Database
	Record                = resource.Record
	Property              = resource.Property
	Decorator             = resource.Decorator
	DecoratorOptions      = resource.DecoratorOptions
	Adapter               = resource.Adapter
	Params                = resource.Params
	ValidationError       = resource.ValidationError
	PropertyError         = resource.PropertyError
	BaseResource          = resource.BaseResource
	BaseProperty          = resource.BaseProperty
	BaseDecorator         = resource.BaseDecorator
	ResourceWithDecorator = discovery.ResourceWithDecorator
)

// Decorate is resource.Decorate.
var Decorate = resource.Decorate
