// Package resource defines the contracts a data store implements to appear in
// the admin interface.
//
// An adapter exposes a store through four types:
//
//   - Database enumerates the Resources a connection owns.
//   - Resource is one table or collection with CRUD operations.
//   - Property describes one field of a Resource.
//   - Record is one row or document, produced per request.
//
// Presentation metadata (labels, property order, menu grouping) lives in a
// Decorator attached to each Resource. BaseResource, BaseProperty and
// BaseDecorator provide defaults adapters can embed.
//
// Adapters report field-level validation failures with *ValidationError.
// The admin never interprets its contents; it only hands them to the views.
//
// Example adapter skeleton:
//
//	type Table struct {
//		resource.BaseResource
//		db   *sql.DB
//		name string
//	}
//
//	func (t *Table) ID() string { return t.name }
package resource
