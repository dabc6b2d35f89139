// Package memory provides an in-memory data store adapter.
// It backs tests and the demo mode of the server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/autoadmin/adapters/idgen"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/ports"
)

// DatabaseType is reported by every memory resource.
const DatabaseType = "memory"

// Schema describes a collection. It is the raw model the memory Adapter
// turns into a Collection.
type Schema struct {
	Name       string
	Database   string
	Properties []resource.PropertyOptions
	Rows       []resource.Params
}

// Collection is an in-memory resource.
type Collection struct {
	resource.BaseResource

	name   string
	dbName string
	idPath string
	ids    ports.IDGenerator

	mu    sync.RWMutex
	rows  map[string]resource.Params
	order []string
}

// NewCollection creates a collection from a schema. When no property is
// flagged as id, an "id" property is added in front.
func NewCollection(s Schema, ids ports.IDGenerator) *Collection {
	if ids == nil {
		ids = idgen.UUID{}
	}
	c := &Collection{
		name:   s.Name,
		dbName: s.Database,
		ids:    ids,
		rows:   make(map[string]resource.Params),
	}

	props := make([]resource.Property, 0, len(s.Properties)+1)
	for i, opts := range s.Properties {
		if opts.Position == 0 {
			opts.Position = i + 1
		}
		if opts.ID {
			c.idPath = opts.Name
		}
		props = append(props, resource.NewProperty(opts))
	}
	if c.idPath == "" {
		c.idPath = "id"
		props = append([]resource.Property{resource.NewProperty(resource.PropertyOptions{
			Name: "id",
			ID:   true,
		})}, props...)
	}
	c.SetProperties(props)

	for _, row := range s.Rows {
		params := row.Clone()
		id := params.String(c.idPath)
		if id == "" {
			id = c.ids.New()
			params[c.idPath] = id
		}
		c.rows[id] = params
		c.order = append(c.order, id)
	}
	return c
}

func (c *Collection) ID() string           { return c.name }
func (c *Collection) Name() string         { return resource.Humanize(c.name) }
func (c *Collection) DatabaseName() string { return c.dbName }
func (c *Collection) DatabaseType() string { return DatabaseType }

// Parent groups memory collections under their database name.
func (c *Collection) Parent() resource.Parent {
	name := c.dbName
	if name == "" {
		name = DatabaseType
	}
	return resource.Parent{Name: name, Icon: "database"}
}

func (c *Collection) Count(ctx context.Context, filter resource.Filter) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, id := range c.order {
		if filter.Matches(c, c.rows[id]) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) Find(ctx context.Context, filter resource.Filter, opts resource.FindOptions) ([]*resource.Record, error) {
	opts = opts.Normalize()

	c.mu.RLock()
	var matched []resource.Params
	for _, id := range c.order {
		if row := c.rows[id]; filter.Matches(c, row) {
			matched = append(matched, row.Clone())
		}
	}
	c.mu.RUnlock()

	if field := opts.Sort.Field; field != "" {
		if c.Property(field) == nil {
			return nil, fmt.Errorf("sort by unknown property %q", field)
		}
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := matched[i].Get(field)
			b, _ := matched[j].Get(field)
			if opts.Sort.Direction == resource.Desc {
				return compare(b, a) < 0
			}
			return compare(a, b) < 0
		})
	}

	if opts.Offset >= len(matched) {
		return []*resource.Record{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}

	records := make([]*resource.Record, 0, end-opts.Offset)
	for _, params := range matched[opts.Offset:end] {
		records = append(records, resource.NewRecord(c, params))
	}
	return records, nil
}

func (c *Collection) FindOne(ctx context.Context, id string) (*resource.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row, ok := c.rows[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return resource.NewRecord(c, row.Clone()), nil
}

// FindMany returns the records that exist, in the order of ids.
func (c *Collection) FindMany(ctx context.Context, ids []string) ([]*resource.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var records []*resource.Record
	for _, id := range ids {
		if row, ok := c.rows[id]; ok {
			records = append(records, resource.NewRecord(c, row.Clone()))
		}
	}
	return records, nil
}

func (c *Collection) Create(ctx context.Context, params resource.Params) (resource.Params, error) {
	if err := c.validate(params, true); err != nil {
		return nil, err
	}

	stored := c.known(params)
	id := stored.String(c.idPath)

	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" {
		id = c.ids.New()
		stored[c.idPath] = id
	} else if _, exists := c.rows[id]; exists {
		return nil, resource.NewValidationError(nil).Add(c.idPath, "unique", "already exists")
	}
	c.rows[id] = stored
	c.order = append(c.order, id)
	return stored.Clone(), nil
}

func (c *Collection) Update(ctx context.Context, id string, params resource.Params) (resource.Params, error) {
	if err := c.validate(params, false); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	row, ok := c.rows[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	updated := row.Clone()
	for k, v := range c.known(params) {
		if k == c.idPath {
			continue
		}
		updated[k] = v
	}
	c.rows[id] = updated
	return updated.Clone(), nil
}

func (c *Collection) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rows[id]; !ok {
		return resource.ErrNotFound
	}
	delete(c.rows, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// known drops params that do not belong to a property.
func (c *Collection) known(params resource.Params) resource.Params {
	out := make(resource.Params, len(params))
	for k, v := range params {
		if c.Property(k) != nil {
			out[k] = v
		}
	}
	return out
}

// validate checks required values and enumerations. On create every
// required property must be present; on update only supplied ones are
// checked.
func (c *Collection) validate(params resource.Params, create bool) error {
	verr := resource.NewValidationError(nil)
	for _, p := range c.Properties() {
		if p.IsID() {
			continue
		}
		v, present := params[p.Path()]
		blank := !present || v == nil || strings.TrimSpace(fmt.Sprint(v)) == ""
		if p.IsRequired() && blank && (create || present) {
			verr.Add(p.Path(), "required", "is required")
			continue
		}
		if values := p.AvailableValues(); len(values) > 0 && !blank {
			if !contains(values, fmt.Sprint(v)) {
				verr.Add(p.Path(), "enum", "must be one of "+strings.Join(values, ", "))
			}
		}
	}
	if len(verr.PropertyErrors) > 0 {
		return verr
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// compare orders two values of the same property. Nil sorts first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

var _ resource.Resource = (*Collection)(nil)
