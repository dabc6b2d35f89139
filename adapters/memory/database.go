package memory

import (
	"sync"

	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/ports"
)

// Database is an in-memory database holding collections.
type Database struct {
	name string
	ids  ports.IDGenerator

	mu          sync.RWMutex
	collections []*Collection
}

// NewDatabase creates a database with the given collections.
func NewDatabase(name string, ids ports.IDGenerator, schemas ...Schema) *Database {
	db := &Database{name: name, ids: ids}
	for _, s := range schemas {
		db.Add(s)
	}
	return db
}

// Name returns the database name.
func (db *Database) Name() string { return db.name }

// Add creates a collection owned by the database and returns it.
func (db *Database) Add(s Schema) *Collection {
	s.Database = db.name
	c := NewCollection(s, db.ids)

	db.mu.Lock()
	db.collections = append(db.collections, c)
	db.mu.Unlock()
	return c
}

// Resources returns the collections in creation order.
func (db *Database) Resources() ([]resource.Resource, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]resource.Resource, 0, len(db.collections))
	for _, c := range db.collections {
		out = append(out, c)
	}
	return out, nil
}

var _ resource.Database = (*Database)(nil)

// Adapter recognizes *Database connections and Schema models.
type Adapter struct {
	// IDs generates ids for collections created from a Schema.
	// Defaults to UUIDs.
	IDs ports.IDGenerator
}

func (Adapter) OpenDatabase(raw any) (resource.Database, bool) {
	db, ok := raw.(*Database)
	if !ok || db == nil {
		return nil, false
	}
	return db, true
}

func (a Adapter) OpenResource(raw any) (resource.Resource, bool) {
	switch s := raw.(type) {
	case Schema:
		return NewCollection(s, a.IDs), true
	case *Schema:
		if s == nil {
			return nil, false
		}
		return NewCollection(*s, a.IDs), true
	}
	return nil, false
}

var _ resource.Adapter = Adapter{}
