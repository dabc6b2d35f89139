// Package mongo exposes MongoDB collections as admin resources.
//
// A *Database is a database: every collection it lists becomes a resource
// whose properties are inferred from a sample of its documents.
package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/artpar/autoadmin/core/resource"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DatabaseType is reported by every MongoDB resource.
const DatabaseType = "mongo"

// DefaultSampleSize is the number of documents read to infer properties.
const DefaultSampleSize = 50

// Database wraps a MongoDB database handle.
type Database struct {
	db *mongodriver.Database

	// SampleSize bounds property inference per collection.
	SampleSize int
	// Timeout bounds discovery calls.
	Timeout time.Duration
}

// NewDatabase wraps db with default sampling.
func NewDatabase(db *mongodriver.Database) *Database {
	return &Database{db: db, SampleSize: DefaultSampleSize, Timeout: 10 * time.Second}
}

// Connect dials uri, pings the primary and returns the named database. The
// returned client must be disconnected by the caller.
func Connect(ctx context.Context, uri, name string) (*Database, *mongodriver.Client, error) {
	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewDatabase(client.Database(name)), client, nil
}

// Name returns the database name.
func (d *Database) Name() string { return d.db.Name() }

// Collection returns the driver handle of one collection, the raw model for
// explicit declaration.
func (d *Database) Collection(name string) *mongodriver.Collection {
	return d.db.Collection(name)
}

// Resources lists collections in name order.
func (d *Database) Resources() ([]resource.Resource, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout())
	defer cancel()

	names, err := d.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections of %s: %w", d.db.Name(), err)
	}
	sort.Strings(names)

	out := make([]resource.Resource, 0, len(names))
	for _, name := range names {
		c, err := NewCollection(ctx, d.db.Collection(name), d.SampleSize)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *Database) timeout() time.Duration {
	if d.Timeout <= 0 {
		return 10 * time.Second
	}
	return d.Timeout
}

// Adapter recognizes *mongo.Database and *mongo.Collection handles from the
// driver as well as this package's wrappers.
type Adapter struct {
	SampleSize int
}

func (a Adapter) OpenDatabase(raw any) (resource.Database, bool) {
	switch db := raw.(type) {
	case *Database:
		return db, db != nil
	case *mongodriver.Database:
		if db == nil {
			return nil, false
		}
		d := NewDatabase(db)
		if a.SampleSize > 0 {
			d.SampleSize = a.SampleSize
		}
		return d, true
	}
	return nil, false
}

// OpenResource samples the collection; a collection that cannot be read is
// not accepted.
func (a Adapter) OpenResource(raw any) (resource.Resource, bool) {
	switch c := raw.(type) {
	case *Collection:
		return c, c != nil
	case *mongodriver.Collection:
		if c == nil {
			return nil, false
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		res, err := NewCollection(ctx, c, a.SampleSize)
		if err != nil {
			return nil, false
		}
		return res, true
	}
	return nil, false
}

var (
	_ resource.Database = (*Database)(nil)
	_ resource.Adapter  = Adapter{}
)
