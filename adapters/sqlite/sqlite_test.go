package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/autoadmin/adapters/sqlite"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/google/go-cmp/cmp"
)

const schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	name TEXT,
	password_hash TEXT,
	active BOOLEAN NOT NULL DEFAULT 1,
	born DATE,
	meta JSON
);
CREATE TABLE posts (
	slug TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author_id INTEGER REFERENCES users(id),
	score REAL
);
CREATE TABLE logs (message TEXT);
`

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO users (email, name, active) VALUES
			('alice@example.com', 'Alice', 1),
			('bob@example.com', 'Bob', 0),
			('carol@example.com', 'Carol', 1);
		INSERT INTO posts (slug, title, author_id, score) VALUES ('hello', 'Hello', 1, 4.5);
		INSERT INTO logs (message) VALUES ('boot'), ('ready');
	`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func table(t *testing.T, db *sqlite.DB, name string) *sqlite.TableResource {
	t.Helper()
	res, err := sqlite.NewTableResource(db, name)
	if err != nil {
		t.Fatalf("NewTableResource(%s): %v", name, err)
	}
	return res
}

func TestDB_Resources(t *testing.T) {
	db := setupTestDB(t)

	resources, err := db.Resources()
	if err != nil {
		t.Fatalf("Resources() error = %v", err)
	}
	var ids []string
	for _, r := range resources {
		ids = append(ids, r.ID())
		if r.DatabaseType() != "sqlite" || r.Parent().Name != "sqlite" {
			t.Errorf("%s: type=%s parent=%s", r.ID(), r.DatabaseType(), r.Parent().Name)
		}
	}
	if diff := cmp.Diff([]string{"logs", "posts", "users"}, ids); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
}

func TestTableResource_Properties(t *testing.T) {
	db := setupTestDB(t)
	users := table(t, db, "users")

	tests := []struct {
		path     string
		typ      resource.PropertyType
		required bool
	}{
		{"id", resource.PropertyNumber, false},
		{"email", resource.PropertyString, true},
		{"password_hash", resource.PropertyPassword, false},
		{"active", resource.PropertyBoolean, false},
		{"born", resource.PropertyDate, false},
		{"meta", resource.PropertyMixed, false},
	}
	for _, tt := range tests {
		p := users.Property(tt.path)
		if p == nil {
			t.Errorf("missing property %s", tt.path)
			continue
		}
		if p.Type() != tt.typ || p.IsRequired() != tt.required {
			t.Errorf("%s: type=%s required=%v, want %s %v", tt.path, p.Type(), p.IsRequired(), tt.typ, tt.required)
		}
	}
	if id := resource.IDProperty(users); id == nil || id.Path() != "id" || id.IsEditable() {
		t.Error("id should be the non-editable primary key")
	}

	posts := table(t, db, "posts")
	if p := posts.Property("author_id"); p.Reference() != "users" || p.Type() != resource.PropertyReference {
		t.Errorf("author_id reference = %q type = %s", p.Reference(), p.Type())
	}
	if p := posts.Property("slug"); !p.IsID() || !p.IsEditable() {
		t.Error("text primary key should be an editable id")
	}

	logs := table(t, db, "logs")
	if id := resource.IDProperty(logs); id == nil || id.Path() != "rowid" {
		t.Error("tables without primary key should use rowid")
	}
}

func TestNewTableResource_Missing(t *testing.T) {
	db := setupTestDB(t)
	if _, err := sqlite.NewTableResource(db, "nope"); err == nil {
		t.Error("expected error for missing table")
	}
	if _, ok := (sqlite.Adapter{}).OpenResource(sqlite.Table{DB: db, Name: "nope"}); ok {
		t.Error("adapter should refuse a missing table")
	}
}

func TestTableResource_FindAndCount(t *testing.T) {
	db := setupTestDB(t)
	users := table(t, db, "users")
	ctx := context.Background()

	n, err := users.Count(ctx, resource.Filter{"name": "o"})
	if err != nil || n != 2 {
		t.Errorf("Count(name~o) = %d, %v; want 2", n, err)
	}
	n, _ = users.Count(ctx, resource.Filter{"active": "true"})
	if n != 2 {
		t.Errorf("Count(active) = %d, want 2", n)
	}

	records, err := users.Find(ctx, nil, resource.FindOptions{
		Limit: 2,
		Sort:  resource.Sort{Field: "name", Direction: resource.Desc},
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	var names []any
	for _, r := range records {
		names = append(names, r.Param("name"))
	}
	if diff := cmp.Diff([]any{"Carol", "Bob"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if records[1].Param("active") != false {
		t.Errorf("active = %#v, want false", records[1].Param("active"))
	}

	if _, err := users.Find(ctx, nil, resource.FindOptions{Sort: resource.Sort{Field: "nope"}}); err == nil {
		t.Error("expected error for unknown sort field")
	}

	n, _ = users.Count(ctx, resource.Filter{"name": "%"})
	if n != 0 {
		t.Errorf("LIKE wildcards must be escaped, got %d", n)
	}
}

func TestTableResource_FindOneAndMany(t *testing.T) {
	db := setupTestDB(t)
	users := table(t, db, "users")
	ctx := context.Background()

	rec, err := users.FindOne(ctx, "2")
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if rec.Param("email") != "bob@example.com" || rec.ID() != "2" {
		t.Errorf("record = %v", rec.Params())
	}

	if _, err := users.FindOne(ctx, "99"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	many, err := users.FindMany(ctx, []string{"3", "99", "1"})
	if err != nil {
		t.Fatalf("FindMany() error = %v", err)
	}
	if len(many) != 2 || many[0].ID() != "3" || many[1].ID() != "1" {
		t.Errorf("FindMany() order wrong: %d records", len(many))
	}
}

func TestTableResource_Create(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := table(t, db, "users")

	got, err := users.Create(ctx, resource.Params{
		"email": "dave@example.com",
		"name":  "Dave",
		"meta":  map[string]any{"tags": []any{"a"}},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.String("id") != "4" || got["active"] != true {
		t.Errorf("created = %v", got)
	}
	if diff := cmp.Diff(map[string]any{"tags": []any{"a"}}, got["meta"]); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}

	posts := table(t, db, "posts")
	post, err := posts.Create(ctx, resource.Params{"title": "Generated"})
	if err != nil {
		t.Fatalf("Create(post) error = %v", err)
	}
	if post.String("slug") == "" {
		t.Error("text primary key should be generated")
	}

	logs := table(t, db, "logs")
	entry, err := logs.Create(ctx, resource.Params{"message": "hi"})
	if err != nil {
		t.Fatalf("Create(log) error = %v", err)
	}
	if entry.String("rowid") != "3" {
		t.Errorf("rowid = %v", entry["rowid"])
	}
}

func TestTableResource_ValidationErrors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := table(t, db, "users")

	_, err := users.Create(ctx, resource.Params{"name": "No Email"})
	verr, ok := resource.AsValidationError(err)
	if !ok || verr.PropertyErrors["email"].Type != "required" {
		t.Fatalf("err = %v, want required email", err)
	}

	_, err = users.Create(ctx, resource.Params{"email": "alice@example.com"})
	verr, ok = resource.AsValidationError(err)
	if !ok || verr.PropertyErrors["email"].Type != "unique" {
		t.Fatalf("err = %v, want unique email", err)
	}

	_, err = users.Update(ctx, "1", resource.Params{"email": ""})
	if !resource.IsValidationError(err) {
		t.Errorf("err = %v, want validation error", err)
	}

	posts := table(t, db, "posts")
	_, err = posts.Create(ctx, resource.Params{"title": "Orphan", "author_id": 42})
	verr, ok = resource.AsValidationError(err)
	if !ok || verr.BaseError == nil || verr.BaseError.Type != "reference" {
		t.Errorf("err = %v, want reference base error", err)
	}
}

func TestTableResource_UpdateDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := table(t, db, "users")

	got, err := users.Update(ctx, "2", resource.Params{"name": "Robert", "active": true, "id": "77"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got["name"] != "Robert" || got["active"] != true || got.String("id") != "2" {
		t.Errorf("updated = %v", got)
	}

	if _, err := users.Update(ctx, "99", resource.Params{"name": "x"}); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	if err := users.Delete(ctx, "3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := users.Delete(ctx, "3"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	if err := users.Delete(ctx, "1"); !resource.IsValidationError(err) {
		t.Errorf("deleting a referenced user err = %v, want validation error", err)
	}
}

func TestAdapter(t *testing.T) {
	db := setupTestDB(t)
	a := sqlite.Adapter{}

	if _, ok := a.OpenDatabase(db); !ok {
		t.Error("*sqlite.DB should be accepted")
	}
	if _, ok := a.OpenDatabase(db.DB); !ok {
		t.Error("*sql.DB should be accepted")
	}
	if _, ok := a.OpenDatabase("sqlite://x"); ok {
		t.Error("strings should be refused")
	}
	res, ok := a.OpenResource(&sqlite.Table{DB: db, Name: "users"})
	if !ok || res.ID() != "users" {
		t.Error("Table should be accepted")
	}
}
