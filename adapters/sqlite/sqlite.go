// Package sqlite exposes SQLite tables as admin resources.
//
// A *DB is a database: every table listed in sqlite_master becomes a
// resource. A Table names a single table for explicit declaration.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/artpar/autoadmin/core/resource"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseType is reported by every SQLite resource.
const DatabaseType = "sqlite"

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB

	// Name labels the database in the navigation. Open derives it from the
	// file name.
	Name string
}

// Open creates a new SQLite database connection.
func Open(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &DB{DB: db, Name: nameFromPath(path)}, nil
}

func isMemory(path string) bool {
	return strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

func nameFromPath(path string) string {
	if isMemory(path) {
		return DatabaseType
	}
	path = strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Tables lists user tables in name order.
func (db *DB) Tables() ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Resources implements resource.Database.
func (db *DB) Resources() ([]resource.Resource, error) {
	names, err := db.Tables()
	if err != nil {
		return nil, err
	}
	out := make([]resource.Resource, 0, len(names))
	for _, name := range names {
		t, err := NewTableResource(db, name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Table is the raw model of one table.
type Table struct {
	DB   *DB
	Name string
}

// Adapter recognizes *DB, *sql.DB and Table values.
type Adapter struct{}

func (Adapter) OpenDatabase(raw any) (resource.Database, bool) {
	switch db := raw.(type) {
	case *DB:
		return db, db != nil
	case *sql.DB:
		if db == nil {
			return nil, false
		}
		return &DB{DB: db, Name: DatabaseType}, true
	}
	return nil, false
}

// OpenResource wraps a Table. A table that cannot be introspected is not
// accepted, so discovery reports it as having no adapter.
func (Adapter) OpenResource(raw any) (resource.Resource, bool) {
	var t Table
	switch v := raw.(type) {
	case Table:
		t = v
	case *Table:
		if v == nil {
			return nil, false
		}
		t = *v
	default:
		return nil, false
	}
	if t.DB == nil {
		return nil, false
	}
	res, err := NewTableResource(t.DB, t.Name)
	if err != nil {
		return nil, false
	}
	return res, true
}

var (
	_ resource.Database = (*DB)(nil)
	_ resource.Adapter  = Adapter{}
)
