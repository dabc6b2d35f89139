package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/autoadmin/core/resource"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// rowidColumn identifies rows of tables without a declared primary key.
const rowidColumn = "rowid"

// TableResource is a resource backed by one SQLite table.
type TableResource struct {
	resource.BaseResource

	db      *DB
	table   string
	pk      string
	autoInc bool
	columns []string
}

type columnInfo struct {
	name     string
	declType string
	notNull  bool
	hasDflt  bool
	pk       int
}

// NewTableResource introspects a table with PRAGMA table_info and
// PRAGMA foreign_key_list.
func NewTableResource(db *DB, table string) (*TableResource, error) {
	ctx := context.Background()
	cols, err := tableInfo(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q does not exist", table)
	}
	refs, err := foreignKeys(ctx, db, table)
	if err != nil {
		return nil, err
	}

	t := &TableResource{db: db, table: table}
	for _, c := range cols {
		if c.pk == 1 {
			t.pk = c.name
			t.autoInc = strings.EqualFold(c.declType, "INTEGER")
		}
	}

	var props []resource.Property
	if t.pk == "" {
		t.pk = rowidColumn
		t.autoInc = true
		t.columns = append(t.columns, rowidColumn)
		props = append(props, resource.NewProperty(resource.PropertyOptions{
			Name:     rowidColumn,
			Label:    "ID",
			Type:     resource.PropertyNumber,
			ID:       true,
			Position: 0,
		}))
	}
	for i, c := range cols {
		t.columns = append(t.columns, c.name)
		opts := resource.PropertyOptions{
			Name:      c.name,
			Type:      propertyType(c.name, c.declType),
			ID:        c.name == t.pk,
			Required:  c.notNull && !c.hasDflt && c.pk == 0,
			Reference: refs[c.name],
			Position:  i + 1,
		}
		if opts.ID && !t.autoInc {
			editable := true
			opts.Editable = &editable
		}
		props = append(props, resource.NewProperty(opts))
	}
	t.SetProperties(props)
	return t, nil
}

func tableInfo(ctx context.Context, db *DB, table string) ([]columnInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quote(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid  int
			c    columnInfo
			dflt sql.NullString
		)
		if err := rows.Scan(&cid, &c.name, &c.declType, &c.notNull, &dflt, &c.pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		c.hasDflt = dflt.Valid
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func foreignKeys(ctx context.Context, db *DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+quote(table)+")")
	if err != nil {
		return nil, fmt.Errorf("foreign keys %s: %w", table, err)
	}
	defer rows.Close()

	refs := make(map[string]string)
	for rows.Next() {
		var (
			id, seq                               int
			target, from                          string
			to, onUpdate, onDelete, matchStrategy sql.NullString
		)
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete, &matchStrategy); err != nil {
			return nil, fmt.Errorf("scan foreign key of %s: %w", table, err)
		}
		refs[from] = target
	}
	return refs, rows.Err()
}

// propertyType maps a declared column type to a property type, following
// SQLite's affinity rules with a few common names on top.
func propertyType(column, declType string) resource.PropertyType {
	t := strings.ToUpper(declType)
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "password"):
		return resource.PropertyPassword
	case strings.HasPrefix(t, "BOOL"):
		return resource.PropertyBoolean
	case t == "DATE":
		return resource.PropertyDate
	case strings.Contains(t, "DATETIME"), strings.Contains(t, "TIMESTAMP"):
		return resource.PropertyDateTime
	case strings.Contains(t, "JSON"):
		return resource.PropertyMixed
	case strings.Contains(t, "INT"):
		return resource.PropertyNumber
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return resource.PropertyFloat
	case t == "TEXT" && (name == "body" || name == "description" || name == "content"):
		return resource.PropertyTextarea
	}
	return resource.PropertyString
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (t *TableResource) ID() string           { return t.table }
func (t *TableResource) Name() string         { return resource.Humanize(t.table) }
func (t *TableResource) DatabaseName() string { return t.db.Name }
func (t *TableResource) DatabaseType() string { return DatabaseType }

func (t *TableResource) Parent() resource.Parent {
	return resource.Parent{Name: t.db.Name, Icon: "database"}
}

func (t *TableResource) selectList() string {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = quote(c)
	}
	return strings.Join(cols, ", ")
}

// where builds the WHERE clause of a filter. Unknown paths are ignored.
func (t *TableResource) where(filter resource.Filter) (string, []any) {
	var conds []string
	var args []any
	for path, value := range filter.Active() {
		p := t.Property(path)
		if p == nil {
			continue
		}
		switch p.Type() {
		case resource.PropertyString, resource.PropertyTextarea, resource.PropertyRichText:
			conds = append(conds, quote(path)+" LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(value)+"%")
		case resource.PropertyBoolean:
			b, _ := strconv.ParseBool(value)
			conds = append(conds, quote(path)+" = ?")
			args = append(args, b)
		default:
			conds = append(conds, quote(path)+" = ?")
			args = append(args, value)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (t *TableResource) Count(ctx context.Context, filter resource.Filter) (int, error) {
	where, args := t.where(filter)
	var n int
	err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(t.table)+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.table, err)
	}
	return n, nil
}

func (t *TableResource) Find(ctx context.Context, filter resource.Filter, opts resource.FindOptions) ([]*resource.Record, error) {
	opts = opts.Normalize()
	where, args := t.where(filter)

	order := quote(t.pk) + " ASC"
	if opts.Sort.Field != "" {
		if t.Property(opts.Sort.Field) == nil {
			return nil, fmt.Errorf("find %s: unknown sort property %q", t.table, opts.Sort.Field)
		}
		dir := "ASC"
		if opts.Sort.Direction == resource.Desc {
			dir = "DESC"
		}
		order = quote(opts.Sort.Field) + " " + dir
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT ? OFFSET ?",
		t.selectList(), quote(t.table), where, order)
	args = append(args, opts.Limit, opts.Offset)
	return t.query(ctx, query, args...)
}

func (t *TableResource) FindOne(ctx context.Context, id string) (*resource.Record, error) {
	records, err := t.query(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.selectList(), quote(t.table), quote(t.pk)), id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s %s: %w", t.table, id, resource.ErrNotFound)
	}
	return records[0], nil
}

func (t *TableResource) FindMany(ctx context.Context, ids []string) ([]*resource.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	records, err := t.query(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		t.selectList(), quote(t.table), quote(t.pk), placeholders), args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*resource.Record, len(records))
	for _, r := range records {
		byID[r.ID()] = r
	}
	out := make([]*resource.Record, 0, len(records))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *TableResource) query(ctx context.Context, query string, args ...any) ([]*resource.Record, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []*resource.Record
	for rows.Next() {
		values := make([]any, len(t.columns))
		dest := make([]any, len(t.columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		params := make(resource.Params, len(t.columns))
		for i, col := range t.columns {
			params[col] = convertFromDB(values[i], t.Property(col))
		}
		out = append(out, resource.NewRecord(t, params))
	}
	return out, rows.Err()
}

func (t *TableResource) Create(ctx context.Context, params resource.Params) (resource.Params, error) {
	if err := t.validateRequired(params); err != nil {
		return nil, err
	}

	id := params.String(t.pk)
	if id == "" && !t.autoInc {
		id = uuid.NewString()
	}

	var cols, marks []string
	var args []any
	if id != "" {
		cols, marks, args = append(cols, quote(t.pk)), append(marks, "?"), append(args, id)
	}
	for _, p := range t.Properties() {
		v, ok := params[p.Path()]
		if !ok || p.IsID() {
			continue
		}
		cols = append(cols, quote(p.Path()))
		marks = append(marks, "?")
		args = append(args, convertValue(v, p))
	}

	var query string
	if len(cols) == 0 {
		query = "INSERT INTO " + quote(t.table) + " DEFAULT VALUES"
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(t.table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, t.translate("insert", err)
	}
	if id == "" {
		last, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert %s: last id: %w", t.table, err)
		}
		id = strconv.FormatInt(last, 10)
	}

	rec, err := t.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Params(), nil
}

func (t *TableResource) Update(ctx context.Context, id string, params resource.Params) (resource.Params, error) {
	if err := t.validatePresent(params); err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	for _, p := range t.Properties() {
		v, ok := params[p.Path()]
		if !ok || p.IsID() {
			continue
		}
		sets = append(sets, quote(p.Path())+" = ?")
		args = append(args, convertValue(v, p))
	}

	if len(sets) > 0 {
		args = append(args, id)
		res, err := t.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			quote(t.table), strings.Join(sets, ", "), quote(t.pk)), args...)
		if err != nil {
			return nil, t.translate("update", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%s %s: %w", t.table, id, resource.ErrNotFound)
		}
	}

	rec, err := t.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Params(), nil
}

func (t *TableResource) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(t.table), quote(t.pk)), id)
	if err != nil {
		return t.translate("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", t.table, id, resource.ErrNotFound)
	}
	return nil
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func (t *TableResource) validateRequired(params resource.Params) error {
	verr := resource.NewValidationError(nil)
	for _, p := range t.Properties() {
		if p.IsRequired() && blank(params[p.Path()]) {
			verr.Add(p.Path(), "required", "is required")
		}
	}
	if len(verr.PropertyErrors) > 0 {
		return verr
	}
	return nil
}

func (t *TableResource) validatePresent(params resource.Params) error {
	verr := resource.NewValidationError(nil)
	for _, p := range t.Properties() {
		if v, ok := params[p.Path()]; ok && p.IsRequired() && blank(v) {
			verr.Add(p.Path(), "required", "is required")
		}
	}
	if len(verr.PropertyErrors) > 0 {
		return verr
	}
	return nil
}

// translate turns constraint failures into validation errors.
func (t *TableResource) translate(op string, err error) error {
	var serr sqlite3.Error
	if !errors.As(err, &serr) || serr.Code != sqlite3.ErrConstraint {
		return fmt.Errorf("%s %s: %w", op, t.table, err)
	}

	column := constraintColumn(serr.Error())
	verr := resource.NewValidationError(nil)
	switch serr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		if column != "" {
			return verr.Add(column, "unique", "is already taken")
		}
	case sqlite3.ErrConstraintNotNull:
		if column != "" {
			return verr.Add(column, "required", "is required")
		}
	case sqlite3.ErrConstraintForeignKey:
		verr.BaseError = &resource.PropertyError{Type: "reference", Message: "references a record that does not exist or is still referenced"}
		return verr
	}
	verr.BaseError = &resource.PropertyError{Type: "constraint", Message: serr.Error()}
	return verr
}

// constraintColumn extracts the column from messages such as
// "UNIQUE constraint failed: users.email".
func constraintColumn(msg string) string {
	i := strings.LastIndex(msg, ": ")
	if i < 0 {
		return ""
	}
	target := msg[i+2:]
	if j := strings.IndexByte(target, ','); j >= 0 {
		target = target[:j]
	}
	if j := strings.LastIndexByte(target, '.'); j >= 0 {
		return strings.TrimSpace(target[j+1:])
	}
	return ""
}

// convertValue converts a Go value to a database value.
func convertValue(val any, p resource.Property) any {
	if val == nil {
		return nil
	}
	switch p.Type() {
	case resource.PropertyBoolean:
		switch v := val.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if b, err := strconv.ParseBool(v); err == nil && b {
				return 1
			}
			return 0
		}
	case resource.PropertyMixed:
		if _, ok := val.(string); !ok {
			if b, err := json.Marshal(val); err == nil {
				return string(b)
			}
		}
	case resource.PropertyDate, resource.PropertyDateTime:
		if v, ok := val.(time.Time); ok {
			return v.UTC()
		}
	}
	return val
}

// convertFromDB converts a database value to a Go value.
func convertFromDB(val any, p resource.Property) any {
	if val == nil {
		return nil
	}
	if b, ok := val.([]byte); ok {
		val = string(b)
	}
	if p == nil {
		return val
	}
	switch p.Type() {
	case resource.PropertyBoolean:
		switch v := val.(type) {
		case int64:
			return v != 0
		case string:
			b, _ := strconv.ParseBool(v)
			return b
		}
	case resource.PropertyMixed:
		if s, ok := val.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		}
	}
	return val
}

var _ resource.Resource = (*TableResource)(nil)
