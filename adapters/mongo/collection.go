package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/autoadmin/core/resource"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// idField is the primary key of every collection.
const idField = "_id"

// Collection is a resource backed by one MongoDB collection.
type Collection struct {
	resource.BaseResource

	coll   *mongodriver.Collection
	name   string
	dbName string
}

// NewCollection samples up to sampleSize documents and infers the properties
// from the fields they contain.
func NewCollection(ctx context.Context, coll *mongodriver.Collection, sampleSize int) (*Collection, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetLimit(int64(sampleSize)))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", coll.Name(), err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sample of %s: %w", coll.Name(), err)
	}
	return newCollection(coll, coll.Name(), coll.Database().Name(), inferProperties(docs)), nil
}

func newCollection(coll *mongodriver.Collection, name, dbName string, props []resource.Property) *Collection {
	c := &Collection{coll: coll, name: name, dbName: dbName}
	c.SetProperties(props)
	return c
}

// inferProperties unions the fields of docs. The first type seen for a field
// wins; _id always comes first.
func inferProperties(docs []bson.M) []resource.Property {
	props := []resource.Property{resource.NewProperty(resource.PropertyOptions{
		Name:  idField,
		Label: "ID",
		ID:    true,
	})}
	seen := map[string]bool{idField: true}

	for _, doc := range docs {
		for _, key := range sortedKeys(doc) {
			if seen[key] {
				continue
			}
			seen[key] = true
			props = append(props, resource.NewProperty(resource.PropertyOptions{
				Name:     key,
				Type:     inferType(key, doc[key]),
				Position: len(props),
			}))
		}
	}
	return props
}

func sortedKeys(doc bson.M) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	// bson.M loses field order; sort for stable columns.
	sort.Strings(keys)
	return keys
}

func inferType(key string, v any) resource.PropertyType {
	if strings.Contains(strings.ToLower(key), "password") {
		return resource.PropertyPassword
	}
	switch v.(type) {
	case bool:
		return resource.PropertyBoolean
	case int32, int64, int:
		return resource.PropertyNumber
	case float64, primitive.Decimal128:
		return resource.PropertyFloat
	case primitive.DateTime, time.Time, primitive.Timestamp:
		return resource.PropertyDateTime
	case bson.M, bson.D, bson.A, map[string]any, []any:
		return resource.PropertyMixed
	}
	return resource.PropertyString
}

func (c *Collection) ID() string           { return c.name }
func (c *Collection) Name() string         { return resource.Humanize(c.name) }
func (c *Collection) DatabaseName() string { return c.dbName }
func (c *Collection) DatabaseType() string { return DatabaseType }

func (c *Collection) Parent() resource.Parent {
	return resource.Parent{Name: c.dbName, Icon: "database"}
}

// filterDoc converts an admin filter into a query document. Text matches are
// case-insensitive substrings; unknown paths are ignored.
func (c *Collection) filterDoc(filter resource.Filter) bson.M {
	doc := bson.M{}
	for path, value := range filter.Active() {
		p := c.Property(path)
		if p == nil {
			continue
		}
		if p.IsID() {
			doc[idField] = idMatch(value)
			continue
		}
		switch p.Type() {
		case resource.PropertyString, resource.PropertyTextarea, resource.PropertyRichText:
			doc[path] = primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
		case resource.PropertyBoolean:
			b, _ := strconv.ParseBool(value)
			doc[path] = b
		case resource.PropertyNumber, resource.PropertyFloat:
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				doc[path] = bson.M{"$in": bson.A{n, int32(n), float64(n)}}
			} else if f, err := strconv.ParseFloat(value, 64); err == nil {
				doc[path] = f
			} else {
				doc[path] = value
			}
		default:
			doc[path] = value
		}
	}
	return doc
}

// idMatch matches an id given as ObjectID hex or as the raw stored value.
func idMatch(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$in": bson.A{oid, id}}
	}
	return bson.M{"$eq": id}
}

func (c *Collection) sortDoc(s resource.Sort) (bson.D, error) {
	if s.Field == "" {
		return bson.D{{Key: idField, Value: 1}}, nil
	}
	if c.Property(s.Field) == nil {
		return nil, fmt.Errorf("find %s: unknown sort property %q", c.name, s.Field)
	}
	dir := 1
	if s.Direction == resource.Desc {
		dir = -1
	}
	return bson.D{{Key: s.Field, Value: dir}, {Key: idField, Value: 1}}, nil
}

func (c *Collection) Count(ctx context.Context, filter resource.Filter) (int, error) {
	n, err := c.coll.CountDocuments(ctx, c.filterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return int(n), nil
}

func (c *Collection) Find(ctx context.Context, filter resource.Filter, opts resource.FindOptions) ([]*resource.Record, error) {
	opts = opts.Normalize()
	order, err := c.sortDoc(opts.Sort)
	if err != nil {
		return nil, err
	}
	find := options.Find().
		SetSort(order).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	return c.query(ctx, c.filterDoc(filter), find)
}

func (c *Collection) FindOne(ctx context.Context, id string) (*resource.Record, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, bson.M{idField: idMatch(id)}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %s: %w", c.name, id, resource.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", c.name, id, err)
	}
	return resource.NewRecord(c, toParams(doc)), nil
}

func (c *Collection) FindMany(ctx context.Context, ids []string) ([]*resource.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in := bson.A{}
	for _, id := range ids {
		in = append(in, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			in = append(in, oid)
		}
	}
	records, err := c.query(ctx, bson.M{idField: bson.M{"$in": in}}, options.Find())
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

func (c *Collection) query(ctx context.Context, filter any, opts *options.FindOptions) ([]*resource.Record, error) {
	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	out := make([]*resource.Record, len(docs))
	for i, doc := range docs {
		out[i] = resource.NewRecord(c, toParams(doc))
	}
	return out, nil
}

func (c *Collection) Create(ctx context.Context, params resource.Params) (resource.Params, error) {
	doc := c.toDocument(params)
	if id := params.String(idField); id != "" {
		doc[idField] = parseID(id)
	}
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, c.translate("insert", err)
	}
	rec, err := c.FindOne(ctx, formatID(res.InsertedID))
	if err != nil {
		return nil, err
	}
	return rec.Params(), nil
}

func (c *Collection) Update(ctx context.Context, id string, params resource.Params) (resource.Params, error) {
	doc := c.toDocument(params)
	if len(doc) > 0 {
		res, err := c.coll.UpdateOne(ctx, bson.M{idField: idMatch(id)}, bson.M{"$set": doc})
		if err != nil {
			return nil, c.translate("update", err)
		}
		if res.MatchedCount == 0 {
			return nil, fmt.Errorf("%s %s: %w", c.name, id, resource.ErrNotFound)
		}
	}
	rec, err := c.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Params(), nil
}

func (c *Collection) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{idField: idMatch(id)})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.name, id, resource.ErrNotFound)
	}
	return nil
}

// toDocument keeps the known, non-id params.
func (c *Collection) toDocument(params resource.Params) bson.M {
	doc := bson.M{}
	for _, p := range c.Properties() {
		v, ok := params[p.Path()]
		if !ok || p.IsID() {
			continue
		}
		doc[p.Path()] = v
	}
	return doc
}

var dupKeyIndex = regexp.MustCompile(`index: (\S+?)(_-?1)* dup key`)

// translate turns duplicate key errors into validation errors.
func (c *Collection) translate(op string, err error) error {
	if !mongodriver.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", op, c.name, err)
	}
	verr := resource.NewValidationError(nil)
	if field := duplicateKeyField(err.Error()); field != "" && c.Property(field) != nil {
		return verr.Add(field, "unique", "is already taken")
	}
	verr.BaseError = &resource.PropertyError{Type: "unique", Message: "a record with the same key already exists"}
	return verr
}

// duplicateKeyField extracts the field of a single-field index from a
// message such as "E11000 ... index: email_1 dup key: { email: ... }".
func duplicateKeyField(msg string) string {
	m := dupKeyIndex.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func formatID(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(v)
}

// toParams converts a decoded document into plain Go values.
func toParams(doc bson.M) resource.Params {
	params := make(resource.Params, len(doc))
	for k, v := range doc {
		params[k] = plain(v)
	}
	return params
}

func plain(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case primitive.Decimal128:
		return val.String()
	case int32:
		return int64(val)
	case bson.M:
		return map[string]any(toParams(val))
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

var _ resource.Resource = (*Collection)(nil)
