// Package memstore is an in-memory implementation of database.Collection for
// tests. It understands the query, update and aggregation shapes the
// repositories issue, enforces the unique indexes from database.Indexes, and
// hands back real *mongo.Cursor and *mongo.SingleResult values.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type uniqueIndex struct {
	name    string
	fields  []string
	partial bson.M
}

type Database struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// NewDatabase returns an empty database whose collections enforce the
// production unique indexes.
func NewDatabase() *Database {
	return &Database{collections: map[string]*Collection{}}
}

func (d *Database) Collection(name string) *Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c
	}
	c := &Collection{name: name}
	for _, spec := range database.Indexes() {
		if spec.Collection != name || spec.Model.Options == nil || spec.Model.Options.Unique == nil || !*spec.Model.Options.Unique {
			continue
		}
		idx := uniqueIndex{}
		if spec.Model.Options.Name != nil {
			idx.name = *spec.Model.Options.Name
		}
		if keys, ok := spec.Model.Keys.(bson.D); ok {
			for _, key := range keys {
				idx.fields = append(idx.fields, key.Key)
			}
		}
		if spec.Model.Options.PartialFilterExpression != nil {
			idx.partial = normalizeDoc(spec.Model.Options.PartialFilterExpression)
		}
		c.uniques = append(c.uniques, idx)
	}
	d.collections[name] = c
	return c
}

// NewStore wires a database.Store to this in-memory database.
func NewStore(db *Database, logger *slog.Logger) *database.Store {
	return database.NewStoreFromProvider(func(name string) database.Collection {
		return db.Collection(name)
	}, logger)
}

type Collection struct {
	mu      sync.Mutex
	name    string
	docs    []bson.M
	uniques []uniqueIndex
}

// Len returns the number of stored documents, soft-deleted ones included.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Raw returns copies of every stored document.
func (c *Collection) Raw() []bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bson.M, 0, len(c.docs))
	for _, doc := range c.docs {
		out = append(out, clone(doc))
	}
	return out
}

func (c *Collection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	doc := normalizeDoc(document)
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkUnique(doc, -1); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc["_id"]}, nil
}

func (c *Collection) FindOne(_ context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	var (
		projection interface{}
		sortSpec   interface{}
		skip       int64
	)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.Projection != nil {
			projection = opt.Projection
		}
		if opt.Sort != nil {
			sortSpec = opt.Sort
		}
		if opt.Skip != nil {
			skip = *opt.Skip
		}
	}

	docs := c.query(normalizeDoc(filter), sortSpec, skip, 1, projection)
	if len(docs) == 0 {
		return errorResult(mongo.ErrNoDocuments)
	}
	return mongo.NewSingleResultFromDocument(docs[0], nil, nil)
}

func (c *Collection) Find(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	var (
		projection interface{}
		sortSpec   interface{}
		skip       int64
		limit      int64
	)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.Projection != nil {
			projection = opt.Projection
		}
		if opt.Sort != nil {
			sortSpec = opt.Sort
		}
		if opt.Skip != nil {
			skip = *opt.Skip
		}
		if opt.Limit != nil {
			limit = *opt.Limit
		}
	}
	docs := c.query(normalizeDoc(filter), sortSpec, skip, limit, projection)
	return mongo.NewCursorFromDocuments(toInterfaces(docs), nil, nil)
}

func (c *Collection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.update(filter, update, false, upsertRequested(opts))
}

func (c *Collection) UpdateMany(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.update(filter, update, true, upsertRequested(opts))
}

func (c *Collection) update(filter, update interface{}, many, upsert bool) (*mongo.UpdateResult, error) {
	f := normalizeDoc(filter)
	u := normalizeDoc(update)

	c.mu.Lock()
	defer c.mu.Unlock()

	result := &mongo.UpdateResult{}
	for i, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		updated := clone(doc)
		changed, err := applyUpdate(updated, u, false)
		if err != nil {
			return nil, err
		}
		if err := c.checkUnique(updated, i); err != nil {
			return nil, err
		}
		c.docs[i] = updated
		result.MatchedCount++
		if changed {
			result.ModifiedCount++
		}
		if !many {
			return result, nil
		}
	}
	if result.MatchedCount > 0 || !upsert {
		return result, nil
	}

	doc := seedFromFilter(f)
	if _, err := applyUpdate(doc, u, true); err != nil {
		return nil, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, doc)
	result.UpsertedCount = 1
	result.UpsertedID = doc["_id"]
	return result, nil
}

func (c *Collection) FindOneAndUpdate(_ context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	var upsert, returnAfter bool
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.Upsert != nil {
			upsert = *opt.Upsert
		}
		if opt.ReturnDocument != nil {
			returnAfter = *opt.ReturnDocument == options.After
		}
	}
	f := normalizeDoc(filter)
	u := normalizeDoc(update)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		updated := clone(doc)
		if _, err := applyUpdate(updated, u, false); err != nil {
			return errorResult(err)
		}
		if err := c.checkUnique(updated, i); err != nil {
			return errorResult(err)
		}
		c.docs[i] = updated
		if returnAfter {
			return mongo.NewSingleResultFromDocument(clone(updated), nil, nil)
		}
		return mongo.NewSingleResultFromDocument(clone(doc), nil, nil)
	}
	if !upsert {
		return errorResult(mongo.ErrNoDocuments)
	}

	doc := seedFromFilter(f)
	if _, err := applyUpdate(doc, u, true); err != nil {
		return errorResult(err)
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return errorResult(err)
	}
	c.docs = append(c.docs, doc)
	if returnAfter {
		return mongo.NewSingleResultFromDocument(clone(doc), nil, nil)
	}
	return errorResult(mongo.ErrNoDocuments)
}

func (c *Collection) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.remove(filter, false), nil
}

func (c *Collection) DeleteMany(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.remove(filter, true), nil
}

func (c *Collection) remove(filter interface{}, many bool) *mongo.DeleteResult {
	f := normalizeDoc(filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.docs[:0:0]
	var deleted int64
	for _, doc := range c.docs {
		if matches(doc, f) && (many || deleted == 0) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return &mongo.DeleteResult{DeletedCount: deleted}
}

func (c *Collection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	return int64(len(c.query(normalizeDoc(filter), nil, 0, 0, nil))), nil
}

func (c *Collection) Aggregate(_ context.Context, pipeline interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	var stages []bson.D
	switch p := pipeline.(type) {
	case mongo.Pipeline:
		stages = p
	case []bson.D:
		stages = p
	default:
		return nil, fmt.Errorf("memstore: unsupported pipeline type %T", pipeline)
	}

	docs := c.query(bson.M{}, nil, 0, 0, nil)
	for _, stage := range stages {
		normalized := normalizeOrdered(stage)
		if len(normalized) != 1 {
			return nil, fmt.Errorf("memstore: stage must have exactly one operator")
		}
		var err error
		docs, err = runStage(docs, normalized[0].Key, normalized[0].Value)
		if err != nil {
			return nil, err
		}
	}
	return mongo.NewCursorFromDocuments(toInterfaces(docs), nil, nil)
}

func (c *Collection) query(filter bson.M, sortSpec interface{}, skip, limit int64, projection interface{}) []bson.M {
	c.mu.Lock()
	var out []bson.M
	for _, doc := range c.docs {
		if matches(doc, filter) {
			out = append(out, clone(doc))
		}
	}
	c.mu.Unlock()

	if sortSpec != nil {
		sortDocs(out, normalizeOrdered(sortSpec))
	}
	out = window(out, skip, limit)
	if projection != nil {
		proj := normalizeDoc(projection)
		for i := range out {
			out[i] = project(out[i], proj)
		}
	}
	return out
}

func (c *Collection) checkUnique(candidate bson.M, skip int) error {
	for _, idx := range c.uniques {
		if idx.partial != nil && !matches(candidate, idx.partial) {
			continue
		}
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			if idx.partial != nil && !matches(other, idx.partial) {
				continue
			}
			if sameKey(candidate, other, idx.fields) {
				return mongo.WriteException{WriteErrors: []mongo.WriteError{{
					Code: 11000,
					Message: fmt.Sprintf("E11000 duplicate key error collection: test.%s index: %s dup key: %v",
						c.name, idx.name, keyValues(candidate, idx.fields)),
				}}}
			}
		}
	}
	return nil
}

func sameKey(a, b bson.M, fields []string) bool {
	for _, field := range fields {
		av, _ := lookup(a, field)
		bv, _ := lookup(b, field)
		if !equal(av, bv) {
			return false
		}
	}
	return true
}

func keyValues(doc bson.M, fields []string) bson.M {
	out := bson.M{}
	for _, field := range fields {
		out[field], _ = lookup(doc, field)
	}
	return out
}

func errorResult(err error) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
}

func upsertRequested(opts []*options.UpdateOptions) bool {
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil && *opt.Upsert {
			return true
		}
	}
	return false
}

// seedFromFilter copies the plain equality conditions of an upsert filter into
// the new document, as the server does.
func seedFromFilter(filter bson.M) bson.M {
	doc := bson.M{}
	for key, cond := range filter {
		if len(key) > 0 && key[0] == '$' {
			continue
		}
		if m, ok := asMap(cond); ok && isOperatorDoc(m) {
			if eq, ok := m["$eq"]; ok {
				doc[key] = eq
			}
			continue
		}
		doc[key] = cond
	}
	return doc
}

func window(docs []bson.M, skip, limit int64) []bson.M {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

func sortDocs(docs []bson.M, spec bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range spec {
			dir := 1
			if n, ok := toFloat(key.Value); ok && n < 0 {
				dir = -1
			}
			a, _ := lookup(docs[i], key.Key)
			b, _ := lookup(docs[j], key.Key)
			cmp, ok := compare(a, b)
			if !ok || cmp == 0 {
				continue
			}
			return cmp*dir < 0
		}
		return false
	})
}

func project(doc bson.M, proj bson.M) bson.M {
	inclusive := false
	for key, v := range proj {
		if key != "_id" && truthy(v) {
			inclusive = true
			break
		}
	}
	if !inclusive {
		for key, v := range proj {
			if !truthy(v) {
				delete(doc, key)
			}
		}
		return doc
	}
	out := bson.M{}
	for key, v := range proj {
		if truthy(v) {
			if val, ok := doc[key]; ok {
				out[key] = val
			}
		}
	}
	if v, ok := proj["_id"]; !ok || truthy(v) {
		out["_id"] = doc["_id"]
	}
	return out
}

func toInterfaces(docs []bson.M) []interface{} {
	out := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc)
	}
	return out
}
