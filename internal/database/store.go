package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	FieldIsDeleted = "is_deleted"
	FieldDeletedAt = "deleted_at"
)

var (
	ErrInvalidUpdate = errors.New("invalid update document")
	ErrDuplicateKey  = errors.New("duplicate key")
)

// StorageError wraps a driver failure with the operation and collection it came from.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DuplicateKeyError is returned when a write violates a unique index.
// errors.Is(err, ErrDuplicateKey) matches it.
type DuplicateKeyError struct {
	Collection string
	Index      string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key in %s (index %s)", e.Collection, e.Index)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

var duplicateIndexPattern = regexp.MustCompile(`index: (\S+)`)

// Collection is the subset of *mongo.Collection the store relies on.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// Store is the collection-agnostic document access layer. Every read hides
// soft-deleted documents unless the caller opts in, and every delete is soft
// unless the caller opts out.
type Store struct {
	collection func(name string) Collection
	logger     *slog.Logger
	now        func() time.Time
}

func NewStore(db *mongo.Database, logger *slog.Logger) *Store {
	return NewStoreFromProvider(func(name string) Collection {
		return db.Collection(name)
	}, logger)
}

func NewStoreFromProvider(provider func(name string) Collection, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		collection: provider,
		logger:     logger,
		now:        time.Now,
	}
}

type QueryOptions struct {
	IncludeDeleted bool
	Projection     bson.M
	Sort           bson.D
	Limit          int64
	Skip           int64
}

type UpdateOptions struct {
	IncludeDeleted bool
	Upsert         bool
}

type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedID    primitive.ObjectID
}

func (r UpdateResult) Upserted() bool {
	return !r.UpsertedID.IsZero()
}

type DeleteOptions struct {
	Hard bool
}

// InsertOne stamps is_deleted=false and returns the document id, generating
// one when the document has none.
func (s *Store) InsertOne(ctx context.Context, collection string, doc any) (primitive.ObjectID, error) {
	defer s.observe("insert_one", collection)()

	m, err := toDocument(doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("encode document: %w", err)
	}
	id, ok := m["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		m["_id"] = id
	}
	m[FieldIsDeleted] = false

	if _, err := s.collection(collection).InsertOne(ctx, m); err != nil {
		return primitive.NilObjectID, s.fail(ctx, "insert_one", collection, err)
	}
	return id, nil
}

// FindOne decodes the first visible match into out. A missing document is
// reported as found=false with a nil error.
func (s *Store) FindOne(ctx context.Context, collection string, filter bson.M, out any, opts QueryOptions) (bool, error) {
	defer s.observe("find_one", collection)()

	findOpts := options.FindOne()
	if opts.Projection != nil {
		findOpts.SetProjection(opts.Projection)
	}
	if opts.Sort != nil {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	err := s.collection(collection).FindOne(ctx, visible(filter, opts.IncludeDeleted), findOpts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, s.fail(ctx, "find_one", collection, err)
	}
	return true, nil
}

// FindMany decodes all visible matches into out, which must be a pointer to a slice.
func (s *Store) FindMany(ctx context.Context, collection string, filter bson.M, out any, opts QueryOptions) error {
	defer s.observe("find_many", collection)()

	findOpts := options.Find()
	if opts.Projection != nil {
		findOpts.SetProjection(opts.Projection)
	}
	if opts.Sort != nil {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	cursor, err := s.collection(collection).Find(ctx, visible(filter, opts.IncludeDeleted), findOpts)
	if err != nil {
		return s.fail(ctx, "find_many", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return s.fail(ctx, "find_many", collection, err)
	}
	return nil
}

// UpdateOne applies update to the first visible match. A plain field map is
// wrapped in $set; operator documents are passed through after validation.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter bson.M, update bson.M, opts UpdateOptions) (UpdateResult, error) {
	return s.update(ctx, "update_one", collection, filter, update, opts)
}

func (s *Store) UpdateMany(ctx context.Context, collection string, filter bson.M, update bson.M, opts UpdateOptions) (UpdateResult, error) {
	return s.update(ctx, "update_many", collection, filter, update, opts)
}

func (s *Store) update(ctx context.Context, op, collection string, filter bson.M, update bson.M, opts UpdateOptions) (UpdateResult, error) {
	doc, err := normalizeUpdate(update)
	if err != nil {
		return UpdateResult{}, err
	}
	defer s.observe(op, collection)()

	updateOpts := options.Update()
	if opts.Upsert {
		updateOpts.SetUpsert(true)
	}

	coll := s.collection(collection)
	var res *mongo.UpdateResult
	if op == "update_many" {
		res, err = coll.UpdateMany(ctx, visible(filter, opts.IncludeDeleted), doc, updateOpts)
	} else {
		res, err = coll.UpdateOne(ctx, visible(filter, opts.IncludeDeleted), doc, updateOpts)
	}
	if err != nil {
		return UpdateResult{}, s.fail(ctx, op, collection, err)
	}

	result := UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		result.UpsertedID = id
	}
	return result, nil
}

// FindOneAndUpdate applies update to the first visible match and decodes the
// document as it was before the write into before. found=false means nothing
// matched, and with opts.Upsert the write inserted a new document.
func (s *Store) FindOneAndUpdate(ctx context.Context, collection string, filter bson.M, update bson.M, before any, opts UpdateOptions) (bool, error) {
	doc, err := normalizeUpdate(update)
	if err != nil {
		return false, err
	}
	defer s.observe("find_one_and_update", collection)()

	findOpts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	if opts.Upsert {
		findOpts.SetUpsert(true)
	}

	err = s.collection(collection).FindOneAndUpdate(ctx, visible(filter, opts.IncludeDeleted), doc, findOpts).Decode(before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, s.fail(ctx, "find_one_and_update", collection, err)
	}
	return true, nil
}

// DeleteOne flags the first visible match as deleted, or removes it when
// opts.Hard is set. It returns the number of affected documents.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter bson.M, opts DeleteOptions) (int64, error) {
	return s.delete(ctx, false, collection, filter, opts)
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter bson.M, opts DeleteOptions) (int64, error) {
	return s.delete(ctx, true, collection, filter, opts)
}

func (s *Store) delete(ctx context.Context, many bool, collection string, filter bson.M, opts DeleteOptions) (int64, error) {
	if !opts.Hard {
		soft := bson.M{"$set": bson.M{FieldIsDeleted: true, FieldDeletedAt: s.now().UTC()}}
		var (
			res UpdateResult
			err error
		)
		if many {
			res, err = s.UpdateMany(ctx, collection, filter, soft, UpdateOptions{})
		} else {
			res, err = s.UpdateOne(ctx, collection, filter, soft, UpdateOptions{})
		}
		return res.MatchedCount, err
	}

	op := "delete_one"
	if many {
		op = "delete_many"
	}
	defer s.observe(op, collection)()

	coll := s.collection(collection)
	var (
		res *mongo.DeleteResult
		err error
	)
	if many {
		res, err = coll.DeleteMany(ctx, filter)
	} else {
		res, err = coll.DeleteOne(ctx, filter)
	}
	if err != nil {
		return 0, s.fail(ctx, op, collection, err)
	}
	return res.DeletedCount, nil
}

func (s *Store) CountDocuments(ctx context.Context, collection string, filter bson.M, includeDeleted bool) (int64, error) {
	defer s.observe("count_documents", collection)()

	count, err := s.collection(collection).CountDocuments(ctx, visible(filter, includeDeleted))
	if err != nil {
		return 0, s.fail(ctx, "count_documents", collection, err)
	}
	return count, nil
}

// Aggregate runs pipeline and decodes the results into out. Soft-deleted
// documents are filtered out by a leading $match unless includeDeleted is set.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline, out any, includeDeleted bool) error {
	defer s.observe("aggregate", collection)()

	stages := pipeline
	if !includeDeleted {
		stages = append(mongo.Pipeline{{{Key: "$match", Value: bson.M{FieldIsDeleted: false}}}}, pipeline...)
	}

	cursor, err := s.collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return s.fail(ctx, "aggregate", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return s.fail(ctx, "aggregate", collection, err)
	}
	return nil
}

func (s *Store) observe(op, collection string) func() {
	start := time.Now()
	return func() {
		observability.DatabaseOperationLatency.WithLabelValues(op, collection).Observe(time.Since(start).Seconds())
	}
}

func (s *Store) fail(ctx context.Context, op, collection string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		index := ""
		if match := duplicateIndexPattern.FindStringSubmatch(err.Error()); len(match) == 2 {
			index = match[1]
		}
		return &DuplicateKeyError{Collection: collection, Index: index, Err: err}
	}

	observability.DatabaseErrors.WithLabelValues(op, collection).Inc()
	s.logger.ErrorContext(ctx, "document store operation failed",
		slog.String("operation", op),
		slog.String("collection", collection),
		slog.String("correlation_id", observability.CorrelationID(ctx)),
		slog.String("error", err.Error()),
	)
	return &StorageError{Op: op, Collection: collection, Err: err}
}

// visible returns a copy of filter restricted to non-deleted documents unless
// includeDeleted is set or the caller already constrains is_deleted.
func visible(filter bson.M, includeDeleted bool) bson.M {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	if includeDeleted {
		return out
	}
	if _, ok := out[FieldIsDeleted]; !ok {
		out[FieldIsDeleted] = false
	}
	return out
}

// normalizeUpdate rejects empty, mixed and double-wrapped update documents.
func normalizeUpdate(update bson.M) (bson.M, error) {
	if len(update) == 0 {
		return nil, fmt.Errorf("%w: update document is empty", ErrInvalidUpdate)
	}

	operators := 0
	for key := range update {
		if strings.HasPrefix(key, "$") {
			operators++
		}
	}
	if operators == 0 {
		return bson.M{"$set": update}, nil
	}
	if operators != len(update) {
		return nil, fmt.Errorf("%w: update mixes operators and plain fields", ErrInvalidUpdate)
	}

	for op, body := range update {
		fields, ok := asFieldMap(body)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a document", ErrInvalidUpdate, op)
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalidUpdate, op)
		}
		for _, key := range fields {
			if strings.HasPrefix(key, "$") {
				return nil, fmt.Errorf("%w: %s contains nested operator %s", ErrInvalidUpdate, op, key)
			}
		}
	}
	return update, nil
}

func asFieldMap(body any) ([]string, bool) {
	switch v := body.(type) {
	case bson.M:
		return mapKeys(v), true
	case map[string]any:
		return mapKeys(v), true
	case bson.D:
		keys := make([]string, 0, len(v))
		for _, elem := range v {
			keys = append(keys, elem.Key)
		}
		return keys, true
	default:
		return nil, false
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func toDocument(doc any) (bson.M, error) {
	if m, ok := doc.(bson.M); ok {
		out := make(bson.M, len(m)+1)
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
