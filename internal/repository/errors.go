package repository

import (
	"context"
	"errors"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmptyUpdate   = errors.New("no fields to update provided")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidRole   = errors.New("invalid role")
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

// UpsertResult describes the outcome of a create-or-update call.
type UpsertResult struct {
	Operation     string             `json:"operation"`
	ID            primitive.ObjectID `json:"id"`
	MatchedCount  int64              `json:"matched_count"`
	ModifiedCount int64              `json:"modified_count"`
}

// upsert writes fields into the single document selected by filter, creating
// it when absent and reviving it when soft-deleted. The create/update label
// comes from the pre-image returned by the write itself, so two racing callers
// can never both report create. The unique index on the filter keys turns a
// lost insert race into a duplicate key, and the retry then updates the
// winner's document.
func upsert(ctx context.Context, store *database.Store, collection string, filter bson.M, fields map[string]any, now time.Time) (UpsertResult, error) {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = now
	set[database.FieldIsDeleted] = false
	newID := primitive.NewObjectID()
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": newID, "created_at": now},
		"$unset":       bson.M{database.FieldDeletedAt: ""},
	}

	var before struct {
		ID        primitive.ObjectID `bson:"_id"`
		IsDeleted bool               `bson:"is_deleted"`
	}
	opts := database.UpdateOptions{IncludeDeleted: true, Upsert: true}
	found, err := store.FindOneAndUpdate(ctx, collection, filter, update, &before, opts)
	if errors.Is(err, database.ErrDuplicateKey) {
		found, err = store.FindOneAndUpdate(ctx, collection, filter, update, &before, opts)
	}
	if err != nil {
		return UpsertResult{}, err
	}

	if !found {
		return UpsertResult{Operation: OperationCreate, ID: newID}, nil
	}
	out := UpsertResult{
		Operation:     OperationUpdate,
		ID:            before.ID,
		MatchedCount:  1,
		ModifiedCount: 1,
	}
	if before.IsDeleted {
		out.Operation = OperationCreate
	}
	return out, nil
}
