package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FitnessGoalRepository struct {
	store *database.Store
	log   *observability.RepoLogger
	now   func() time.Time
}

func NewFitnessGoalRepository(store *database.Store, logger *slog.Logger) *FitnessGoalRepository {
	return &FitnessGoalRepository{
		store: store,
		log:   observability.NewRepoLogger(logger, database.FitnessGoalsCollection),
		now:   time.Now,
	}
}

func (r *FitnessGoalRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.FitnessGoal, error) {
	var goal models.FitnessGoal
	found, err := r.store.FindOne(ctx, database.FitnessGoalsCollection, bson.M{"user_id": userID}, &goal, database.QueryOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "read")
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	r.log.LogRead(ctx, map[string]any{"user_id": userID.Hex()})
	return &goal, nil
}

// Upsert creates the user's goal or replaces its fields.
func (r *FitnessGoalRepository) Upsert(ctx context.Context, userID primitive.ObjectID, in models.FitnessGoalInput) (UpsertResult, error) {
	res, err := upsert(ctx, r.store, database.FitnessGoalsCollection, bson.M{"user_id": userID}, in.Fields(), r.now().UTC())
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return UpsertResult{}, err
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": userID.Hex(), "operation": res.Operation})
	return res, nil
}

// UpdateFields applies a partial update to the user's existing goal.
func (r *FitnessGoalRepository) UpdateFields(ctx context.Context, userID primitive.ObjectID, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, ErrEmptyUpdate
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = r.now().UTC()

	res, err := r.store.UpdateOne(ctx, database.FitnessGoalsCollection, bson.M{"user_id": userID}, bson.M{"$set": set}, database.UpdateOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return 0, err
	}
	if res.MatchedCount == 0 {
		return 0, ErrNotFound
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": userID.Hex(), "fields": len(fields)})
	return res.ModifiedCount, nil
}

func (r *FitnessGoalRepository) SoftDelete(ctx context.Context, userID primitive.ObjectID) error {
	n, err := r.store.DeleteOne(ctx, database.FitnessGoalsCollection, bson.M{"user_id": userID}, database.DeleteOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	r.log.LogDelete(ctx, map[string]any{"user_id": userID.Hex()})
	return nil
}
