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
	"go.mongodb.org/mongo-driver/mongo"
)

type WorkoutLogRepository struct {
	store *database.Store
	log   *observability.RepoLogger
	now   func() time.Time
}

func NewWorkoutLogRepository(store *database.Store, logger *slog.Logger) *WorkoutLogRepository {
	return &WorkoutLogRepository{
		store: store,
		log:   observability.NewRepoLogger(logger, database.DailyWorkoutLogsCollection),
		now:   time.Now,
	}
}

func logKey(userID primitive.ObjectID, day time.Time) bson.M {
	return bson.M{"user_id": userID, "log_date": models.LogDay(day)}
}

func (r *WorkoutLogRepository) GetByDate(ctx context.Context, userID primitive.ObjectID, day time.Time) (*models.DailyWorkoutLog, error) {
	var entry models.DailyWorkoutLog
	found, err := r.store.FindOne(ctx, database.DailyWorkoutLogsCollection, logKey(userID, day), &entry, database.QueryOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "read")
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	r.log.LogRead(ctx, map[string]any{"user_id": userID.Hex(), "log_date": entry.LogDate.Format(models.LogDateLayout)})
	return &entry, nil
}

// Upsert creates or replaces the log for the user and in.LogDate.
func (r *WorkoutLogRepository) Upsert(ctx context.Context, userID primitive.ObjectID, in models.WorkoutLogInput) (UpsertResult, error) {
	res, err := upsert(ctx, r.store, database.DailyWorkoutLogsCollection, logKey(userID, in.LogDate), in.Fields(), r.now().UTC())
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return UpsertResult{}, err
	}
	r.log.LogUpdate(ctx, map[string]any{
		"user_id":   userID.Hex(),
		"log_date":  models.LogDay(in.LogDate).Format(models.LogDateLayout),
		"operation": res.Operation,
	})
	return res, nil
}

func (r *WorkoutLogRepository) UpdateFields(ctx context.Context, userID primitive.ObjectID, day time.Time, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, ErrEmptyUpdate
	}
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = r.now().UTC()

	res, err := r.store.UpdateOne(ctx, database.DailyWorkoutLogsCollection, logKey(userID, day), bson.M{"$set": set}, database.UpdateOptions{})
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

func (r *WorkoutLogRepository) DeleteByDate(ctx context.Context, userID primitive.ObjectID, day time.Time) error {
	n, err := r.store.DeleteOne(ctx, database.DailyWorkoutLogsCollection, logKey(userID, day), database.DeleteOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	r.log.LogDelete(ctx, map[string]any{"user_id": userID.Hex(), "log_date": models.LogDay(day).Format(models.LogDateLayout)})
	return nil
}

// DeleteAllForUser soft-deletes every log of the user and returns how many were affected.
func (r *WorkoutLogRepository) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := r.store.DeleteMany(ctx, database.DailyWorkoutLogsCollection, bson.M{"user_id": userID}, database.DeleteOptions{})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return 0, err
	}
	r.log.LogDelete(ctx, map[string]any{"user_id": userID.Hex(), "count": n})
	return n, nil
}

// List returns one page of the user's logs, newest first, and the total count.
func (r *WorkoutLogRepository) List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DailyWorkoutLog, int64, error) {
	filter := bson.M{"user_id": userID}
	total, err := r.store.CountDocuments(ctx, database.DailyWorkoutLogsCollection, filter, false)
	if err != nil {
		r.log.LogError(ctx, err, "count")
		return nil, 0, err
	}

	entries := []models.DailyWorkoutLog{}
	err = r.store.FindMany(ctx, database.DailyWorkoutLogsCollection, filter, &entries, database.QueryOptions{
		Sort:  bson.D{{Key: "log_date", Value: -1}},
		Limit: int64(limit),
		Skip:  int64((page - 1) * limit),
	})
	if err != nil {
		r.log.LogError(ctx, err, "read")
		return nil, 0, err
	}
	return entries, total, nil
}

// TotalProgress sums weight lost, calories and duration over all of the
// user's logs and counts them as sessions.
func (r *WorkoutLogRepository) TotalProgress(ctx context.Context, userID primitive.ObjectID) (models.TotalProgress, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":                  "$user_id",
			"total_weight_lost":    bson.M{"$sum": "$total_weight_lost"},
			"total_calories_burnt": bson.M{"$sum": "$total_calories_burnt"},
			"total_duration":       bson.M{"$sum": "$avg_workout_duration"},
			"total_sessions":       bson.M{"$sum": 1},
		}}},
	}

	var rows []models.TotalProgress
	if err := r.store.Aggregate(ctx, database.DailyWorkoutLogsCollection, pipeline, &rows, false); err != nil {
		r.log.LogError(ctx, err, "aggregate")
		return models.TotalProgress{}, err
	}
	if len(rows) == 0 {
		return models.TotalProgress{}, nil
	}
	return rows[0], nil
}

// DailyProgress sums duration and calories per log date, oldest first.
func (r *WorkoutLogRepository) DailyProgress(ctx context.Context, userID primitive.ObjectID) ([]models.DailyProgress, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":                  "$log_date",
			"total_workout_time":   bson.M{"$sum": "$avg_workout_duration"},
			"total_calories_burnt": bson.M{"$sum": "$total_calories_burnt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	rows := []models.DailyProgress{}
	if err := r.store.Aggregate(ctx, database.DailyWorkoutLogsCollection, pipeline, &rows, false); err != nil {
		r.log.LogError(ctx, err, "aggregate")
		return nil, err
	}
	return rows, nil
}
