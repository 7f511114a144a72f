package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection            = "users"
	FitnessGoalsCollection     = "fitness_goals"
	DailyWorkoutLogsCollection = "daily_workout_logs"
)

type IndexSpec struct {
	Collection string
	Model      mongo.IndexModel
}

// Indexes lists the unique constraints every access object depends on. User
// uniqueness only applies to documents that are not soft-deleted.
func Indexes() []IndexSpec {
	liveOnly := bson.M{FieldIsDeleted: false}
	return []IndexSpec{
		{
			Collection: UsersCollection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_1").SetUnique(true).SetPartialFilterExpression(liveOnly),
			},
		},
		{
			Collection: UsersCollection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("username_1").SetUnique(true).SetPartialFilterExpression(liveOnly),
			},
		},
		{
			Collection: UsersCollection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "reset_token", Value: 1}},
				Options: options.Index().SetName("reset_token_1").SetSparse(true),
			},
		},
		{
			Collection: FitnessGoalsCollection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id_1").SetUnique(true),
			},
		},
		{
			Collection: DailyWorkoutLogsCollection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "log_date", Value: 1}},
				Options: options.Index().SetName("user_id_1_log_date_1").SetUnique(true),
			},
		},
	}
}

// EnsureIndexes creates every index in Indexes. Creating an existing index
// with identical options is a no-op on the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range Indexes() {
		if _, err := db.Collection(spec.Collection).Indexes().CreateOne(ctx, spec.Model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.Collection, err)
		}
	}
	return nil
}

// DropIndexes removes the indexes created by EnsureIndexes.
func DropIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range Indexes() {
		name := ""
		if spec.Model.Options != nil && spec.Model.Options.Name != nil {
			name = *spec.Model.Options.Name
		}
		if name == "" {
			continue
		}
		if _, err := db.Collection(spec.Collection).Indexes().DropOne(ctx, name); err != nil {
			var cmdErr mongo.CommandError
			if errors.As(err, &cmdErr) && cmdErr.Name == "IndexNotFound" {
				continue
			}
			return fmt.Errorf("drop index %s on %s: %w", name, spec.Collection, err)
		}
	}
	return nil
}
