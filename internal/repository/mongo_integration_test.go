//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/database"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newMongoStore(t *testing.T) *database.Store {
	t.Helper()
	ctx := context.Background()

	container, err := mongocontainer.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := database.Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(context.Background(), client) })

	db := client.Database("fitness_integration")
	require.NoError(t, database.EnsureIndexes(ctx, db))
	return database.NewStore(db, nil)
}

func TestMongoUserUniquenessIgnoresDeletedAccounts(t *testing.T) {
	ctx := context.Background()
	store := newMongoStore(t)
	users := repository.NewUserRepository(store, nil)

	first := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, users.Create(ctx, first))

	err := users.Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, repository.ErrEmailTaken)
	err = users.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, repository.ErrUsernameTaken)

	require.NoError(t, users.UpdateStatus(ctx, first.ID, models.UserStatusDeleted))
	got, err := users.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusDeleted, got.Status)
}

func TestMongoPasswordResetTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := newMongoStore(t)
	users := repository.NewUserRepository(store, nil)

	user := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "old"}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, users.SetPasswordResetToken(ctx, user.ID, "token-hash", time.Now().Add(time.Hour)))

	id, err := users.ConsumePasswordResetToken(ctx, "token-hash", "new")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = users.ConsumePasswordResetToken(ctx, "token-hash", "newer")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMongoWorkoutLogUpsertAndProgress(t *testing.T) {
	ctx := context.Background()
	store := newMongoStore(t)
	logs := repository.NewWorkoutLogRepository(store, nil)
	userID := primitive.NewObjectID()

	day1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	res, err := logs.Upsert(ctx, userID, models.WorkoutLogInput{LogDate: day1, WorkoutContent: "run", TotalCaloriesBurnt: 500, AvgWorkoutDuration: 45})
	require.NoError(t, err)
	assert.Equal(t, repository.OperationCreate, res.Operation)

	res, err = logs.Upsert(ctx, userID, models.WorkoutLogInput{LogDate: day1, WorkoutContent: "long run", TotalCaloriesBurnt: 600, AvgWorkoutDuration: 50})
	require.NoError(t, err)
	assert.Equal(t, repository.OperationUpdate, res.Operation)

	_, err = logs.Upsert(ctx, userID, models.WorkoutLogInput{LogDate: day2, WorkoutContent: "swim", TotalCaloriesBurnt: 500, AvgWorkoutDuration: 45, TotalWeightLost: 0.75})
	require.NoError(t, err)

	totals, err := logs.TotalProgress(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1100.0, totals.TotalCaloriesBurnt)
	assert.Equal(t, int64(95), totals.TotalDuration)
	assert.Equal(t, int64(2), totals.TotalSessions)

	daily, err := logs.DailyProgress(ctx, userID)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].LogDate.Equal(day1))
	assert.True(t, daily[1].LogDate.Equal(day2))

	require.NoError(t, logs.DeleteByDate(ctx, userID, day2))
	_, err = logs.GetByDate(ctx, userID, day2)
	require.ErrorIs(t, err, repository.ErrNotFound)

	res, err = logs.Upsert(ctx, userID, models.WorkoutLogInput{LogDate: day2, WorkoutContent: "swim again", AvgWorkoutDuration: 30})
	require.NoError(t, err)
	assert.Equal(t, repository.OperationCreate, res.Operation)
}
