package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/locojk/GNG-5300-Group-Backend/internal/audit"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type workoutLogStore interface {
	GetByDate(ctx context.Context, userID primitive.ObjectID, day time.Time) (*models.DailyWorkoutLog, error)
	Upsert(ctx context.Context, userID primitive.ObjectID, in models.WorkoutLogInput) (repository.UpsertResult, error)
	UpdateFields(ctx context.Context, userID primitive.ObjectID, day time.Time, fields map[string]any) (int64, error)
	DeleteByDate(ctx context.Context, userID primitive.ObjectID, day time.Time) error
	List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DailyWorkoutLog, int64, error)
	TotalProgress(ctx context.Context, userID primitive.ObjectID) (models.TotalProgress, error)
	DailyProgress(ctx context.Context, userID primitive.ObjectID) ([]models.DailyProgress, error)
}

type WorkoutLogService struct {
	logs  workoutLogStore
	audit *audit.Recorder
	now   func() time.Time
}

func NewWorkoutLogService(logs workoutLogStore, recorder *audit.Recorder) *WorkoutLogService {
	return &WorkoutLogService{logs: logs, audit: recorder, now: time.Now}
}

// Today is the log date used when a request omits one.
func (s *WorkoutLogService) Today() time.Time {
	return models.LogDay(s.now())
}

func (s *WorkoutLogService) Get(ctx context.Context, userID primitive.ObjectID, day time.Time) (*models.DailyWorkoutLog, error) {
	entry, err := s.logs.GetByDate(ctx, userID, day)
	if err != nil {
		return nil, logError(err)
	}
	return entry, nil
}

// Upsert writes the log for in.LogDate, today when unset. There is never more
// than one log per user and day.
func (s *WorkoutLogService) Upsert(ctx context.Context, userID primitive.ObjectID, in models.WorkoutLogInput) (repository.UpsertResult, error) {
	if in.LogDate.IsZero() {
		in.LogDate = s.Today()
	}
	if err := in.Validate(); err != nil {
		return repository.UpsertResult{}, err
	}
	res, err := s.logs.Upsert(ctx, userID, in)
	if err != nil {
		return repository.UpsertResult{}, err
	}
	s.audit.Record(ctx, userID.Hex(), res.Operation+"_workout_log", "daily_workout_log", audit.StatusSuccess, map[string]any{
		"log_date": in.LogDate.Format(models.LogDateLayout),
	})
	return res, nil
}

func (s *WorkoutLogService) Update(ctx context.Context, userID primitive.ObjectID, day time.Time, patch models.WorkoutLogPatch) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	modified, err := s.logs.UpdateFields(ctx, userID, day, patch.Fields())
	if err != nil {
		return 0, logError(err)
	}
	s.audit.Record(ctx, userID.Hex(), "update_workout_log", "daily_workout_log", audit.StatusSuccess, map[string]any{
		"log_date": models.LogDay(day).Format(models.LogDateLayout),
	})
	return modified, nil
}

func (s *WorkoutLogService) Delete(ctx context.Context, userID primitive.ObjectID, day time.Time) error {
	if err := s.logs.DeleteByDate(ctx, userID, day); err != nil {
		return logError(err)
	}
	s.audit.Record(ctx, userID.Hex(), "delete_workout_log", "daily_workout_log", audit.StatusSuccess, map[string]any{
		"log_date": models.LogDay(day).Format(models.LogDateLayout),
	})
	return nil
}

func (s *WorkoutLogService) History(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DailyWorkoutLog, int, error) {
	entries, total, err := s.logs.List(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return entries, int(total), nil
}

// Progress combines the all-time totals with the per-day breakdown. The daily
// calorie average divides by the number of distinct logged days.
func (s *WorkoutLogService) Progress(ctx context.Context, userID primitive.ObjectID) (*models.ProgressReport, error) {
	total, err := s.logs.TotalProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	daily, err := s.logs.DailyProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if daily == nil {
		daily = []models.DailyProgress{}
	}

	stats := models.KeyStatistics{
		TotalWeightLost:    round2(total.TotalWeightLost),
		TotalCaloriesBurnt: round2(total.TotalCaloriesBurnt),
		TotalDuration:      total.TotalDuration,
		TotalSessions:      total.TotalSessions,
	}
	if days := len(daily); days > 0 {
		stats.AvgCaloriesBurntPerDay = round2(total.TotalCaloriesBurnt / float64(days))
	}
	if total.TotalSessions > 0 {
		stats.AvgWorkoutDurationPerSession = round2(float64(total.TotalDuration) / float64(total.TotalSessions))
	}

	return &models.ProgressReport{KeyStatistics: stats, DailyProgress: daily}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func logError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLogNotFound
	}
	return err
}
