package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const LogDateLayout = "2006-01-02"

type DailyWorkoutLog struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"user_id" json:"user_id"`
	LogDate            time.Time          `bson:"log_date" json:"log_date"`
	WorkoutContent     string             `bson:"workout_content" json:"workout_content"`
	TotalWeightLost    float64            `bson:"total_weight_lost" json:"total_weight_lost"`
	TotalCaloriesBurnt float64            `bson:"total_calories_burnt" json:"total_calories_burnt"`
	AvgWorkoutDuration int                `bson:"avg_workout_duration" json:"avg_workout_duration"`
	IsDeleted          bool               `bson:"is_deleted" json:"-"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// LogDay truncates t to midnight UTC, the stored form of a log date.
func LogDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseLogDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(LogDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, invalid("log_date", "log_date must use the YYYY-MM-DD format")
	}
	return parsed, nil
}

type WorkoutLogInput struct {
	LogDate            time.Time
	WorkoutContent     string
	TotalWeightLost    float64
	TotalCaloriesBurnt float64
	AvgWorkoutDuration int
}

func (in *WorkoutLogInput) Validate() error {
	if strings.TrimSpace(in.WorkoutContent) == "" {
		return invalid("workout_content", "workout_content is required")
	}
	if in.TotalCaloriesBurnt < 0 {
		return invalid("total_calories_burnt", "total_calories_burnt must be 0 or greater")
	}
	if in.AvgWorkoutDuration < 0 {
		return invalid("avg_workout_duration", "avg_workout_duration must be 0 or greater")
	}
	in.LogDate = LogDay(in.LogDate)
	return nil
}

func (in WorkoutLogInput) Fields() map[string]any {
	return map[string]any{
		"workout_content":      in.WorkoutContent,
		"total_weight_lost":    in.TotalWeightLost,
		"total_calories_burnt": in.TotalCaloriesBurnt,
		"avg_workout_duration": in.AvgWorkoutDuration,
	}
}

type WorkoutLogPatch struct {
	WorkoutContent     *string  `json:"workout_content"`
	TotalWeightLost    *float64 `json:"total_weight_lost"`
	TotalCaloriesBurnt *float64 `json:"total_calories_burnt"`
	AvgWorkoutDuration *int     `json:"avg_workout_duration"`
}

func (p WorkoutLogPatch) IsEmpty() bool {
	return p.WorkoutContent == nil && p.TotalWeightLost == nil &&
		p.TotalCaloriesBurnt == nil && p.AvgWorkoutDuration == nil
}

func (p WorkoutLogPatch) Validate() error {
	if p.IsEmpty() {
		return invalid("", "no fields to update provided")
	}
	if p.WorkoutContent != nil && strings.TrimSpace(*p.WorkoutContent) == "" {
		return invalid("workout_content", "workout_content must not be empty")
	}
	if p.TotalCaloriesBurnt != nil && *p.TotalCaloriesBurnt < 0 {
		return invalid("total_calories_burnt", "total_calories_burnt must be 0 or greater")
	}
	if p.AvgWorkoutDuration != nil && *p.AvgWorkoutDuration < 0 {
		return invalid("avg_workout_duration", "avg_workout_duration must be 0 or greater")
	}
	return nil
}

func (p WorkoutLogPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.WorkoutContent != nil {
		fields["workout_content"] = *p.WorkoutContent
	}
	if p.TotalWeightLost != nil {
		fields["total_weight_lost"] = *p.TotalWeightLost
	}
	if p.TotalCaloriesBurnt != nil {
		fields["total_calories_burnt"] = *p.TotalCaloriesBurnt
	}
	if p.AvgWorkoutDuration != nil {
		fields["avg_workout_duration"] = *p.AvgWorkoutDuration
	}
	return fields
}

// TotalProgress is the all-time aggregate over a user's logs.
type TotalProgress struct {
	TotalWeightLost    float64 `bson:"total_weight_lost" json:"total_weight_lost"`
	TotalCaloriesBurnt float64 `bson:"total_calories_burnt" json:"total_calories_burnt"`
	TotalDuration      int64   `bson:"total_duration" json:"total_duration"`
	TotalSessions      int64   `bson:"total_sessions" json:"total_sessions"`
}

type DailyProgress struct {
	LogDate            time.Time `bson:"_id" json:"log_date"`
	TotalWorkoutTime   int64     `bson:"total_workout_time" json:"total_workout_time"`
	TotalCaloriesBurnt float64   `bson:"total_calories_burnt" json:"total_calories_burnt"`
}

// MarshalJSON renders log_date as a plain calendar date.
func (d DailyProgress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LogDate            string  `json:"log_date"`
		TotalWorkoutTime   int64   `json:"total_workout_time"`
		TotalCaloriesBurnt float64 `json:"total_calories_burnt"`
	}{
		LogDate:            d.LogDate.UTC().Format(LogDateLayout),
		TotalWorkoutTime:   d.TotalWorkoutTime,
		TotalCaloriesBurnt: d.TotalCaloriesBurnt,
	})
}

type KeyStatistics struct {
	TotalWeightLost              float64 `json:"total_weight_lost"`
	TotalCaloriesBurnt           float64 `json:"total_calories_burnt"`
	TotalDuration                int64   `json:"total_duration"`
	TotalSessions                int64   `json:"total_sessions"`
	AvgCaloriesBurntPerDay       float64 `json:"avg_calories_burnt_per_day"`
	AvgWorkoutDurationPerSession float64 `json:"avg_workout_duration_per_session"`
}

type ProgressReport struct {
	KeyStatistics KeyStatistics   `json:"key_statistics"`
	DailyProgress []DailyProgress `json:"daily_progress"`
}
