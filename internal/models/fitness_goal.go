package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	GoalStrength    = "strength"
	GoalWeightLoss  = "weight_loss"
	GoalFlexibility = "flexibility"

	minDaysPerWeek     = 1
	maxDaysPerWeek     = 7
	minWorkoutDuration = 10
)

var fitnessGoals = map[string]struct{}{
	GoalStrength:    {},
	GoalWeightLoss:  {},
	GoalFlexibility: {},
}

var weekdays = map[string]string{
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
	"sunday":    "Sunday",
}

type FitnessGoal struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Goal            string             `bson:"goal" json:"goal"`
	DaysPerWeek     int                `bson:"days_per_week" json:"days_per_week"`
	WorkoutDuration int                `bson:"workout_duration" json:"workout_duration"`
	RestDays        []string           `bson:"rest_days" json:"rest_days"`
	IsDeleted       bool               `bson:"is_deleted" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// FitnessGoalInput is the full goal definition accepted by create-or-update.
type FitnessGoalInput struct {
	Goal            string   `json:"goal"`
	DaysPerWeek     int      `json:"days_per_week"`
	WorkoutDuration int      `json:"workout_duration"`
	RestDays        []string `json:"rest_days"`
}

func (in *FitnessGoalInput) Validate() error {
	goal, err := validateGoal(in.Goal)
	if err != nil {
		return err
	}
	if err := validateDaysPerWeek(in.DaysPerWeek); err != nil {
		return err
	}
	if err := validateWorkoutDuration(in.WorkoutDuration); err != nil {
		return err
	}
	restDays, err := normalizeRestDays(in.RestDays)
	if err != nil {
		return err
	}
	in.Goal = goal
	in.RestDays = restDays
	return nil
}

func (in FitnessGoalInput) Fields() map[string]any {
	restDays := in.RestDays
	if restDays == nil {
		restDays = []string{}
	}
	return map[string]any{
		"goal":             in.Goal,
		"days_per_week":    in.DaysPerWeek,
		"workout_duration": in.WorkoutDuration,
		"rest_days":        restDays,
	}
}

type FitnessGoalPatch struct {
	Goal            *string   `json:"goal"`
	DaysPerWeek     *int      `json:"days_per_week"`
	WorkoutDuration *int      `json:"workout_duration"`
	RestDays        *[]string `json:"rest_days"`
}

func (p FitnessGoalPatch) IsEmpty() bool {
	return p.Goal == nil && p.DaysPerWeek == nil && p.WorkoutDuration == nil && p.RestDays == nil
}

func (p *FitnessGoalPatch) Validate() error {
	if p.IsEmpty() {
		return invalid("", "no fields to update provided")
	}
	if p.Goal != nil {
		goal, err := validateGoal(*p.Goal)
		if err != nil {
			return err
		}
		p.Goal = &goal
	}
	if p.DaysPerWeek != nil {
		if err := validateDaysPerWeek(*p.DaysPerWeek); err != nil {
			return err
		}
	}
	if p.WorkoutDuration != nil {
		if err := validateWorkoutDuration(*p.WorkoutDuration); err != nil {
			return err
		}
	}
	if p.RestDays != nil {
		restDays, err := normalizeRestDays(*p.RestDays)
		if err != nil {
			return err
		}
		p.RestDays = &restDays
	}
	return nil
}

func (p FitnessGoalPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Goal != nil {
		fields["goal"] = *p.Goal
	}
	if p.DaysPerWeek != nil {
		fields["days_per_week"] = *p.DaysPerWeek
	}
	if p.WorkoutDuration != nil {
		fields["workout_duration"] = *p.WorkoutDuration
	}
	if p.RestDays != nil {
		fields["rest_days"] = *p.RestDays
	}
	return fields
}

func validateGoal(goal string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(goal))
	if _, ok := fitnessGoals[normalized]; !ok {
		return "", invalid("goal", "goal must be one of strength, weight_loss, flexibility")
	}
	return normalized, nil
}

func validateDaysPerWeek(days int) error {
	if days < minDaysPerWeek || days > maxDaysPerWeek {
		return invalid("days_per_week", "days_per_week must be between %d and %d", minDaysPerWeek, maxDaysPerWeek)
	}
	return nil
}

func validateWorkoutDuration(minutes int) error {
	if minutes < minWorkoutDuration {
		return invalid("workout_duration", "workout_duration must be at least %d minutes", minWorkoutDuration)
	}
	return nil
}

// normalizeRestDays title-cases weekday names and drops duplicates.
func normalizeRestDays(days []string) ([]string, error) {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, day := range days {
		canonical, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return nil, invalid("rest_days", "invalid weekday %q", day)
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out, nil
}
