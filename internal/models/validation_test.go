package models

import (
	"errors"
	"testing"
)

func TestValidateNewPasswordRules(t *testing.T) {
	cases := map[string]bool{
		"Short1":         false,
		"alllower123":    false,
		"ALLUPPER123":    false,
		"NoDigitsHere":   false,
		"Valid1Password": true,
	}
	for password, ok := range cases {
		err := ValidateNewPassword("password", password)
		if ok && err != nil {
			t.Errorf("expected %q to be accepted, got %v", password, err)
		}
		if !ok && err == nil {
			t.Errorf("expected %q to be rejected", password)
		}
	}
}

func TestFitnessGoalInputValidateNormalizes(t *testing.T) {
	in := FitnessGoalInput{
		Goal:            " Weight_Loss ",
		DaysPerWeek:     4,
		WorkoutDuration: 45,
		RestDays:        []string{"monday", "SUNDAY", "Monday"},
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if in.Goal != GoalWeightLoss {
		t.Fatalf("expected goal %q, got %q", GoalWeightLoss, in.Goal)
	}
	if len(in.RestDays) != 2 || in.RestDays[0] != "Monday" || in.RestDays[1] != "Sunday" {
		t.Fatalf("unexpected rest days %v", in.RestDays)
	}
}

func TestFitnessGoalInputValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		input FitnessGoalInput
		field string
	}{
		{"unknown goal", FitnessGoalInput{Goal: "cardio", DaysPerWeek: 3, WorkoutDuration: 30}, "goal"},
		{"zero days", FitnessGoalInput{Goal: "strength", DaysPerWeek: 0, WorkoutDuration: 30}, "days_per_week"},
		{"eight days", FitnessGoalInput{Goal: "strength", DaysPerWeek: 8, WorkoutDuration: 30}, "days_per_week"},
		{"short duration", FitnessGoalInput{Goal: "strength", DaysPerWeek: 3, WorkoutDuration: 9}, "workout_duration"},
		{"bad weekday", FitnessGoalInput{Goal: "strength", DaysPerWeek: 3, WorkoutDuration: 30, RestDays: []string{"Funday"}}, "rest_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestFitnessGoalPatchRejectsEmpty(t *testing.T) {
	var patch FitnessGoalPatch
	if err := patch.Validate(); err == nil {
		t.Fatal("expected empty patch to be rejected")
	}
}

func TestUserPatchValidate(t *testing.T) {
	age := 151
	patch := UserPatch{Age: &age}
	if err := patch.Validate(); err == nil {
		t.Fatal("expected age 151 to be rejected")
	}

	email := "  Someone@Example.COM "
	gender := "Female"
	patch = UserPatch{Email: &email, Gender: &gender}
	if err := patch.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if *patch.Email != "someone@example.com" {
		t.Fatalf("expected normalized email, got %q", *patch.Email)
	}
	if *patch.Gender != "female" {
		t.Fatalf("expected normalized gender, got %q", *patch.Gender)
	}
}
