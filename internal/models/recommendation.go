package models

type Exercise struct {
	Name         string `json:"name" jsonschema_description:"Name of the exercise"`
	Instructions string `json:"instructions" jsonschema_description:"Step-by-step instructions for performing the exercise"`
}

// WorkoutRecommendation is the structured answer produced by the recommendation engine.
// The jsonschema tags define the response format requested from the model.
type WorkoutRecommendation struct {
	WorkoutName             string     `json:"workout_name" jsonschema_description:"Name of the workout"`
	DurationMinutes         int        `json:"duration_minutes" jsonschema_description:"Duration of the workout in minutes"`
	Difficulty              string     `json:"difficulty" jsonschema:"enum=beginner,enum=intermediate,enum=advanced" jsonschema_description:"Difficulty level of the workout"`
	Exercises               []Exercise `json:"exercises" jsonschema_description:"Exercises included in the workout, each with its name and instructions"`
	EstimatedCaloriesBurned float64    `json:"estimated_calories_burned" jsonschema_description:"Estimated calories burned during one session"`
	EquipmentNeeded         []string   `json:"equipment_needed" jsonschema_description:"Equipment needed for the workout"`
	AdditionalTips          string     `json:"additional_tips" jsonschema_description:"Any additional tips for the user"`
	TotalCaloriesBurned     float64    `json:"total_calories_burned" jsonschema_description:"Total calories burned for the entire workout plan"`
}
