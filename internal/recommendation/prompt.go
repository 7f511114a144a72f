package recommendation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const notSpecified = "Not Specified"

// BuildPrompt renders the profile, retrieved passages and question into the
// user message sent to the model.
func BuildPrompt(req Request, passages []string) string {
	p := req.Profile
	var b strings.Builder

	b.WriteString("Based on the following user information:\n")
	fmt.Fprintf(&b, "- Sex: %s\n", orDefault(p.Gender))
	fmt.Fprintf(&b, "- Age: %s\n", intOrDefault(p.Age))
	fmt.Fprintf(&b, "- Height: %s\n", floatOrDefault(p.HeightCM, " cm"))
	fmt.Fprintf(&b, "- Weight: %s\n", floatOrDefault(p.WeightKG, " kg"))
	fmt.Fprintf(&b, "- BMI: %s\n", bmi(p.HeightCM, p.WeightKG))
	fmt.Fprintf(&b, "- Fitness Goal: %s\n", orFallback(p.Goal, "General Fitness"))
	fmt.Fprintf(&b, "- Days per week: %s\n", positiveOrDefault(p.DaysPerWeek))
	fmt.Fprintf(&b, "- Workout duration: %s\n", positiveOrDefault(p.WorkoutDuration))
	fmt.Fprintf(&b, "- Rest days: %s\n", orFallback(strings.Join(p.RestDays, ", "), "Any"))

	if len(passages) > 0 {
		b.WriteString("\nRelevant reference material:\n")
		for i, passage := range passages {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(passage))
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", strings.TrimSpace(req.Query))
	b.WriteString("Provide a personalized workout recommendation as JSON matching the requested schema.")
	return b.String()
}

// BMI returns weight / height² rounded to two decimals, or false when either
// measurement is missing or not positive.
func BMI(heightCM, weightKG *float64) (float64, bool) {
	if heightCM == nil || weightKG == nil || *heightCM <= 0 || *weightKG <= 0 {
		return 0, false
	}
	meters := *heightCM / 100
	return math.Round(*weightKG/(meters*meters)*100) / 100, true
}

func bmi(heightCM, weightKG *float64) string {
	v, ok := BMI(heightCM, weightKG)
	if !ok {
		return notSpecified
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orDefault(s string) string {
	return orFallback(s, notSpecified)
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func intOrDefault(v *int) string {
	if v == nil {
		return notSpecified
	}
	return strconv.Itoa(*v)
}

func positiveOrDefault(v int) string {
	if v <= 0 {
		return notSpecified
	}
	return strconv.Itoa(v)
}

func floatOrDefault(v *float64, unit string) string {
	if v == nil {
		return notSpecified
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit
}
