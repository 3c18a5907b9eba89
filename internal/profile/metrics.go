package profile

import (
	"math"

	"github.com/fdg312/fittrack/internal/storage"
)

// HealthMetrics is derived from the profile alone. Every field except
// Recommendations is deterministic arithmetic over the profile values.
type HealthMetrics struct {
	BMI                 float64     `json:"bmi"`
	BMR                 float64     `json:"bmr"`
	TDEE                float64     `json:"tdee"`
	RecommendedCalories int         `json:"recommendedCalories"`
	IdealWeight         WeightRange `json:"idealWeight"`
	BMICategory         string      `json:"bmiCategory"`
}

// WeightRange is the healthy-BMI weight band for the profile's height.
type WeightRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// CalculateMetrics derives BMI, Mifflin-St Jeor BMR, TDEE, goal-adjusted
// recommended calories and the ideal weight range from a profile.
func CalculateMetrics(p *storage.UserProfile) HealthMetrics {
	heightM := p.HeightCm / 100

	bmi := 0.0
	if heightM > 0 {
		bmi = p.WeightKg / (heightM * heightM)
	}

	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Gender == "female" {
		bmr -= 161
	} else {
		bmr += 5
	}

	multiplier, ok := activityMultipliers[p.ActivityLevel]
	if !ok {
		multiplier = activityMultipliers["sedentary"]
	}
	tdee := bmr * multiplier

	recommended := tdee
	switch p.Goal {
	case "lose":
		recommended = tdee - 500
	case "gain":
		recommended = tdee + 300
	}

	return HealthMetrics{
		BMI:                 math.Round(bmi*10) / 10,
		BMR:                 bmr,
		TDEE:                tdee,
		RecommendedCalories: int(math.Round(recommended)),
		IdealWeight: WeightRange{
			Min: int(math.Round(18.5 * heightM * heightM)),
			Max: int(math.Round(24.9 * heightM * heightM)),
		},
		BMICategory: bmiCategory(bmi),
	}
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}

// Daily nutrient caps and targets for the health score.
const (
	proteinTargetPerKg = 1.2
	sugarCapGrams      = 25.0
	sodiumCapMg        = 2300.0
)

// HealthScore folds today's intake against the profile-derived targets into a
// weighted 0-100 score: 30% calorie adherence, 25% protein adequacy, 25%
// sugar, 20% sodium.
func HealthScore(p *storage.UserProfile, metrics HealthMetrics, todayCalories, todayProtein, todaySugar, todaySodium float64) int {
	if p == nil || metrics.RecommendedCalories <= 0 || todayCalories <= 0 {
		return 0
	}

	calorieScore := adherenceScore(todayCalories, float64(metrics.RecommendedCalories))
	proteinScore := adequacyScore(todayProtein, proteinTargetPerKg*p.WeightKg)
	sugarScore := capScore(todaySugar, sugarCapGrams)
	sodiumScore := capScore(todaySodium, sodiumCapMg)

	score := 0.30*calorieScore + 0.25*proteinScore + 0.25*sugarScore + 0.20*sodiumScore
	return int(math.Round(score))
}

// adherenceScore gives full marks within ±20% of the target and a symmetric
// linear penalty beyond, reaching zero at ±60%.
func adherenceScore(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	deviation := math.Abs(actual-target) / target
	if deviation <= 0.2 {
		return 100
	}
	return math.Max(0, 100*(1-(deviation-0.2)/0.4))
}

// adequacyScore scales with intake up to the target and is capped at 100.
func adequacyScore(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(100, 100*actual/target)
}

// capScore gives full marks under the cap and a linear penalty above it,
// reaching zero at twice the cap.
func capScore(actual, cap float64) float64 {
	if actual <= cap {
		return 100
	}
	return math.Max(0, 100*(1-(actual-cap)/cap))
}
