package profile

import (
	"math"
	"testing"

	"github.com/fdg312/fittrack/internal/storage"
)

func sampleProfile() *storage.UserProfile {
	return &storage.UserProfile{
		OwnerUserID:   "u1",
		Name:          "Alex",
		Age:           30,
		WeightKg:      70,
		HeightCm:      175,
		Gender:        "male",
		ActivityLevel: "moderate",
		Goal:          "maintain",
	}
}

func TestCalculateMetricsReferenceProfile(t *testing.T) {
	m := CalculateMetrics(sampleProfile())

	// Mifflin-St Jeor: 10*70 + 6.25*175 - 5*30 + 5
	if m.BMR != 1648.75 {
		t.Errorf("BMR = %v, want 1648.75", m.BMR)
	}
	if math.Abs(m.TDEE-1648.75*1.55) > 1e-9 {
		t.Errorf("TDEE = %v, want %v", m.TDEE, 1648.75*1.55)
	}
	if m.RecommendedCalories != 2556 {
		t.Errorf("RecommendedCalories = %v, want 2556", m.RecommendedCalories)
	}
	if m.BMI != 22.9 {
		t.Errorf("BMI = %v, want 22.9", m.BMI)
	}
	if m.BMICategory != "normal" {
		t.Errorf("BMICategory = %q, want normal", m.BMICategory)
	}
	if m.IdealWeight.Min != 57 || m.IdealWeight.Max != 76 {
		t.Errorf("IdealWeight = %+v, want {57 76}", m.IdealWeight)
	}
}

func TestCalculateMetricsFemaleOffset(t *testing.T) {
	p := sampleProfile()
	p.Gender = "female"

	m := CalculateMetrics(p)
	if m.BMR != 1648.75-166 {
		t.Errorf("BMR = %v, want %v", m.BMR, 1648.75-166)
	}
}

func TestCalculateMetricsGoalAdjustment(t *testing.T) {
	p := sampleProfile()

	p.Goal = "lose"
	if got := CalculateMetrics(p).RecommendedCalories; got != 2056 {
		t.Errorf("lose: RecommendedCalories = %v, want 2056", got)
	}

	p.Goal = "gain"
	if got := CalculateMetrics(p).RecommendedCalories; got != 2856 {
		t.Errorf("gain: RecommendedCalories = %v, want 2856", got)
	}
}

func TestCalculateMetricsIsDeterministic(t *testing.T) {
	p := sampleProfile()
	first := CalculateMetrics(p)
	second := CalculateMetrics(p)
	if first != second {
		t.Errorf("metrics differ across runs: %+v vs %+v", first, second)
	}
}

func TestBMICategories(t *testing.T) {
	tests := []struct {
		bmi  float64
		want string
	}{
		{17.0, "underweight"},
		{22.0, "normal"},
		{27.5, "overweight"},
		{31.0, "obese"},
	}
	for _, tt := range tests {
		if got := bmiCategory(tt.bmi); got != tt.want {
			t.Errorf("bmiCategory(%v) = %q, want %q", tt.bmi, got, tt.want)
		}
	}
}

func TestHealthScorePerfectDay(t *testing.T) {
	p := sampleProfile()
	m := CalculateMetrics(p)

	score := HealthScore(p, m, float64(m.RecommendedCalories), 84, 20, 2000)
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}
}

func TestHealthScoreZeroWithoutMeals(t *testing.T) {
	p := sampleProfile()
	m := CalculateMetrics(p)

	if score := HealthScore(p, m, 0, 0, 0, 0); score != 0 {
		t.Errorf("score = %d, want 0 when nothing is logged", score)
	}
	if score := HealthScore(nil, m, 2000, 80, 10, 1000); score != 0 {
		t.Errorf("score = %d, want 0 without a profile", score)
	}
}

func TestHealthScorePenalizesSugarOverCap(t *testing.T) {
	p := sampleProfile()
	m := CalculateMetrics(p)

	// double the sugar cap zeroes the sugar component: 100 - 25 = 75
	score := HealthScore(p, m, float64(m.RecommendedCalories), 84, 50, 2000)
	if score != 75 {
		t.Errorf("score = %d, want 75", score)
	}
}

func TestAdherenceScoreSymmetry(t *testing.T) {
	over := adherenceScore(1300, 1000)
	under := adherenceScore(700, 1000)
	if over != under {
		t.Errorf("over = %v, under = %v, want symmetric penalty", over, under)
	}
	if s := adherenceScore(1100, 1000); s != 100 {
		t.Errorf("within 20%%: score = %v, want 100", s)
	}
}
