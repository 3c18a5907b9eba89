package profile

import (
	"time"

	"github.com/fdg312/fittrack/internal/storage"
)

// UpdateProfileRequest replaces the profile wholesale. There is no merge: a
// field left out of the payload becomes its zero value.
type UpdateProfileRequest struct {
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	WeightKg      float64 `json:"weight"`
	HeightCm      float64 `json:"height"`
	Gender        string  `json:"gender"`
	ActivityLevel string  `json:"activityLevel"`
	Goal          string  `json:"goal"`
}

// ProfileResponse is the stored profile plus the metrics derived from it.
type ProfileResponse struct {
	Profile   *storage.UserProfile `json:"profile"`
	Metrics   HealthMetrics        `json:"metrics"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// RecommendationsResponse carries up to four advice items. Source is "ai"
// when the items came from a model reply and "fallback" otherwise.
type RecommendationsResponse struct {
	Recommendations []string `json:"recommendations"`
	Source          string   `json:"source"`
}

// HealthScoreResponse is today's weighted 0-100 adherence score.
type HealthScoreResponse struct {
	Score int `json:"score"`
}

// DailyGoalResponse is the persisted daily calorie goal.
type DailyGoalResponse struct {
	Calories float64 `json:"calories"`
}

// UpdateDailyGoalRequest overrides the daily calorie goal manually.
type UpdateDailyGoalRequest struct {
	Calories float64 `json:"calories"`
}
