package meals

import (
	"github.com/fdg312/fittrack/internal/storage"
)

// FoodInput is a single food item inside an add-meal request.
type FoodInput struct {
	Name        string  `json:"name"`
	WeightGrams float64 `json:"weight,omitempty"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Fiber       float64 `json:"fiber,omitempty"`
	Sugar       float64 `json:"sugar,omitempty"`
	Sodium      float64 `json:"sodium,omitempty"` // milligrams
	Portion     string  `json:"portion,omitempty"`
}

// AddMealRequest creates a meal from a list of food items. Total calories are
// derived from the foods, not taken from the client. The name is an optional
// display label.
type AddMealRequest struct {
	Name      string      `json:"name,omitempty"`
	MealType  string      `json:"mealType"`
	Foods     []FoodInput `json:"foods"`
	Timestamp int64       `json:"timestamp,omitempty"` // unix seconds, 0 means "now"
}

// AddManualCaloriesRequest creates a quick entry with a known calorie count
// and no food breakdown.
type AddManualCaloriesRequest struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	MealType string  `json:"mealType"`
}

// ListMealsResponse is the meal log plus the derived daily and weekly numbers
// the client renders alongside it.
type ListMealsResponse struct {
	Meals         []storage.Meal `json:"meals"`
	TodayCalories float64        `json:"todayCalories"`
	WeeklyAverage float64        `json:"weeklyAverage"`
	TodayTotals   MacroTotals    `json:"todayTotals"`
}

// MacroTotals aggregates macronutrients across a set of meals.
type MacroTotals struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// NutrientTotals is the daily intake slice the health score runs on.
type NutrientTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"` // milligrams
}

// SummaryResponse carries the derived numbers without the full meal list.
type SummaryResponse struct {
	TodayCalories float64     `json:"todayCalories"`
	WeeklyAverage float64     `json:"weeklyAverage"`
	TodayTotals   MacroTotals `json:"todayTotals"`
}

// PhotoResponse is returned after attaching a photo to a meal.
type PhotoResponse struct {
	MealID   string `json:"mealId"`
	PhotoKey string `json:"photoKey"`
}

// PhotoURLResponse carries a short-lived download link for a meal photo.
type PhotoURLResponse struct {
	MealID string `json:"mealId"`
	URL    string `json:"url"`
}
