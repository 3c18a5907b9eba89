package meals

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
	"github.com/fdg312/fittrack/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.MemoryStorage) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, log.New(io.Discard, "", 0))
	return svc, store
}

func TestAddMealDerivesTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meal, err := svc.AddMeal(ctx, "u1", &AddMealRequest{
		Name:     "Lunch",
		MealType: "lunch",
		Foods: []FoodInput{
			{Name: "Rice", Calories: 200, Carbs: 45},
			{Name: "Chicken", Calories: 300, Protein: 40},
		},
	})
	if err != nil {
		t.Fatalf("AddMeal: %v", err)
	}
	if meal.TotalCalories != 500 {
		t.Errorf("TotalCalories = %v, want 500", meal.TotalCalories)
	}
	if meal.ID == "" {
		t.Error("meal id should be assigned")
	}
	if meal.MealType != "lunch" {
		t.Errorf("MealType = %q, want lunch", meal.MealType)
	}
}

func TestAddMealValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddMeal(ctx, "u1", &AddMealRequest{Name: "Lunch"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("no foods: err = %v, want ErrInvalidRequest", err)
	}

	// negative per-food calories count as zero, so this total is zero
	_, err = svc.AddMeal(ctx, "u1", &AddMealRequest{Name: "Lunch", Foods: []FoodInput{{Name: "x", Calories: -5}}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("non-positive total: err = %v, want ErrInvalidRequest", err)
	}
}

func TestAddMealClampsNegativeFoodCalories(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meal, err := svc.AddMeal(ctx, "u1", &AddMealRequest{
		Foods: []FoodInput{
			{Name: "Rice", Calories: 200},
			{Name: "Bad reading", Calories: -50},
		},
	})
	if err != nil {
		t.Fatalf("AddMeal: %v", err)
	}
	if meal.TotalCalories != 200 {
		t.Errorf("TotalCalories = %v, want 200 (negative entry counted as 0)", meal.TotalCalories)
	}
}

func TestAddManualCalories(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meal, err := svc.AddManualCalories(ctx, "u1", &AddManualCaloriesRequest{Name: "Protein bar", Calories: 250})
	if err != nil {
		t.Fatalf("AddManualCalories: %v", err)
	}
	if meal.TotalCalories != 250 {
		t.Errorf("TotalCalories = %v, want 250", meal.TotalCalories)
	}
	if len(meal.Foods) != 1 || meal.Foods[0].Name != "Protein bar" {
		t.Errorf("expected a single synthetic food item, got %+v", meal.Foods)
	}

	for name, calories := range map[string]float64{
		"zero":     0,
		"negative": -100,
		"NaN":      math.NaN(),
		"+Inf":     math.Inf(1),
	} {
		if _, err := svc.AddManualCalories(ctx, "u1", &AddManualCaloriesRequest{Calories: calories}); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s calories: err = %v, want ErrInvalidRequest", name, err)
		}
	}
}

func TestDerivedNumbers(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seed := []storage.Meal{
		{ID: "m1", Name: "Breakfast", TotalCalories: 400, Timestamp: now.Add(-2 * time.Hour),
			Foods: []storage.FoodItem{{Name: "Oats", Calories: 400, Protein: 12, Carbs: 60, Fat: 8}}},
		{ID: "m2", Name: "Dinner", TotalCalories: 700, Timestamp: now.AddDate(0, 0, -3)},
		{ID: "m3", Name: "Old", TotalCalories: 900, Timestamp: now.AddDate(0, 0, -10)},
	}
	if err := store.ReplaceMeals(ctx, "u1", seed); err != nil {
		t.Fatalf("ReplaceMeals: %v", err)
	}

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if resp.TodayCalories != 400 {
		t.Errorf("TodayCalories = %v, want 400", resp.TodayCalories)
	}
	// trailing seven days: 400 + 700 = 1100, averaged over 7 days
	wantAvg := 1100.0 / 7
	if resp.WeeklyAverage != wantAvg {
		t.Errorf("WeeklyAverage = %v, want %v", resp.WeeklyAverage, wantAvg)
	}
	if resp.TodayTotals.Protein != 12 || resp.TodayTotals.Carbs != 60 || resp.TodayTotals.Fat != 8 {
		t.Errorf("TodayTotals = %+v", resp.TodayTotals)
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	seed := []storage.Meal{
		{ID: "old", Name: "Old", TotalCalories: 100, Timestamp: base},
		{ID: "new", Name: "New", TotalCalories: 100, Timestamp: base.Add(4 * time.Hour)},
	}
	if err := store.ReplaceMeals(ctx, "u1", seed); err != nil {
		t.Fatalf("ReplaceMeals: %v", err)
	}

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Meals) != 2 || resp.Meals[0].ID != "new" {
		t.Errorf("meals should be newest first, got %+v", resp.Meals)
	}
}

func TestDeleteMeal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meal, err := svc.AddManualCalories(ctx, "u1", &AddManualCaloriesRequest{Name: "Snack", Calories: 100})
	if err != nil {
		t.Fatalf("AddManualCalories: %v", err)
	}

	if err := svc.DeleteMeal(ctx, "u1", meal.ID); err != nil {
		t.Fatalf("DeleteMeal: %v", err)
	}
	// deleting an unknown id is an idempotent no-op
	if err := svc.DeleteMeal(ctx, "u1", meal.ID); err != nil {
		t.Errorf("second delete: err = %v, want nil", err)
	}

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Meals) != 0 {
		t.Errorf("meals = %+v, want empty", resp.Meals)
	}
}

func TestTodayNutrients(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddMeal(ctx, "u1", &AddMealRequest{
		Foods: []FoodInput{
			{Name: "Yogurt", Calories: 150, Protein: 10, Sugar: 12, Sodium: 60},
			{Name: "Granola", Calories: 250, Protein: 6, Sugar: 14, Sodium: 40},
		},
	})
	if err != nil {
		t.Fatalf("AddMeal: %v", err)
	}

	totals, err := svc.TodayNutrients(ctx, "u1")
	if err != nil {
		t.Fatalf("TodayNutrients: %v", err)
	}
	if totals.Calories != 400 || totals.Protein != 16 || totals.Sugar != 26 || totals.Sodium != 100 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestFlushPersistsToStorage(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddManualCalories(ctx, "u1", &AddManualCaloriesRequest{Name: "Snack", Calories: 150}); err != nil {
		t.Fatalf("AddManualCalories: %v", err)
	}
	svc.Flush()

	stored, err := store.ListMeals(ctx, "u1")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(stored) != 1 || stored[0].TotalCalories != 150 {
		t.Errorf("stored meals = %+v, want the snack", stored)
	}
}

func TestClearHistory(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddManualCalories(ctx, "u1", &AddManualCaloriesRequest{Name: "Snack", Calories: 150}); err != nil {
		t.Fatalf("AddManualCalories: %v", err)
	}
	svc.Flush()

	if err := svc.ClearHistory(ctx, "u1"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Meals) != 0 {
		t.Errorf("meals after clear = %+v, want empty", resp.Meals)
	}

	stored, err := store.ListMeals(ctx, "u1")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("stored meals after clear = %+v, want empty", stored)
	}
}

func TestPersistenceFailureKeepsMemoryAuthoritative(t *testing.T) {
	store := &failingMealsStorage{}
	svc := NewService(store, log.New(io.Discard, "", 0))
	ctx := context.Background()

	if _, err := svc.AddManualCalories(ctx, "u1", &AddManualCaloriesRequest{Name: "Snack", Calories: 150}); err != nil {
		t.Fatalf("AddManualCalories: %v", err)
	}
	svc.Flush()

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Meals) != 1 {
		t.Errorf("meals = %+v, want the snack despite the failed save", resp.Meals)
	}
}

// failingMealsStorage loads empty and rejects every write.
type failingMealsStorage struct{}

func (f *failingMealsStorage) ListMeals(ctx context.Context, ownerUserID string) ([]storage.Meal, error) {
	return nil, nil
}

func (f *failingMealsStorage) ReplaceMeals(ctx context.Context, ownerUserID string, meals []storage.Meal) error {
	return errors.New("disk full")
}

func (f *failingMealsStorage) ClearMeals(ctx context.Context, ownerUserID string) error {
	return errors.New("disk full")
}
