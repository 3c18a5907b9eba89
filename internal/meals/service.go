package meals

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrMealNotFound   = errors.New("meal_not_found")
)

// ownerState is the in-memory meal log for one user. Once loaded it is the
// authoritative copy: reads and derived numbers come from here, and storage
// is only a persistence target.
type ownerState struct {
	loaded bool
	meals  []storage.Meal // newest first
}

// Service owns the meal log lifecycle: lazy load per user, in-memory
// mutations, and coalesced background saves. A failed save is logged and
// retried on the next mutation; it never rolls back the in-memory state.
type Service struct {
	storage storage.MealsStorage
	logger  *log.Logger
	now     func() time.Time

	mu     sync.Mutex
	owners map[string]*ownerState
	saver  *autosaver
}

func NewService(store storage.MealsStorage, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{
		storage: store,
		logger:  logger,
		now:     time.Now,
		owners:  map[string]*ownerState{},
	}
	s.saver = newAutosaver(s.persist, logger)
	return s
}

// List returns the meal log newest-first together with the derived numbers.
func (s *Service) List(ctx context.Context, ownerUserID string) (*ListMealsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	meals := make([]storage.Meal, len(state.meals))
	copy(meals, state.meals)

	now := s.now()
	return &ListMealsResponse{
		Meals:         meals,
		TodayCalories: todayCalories(state.meals, now),
		WeeklyAverage: weeklyAverage(state.meals, now),
		TodayTotals:   todayTotals(state.meals, now),
	}, nil
}

// Summary returns the derived numbers without the meal list.
func (s *Service) Summary(ctx context.Context, ownerUserID string) (*SummaryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &SummaryResponse{
		TodayCalories: todayCalories(state.meals, now),
		WeeklyAverage: weeklyAverage(state.meals, now),
		TodayTotals:   todayTotals(state.meals, now),
	}, nil
}

// TodayNutrients sums today's calories, protein, sugar and sodium. The health
// score runs on these totals.
func (s *Service) TodayNutrients(ctx context.Context, ownerUserID string) (*NutrientTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	totals := &NutrientTotals{}
	for _, m := range state.meals {
		if !sameDay(m.Timestamp, now) {
			continue
		}
		totals.Calories += m.TotalCalories
		for _, f := range m.Foods {
			totals.Protein += f.Protein
			totals.Sugar += f.Sugar
			totals.Sodium += f.Sodium
		}
	}
	return totals, nil
}

// AddMeal validates the request, derives the calorie total from the foods and
// prepends the meal to the log. NaN and negative per-food calories count as
// zero toward the total; a meal whose total ends up non-positive is rejected.
func (s *Service) AddMeal(ctx context.Context, ownerUserID string, req *AddMealRequest) (*storage.Meal, error) {
	if len(req.Foods) == 0 {
		return nil, fmt.Errorf("%w: at least one food item is required", ErrInvalidRequest)
	}

	foods := make([]storage.FoodItem, 0, len(req.Foods))
	total := 0.0
	for _, f := range req.Foods {
		foods = append(foods, storage.FoodItem{
			Name:        strings.TrimSpace(f.Name),
			WeightGrams: f.WeightGrams,
			Calories:    sanitizeCalories(f.Calories),
			Protein:     f.Protein,
			Carbs:       f.Carbs,
			Fat:         f.Fat,
			Fiber:       f.Fiber,
			Sugar:       f.Sugar,
			Sodium:      f.Sodium,
			Portion:     strings.TrimSpace(f.Portion),
		})
		total += sanitizeCalories(f.Calories)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: meal calories must be positive", ErrInvalidRequest)
	}

	now := s.now()
	timestamp := now
	if req.Timestamp > 0 {
		timestamp = time.Unix(req.Timestamp, 0)
	}

	meal := storage.Meal{
		ID:            newMealID(now),
		OwnerUserID:   ownerUserID,
		Name:          strings.TrimSpace(req.Name),
		Foods:         foods,
		TotalCalories: total,
		MealType:      normalizeMealType(req.MealType),
		Timestamp:     timestamp,
		CreatedAt:     now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	state.meals = insertNewestFirst(state.meals, meal)
	s.persistNowLocked(ctx, ownerUserID, state)

	return &meal, nil
}

// AddManualCalories records a quick entry with a known calorie count. It is
// stored as a meal with a single synthetic food item so the log stays uniform.
func (s *Service) AddManualCalories(ctx context.Context, ownerUserID string, req *AddManualCaloriesRequest) (*storage.Meal, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Manual entry"
	}
	if math.IsNaN(req.Calories) || math.IsInf(req.Calories, 0) || req.Calories <= 0 {
		return nil, fmt.Errorf("%w: calories must be positive and finite", ErrInvalidRequest)
	}

	now := s.now()
	meal := storage.Meal{
		ID:            newMealID(now),
		OwnerUserID:   ownerUserID,
		Name:          name,
		Foods:         []storage.FoodItem{{Name: name, Calories: req.Calories}},
		TotalCalories: req.Calories,
		MealType:      normalizeMealType(req.MealType),
		Timestamp:     now,
		CreatedAt:     now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	state.meals = insertNewestFirst(state.meals, meal)
	s.persistNowLocked(ctx, ownerUserID, state)

	return &meal, nil
}

// DeleteMeal removes a single meal by id. Deleting an unknown id is a no-op
// so repeated deletes stay idempotent.
func (s *Service) DeleteMeal(ctx context.Context, ownerUserID, mealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return err
	}

	for i, m := range state.meals {
		if m.ID == mealID {
			state.meals = append(state.meals[:i], state.meals[i+1:]...)
			s.persistNowLocked(ctx, ownerUserID, state)
			return nil
		}
	}
	return nil
}

// ClearHistory empties the meal log. Persistence keeps the most recent backup
// copy around until the next save, so an accidental clear is recoverable by
// support tooling even though the API reports an empty log.
func (s *Service) ClearHistory(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return err
	}
	state.meals = nil

	if err := s.storage.ClearMeals(ctx, ownerUserID); err != nil {
		s.logger.Printf("WARN meals: clear for %s failed: %v", ownerUserID, err)
	}
	return nil
}

// AttachPhoto records the blob key of an uploaded meal photo.
func (s *Service) AttachPhoto(ctx context.Context, ownerUserID, mealID, photoKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return err
	}

	for i := range state.meals {
		if state.meals[i].ID == mealID {
			state.meals[i].PhotoKey = &photoKey
			s.saver.Schedule(ownerUserID)
			return nil
		}
	}
	return ErrMealNotFound
}

// GetMeal returns a single meal by id.
func (s *Service) GetMeal(ctx context.Context, ownerUserID, mealID string) (*storage.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ensureLoadedLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	for _, m := range state.meals {
		if m.ID == mealID {
			meal := m
			return &meal, nil
		}
	}
	return nil, ErrMealNotFound
}

// Flush waits for in-flight background saves to finish. Used on shutdown and
// in tests.
func (s *Service) Flush() {
	s.saver.Wait()
}

// ensureLoadedLocked loads the owner's meal log from storage on first use.
// Storage handles backup fallback and corrupt-entry filtering; an empty or
// missing record simply yields an empty log.
func (s *Service) ensureLoadedLocked(ctx context.Context, ownerUserID string) (*ownerState, error) {
	state, ok := s.owners[ownerUserID]
	if ok && state.loaded {
		return state, nil
	}
	if state == nil {
		state = &ownerState{}
		s.owners[ownerUserID] = state
	}

	meals, err := s.storage.ListMeals(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].Timestamp.After(meals[j].Timestamp)
	})
	state.meals = meals
	state.loaded = true
	return state, nil
}

// persistNowLocked writes the owner's log synchronously and schedules a
// background re-save as a safety net. A failed write is logged, not returned:
// the in-memory log stays authoritative for the session.
func (s *Service) persistNowLocked(ctx context.Context, ownerUserID string, state *ownerState) {
	snapshot := make([]storage.Meal, len(state.meals))
	copy(snapshot, state.meals)
	if err := s.storage.ReplaceMeals(ctx, ownerUserID, snapshot); err != nil {
		s.logger.Printf("WARN meals: save for %s failed: %v", ownerUserID, err)
	}
	s.saver.Schedule(ownerUserID)
}

// persist snapshots the in-memory log and replaces the stored copy.
func (s *Service) persist(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	state, ok := s.owners[ownerUserID]
	if !ok || !state.loaded {
		s.mu.Unlock()
		return nil
	}
	snapshot := make([]storage.Meal, len(state.meals))
	copy(snapshot, state.meals)
	s.mu.Unlock()

	return s.storage.ReplaceMeals(ctx, ownerUserID, snapshot)
}

func insertNewestFirst(meals []storage.Meal, meal storage.Meal) []storage.Meal {
	idx := sort.Search(len(meals), func(i int) bool {
		return !meals[i].Timestamp.After(meal.Timestamp)
	})
	meals = append(meals, storage.Meal{})
	copy(meals[idx+1:], meals[idx:])
	meals[idx] = meal
	return meals
}

func normalizeMealType(mealType string) string {
	mealType = strings.ToLower(strings.TrimSpace(mealType))
	switch mealType {
	case "breakfast", "lunch", "dinner", "snack":
		return mealType
	default:
		return "snack"
	}
}

// newMealID builds a sortable id from the creation time plus a short random
// suffix to keep ids unique within the same millisecond.
func newMealID(now time.Time) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("%d", now.UnixNano())
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(suffix))
}

// sanitizeCalories treats NaN and negative calorie readings as zero.
func sanitizeCalories(calories float64) float64 {
	if math.IsNaN(calories) || calories < 0 {
		return 0
	}
	return calories
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func todayCalories(meals []storage.Meal, now time.Time) float64 {
	total := 0.0
	for _, m := range meals {
		if sameDay(m.Timestamp, now) {
			total += m.TotalCalories
		}
	}
	return total
}

// weeklyAverage is the calorie sum over the trailing seven days divided by
// seven, regardless of how many of those days have entries.
func weeklyAverage(meals []storage.Meal, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -7)
	total := 0.0
	for _, m := range meals {
		if m.Timestamp.After(cutoff) && !m.Timestamp.After(now) {
			total += m.TotalCalories
		}
	}
	return total / 7
}

func todayTotals(meals []storage.Meal, now time.Time) MacroTotals {
	var totals MacroTotals
	for _, m := range meals {
		if !sameDay(m.Timestamp, now) {
			continue
		}
		for _, f := range m.Foods {
			totals.Protein += f.Protein
			totals.Carbs += f.Carbs
			totals.Fat += f.Fat
		}
	}
	return totals
}
