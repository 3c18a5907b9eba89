package profile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fdg312/fittrack/internal/ai"
	"github.com/fdg312/fittrack/internal/meals"
	"github.com/fdg312/fittrack/internal/storage"
)

var (
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrValidation      = errors.New("validation")
	ErrPersistence     = errors.New("persistence")
)

// fallbackRecommendations is served whenever the AI call fails or returns
// nothing usable. The deterministic metrics never depend on the AI outcome.
var fallbackRecommendations = []string{
	"Eat protein with every meal to stay full longer.",
	"Drink a glass of water before each meal.",
	"Take a 20-minute walk after lunch.",
	"Keep a consistent sleep schedule of 7-8 hours.",
}

// NutrientSource reports today's intake totals. The meals service implements
// it; the health score is the only consumer.
type NutrientSource interface {
	TodayNutrients(ctx context.Context, ownerUserID string) (*meals.NutrientTotals, error)
}

// Service owns the single profile per user and everything derived from it.
type Service struct {
	storage   storage.ProfileStorage
	nutrients NutrientSource
	provider  ai.Provider
	logger    *log.Logger
}

func NewService(store storage.ProfileStorage, nutrients NutrientSource, provider ai.Provider, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		storage:   store,
		nutrients: nutrients,
		provider:  provider,
		logger:    logger,
	}
}

// Get returns the stored profile with freshly computed metrics.
func (s *Service) Get(ctx context.Context, ownerUserID string) (*ProfileResponse, error) {
	p, err := s.storage.GetProfile(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ProfileResponse{
		Profile:   p,
		Metrics:   CalculateMetrics(p),
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// Update replaces the profile wholesale, recomputes metrics and aligns the
// daily calorie goal with the new recommendation when it changed.
func (s *Service) Update(ctx context.Context, ownerUserID string, req *UpdateProfileRequest) (*ProfileResponse, error) {
	if err := validateProfile(req); err != nil {
		return nil, err
	}

	p := &storage.UserProfile{
		OwnerUserID:   ownerUserID,
		Name:          strings.TrimSpace(req.Name),
		Age:           req.Age,
		WeightKg:      req.WeightKg,
		HeightCm:      req.HeightCm,
		Gender:        req.Gender,
		ActivityLevel: req.ActivityLevel,
		Goal:          req.Goal,
	}
	metrics := CalculateMetrics(p)

	if err := s.storage.PutProfile(ctx, p); err != nil {
		s.logger.Printf("WARN profile: save for %s failed: %v", ownerUserID, err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.alignDailyGoal(ctx, ownerUserID, metrics.RecommendedCalories)

	return &ProfileResponse{
		Profile:   p,
		Metrics:   metrics,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// Metrics recomputes the derived numbers for the stored profile.
func (s *Service) Metrics(ctx context.Context, ownerUserID string) (*HealthMetrics, error) {
	p, err := s.storage.GetProfile(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	metrics := CalculateMetrics(p)
	return &metrics, nil
}

// Recommendations asks the model for advice once, best-effort. Any failure
// falls through to the static list; the call never propagates an error from
// the provider.
func (s *Service) Recommendations(ctx context.Context, ownerUserID string) (*RecommendationsResponse, error) {
	p, err := s.storage.GetProfile(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	metrics := CalculateMetrics(p)

	if s.provider == nil {
		return &RecommendationsResponse{Recommendations: fallbackRecommendations, Source: "fallback"}, nil
	}

	prompt := fmt.Sprintf(
		"User profile: age %d, weight %.1f kg, height %.1f cm, gender %s, activity level %s, goal %s. "+
			"BMI %.1f (%s), recommended daily calories %d. "+
			"Give exactly 4 short numbered nutrition and fitness recommendations.",
		p.Age, p.WeightKg, p.HeightCm, p.Gender, p.ActivityLevel, p.Goal,
		metrics.BMI, metrics.BMICategory, metrics.RecommendedCalories,
	)

	reply, err := s.provider.Complete(ctx, []ai.Message{
		{Role: "system", Content: "You are a nutrition coach. Answer with a short numbered list."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		s.logger.Printf("WARN profile: recommendations call failed: %v", err)
		return &RecommendationsResponse{Recommendations: fallbackRecommendations, Source: "fallback"}, nil
	}

	items := ai.SplitListItems(reply)
	if len(items) == 0 {
		return &RecommendationsResponse{Recommendations: fallbackRecommendations, Source: "fallback"}, nil
	}
	if len(items) > 4 {
		items = items[:4]
	}
	return &RecommendationsResponse{Recommendations: items, Source: "ai"}, nil
}

// Score computes today's 0-100 adherence score. Missing profile or an empty
// meal day scores zero rather than erroring.
func (s *Service) Score(ctx context.Context, ownerUserID string) (*HealthScoreResponse, error) {
	p, err := s.storage.GetProfile(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return &HealthScoreResponse{Score: 0}, nil
	}
	if err != nil {
		return nil, err
	}

	totals, err := s.nutrients.TodayNutrients(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	metrics := CalculateMetrics(p)
	score := HealthScore(p, metrics, totals.Calories, totals.Protein, totals.Sugar, totals.Sodium)
	return &HealthScoreResponse{Score: score}, nil
}

// DailyGoal returns the stored daily calorie goal, falling back to the
// profile's recommended calories when none was persisted yet.
func (s *Service) DailyGoal(ctx context.Context, ownerUserID string) (*DailyGoalResponse, error) {
	goal, err := s.storage.GetDailyGoal(ctx, ownerUserID)
	if err == nil {
		return &DailyGoalResponse{Calories: goal}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	p, err := s.storage.GetProfile(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &DailyGoalResponse{Calories: float64(CalculateMetrics(p).RecommendedCalories)}, nil
}

// SetDailyGoal overrides the goal manually.
func (s *Service) SetDailyGoal(ctx context.Context, ownerUserID string, calories float64) error {
	if calories <= 0 {
		return fmt.Errorf("%w: calories must be positive", ErrValidation)
	}
	if err := s.storage.PutDailyGoal(ctx, ownerUserID, calories); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// alignDailyGoal rewrites the stored goal only when the recommendation moved.
func (s *Service) alignDailyGoal(ctx context.Context, ownerUserID string, recommended int) {
	current, err := s.storage.GetDailyGoal(ctx, ownerUserID)
	if err == nil && current == float64(recommended) {
		return
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("WARN profile: read daily goal for %s failed: %v", ownerUserID, err)
		return
	}
	if err := s.storage.PutDailyGoal(ctx, ownerUserID, float64(recommended)); err != nil {
		s.logger.Printf("WARN profile: update daily goal for %s failed: %v", ownerUserID, err)
	}
}

func validateProfile(req *UpdateProfileRequest) error {
	if req.Age <= 0 || req.Age > 120 {
		return fmt.Errorf("%w: age must be between 1 and 120", ErrValidation)
	}
	if req.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrValidation)
	}
	if req.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrValidation)
	}
	if req.Gender != "male" && req.Gender != "female" {
		return fmt.Errorf("%w: gender must be male or female", ErrValidation)
	}
	if _, ok := activityMultipliers[req.ActivityLevel]; !ok {
		return fmt.Errorf("%w: unknown activity level", ErrValidation)
	}
	switch req.Goal {
	case "lose", "maintain", "gain":
	default:
		return fmt.Errorf("%w: goal must be lose, maintain or gain", ErrValidation)
	}
	return nil
}
