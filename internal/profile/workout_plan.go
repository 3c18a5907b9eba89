package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fdg312/fittrack/internal/ai"
	"github.com/fdg312/fittrack/internal/storage"
	"github.com/fdg312/fittrack/internal/userctx"
)

// fallbackWorkoutPlan keeps the endpoint useful when the model is down.
var fallbackWorkoutPlan = []string{
	"Day 1: 30 min easy cardio.",
	"Day 2: Full-body strength, 3x10 squats, push-ups, rows.",
	"Day 3: Rest or 20 min walk.",
	"Day 4: Intervals, 6x400m with 90s recovery.",
	"Day 5: 40 min steady cardio.",
	"Day 6: Core and mobility, 20 min.",
	"Day 7: Rest.",
}

// WorkoutPlanResponse is a 7-day plan, one item per day.
type WorkoutPlanResponse struct {
	Days   []string `json:"days"`
	Source string   `json:"source"` // ai or fallback
}

// WorkoutPlan generates a weekly plan from the profile, best-effort through
// the model with a static fallback.
func (s *Service) WorkoutPlan(ctx context.Context, ownerUserID string) (*WorkoutPlanResponse, error) {
	p, err := s.storage.GetProfile(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.provider == nil {
		return &WorkoutPlanResponse{Days: fallbackWorkoutPlan, Source: "fallback"}, nil
	}

	prompt := fmt.Sprintf(
		"User: age %d, weight %.1f kg, activity level %s, goal %s. "+
			"Write a 7-day workout training plan, one line per day, prefixed with the day.",
		p.Age, p.WeightKg, p.ActivityLevel, p.Goal,
	)

	reply, err := s.provider.Complete(ctx, []ai.Message{
		{Role: "system", Content: "You are a fitness coach. Answer with one line per day."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		s.logger.Printf("WARN profile: workout plan call failed: %v", err)
		return &WorkoutPlanResponse{Days: fallbackWorkoutPlan, Source: "fallback"}, nil
	}

	days := ai.SplitListItems(reply)
	if len(days) == 0 {
		return &WorkoutPlanResponse{Days: fallbackWorkoutPlan, Source: "fallback"}, nil
	}
	if len(days) > 7 {
		days = days[:7]
	}
	return &WorkoutPlanResponse{Days: days, Source: "ai"}, nil
}

// HandleWorkoutPlan handles GET /v1/plans/workout
func (h *Handler) HandleWorkoutPlan(w http.ResponseWriter, r *http.Request) {
	ownerUserID, ok := userctx.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	resp, err := h.service.WorkoutPlan(r.Context(), ownerUserID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
