package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
	"github.com/google/uuid"
)

var ErrValidation = errors.New("validation")

var validTypes = map[string]bool{
	"walking": true,
	"running": true,
	"live":    true,
}

// Service is the append-only workout log plus its day and week aggregates.
// Sessions are never edited after the fact, only appended and aggregated.
type Service struct {
	storage storage.SessionsStorage
	now     func() time.Time
}

func NewService(store storage.SessionsStorage) *Service {
	return &Service{
		storage: store,
		now:     time.Now,
	}
}

// List returns all sessions of the owner, newest first.
func (s *Service) List(ctx context.Context, ownerUserID string) (*ListSessionsResponse, error) {
	sessions, err := s.storage.ListSessions(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []storage.WorkoutSession{}
	}
	return &ListSessionsResponse{Sessions: sessions}, nil
}

// Add validates and appends one session.
func (s *Service) Add(ctx context.Context, ownerUserID string, req *AddSessionRequest) (*storage.WorkoutSession, error) {
	if !validTypes[req.Type] {
		return nil, fmt.Errorf("%w: type must be walking, running or live", ErrValidation)
	}
	if req.DurationSec < 0 || req.Calories < 0 || req.DistanceKm < 0 || req.Steps < 0 || req.AvgSpeedKmh < 0 {
		return nil, fmt.Errorf("%w: session numbers must not be negative", ErrValidation)
	}

	now := s.now()
	endedAt := now
	if req.EndedAt > 0 {
		endedAt = time.Unix(req.EndedAt, 0)
	}
	startedAt := endedAt.Add(-time.Duration(req.DurationSec) * time.Second)
	if req.StartedAt > 0 {
		startedAt = time.Unix(req.StartedAt, 0)
	}

	session := &storage.WorkoutSession{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Type:        req.Type,
		DistanceKm:  req.DistanceKm,
		DurationSec: req.DurationSec,
		Calories:    req.Calories,
		Steps:       req.Steps,
		AvgSpeedKmh: req.AvgSpeedKmh,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
	}

	if err := s.storage.AppendSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Summary aggregates today's sessions and the trailing seven days. The two
// windows use the same timestamp comparisons as the meal log so the numbers
// line up on the dashboard.
func (s *Service) Summary(ctx context.Context, ownerUserID string) (*SummaryResponse, error) {
	sessions, err := s.storage.ListSessions(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cutoff := now.AddDate(0, 0, -7)

	resp := &SummaryResponse{}
	for _, session := range sessions {
		if sameDay(session.EndedAt, now) {
			accumulate(&resp.Today, session)
		}
		if session.EndedAt.After(cutoff) && !session.EndedAt.After(now) {
			accumulate(&resp.Week, session)
		}
	}
	return resp, nil
}

// Clear removes the whole log.
func (s *Service) Clear(ctx context.Context, ownerUserID string) error {
	return s.storage.ClearSessions(ctx, ownerUserID)
}

func accumulate(summary *PeriodSummary, session storage.WorkoutSession) {
	summary.Count++
	summary.DurationSec += session.DurationSec
	summary.Calories += session.Calories
	summary.DistanceKm += session.DistanceKm
	summary.Steps += session.Steps
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
