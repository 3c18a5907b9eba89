package sessions

import (
	"github.com/fdg312/fittrack/internal/storage"
)

// AddSessionRequest records one finished workout.
type AddSessionRequest struct {
	Type        string  `json:"type"` // walking, running, live
	DistanceKm  float64 `json:"distance"`
	DurationSec int     `json:"duration"`
	Calories    float64 `json:"calories"`
	Steps       int     `json:"steps"`
	AvgSpeedKmh float64 `json:"avgSpeed"`
	StartedAt   int64   `json:"startedAt,omitempty"` // unix seconds, 0 means "derived from duration"
	EndedAt     int64   `json:"endedAt,omitempty"`   // unix seconds, 0 means "now"
}

// ListSessionsResponse is the full log, newest first.
type ListSessionsResponse struct {
	Sessions []storage.WorkoutSession `json:"sessions"`
}

// PeriodSummary aggregates the sessions of one time window.
type PeriodSummary struct {
	Count       int     `json:"count"`
	DurationSec int     `json:"duration"`
	Calories    float64 `json:"calories"`
	DistanceKm  float64 `json:"distance"`
	Steps       int     `json:"steps"`
}

// SummaryResponse carries the calendar-day and trailing-7-day aggregates.
type SummaryResponse struct {
	Today PeriodSummary `json:"today"`
	Week  PeriodSummary `json:"week"`
}
