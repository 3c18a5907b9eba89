package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
	"github.com/fdg312/fittrack/internal/storage/memory"
)

func TestAddAndList(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	session, err := svc.Add(ctx, "u1", &AddSessionRequest{
		Type:        "running",
		DistanceKm:  5.2,
		DurationSec: 1800,
		Calories:    364,
		Steps:       6760,
		AvgSpeedKmh: 10.4,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if session.ID == "" {
		t.Error("session id should be assigned")
	}

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].DistanceKm != 5.2 {
		t.Errorf("sessions = %+v", resp.Sessions)
	}
}

func TestAddValidation(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", &AddSessionRequest{Type: "swimming"}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown type: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Add(ctx, "u1", &AddSessionRequest{Type: "running", DurationSec: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative duration: err = %v, want ErrValidation", err)
	}
}

func TestSummaryWindows(t *testing.T) {
	store := memory.New()
	svc := NewService(store)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seed := []storage.WorkoutSession{
		{ID: "s1", OwnerUserID: "u1", Type: "running", DurationSec: 1800, Calories: 300, DistanceKm: 5, EndedAt: now.Add(-time.Hour)},
		{ID: "s2", OwnerUserID: "u1", Type: "walking", DurationSec: 1200, Calories: 100, DistanceKm: 2, EndedAt: now.AddDate(0, 0, -3)},
		{ID: "s3", OwnerUserID: "u1", Type: "live", DurationSec: 600, Calories: 80, DistanceKm: 1, EndedAt: now.AddDate(0, 0, -10)},
	}
	for i := range seed {
		if err := store.AppendSession(ctx, &seed[i]); err != nil {
			t.Fatalf("AppendSession: %v", err)
		}
	}

	resp, err := svc.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if resp.Today.Count != 1 || resp.Today.Calories != 300 {
		t.Errorf("Today = %+v, want one 300 kcal session", resp.Today)
	}
	if resp.Week.Count != 2 || resp.Week.DistanceKm != 7 || resp.Week.DurationSec != 3000 {
		t.Errorf("Week = %+v, want the two recent sessions", resp.Week)
	}
}

func TestClear(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", &AddSessionRequest{Type: "walking", DurationSec: 600}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	resp, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Sessions) != 0 {
		t.Errorf("sessions = %+v, want empty", resp.Sessions)
	}
}
