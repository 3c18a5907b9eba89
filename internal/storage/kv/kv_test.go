package kv

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/fdg312/fittrack/internal/kvstore"
	"github.com/fdg312/fittrack/internal/storage"
)

func newTestStorage() (*KVStorage, *kvstore.MemoryStore) {
	store := kvstore.NewMemoryStore()
	return New(store, log.New(io.Discard, "", 0)), store
}

func sampleMeal(id string, calories float64) storage.Meal {
	return storage.Meal{
		ID:            id,
		Name:          "Oatmeal",
		TotalCalories: calories,
		MealType:      "breakfast",
		Timestamp:     time.Now(),
	}
}

func TestMealsRoundTrip(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	meals := []storage.Meal{sampleMeal("a", 300), sampleMeal("b", 450)}
	if err := s.ReplaceMeals(ctx, "default", meals); err != nil {
		t.Fatalf("ReplaceMeals: %v", err)
	}

	got, err := s.ListMeals(ctx, "default")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d meals, want 2", len(got))
	}
}

func TestMealsRecoverFromBackup(t *testing.T) {
	s, store := newTestStorage()
	ctx := context.Background()

	meals := []storage.Meal{sampleMeal("a", 300)}
	if err := s.ReplaceMeals(ctx, "default", meals); err != nil {
		t.Fatalf("ReplaceMeals: %v", err)
	}

	// Corrupt the primary copy; the backup must serve the load.
	if err := store.Set(ctx, "meals:default", []byte(`{broken`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.ListMeals(ctx, "default")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %+v, want meal a", got)
	}

	// The load must also have healed the primary.
	healed, err := store.Get(ctx, "meals:default")
	if err != nil {
		t.Fatalf("Get primary: %v", err)
	}
	if string(healed) == `{broken` {
		t.Error("primary was not healed from backup")
	}
}

func TestMealsAllCorruptClearsAndStartsEmpty(t *testing.T) {
	s, store := newTestStorage()
	ctx := context.Background()

	store.Set(ctx, "meals:default", []byte(`nope`))
	store.Set(ctx, "meals_backup:default", []byte(`also nope`))

	got, err := s.ListMeals(ctx, "default")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d meals, want 0", len(got))
	}

	if _, err := store.Get(ctx, "meals:default"); err == nil {
		t.Error("corrupt primary should have been cleared")
	}
	if _, err := store.Get(ctx, "meals_backup:default"); err == nil {
		t.Error("corrupt backup should have been cleared")
	}
}

func TestMealsInvalidEntriesDropped(t *testing.T) {
	s, store := newTestStorage()
	ctx := context.Background()

	// One entry is missing its id; the load keeps only the valid one.
	payload := `[{"id":"ok","name":"Rice","totalCalories":200,"mealType":"lunch","timestamp":"2026-08-29T12:00:00Z"},{"name":"broken","totalCalories":100}]`
	store.Set(ctx, "meals:default", []byte(payload))

	got, err := s.ListMeals(ctx, "default")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("got %+v, want only meal ok", got)
	}
}

func TestClearMealsKeepsBackup(t *testing.T) {
	s, store := newTestStorage()
	ctx := context.Background()

	if err := s.ReplaceMeals(ctx, "default", []storage.Meal{sampleMeal("a", 300)}); err != nil {
		t.Fatalf("ReplaceMeals: %v", err)
	}
	if err := s.ClearMeals(ctx, "default"); err != nil {
		t.Fatalf("ClearMeals: %v", err)
	}

	primary, err := store.Get(ctx, "meals:default")
	if err != nil {
		t.Fatalf("Get primary: %v", err)
	}
	if string(primary) != "[]" {
		t.Errorf("primary = %s, want empty list", primary)
	}

	backup, err := store.Get(ctx, "meals_backup:default")
	if err != nil {
		t.Fatalf("backup should survive clear, got err = %v", err)
	}
	if string(backup) == "[]" {
		t.Error("backup should keep the pre-clear contents")
	}
}

func TestClearMealsSurvivesReload(t *testing.T) {
	s, store := newTestStorage()
	ctx := context.Background()

	if err := s.ReplaceMeals(ctx, "default", []storage.Meal{sampleMeal("a", 300)}); err != nil {
		t.Fatalf("ReplaceMeals: %v", err)
	}
	if err := s.ClearMeals(ctx, "default"); err != nil {
		t.Fatalf("ClearMeals: %v", err)
	}

	got, err := s.ListMeals(ctx, "default")
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("after clear got %d meals, want 0", len(got))
	}

	// A fresh storage over the same store simulates a process restart; the
	// cleared log must not resurrect from the backup.
	reopened := New(store, log.New(io.Discard, "", 0))
	got, err = reopened.ListMeals(ctx, "default")
	if err != nil {
		t.Fatalf("ListMeals after reopen: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("after clear + reopen got %d meals (%+v), want 0", len(got), got)
	}
}

func TestSessionsAppendAndList(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	first := &storage.WorkoutSession{
		OwnerUserID: "default",
		Type:        "walking",
		DistanceKm:  2.5,
		DurationSec: 1800,
		StartedAt:   time.Now().Add(-time.Hour),
		EndedAt:     time.Now().Add(-30 * time.Minute),
	}
	second := &storage.WorkoutSession{
		OwnerUserID: "default",
		Type:        "running",
		DistanceKm:  5,
		DurationSec: 1500,
		StartedAt:   time.Now().Add(-25 * time.Minute),
		EndedAt:     time.Now(),
	}

	if err := s.AppendSession(ctx, first); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}
	if err := s.AppendSession(ctx, second); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}
	if first.ID == "" || second.ID == "" {
		t.Fatal("AppendSession should assign ids")
	}

	got, err := s.ListSessions(ctx, "default")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[0].Type != "running" {
		t.Errorf("newest session first, got %s", got[0].Type)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s, _ := newTestStorage()
	ctx := context.Background()

	if _, err := s.GetProfile(ctx, "default"); err != storage.ErrNotFound {
		t.Fatalf("GetProfile on empty store: err = %v, want ErrNotFound", err)
	}

	p := &storage.UserProfile{
		OwnerUserID:   "default",
		Name:          "Alex",
		Age:           30,
		WeightKg:      70,
		HeightCm:      175,
		Gender:        "male",
		ActivityLevel: "moderate",
		Goal:          "maintain",
	}
	if err := s.PutProfile(ctx, p); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}

	got, err := s.GetProfile(ctx, "default")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Name != "Alex" || got.WeightKg != 70 {
		t.Errorf("profile round trip mismatch: %+v", got)
	}
}
