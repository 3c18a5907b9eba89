package healthkit

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/fdg312/fittrack/internal/storage/memory"
)

// deniedProvider refuses access, like a user who never granted the health
// permission.
type deniedProvider struct{}

func (deniedProvider) RequestAccess(ctx context.Context) error { return ErrAccessDenied }
func (deniedProvider) Query(ctx context.Context, sampleType string, from, to time.Time) ([]Sample, error) {
	return nil, errors.New("query without access")
}

func newTestService(t *testing.T, provider Provider) *Service {
	t.Helper()
	return NewService(provider, memory.New(), log.New(io.Discard, "", 0))
}

func TestDailyIsDeterministicPerDate(t *testing.T) {
	svc := newTestService(t, NewMockProvider())
	ctx := context.Background()

	first, err := svc.Daily(ctx, "u1", "2026-08-20")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	second, err := svc.Daily(ctx, "u1", "2026-08-20")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}

	if *first != *second {
		t.Errorf("summaries differ: %+v vs %+v", first, second)
	}
	if first.Steps == 0 || first.AvgHeartRate == 0 {
		t.Errorf("summary looks empty: %+v", first)
	}
	if !first.SyncAvailable {
		t.Error("SyncAvailable should be true with a granting provider")
	}
}

func TestDailyRejectsBadDate(t *testing.T) {
	svc := newTestService(t, NewMockProvider())

	if _, err := svc.Daily(context.Background(), "u1", "20.08.2026"); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestDailyDegradesWhenAccessDenied(t *testing.T) {
	svc := newTestService(t, deniedProvider{})

	summary, err := svc.Daily(context.Background(), "u1", "2026-08-20")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if summary.SyncAvailable {
		t.Error("SyncAvailable should be false when access is denied")
	}
	if summary.Steps != 0 || summary.ActiveEnergy != 0 {
		t.Errorf("summary should stay empty, got %+v", summary)
	}
}

func TestSyncPreferenceRoundTrip(t *testing.T) {
	svc := newTestService(t, NewMockProvider())
	ctx := context.Background()

	pref, err := svc.SyncPreference(ctx, "u1")
	if err != nil {
		t.Fatalf("SyncPreference: %v", err)
	}
	if pref.Enabled {
		t.Error("sync should default to disabled")
	}

	if _, err := svc.SetSyncEnabled(ctx, "u1", true); err != nil {
		t.Fatalf("SetSyncEnabled: %v", err)
	}

	// a daily query with sync enabled stamps the last-synced marker
	if _, err := svc.Daily(ctx, "u1", "2026-08-20"); err != nil {
		t.Fatalf("Daily: %v", err)
	}

	pref, err = svc.SyncPreference(ctx, "u1")
	if err != nil {
		t.Fatalf("SyncPreference: %v", err)
	}
	if !pref.Enabled || pref.LastSyncedAt == nil {
		t.Errorf("pref = %+v, want enabled with a sync timestamp", pref)
	}
}
