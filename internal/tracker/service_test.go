package tracker

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/fdg312/fittrack/internal/sessions"
	"github.com/fdg312/fittrack/internal/storage/memory"
)

// scriptedSource is a deterministic Source for tests. Fixes are injected by
// calling the service's addFix directly, so Watch hands out an idle channel.
type scriptedSource struct {
	denyPermission bool
	seed           *Fix
}

func (s *scriptedSource) RequestPermission(ctx context.Context) error {
	if s.denyPermission {
		return ErrPermissionDenied
	}
	return nil
}

func (s *scriptedSource) Current(ctx context.Context) (Fix, error) {
	if s.seed == nil {
		return Fix{}, ErrNoFix
	}
	return *s.seed, nil
}

func (s *scriptedSource) Watch(ctx context.Context) (<-chan Fix, func(), error) {
	ch := make(chan Fix)
	var once bool
	cancel := func() {
		if !once {
			once = true
			close(ch)
		}
	}
	return ch, cancel, nil
}

func newTestTracker(t *testing.T, source Source) (*Service, *sessions.Service, *time.Time) {
	t.Helper()
	store := memory.New()
	appender := sessions.NewService(store)
	svc := NewService(appender, store, log.New(io.Discard, "", 0), false, 100)
	svc.newSource = func() Source { return source }

	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, appender, &now
}

func fixAt(lat, lon float64, tMs int64) Fix {
	return Fix{Lat: lat, Lon: lon, TimestampMs: tMs}
}

func TestStartDeniedPermission(t *testing.T) {
	svc, _, _ := newTestTracker(t, &scriptedSource{denyPermission: true})

	_, err := svc.Start(context.Background(), "u1", "running")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestStateTransitions(t *testing.T) {
	svc, _, _ := newTestTracker(t, &scriptedSource{})
	ctx := context.Background()

	if _, err := svc.Pause(ctx, "u1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("pause while idle: err = %v, want ErrInvalidState", err)
	}

	if _, err := svc.Start(ctx, "u1", "running"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(ctx, "u1", "running"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double start: err = %v, want ErrInvalidState", err)
	}

	stats, err := svc.Pause(ctx, "u1")
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if stats.State != statePaused {
		t.Errorf("state = %q, want paused", stats.State)
	}

	if _, err := svc.Resume(ctx, "u1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := svc.Stop(ctx, "u1"); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	stats, err = svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.State != stateIdle {
		t.Errorf("state after stop = %q, want idle", stats.State)
	}
}

func TestPerFixDistanceAndSpeed(t *testing.T) {
	svc, _, _ := newTestTracker(t, &scriptedSource{})
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "running"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// two fixes 0.001 deg apart on the equator, 10 s between them:
	// ~111.19 m at ~40 km/h
	svc.addFix("u1", fixAt(0, 0, 0))
	svc.addFix("u1", fixAt(0, 0.001, 10_000))

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if math.Abs(stats.DistanceKm-0.11119) > 0.001 {
		t.Errorf("distance = %v, want ~0.11119", stats.DistanceKm)
	}
	if math.Abs(stats.AvgSpeedKmh-40.03) > 0.1 {
		t.Errorf("avg speed = %v, want ~40.03", stats.AvgSpeedKmh)
	}
	if stats.MaxSpeedKmh == 0 {
		t.Error("max speed should be recorded")
	}
	if stats.Pace == "--:--" {
		t.Error("pace should be computed once speeds exist")
	}
}

func TestNoiseGuards(t *testing.T) {
	svc, _, _ := newTestTracker(t, &scriptedSource{})
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "running"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	svc.addFix("u1", fixAt(0, 0, 0))
	svc.addFix("u1", fixAt(0, 0.001, 10_000))

	before, _ := svc.Stats(ctx, "u1")

	// 300 ms gap: far too fast, but the dt guard keeps it out of the speeds
	svc.addFix("u1", fixAt(0, 0.002, 10_300))
	// 2 s for ~1.1 km implies ~2000 km/h: discarded by the speed bound
	svc.addFix("u1", fixAt(0, 0.012, 12_300))

	after, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if after.AvgSpeedKmh != before.AvgSpeedKmh {
		t.Errorf("avg speed moved from %v to %v, noisy pairs must not contribute", before.AvgSpeedKmh, after.AvgSpeedKmh)
	}
	if after.DistanceKm <= before.DistanceKm {
		t.Error("distance should still accumulate over noisy pairs")
	}
}

func TestInstrumentSpeedTakesPrecedence(t *testing.T) {
	svc, _, _ := newTestTracker(t, &scriptedSource{})
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "walking"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	speed := 3.0 // m/s
	svc.addFix("u1", fixAt(0, 0, 0))
	svc.addFix("u1", Fix{Lat: 0, Lon: 0.001, TimestampMs: 10_000, SpeedMps: &speed})

	stats, _ := svc.Stats(ctx, "u1")
	if math.Abs(stats.CurrentSpeedKmh-10.8) > 1e-9 {
		t.Errorf("current speed = %v, want 10.8 from the instrument reading", stats.CurrentSpeedKmh)
	}
}

func TestHistoryCapKeepsAccumulatedDistance(t *testing.T) {
	store := memory.New()
	appender := sessions.NewService(store)
	svc := NewService(appender, store, log.New(io.Discard, "", 0), false, 5)
	svc.newSource = func() Source { return &scriptedSource{} }
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "running"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 20; i++ {
		svc.addFix("u1", fixAt(0, float64(i)*0.001, int64(i)*10_000))
	}

	stats, _ := svc.Stats(ctx, "u1")
	if stats.FixCount != 5 {
		t.Errorf("fix count = %d, want the 5-entry cap", stats.FixCount)
	}
	// 19 pairs of ~111.19 m each must survive the eviction
	if math.Abs(stats.DistanceKm-19*0.11119) > 0.01 {
		t.Errorf("distance = %v, want ~%v", stats.DistanceKm, 19*0.11119)
	}
}

func TestLegacyDistanceLosesEvictedWindow(t *testing.T) {
	store := memory.New()
	appender := sessions.NewService(store)
	svc := NewService(appender, store, log.New(io.Discard, "", 0), true, 5)
	svc.newSource = func() Source { return &scriptedSource{} }
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "running"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 20; i++ {
		svc.addFix("u1", fixAt(0, float64(i)*0.001, int64(i)*10_000))
	}

	stats, _ := svc.Stats(ctx, "u1")
	// only the 4 pairs inside the retained window count
	if math.Abs(stats.DistanceKm-4*0.11119) > 0.01 {
		t.Errorf("distance = %v, want ~%v", stats.DistanceKm, 4*0.11119)
	}
}

func TestStopAppendsSession(t *testing.T) {
	svc, appender, now := newTestTracker(t, &scriptedSource{})
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "running"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.addFix("u1", fixAt(0, 0, 0))
	svc.addFix("u1", fixAt(0, 0.001, 10_000))

	*now = now.Add(30 * time.Minute)

	stats, err := svc.Stop(ctx, "u1")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stats.ElapsedSec != 1800 {
		t.Errorf("elapsed = %d, want 1800", stats.ElapsedSec)
	}

	resp, err := appender.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("sessions = %+v, want one", resp.Sessions)
	}
	recorded := resp.Sessions[0]
	if recorded.Type != "running" || recorded.DurationSec != 1800 {
		t.Errorf("session = %+v", recorded)
	}
	// no profile stored: calories use the 50 kg default and the running
	// coefficient of 1.0
	wantCalories := math.Round(stats.DistanceKm * 50 * 1.0)
	if recorded.Calories != wantCalories {
		t.Errorf("calories = %v, want %v", recorded.Calories, wantCalories)
	}
}

func TestFixAfterStopIsNoOp(t *testing.T) {
	svc, _, _ := newTestTracker(t, &scriptedSource{})
	ctx := context.Background()

	if _, err := svc.Start(ctx, "u1", "walking"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Stop(ctx, "u1"); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	svc.addFix("u1", fixAt(0, 0, 0)) // must not panic or revive the session

	stats, _ := svc.Stats(ctx, "u1")
	if stats.State != stateIdle || stats.FixCount != 0 {
		t.Errorf("stats = %+v, want idle with no fixes", stats)
	}
}
