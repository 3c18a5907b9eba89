package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/fdg312/fittrack/internal/sessions"
	"github.com/fdg312/fittrack/internal/storage"
)

var (
	// ErrInvalidState is returned for transitions the state machine does
	// not allow, e.g. pausing an idle tracker.
	ErrInvalidState = errors.New("invalid_state")

	ErrValidation = errors.New("validation")
)

const (
	stateIdle   = "idle"
	stateActive = "active"
	statePaused = "paused"
)

const (
	defaultWeightKg = 50.0
	stepsPerKm      = 1300.0
	minPairSeconds  = 0.5
	maxSpeedKmh     = 80.0
	speedWindowSize = 10
)

var calorieCoefficients = map[string]float64{
	"walking": 0.5,
	"running": 1.0,
	"live":    0.8,
}

// SessionAppender receives the finished session when the tracker stops.
type SessionAppender interface {
	Add(ctx context.Context, ownerUserID string, req *sessions.AddSessionRequest) (*storage.WorkoutSession, error)
}

// liveSession is the transient per-owner tracking state. Everything here is
// reset to zero when the session stops.
type liveSession struct {
	state string
	mode  string

	weightKg float64
	history  []Fix

	distanceKm float64
	speedSum   float64
	speedCount int
	maxSpeed   float64
	current    float64

	accumulatedSec float64
	resumedAt      time.Time

	cancelWatch func()
}

// Service turns a stream of raw fixes into live workout statistics, one
// session per owner. Handlers run concurrently, so unlike the original
// single-threaded event loop all state is mutex-guarded.
type Service struct {
	appender SessionAppender
	profiles storage.ProfileStorage
	logger   *log.Logger
	now      func() time.Time

	newSource func() Source

	// legacyDistance recomputes distance from the retained fix window on
	// every update, losing distance once old fixes are evicted. The default
	// accumulator only ever adds new pair deltas.
	legacyDistance bool
	maxHistory     int

	mu      sync.Mutex
	active  map[string]*liveSession
	sources map[string]Source
}

func NewService(appender SessionAppender, profiles storage.ProfileStorage, logger *log.Logger, legacyDistance bool, maxHistory int) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Service{
		appender:       appender,
		profiles:       profiles,
		logger:         logger,
		now:            time.Now,
		newSource:      func() Source { return NewPushSource() },
		legacyDistance: legacyDistance,
		maxHistory:     maxHistory,
		active:         map[string]*liveSession{},
		sources:        map[string]Source{},
	}
}

// Start moves the owner's tracker from idle to active: permission check, seed
// fix, continuous watch, elapsed timer.
func (s *Service) Start(ctx context.Context, ownerUserID, workoutType string) (*Stats, error) {
	if _, ok := calorieCoefficients[workoutType]; !ok {
		return nil, fmt.Errorf("%w: type must be walking, running or live", ErrValidation)
	}

	s.mu.Lock()
	if _, ok := s.active[ownerUserID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session already running", ErrInvalidState)
	}
	source, ok := s.sources[ownerUserID]
	if !ok {
		source = s.newSource()
		s.sources[ownerUserID] = source
	}
	s.mu.Unlock()

	if err := source.RequestPermission(ctx); err != nil {
		return nil, err
	}

	sess := &liveSession{
		state:     stateActive,
		mode:      workoutType,
		weightKg:  s.ownerWeight(ctx, ownerUserID),
		resumedAt: s.now(),
	}
	if seed, err := source.Current(ctx); err == nil {
		sess.history = append(sess.history, seed)
	}

	if err := s.watch(ownerUserID, source, sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.active[ownerUserID] = sess
	stats := s.statsLocked(sess)
	s.mu.Unlock()
	return stats, nil
}

// Pause stops the fix subscription and the timer but keeps accumulated stats.
func (s *Service) Pause(ctx context.Context, ownerUserID string) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.active[ownerUserID]
	if !ok || sess.state != stateActive {
		return nil, fmt.Errorf("%w: no active session", ErrInvalidState)
	}

	sess.accumulatedSec += s.now().Sub(sess.resumedAt).Seconds()
	sess.state = statePaused
	if sess.cancelWatch != nil {
		sess.cancelWatch()
		sess.cancelWatch = nil
	}
	return s.statsLocked(sess), nil
}

// Resume restarts the subscription and timer without resetting stats.
func (s *Service) Resume(ctx context.Context, ownerUserID string) (*Stats, error) {
	s.mu.Lock()
	sess, ok := s.active[ownerUserID]
	if !ok || sess.state != statePaused {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no paused session", ErrInvalidState)
	}
	source := s.sources[ownerUserID]
	s.mu.Unlock()

	if err := s.watch(ownerUserID, source, sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.state = stateActive
	sess.resumedAt = s.now()
	return s.statsLocked(sess), nil
}

// Stop finishes the session. When any time elapsed, one workout session is
// appended to the log; all transient state is dropped either way.
func (s *Service) Stop(ctx context.Context, ownerUserID string) (*Stats, error) {
	s.mu.Lock()
	sess, ok := s.active[ownerUserID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no session to stop", ErrInvalidState)
	}

	if sess.state == stateActive {
		sess.accumulatedSec += s.now().Sub(sess.resumedAt).Seconds()
	}
	if sess.cancelWatch != nil {
		sess.cancelWatch()
		sess.cancelWatch = nil
	}
	final := s.statsLocked(sess)
	delete(s.active, ownerUserID)
	s.mu.Unlock()

	if final.ElapsedSec > 0 {
		_, err := s.appender.Add(ctx, ownerUserID, &sessions.AddSessionRequest{
			Type:        final.Type,
			DistanceKm:  final.DistanceKm,
			DurationSec: final.ElapsedSec,
			Calories:    math.Round(final.Calories),
			Steps:       final.Steps,
			AvgSpeedKmh: final.AvgSpeedKmh,
		})
		if err != nil {
			s.logger.Printf("WARN tracker: append session for %s failed: %v", ownerUserID, err)
		}
	}

	final.State = stateIdle
	return final, nil
}

// Stats returns the live numbers, or an idle snapshot when nothing runs.
func (s *Service) Stats(ctx context.Context, ownerUserID string) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.active[ownerUserID]
	if !ok {
		return &Stats{State: stateIdle, Pace: "--:--"}, nil
	}
	return s.statsLocked(sess), nil
}

// PushFix feeds one client-reported fix into the owner's location source.
func (s *Service) PushFix(ctx context.Context, ownerUserID string, fix Fix) error {
	s.mu.Lock()
	source, ok := s.sources[ownerUserID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no session accepting fixes", ErrInvalidState)
	}

	push, ok := source.(*PushSource)
	if !ok {
		return fmt.Errorf("%w: source does not accept pushed fixes", ErrInvalidState)
	}
	push.Push(fix)
	return nil
}

// watch subscribes the session to the source and pumps fixes into addFix
// until the subscription is cancelled.
func (s *Service) watch(ownerUserID string, source Source, sess *liveSession) error {
	ch, cancel, err := source.Watch(context.Background())
	if err != nil {
		return err
	}
	sess.cancelWatch = cancel

	go func() {
		for fix := range ch {
			s.addFix(ownerUserID, fix)
		}
	}()
	return nil
}

// addFix runs the per-fix update. A fix arriving when the tracker is no
// longer active is a tolerated no-op.
func (s *Service) addFix(ownerUserID string, fix Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.active[ownerUserID]
	if !ok || sess.state != stateActive {
		return
	}

	var prev *Fix
	if len(sess.history) > 0 {
		prev = &sess.history[len(sess.history)-1]
	}

	sess.history = append(sess.history, fix)
	if len(sess.history) > s.maxHistory {
		sess.history = sess.history[len(sess.history)-s.maxHistory:]
	}

	if s.legacyDistance {
		s.recomputeFromWindowLocked(sess)
	} else if prev != nil {
		distance, speed, valid := pairSample(*prev, fix)
		sess.distanceKm += distance
		if valid {
			sess.speedSum += speed
			sess.speedCount++
			if speed > sess.maxSpeed {
				sess.maxSpeed = speed
			}
		}
	}

	sess.current = s.currentSpeedLocked(sess)
	if fix.SpeedMps != nil && *fix.SpeedMps >= 0 {
		sess.current = *fix.SpeedMps * 3.6
	}
}

// recomputeFromWindowLocked is the legacy accounting: every update derives
// distance and speeds from the retained window only, so distance covered by
// evicted fixes is lost. Kept for parity with old persisted data.
func (s *Service) recomputeFromWindowLocked(sess *liveSession) {
	sess.distanceKm = 0
	sess.speedSum = 0
	sess.speedCount = 0
	sess.maxSpeed = 0

	for i := 1; i < len(sess.history); i++ {
		distance, speed, valid := pairSample(sess.history[i-1], sess.history[i])
		sess.distanceKm += distance
		if valid {
			sess.speedSum += speed
			sess.speedCount++
			if speed > sess.maxSpeed {
				sess.maxSpeed = speed
			}
		}
	}
}

// currentSpeedLocked is the smoothed display speed: the mean of the valid
// instantaneous speeds over the last few fixes.
func (s *Service) currentSpeedLocked(sess *liveSession) float64 {
	window := sess.history
	if len(window) > speedWindowSize {
		window = window[len(window)-speedWindowSize:]
	}

	sum := 0.0
	count := 0
	for i := 1; i < len(window); i++ {
		_, speed, valid := pairSample(window[i-1], window[i])
		if valid {
			sum += speed
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// pairSample returns the distance between two consecutive fixes and, when the
// pair passes the noise guards, their implied speed in km/h. Pairs closer
// than half a second are skipped and speeds outside [0, 80] km/h are
// discarded as GPS noise.
func pairSample(a, b Fix) (distanceKm, speedKmh float64, valid bool) {
	dt := float64(b.TimestampMs-a.TimestampMs) / 1000
	if dt <= 0 {
		return 0, 0, false
	}

	distanceKm = haversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
	if dt <= minPairSeconds {
		return distanceKm, 0, false
	}

	speedKmh = distanceKm / dt * 3600
	if speedKmh < 0 || speedKmh > maxSpeedKmh {
		return distanceKm, 0, false
	}
	return distanceKm, speedKmh, true
}

func (s *Service) statsLocked(sess *liveSession) *Stats {
	elapsed := sess.accumulatedSec
	if sess.state == stateActive {
		elapsed += s.now().Sub(sess.resumedAt).Seconds()
	}

	avg := 0.0
	if sess.speedCount > 0 {
		avg = sess.speedSum / float64(sess.speedCount)
	}

	return &Stats{
		State:           sess.state,
		Type:            sess.mode,
		ElapsedSec:      int(math.Round(elapsed)),
		DistanceKm:      sess.distanceKm,
		AvgSpeedKmh:     avg,
		CurrentSpeedKmh: sess.current,
		MaxSpeedKmh:     sess.maxSpeed,
		Pace:            formatPace(avg),
		Calories:        sess.distanceKm * sess.weightKg * calorieCoefficients[sess.mode],
		Steps:           int(sess.distanceKm * stepsPerKm),
		FixCount:        len(sess.history),
	}
}

// formatPace renders minutes per km as "MM:SS".
func formatPace(avgSpeedKmh float64) string {
	if avgSpeedKmh <= 0 || math.IsInf(avgSpeedKmh, 0) || math.IsNaN(avgSpeedKmh) {
		return "--:--"
	}
	paceMin := 60 / avgSpeedKmh
	minutes := int(paceMin)
	seconds := int(math.Round((paceMin - float64(minutes)) * 60))
	if seconds == 60 {
		minutes++
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (s *Service) ownerWeight(ctx context.Context, ownerUserID string) float64 {
	if s.profiles == nil {
		return defaultWeightKg
	}
	p, err := s.profiles.GetProfile(ctx, ownerUserID)
	if err != nil || p.WeightKg <= 0 {
		return defaultWeightKg
	}
	return p.WeightKg
}
