package healthkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
)

var ErrValidation = errors.New("validation")

// DailySummary aggregates one calendar day of health samples.
type DailySummary struct {
	Date          string  `json:"date"`
	Steps         float64 `json:"steps"`
	ActiveEnergy  float64 `json:"activeEnergy"`
	BasalEnergy   float64 `json:"basalEnergy"`
	DistanceKm    float64 `json:"distance"`
	AvgHeartRate  float64 `json:"avgHeartRate"`
	SyncAvailable bool    `json:"syncAvailable"`
}

// SyncPreference is the per-owner sync switch with its last run marker.
type SyncPreference struct {
	Enabled      bool       `json:"enabled"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Service bridges the platform health provider and the persisted sync
// preference. Denied access degrades to an empty summary, never an error.
type Service struct {
	provider Provider
	storage  storage.HealthSyncStorage
	logger   *log.Logger
	now      func() time.Time
}

func NewService(provider Provider, store storage.HealthSyncStorage, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		provider: provider,
		storage:  store,
		logger:   logger,
		now:      time.Now,
	}
}

// Daily queries every sample type for one calendar day and sums them. The
// date argument is "YYYY-MM-DD"; empty means today.
func (s *Service) Daily(ctx context.Context, ownerUserID, date string) (*DailySummary, error) {
	day := s.now()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	summary := &DailySummary{Date: from.Format("2006-01-02")}

	if err := s.provider.RequestAccess(ctx); err != nil {
		s.logger.Printf("WARN healthkit: access denied for %s: %v", ownerUserID, err)
		return summary, nil
	}
	summary.SyncAvailable = true

	summary.Steps = s.sumSamples(ctx, SampleSteps, from, to)
	summary.ActiveEnergy = s.sumSamples(ctx, SampleActiveEnergy, from, to)
	summary.BasalEnergy = s.sumSamples(ctx, SampleBasalEnergy, from, to)
	summary.DistanceKm = s.sumSamples(ctx, SampleDistance, from, to)
	summary.AvgHeartRate = s.averageSamples(ctx, SampleHeartRate, from, to)

	s.markSynced(ctx, ownerUserID)
	return summary, nil
}

// SyncPreference returns the stored preference, defaulting to disabled.
func (s *Service) SyncPreference(ctx context.Context, ownerUserID string) (*SyncPreference, error) {
	stored, err := s.storage.GetHealthSync(ctx, ownerUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return &SyncPreference{Enabled: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SyncPreference{Enabled: stored.Enabled, LastSyncedAt: stored.LastSyncedAt}, nil
}

// SetSyncEnabled flips the sync switch.
func (s *Service) SetSyncEnabled(ctx context.Context, ownerUserID string, enabled bool) (*SyncPreference, error) {
	stored, err := s.storage.GetHealthSync(ctx, ownerUserID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	next := &storage.HealthSync{OwnerUserID: ownerUserID, Enabled: enabled}
	if stored != nil {
		next.LastSyncedAt = stored.LastSyncedAt
	}
	if err := s.storage.PutHealthSync(ctx, next); err != nil {
		return nil, err
	}
	return &SyncPreference{Enabled: next.Enabled, LastSyncedAt: next.LastSyncedAt}, nil
}

func (s *Service) sumSamples(ctx context.Context, sampleType string, from, to time.Time) float64 {
	samples, err := s.provider.Query(ctx, sampleType, from, to)
	if err != nil {
		s.logger.Printf("WARN healthkit: query %s failed: %v", sampleType, err)
		return 0
	}
	total := 0.0
	for _, sample := range samples {
		total += sample.Value
	}
	return total
}

func (s *Service) averageSamples(ctx context.Context, sampleType string, from, to time.Time) float64 {
	samples, err := s.provider.Query(ctx, sampleType, from, to)
	if err != nil || len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, sample := range samples {
		total += sample.Value
	}
	return total / float64(len(samples))
}

// markSynced stamps the preference when sync is enabled. Best-effort.
func (s *Service) markSynced(ctx context.Context, ownerUserID string) {
	stored, err := s.storage.GetHealthSync(ctx, ownerUserID)
	if err != nil || !stored.Enabled {
		return
	}
	now := s.now()
	stored.LastSyncedAt = &now
	if err := s.storage.PutHealthSync(ctx, stored); err != nil {
		s.logger.Printf("WARN healthkit: update sync marker for %s failed: %v", ownerUserID, err)
	}
}
