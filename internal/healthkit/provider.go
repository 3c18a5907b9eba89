package healthkit

import (
	"context"
	"errors"
	"time"
)

// ErrAccessDenied means the platform health service refused access. Callers
// disable the feature instead of failing.
var ErrAccessDenied = errors.New("health_access_denied")

// Sample types the provider can be queried for.
const (
	SampleSteps        = "steps"
	SampleActiveEnergy = "active_energy"
	SampleBasalEnergy  = "basal_energy"
	SampleDistance     = "distance"
	SampleHeartRate    = "heart_rate"
)

// Sample is one summable health reading.
type Sample struct {
	Type  string    `json:"type"`
	Value float64   `json:"value"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Provider abstracts a platform health service. The real one lives on the
// device; the server ships a deterministic mock.
type Provider interface {
	RequestAccess(ctx context.Context) error
	Query(ctx context.Context, sampleType string, from, to time.Time) ([]Sample, error)
}
