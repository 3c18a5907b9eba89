package healthkit

import (
	"context"
	"fmt"
	"time"
)

// MockProvider fabricates plausible health samples deterministically from the
// queried date, so the same day always reports the same numbers.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) RequestAccess(ctx context.Context) error {
	return nil
}

func (p *MockProvider) Query(ctx context.Context, sampleType string, from, to time.Time) ([]Sample, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s after %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	seed := daySeed(from)
	var value float64
	switch sampleType {
	case SampleSteps:
		value = float64(4000 + seed%6000)
	case SampleActiveEnergy:
		value = float64(200 + seed%400)
	case SampleBasalEnergy:
		value = float64(1400 + seed%300)
	case SampleDistance:
		value = float64(2+seed%6) + float64(seed%10)/10
	case SampleHeartRate:
		value = float64(58 + seed%25)
	default:
		return nil, fmt.Errorf("unknown sample type %q", sampleType)
	}

	return []Sample{{
		Type:  sampleType,
		Value: value,
		Start: from,
		End:   to,
	}}, nil
}

func daySeed(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
