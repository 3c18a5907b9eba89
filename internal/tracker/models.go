package tracker

// Fix is one raw location reading. SpeedMps is the instrument speed reported
// by the device, when it reports one.
type Fix struct {
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	TimestampMs int64    `json:"timestamp"`
	AccuracyM   *float64 `json:"accuracy,omitempty"`
	SpeedMps    *float64 `json:"speed,omitempty"`
}

// StartRequest begins a live session of the given workout type.
type StartRequest struct {
	Type string `json:"type"` // walking, running, live
}

// Stats is the live view of an in-progress (or idle) session.
type Stats struct {
	State           string  `json:"state"` // idle, active, paused
	Type            string  `json:"type,omitempty"`
	ElapsedSec      int     `json:"elapsed"`
	DistanceKm      float64 `json:"distance"`
	AvgSpeedKmh     float64 `json:"avgSpeed"`
	CurrentSpeedKmh float64 `json:"currentSpeed"`
	MaxSpeedKmh     float64 `json:"maxSpeed"`
	Pace            string  `json:"pace"` // min/km, "--:--" when unknown
	Calories        float64 `json:"calories"`
	Steps           int     `json:"steps"`
	FixCount        int     `json:"fixCount"`
}
