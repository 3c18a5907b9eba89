package tracker

import (
	"math"
	"testing"
)

func TestHaversineOneDegreeLongitudeAtEquator(t *testing.T) {
	got := haversineKm(0, 0, 0, 1)
	if math.Abs(got-111.19) > 0.05 {
		t.Errorf("haversineKm(0,0,0,1) = %v, want ~111.19", got)
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	if got := haversineKm(55.75, 37.62, 55.75, 37.62); got != 0 {
		t.Errorf("same point distance = %v, want 0", got)
	}
}

func TestHaversineIsSymmetric(t *testing.T) {
	a := haversineKm(55.75, 37.62, 59.94, 30.31)
	b := haversineKm(59.94, 30.31, 55.75, 37.62)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", a, b)
	}
	// Moscow to Saint Petersburg is roughly 635 km
	if a < 600 || a > 670 {
		t.Errorf("Moscow-SPb distance = %v, want ~635", a)
	}
}
