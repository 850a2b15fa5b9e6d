package dispatch

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// DistanceEstimator returns a proximity signal in [0, 1], higher meaning closer.
type DistanceEstimator interface {
	Estimate(tech models.Technician, req models.MaintenanceRequest) float64
}

// Source is the random source used for distance draws and tie-breaks.
// *rand.Rand satisfies it but is not safe for concurrent use; wrap it with
// LockedSource when shared.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// LockedSource serializes access to a Source
type LockedSource struct {
	mu  sync.Mutex
	src Source
}

// NewLockedSource wraps src. A nil src is seeded from the clock.
func NewLockedSource(src Source) *LockedSource {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &LockedSource{src: src}
}

func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *LockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

// RandomDistance draws a uniform value. It stands in for a real proximity signal.
type RandomDistance struct {
	src Source
}

// NewRandomDistance creates a RandomDistance over src. A nil src is seeded from the clock.
func NewRandomDistance(src Source) *RandomDistance {
	if src == nil {
		src = NewLockedSource(nil)
	}
	return &RandomDistance{src: src}
}

func (d *RandomDistance) Estimate(models.Technician, models.MaintenanceRequest) float64 {
	return d.src.Float64()
}

// FixedDistance always returns the same factor
type FixedDistance float64

func (d FixedDistance) Estimate(models.Technician, models.MaintenanceRequest) float64 {
	return clamp01(float64(d))
}

const earthRadiusKm = 6371.0

// GeoDistance scores proximity from haversine distance. A technician on site
// scores 1 and anyone at or beyond RadiusKm scores 0. Fallback is used when
// either position is unknown.
type GeoDistance struct {
	RadiusKm float64
	Fallback DistanceEstimator
}

func (g GeoDistance) Estimate(tech models.Technician, req models.MaintenanceRequest) float64 {
	if tech.Location == nil || req.Location == nil || g.RadiusKm <= 0 {
		if g.Fallback == nil {
			return 0
		}
		return g.Fallback.Estimate(tech, req)
	}
	km := Haversine(*tech.Location, *req.Location)
	return clamp01(1 - km/g.RadiusKm)
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
