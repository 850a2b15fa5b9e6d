package dispatch

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpm2/maintenance-api/pkg/models"
)

func TestScoreWith_Formula(t *testing.T) {
	s := NewScorer(3, FixedDistance(0))
	req := models.MaintenanceRequest{ID: 1, Urgency: 3}

	a := models.Technician{ID: 1, Available: true, RatingScore: 5.0}
	b := models.Technician{ID: 2, Available: true, RatingScore: 3.0}

	assert.InDelta(t, 1.80, s.ScoreWith(a, req, NoTechnician, 0), 1e-9)
	assert.InDelta(t, 1.54, s.ScoreWith(b, req, NoTechnician, 0), 1e-9)
}

func TestScoreWith_DeterministicForFixedDistance(t *testing.T) {
	s := NewScorer(3, nil)
	tech := models.Technician{ID: 7, Available: true, RatingScore: 4.2}
	req := models.MaintenanceRequest{ID: 3, Urgency: 2}

	first := s.ScoreWith(tech, req, 7, 0.37)
	second := s.ScoreWith(tech, req, 7, 0.37)
	assert.Equal(t, first, second)
}

func TestScoreWith_DefaultRating(t *testing.T) {
	s := NewScorer(3, nil)
	unrated := models.Technician{ID: 1, Available: true}
	rated := models.Technician{ID: 2, Available: true, RatingScore: models.DefaultRating}
	req := models.MaintenanceRequest{Urgency: 1}

	assert.Equal(t, s.ScoreWith(rated, req, NoTechnician, 0.5), s.ScoreWith(unrated, req, NoTechnician, 0.5))
}

func TestScoreWith_AvailabilityIsAdditive(t *testing.T) {
	s := NewScorer(3, nil)
	req := models.MaintenanceRequest{Urgency: 2}
	on := models.Technician{ID: 1, Available: true, RatingScore: 4}
	off := models.Technician{ID: 1, Available: false, RatingScore: 4}

	assert.InDelta(t, 1.0, s.ScoreWith(on, req, NoTechnician, 0.2)-s.ScoreWith(off, req, NoTechnician, 0.2), 1e-9)
}

func TestScoreWith_RepeatPenalty(t *testing.T) {
	s := NewScorer(3, nil)
	tech := models.Technician{ID: 4, Available: true, RatingScore: 4}
	req := models.MaintenanceRequest{Urgency: 2}

	fresh := s.ScoreWith(tech, req, NoTechnician, 0.5)
	other := s.ScoreWith(tech, req, 9, 0.5)
	repeat := s.ScoreWith(tech, req, 4, 0.5)

	assert.Equal(t, fresh, other)
	assert.InDelta(t, 0.5, fresh-repeat, 1e-9)
}

func TestScoreWith_MaxUrgencyScale(t *testing.T) {
	three := NewScorer(3, nil)
	five := NewScorer(5, nil)
	tech := models.Technician{ID: 1, Available: true, RatingScore: 5}

	assert.InDelta(t, three.ScoreWith(tech, models.MaintenanceRequest{Urgency: 3}, NoTechnician, 0),
		five.ScoreWith(tech, models.MaintenanceRequest{Urgency: 5}, NoTechnician, 0), 1e-9)
}

func TestScore_UsesEstimator(t *testing.T) {
	s := NewScorer(3, FixedDistance(1))
	tech := models.Technician{ID: 1, Available: true, RatingScore: 5}
	req := models.MaintenanceRequest{Urgency: 3}

	assert.InDelta(t, 2.0, s.Score(tech, req, NoTechnician), 1e-9)
}

func TestRandomDistance_InUnitRange(t *testing.T) {
	d := NewRandomDistance(rand.New(rand.NewSource(42)))
	for i := 0; i < 1000; i++ {
		v := d.Estimate(models.Technician{}, models.MaintenanceRequest{})
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestFixedDistance_Clamped(t *testing.T) {
	assert.Equal(t, 1.0, FixedDistance(3).Estimate(models.Technician{}, models.MaintenanceRequest{}))
	assert.Equal(t, 0.0, FixedDistance(-1).Estimate(models.Technician{}, models.MaintenanceRequest{}))
}

func TestGeoDistance(t *testing.T) {
	g := GeoDistance{RadiusKm: 10, Fallback: FixedDistance(0.25)}
	site := &models.Coordinates{Latitude: 18.0179, Longitude: -76.8099}

	onSite := models.Technician{Location: site}
	assert.InDelta(t, 1.0, g.Estimate(onSite, models.MaintenanceRequest{Location: site}), 1e-9)

	// roughly 111 km north, well past the radius
	far := models.Technician{Location: &models.Coordinates{Latitude: 19.0179, Longitude: -76.8099}}
	assert.Equal(t, 0.0, g.Estimate(far, models.MaintenanceRequest{Location: site}))

	unknown := models.Technician{}
	assert.Equal(t, 0.25, g.Estimate(unknown, models.MaintenanceRequest{Location: site}))
}

func TestHaversine(t *testing.T) {
	a := models.Coordinates{Latitude: 0, Longitude: 0}
	b := models.Coordinates{Latitude: 1, Longitude: 0}
	assert.InDelta(t, 111.19, Haversine(a, b), 0.01)
	assert.Equal(t, 0.0, Haversine(a, a))
}
