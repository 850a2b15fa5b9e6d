package dispatch

import (
	"github.com/dpm2/maintenance-api/pkg/models"
)

// NoTechnician marks the absence of a previously assigned technician.
const NoTechnician uint = 0

// DefaultMaxUrgency is the top of the Low/Medium/High urgency scale.
const DefaultMaxUrgency = 3

// Weights holds the coefficients of the scoring formula
type Weights struct {
	Rating        float64 `json:"rating"`
	Distance      float64 `json:"distance"`
	Availability  float64 `json:"availability"`
	Urgency       float64 `json:"urgency"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		Rating:        0.65,
		Distance:      0.20,
		Availability:  1.0,
		Urgency:       0.15,
		RepeatPenalty: 0.5,
	}
}

// Scorer computes the desirability of a technician for a request
type Scorer struct {
	Weights    Weights
	MaxUrgency int
	Distance   DistanceEstimator
}

// NewScorer creates a scorer with the default weights. A nil estimator
// falls back to RandomDistance.
func NewScorer(maxUrgency int, distance DistanceEstimator) *Scorer {
	if maxUrgency < 1 {
		maxUrgency = DefaultMaxUrgency
	}
	if distance == nil {
		distance = NewRandomDistance(nil)
	}
	return &Scorer{
		Weights:    DefaultWeights(),
		MaxUrgency: maxUrgency,
		Distance:   distance,
	}
}

// Score draws the distance factor from the estimator and scores the technician
func (s *Scorer) Score(tech models.Technician, req models.MaintenanceRequest, lastAssigned uint) float64 {
	return s.ScoreWith(tech, req, lastAssigned, s.Distance.Estimate(tech, req))
}

// ScoreWith is the pure scoring formula for a given distance factor
func (s *Scorer) ScoreWith(tech models.Technician, req models.MaintenanceRequest, lastAssigned uint, distance float64) float64 {
	w := s.Weights

	matrixFactor := tech.Rating() / models.MaxRating

	availability := 0.0
	if tech.Available {
		availability = 1.0
	}

	maxUrgency := s.MaxUrgency
	if maxUrgency < 1 {
		maxUrgency = DefaultMaxUrgency
	}
	urgency := float64(req.Urgency) / float64(maxUrgency)

	score := w.Rating*matrixFactor + w.Distance*distance + w.Availability*availability + w.Urgency*urgency

	if lastAssigned != NoTechnician && tech.ID == lastAssigned {
		score -= w.RepeatPenalty
	}
	return score
}

// Scored pairs a candidate with its score for one round
type Scored struct {
	Technician models.Technician
	Score      float64
}

// ScoreAll scores every candidate in pool order
func (s *Scorer) ScoreAll(pool []models.Technician, req models.MaintenanceRequest, lastAssigned uint) []Scored {
	out := make([]Scored, 0, len(pool))
	for _, t := range pool {
		out = append(out, Scored{Technician: t, Score: s.Score(t, req, lastAssigned)})
	}
	return out
}
