package dispatch

import (
	"context"
	"time"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// Recorder commits the outcome of a round through Persistence
type Recorder struct {
	persistence Persistence
	now         func() time.Time
}

// NewRecorder creates a recorder over p
func NewRecorder(p Persistence) *Recorder {
	return &Recorder{persistence: p, now: time.Now}
}

// Commit persists the assignment of tech to req. Typed outcomes are passed
// through, any other failure is returned as *PersistenceError.
func (r *Recorder) Commit(ctx context.Context, req models.MaintenanceRequest, tech models.Technician, score float64) (models.AssignmentRecord, error) {
	decision := models.AssignmentDecision{
		TechnicianID: tech.ID,
		RequestID:    req.ID,
		Score:        score,
		Timestamp:    r.now().UTC(),
	}
	rec, err := r.persistence.CommitAssignment(ctx, req, tech, decision)
	if err != nil {
		return models.AssignmentRecord{}, wrapPersistence("commit", err)
	}
	return rec, nil
}
