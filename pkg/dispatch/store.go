package dispatch

import (
	"context"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// CandidatePool yields the technicians currently marked available.
type CandidatePool interface {
	ListAvailableTechnicians(ctx context.Context) ([]models.Technician, error)
}

// RequestStore resolves maintenance requests. Missing requests yield ErrRequestNotFound.
type RequestStore interface {
	GetRequest(ctx context.Context, id uint) (models.MaintenanceRequest, error)
}

// StateStore holds the last assigned technician. GetLastAssigned returns
// NoTechnician before the first assignment.
type StateStore interface {
	GetLastAssigned(ctx context.Context) (uint, error)
	SetLastAssigned(ctx context.Context, id uint) error
}

// Persistence applies an assignment as one transaction: the request must
// still be pending, the technician must still match the snapshot it was
// scored from (availability and workload), and the assignment insert,
// last-assigned upsert, workload increment and request status change all
// succeed or none do. A snapshot mismatch returns ErrStaleCandidate.
type Persistence interface {
	CommitAssignment(ctx context.Context, req models.MaintenanceRequest, tech models.Technician, decision models.AssignmentDecision) (models.AssignmentRecord, error)
}

// Store is the full set of collaborators a Dispatcher consumes.
type Store interface {
	CandidatePool
	RequestStore
	StateStore
	Persistence
}
