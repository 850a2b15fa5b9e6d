package dispatch

import (
	"context"
	"sort"
	"sync"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// MemoryStore is an in-process Store. Commits are serialized by a mutex and
// guarded the same way as the SQL store.
type MemoryStore struct {
	mu           sync.Mutex
	technicians  map[uint]models.Technician
	requests     map[uint]models.MaintenanceRequest
	assignments  []models.AssignmentRecord
	lastAssigned uint
	writes       int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		technicians: make(map[uint]models.Technician),
		requests:    make(map[uint]models.MaintenanceRequest),
	}
}

// PutTechnician inserts or replaces a technician
func (m *MemoryStore) PutTechnician(t models.Technician) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.technicians[t.ID] = t
}

// PutRequest inserts or replaces a request
func (m *MemoryStore) PutRequest(r models.MaintenanceRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
}

// DeleteRequest removes a request
func (m *MemoryStore) DeleteRequest(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
}

// Technician returns the stored technician
func (m *MemoryStore) Technician(id uint) (models.Technician, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.technicians[id]
	return t, ok
}

// Assignments returns a copy of every committed assignment
func (m *MemoryStore) Assignments() []models.AssignmentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AssignmentRecord(nil), m.assignments...)
}

// Writes counts the committed transactions and state writes
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) ListAvailableTechnicians(ctx context.Context) ([]models.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Technician, 0, len(m.technicians))
	for _, t := range m.technicians {
		if t.Available {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, id uint) (models.MaintenanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return models.MaintenanceRequest{}, ErrRequestNotFound
	}
	return r, nil
}

func (m *MemoryStore) GetLastAssigned(ctx context.Context) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAssigned, nil
}

func (m *MemoryStore) SetLastAssigned(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAssigned = id
	m.writes++
	return nil
}

func (m *MemoryStore) CommitAssignment(ctx context.Context, req models.MaintenanceRequest, tech models.Technician, d models.AssignmentDecision) (models.AssignmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.requests[req.ID]
	if !ok || cur.Status == models.StatusCancelled {
		return models.AssignmentRecord{}, ErrRequestNotFound
	}
	if cur.Status != models.StatusPending {
		return models.AssignmentRecord{}, ErrAlreadyAssigned
	}

	t, ok := m.technicians[tech.ID]
	if !ok || !t.Available || t.CurrentWorkload != tech.CurrentWorkload {
		return models.AssignmentRecord{}, ErrStaleCandidate
	}

	rec := models.AssignmentRecord{
		ID:           uint(len(m.assignments) + 1),
		TechnicianID: tech.ID,
		RequestID:    req.ID,
		AssignedAt:   d.Timestamp,
		Score:        d.Score,
	}
	m.assignments = append(m.assignments, rec)
	m.lastAssigned = tech.ID
	t.CurrentWorkload++
	m.technicians[t.ID] = t
	cur.Status = models.StatusAssigned
	m.requests[cur.ID] = cur
	m.writes++
	return rec, nil
}
