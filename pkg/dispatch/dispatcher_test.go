package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpm2/maintenance-api/pkg/models"
)

func newTestDispatcher(store Store, attempts int) *Dispatcher {
	return NewDispatcher(store, Options{
		Scorer:      NewScorer(3, FixedDistance(0)),
		Selector:    NewSelector(DefaultTieEpsilon, NewLockedSource(rand.New(rand.NewSource(1)))),
		MaxAttempts: attempts,
	})
}

func TestDispatch_SelectsBestTechnician(t *testing.T) {
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: true, RatingScore: 5.0})
	store.PutTechnician(models.Technician{ID: 2, Available: true, RatingScore: 3.0})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 3, Status: models.StatusPending})

	rec, err := newTestDispatcher(store, 0).DispatchTechnician(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, uint(1), rec.TechnicianID)
	assert.Equal(t, uint(10), rec.RequestID)
	assert.InDelta(t, 1.80, rec.Score, 1e-9)
	assert.False(t, rec.Completed)

	last, err := store.GetLastAssigned(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(1), last)

	tech, _ := store.Technician(1)
	assert.Equal(t, 1, tech.CurrentWorkload)

	req, err := store.GetRequest(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, req.Status)
}

func TestDispatch_NoCandidates(t *testing.T) {
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: false, RatingScore: 5.0})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 2, Status: models.StatusPending})

	_, err := newTestDispatcher(store, 0).DispatchTechnician(context.Background(), 10)
	require.ErrorIs(t, err, ErrNoCandidates)
	assert.Zero(t, store.Writes())
	assert.Empty(t, store.Assignments())
}

func TestDispatch_RequestNotFound(t *testing.T) {
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: true})

	_, err := newTestDispatcher(store, 0).DispatchTechnician(context.Background(), 99)
	require.ErrorIs(t, err, ErrRequestNotFound)

	store.PutRequest(models.MaintenanceRequest{ID: 5, Urgency: 1, Status: models.StatusCancelled})
	_, err = newTestDispatcher(store, 0).DispatchTechnician(context.Background(), 5)
	require.ErrorIs(t, err, ErrRequestNotFound)
	assert.Zero(t, store.Writes())
}

func TestDispatch_AlreadyAssigned(t *testing.T) {
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 1, Status: models.StatusPending})

	d := newTestDispatcher(store, 0)
	_, err := d.DispatchTechnician(context.Background(), 10)
	require.NoError(t, err)

	_, err = d.DispatchTechnician(context.Background(), 10)
	require.ErrorIs(t, err, ErrAlreadyAssigned)
	assert.Len(t, store.Assignments(), 1)
}

func TestDispatch_AlternatesBetweenEqualTechnicians(t *testing.T) {
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutTechnician(models.Technician{ID: 2, Available: true})
	for id := uint(1); id <= 4; id++ {
		store.PutRequest(models.MaintenanceRequest{ID: id, Urgency: 2, Status: models.StatusPending})
	}

	d := newTestDispatcher(store, 0)
	var prev uint
	for id := uint(1); id <= 4; id++ {
		rec, err := d.DispatchTechnician(context.Background(), id)
		require.NoError(t, err)
		if prev != 0 {
			assert.NotEqual(t, prev, rec.TechnicianID, "request %d", id)
		}
		prev = rec.TechnicianID
	}
}

func TestDispatch_ConcurrentRoundsDoNotLoseWorkload(t *testing.T) {
	const rounds = 10
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: true, CurrentWorkload: 4})
	for id := uint(1); id <= rounds; id++ {
		store.PutRequest(models.MaintenanceRequest{ID: id, Urgency: 2, Status: models.StatusPending})
	}

	d := newTestDispatcher(store, rounds)
	var wg sync.WaitGroup
	errs := make(chan error, rounds)
	for id := uint(1); id <= rounds; id++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := d.DispatchTechnician(context.Background(), id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tech, _ := store.Technician(1)
	assert.Equal(t, 4+rounds, tech.CurrentWorkload)
	assert.Len(t, store.Assignments(), rounds)
}

// racingStore bumps the technician's workload behind the dispatcher's back
// before the first commit, as a concurrent round would.
type racingStore struct {
	*MemoryStore
	once sync.Once
}

func (r *racingStore) CommitAssignment(ctx context.Context, req models.MaintenanceRequest, tech models.Technician, d models.AssignmentDecision) (models.AssignmentRecord, error) {
	r.once.Do(func() {
		cur, _ := r.Technician(tech.ID)
		cur.CurrentWorkload++
		r.PutTechnician(cur)
	})
	return r.MemoryStore.CommitAssignment(ctx, req, tech, d)
}

func TestDispatch_RescoresAfterConflict(t *testing.T) {
	store := &racingStore{MemoryStore: NewMemoryStore()}
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 2, Status: models.StatusPending})

	rec, err := newTestDispatcher(store, 3).DispatchTechnician(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, uint(1), rec.TechnicianID)

	tech, _ := store.Technician(1)
	assert.Equal(t, 2, tech.CurrentWorkload)
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) CommitAssignment(context.Context, models.MaintenanceRequest, models.Technician, models.AssignmentDecision) (models.AssignmentRecord, error) {
	return models.AssignmentRecord{}, f.err
}

func TestDispatch_GivesUpOnPersistentConflict(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), err: ErrStaleCandidate}
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 2, Status: models.StatusPending})

	_, err := newTestDispatcher(store, 2).DispatchTechnician(context.Background(), 10)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrStaleCandidate)
}

func TestDispatch_WrapsStorageFailure(t *testing.T) {
	boom := errors.New("disk full")
	store := &failingStore{MemoryStore: NewMemoryStore(), err: boom}
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 2, Status: models.StatusPending})

	_, err := newTestDispatcher(store, 0).DispatchTechnician(context.Background(), 10)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "commit", pe.Op)
	assert.ErrorIs(t, err, boom)
}

type recordingMetrics struct {
	mu        sync.Mutex
	outcomes  []string
	conflicts int
}

func (m *recordingMetrics) RoundCompleted(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) CommitConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *recordingMetrics) Selected(float64) {}

func TestDispatch_ReportsOutcomes(t *testing.T) {
	store := &racingStore{MemoryStore: NewMemoryStore()}
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 2, Status: models.StatusPending})

	m := &recordingMetrics{}
	d := NewDispatcher(store, Options{Scorer: NewScorer(3, FixedDistance(0)), Metrics: m})
	_, err := d.DispatchTechnician(context.Background(), 10)
	require.NoError(t, err)
	_, err = d.DispatchTechnician(context.Background(), 11)
	require.Error(t, err)

	assert.Equal(t, []string{OutcomeAssigned, OutcomeNotFound}, m.outcomes)
	assert.Equal(t, 1, m.conflicts)
}

func TestDispatch_ContextCancelled(t *testing.T) {
	store := NewMemoryStore()
	store.PutTechnician(models.Technician{ID: 1, Available: true})
	store.PutRequest(models.MaintenanceRequest{ID: 10, Urgency: 2, Status: models.StatusPending})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestDispatcher(store, 0).DispatchTechnician(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "start attempt", perr.Op)
	assert.Zero(t, store.Writes())
}
