package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// DefaultMaxAttempts bounds the re-score loop on commit conflicts.
const DefaultMaxAttempts = 3

// Round outcomes reported to Metrics.
const (
	OutcomeAssigned        = "assigned"
	OutcomeNoCandidates    = "no_candidates"
	OutcomeNotFound        = "not_found"
	OutcomeAlreadyAssigned = "already_assigned"
	OutcomeConflict        = "conflict"
	OutcomeError           = "error"
)

// Metrics observes dispatch rounds
type Metrics interface {
	RoundCompleted(outcome string, elapsed time.Duration)
	CommitConflict()
	Selected(score float64)
}

// NopMetrics discards all observations
type NopMetrics struct{}

func (NopMetrics) RoundCompleted(string, time.Duration) {}
func (NopMetrics) CommitConflict()                      {}
func (NopMetrics) Selected(float64)                     {}

// Options configures a Dispatcher
type Options struct {
	Scorer      *Scorer
	Selector    *Selector
	MaxAttempts int
	Logger      *zerolog.Logger
	Metrics     Metrics
}

// Dispatcher runs dispatch rounds for maintenance requests
type Dispatcher struct {
	store       Store
	scorer      *Scorer
	selector    *Selector
	recorder    *Recorder
	maxAttempts int
	log         zerolog.Logger
	metrics     Metrics
}

// NewDispatcher wires a dispatcher over store. Zero options get defaults.
func NewDispatcher(store Store, opts Options) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		scorer:      opts.Scorer,
		selector:    opts.Selector,
		recorder:    NewRecorder(store),
		maxAttempts: opts.MaxAttempts,
		log:         zerolog.Nop(),
		metrics:     opts.Metrics,
	}
	if d.scorer == nil {
		d.scorer = NewScorer(DefaultMaxUrgency, nil)
	}
	if d.selector == nil {
		d.selector = NewSelector(DefaultTieEpsilon, nil)
	}
	if d.maxAttempts < 1 {
		d.maxAttempts = DefaultMaxAttempts
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	if d.metrics == nil {
		d.metrics = NopMetrics{}
	}
	return d
}

// DispatchTechnician assigns the best available technician to the request.
// A commit that loses a race on the chosen technician is re-scored from a
// fresh read, never replayed. A cancelled ctx ends the round with a
// *PersistenceError wrapping ctx.Err().
func (d *Dispatcher) DispatchTechnician(ctx context.Context, requestID uint) (models.AssignmentRecord, error) {
	start := time.Now()
	rec, err := d.dispatch(ctx, requestID)
	outcome := outcomeOf(err)
	d.metrics.RoundCompleted(outcome, time.Since(start))

	ev := d.log.Info()
	if err != nil {
		ev = d.log.Warn().Err(err)
	}
	ev.Uint("request_id", requestID).
		Str("outcome", outcome).
		Uint("technician_id", rec.TechnicianID).
		Float64("score", rec.Score).
		Dur("elapsed", time.Since(start)).
		Msg("dispatch round")
	return rec, err
}

func (d *Dispatcher) dispatch(ctx context.Context, requestID uint) (models.AssignmentRecord, error) {
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.AssignmentRecord{}, &PersistenceError{Op: "start attempt", Err: err}
		}

		req, err := d.store.GetRequest(ctx, requestID)
		if err != nil {
			return models.AssignmentRecord{}, wrapPersistence("get request", err)
		}
		switch {
		case req.Status == models.StatusCancelled:
			return models.AssignmentRecord{}, ErrRequestNotFound
		case req.Status != models.StatusPending:
			return models.AssignmentRecord{}, ErrAlreadyAssigned
		}

		pool, err := d.store.ListAvailableTechnicians(ctx)
		if err != nil {
			return models.AssignmentRecord{}, wrapPersistence("list technicians", err)
		}
		if len(pool) == 0 {
			return models.AssignmentRecord{}, ErrNoCandidates
		}

		last, err := d.store.GetLastAssigned(ctx)
		if err != nil {
			return models.AssignmentRecord{}, wrapPersistence("get last assigned", err)
		}

		chosen, err := d.selector.Select(d.scorer.ScoreAll(pool, req, last), last)
		if err != nil {
			return models.AssignmentRecord{}, err
		}

		rec, err := d.recorder.Commit(ctx, req, chosen.Technician, chosen.Score)
		if errors.Is(err, ErrStaleCandidate) {
			d.metrics.CommitConflict()
			d.log.Debug().Uint("request_id", requestID).Uint("technician_id", chosen.Technician.ID).
				Int("attempt", attempt).Msg("commit conflict, re-scoring")
			continue
		}
		if err != nil {
			return models.AssignmentRecord{}, err
		}
		d.metrics.Selected(chosen.Score)
		return rec, nil
	}
	return models.AssignmentRecord{}, &PersistenceError{
		Op:  "commit",
		Err: fmt.Errorf("gave up after %d attempts: %w", d.maxAttempts, ErrStaleCandidate),
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeAssigned
	case errors.Is(err, ErrNoCandidates):
		return OutcomeNoCandidates
	case errors.Is(err, ErrRequestNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAlreadyAssigned):
		return OutcomeAlreadyAssigned
	case errors.Is(err, ErrStaleCandidate):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
