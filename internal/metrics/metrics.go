package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch exposes dispatch round metrics to Prometheus. It satisfies dispatch.Metrics.
type Dispatch struct {
	rounds    *prometheus.CounterVec
	duration  prometheus.Histogram
	conflicts prometheus.Counter
	score     prometheus.Histogram
}

// NewDispatch registers the dispatch collectors on reg. A nil reg uses the
// default registerer. Collectors already registered are reused.
func NewDispatch(reg prometheus.Registerer) (*Dispatch, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rounds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_rounds_total",
		Help: "Number of dispatch rounds by outcome",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_round_duration_seconds",
		Help:    "Duration of a dispatch round including the commit",
		Buckets: prometheus.DefBuckets,
	})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_commit_conflicts_total",
		Help: "Commits rejected because the technician changed since scoring",
	})
	score := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_selected_score",
		Help:    "Score of the technician chosen in each successful round",
		Buckets: prometheus.LinearBuckets(0, 0.25, 10),
	})

	var err error
	if rounds, err = register(reg, rounds); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if conflicts, err = register(reg, conflicts); err != nil {
		return nil, err
	}
	if score, err = register(reg, score); err != nil {
		return nil, err
	}
	return &Dispatch{rounds: rounds, duration: duration, conflicts: conflicts, score: score}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (d *Dispatch) RoundCompleted(outcome string, elapsed time.Duration) {
	d.rounds.WithLabelValues(outcome).Inc()
	d.duration.Observe(elapsed.Seconds())
}

func (d *Dispatch) CommitConflict() { d.conflicts.Inc() }

func (d *Dispatch) Selected(score float64) { d.score.Observe(score) }
