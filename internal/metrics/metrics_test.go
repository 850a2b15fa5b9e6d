package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewDispatch(reg)
	require.NoError(t, err)

	m.RoundCompleted("assigned", 10*time.Millisecond)
	m.RoundCompleted("assigned", 5*time.Millisecond)
	m.RoundCompleted("no_candidates", time.Millisecond)
	m.CommitConflict()
	m.Selected(1.8)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rounds.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rounds.WithLabelValues("no_candidates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts))
}

func TestNewDispatch_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewDispatch(reg)
	require.NoError(t, err)
	second, err := NewDispatch(reg)
	require.NoError(t, err)

	first.CommitConflict()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.conflicts))
}
