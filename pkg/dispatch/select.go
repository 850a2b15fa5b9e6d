package dispatch

import (
	"math"
	"sort"
)

// DefaultTieEpsilon is the score distance under which two candidates tie.
const DefaultTieEpsilon = 1e-9

// Selector picks one technician out of a scored pool
type Selector struct {
	// Epsilon is the tolerance of the top-tier comparison. Zero means exact equality.
	Epsilon float64
	src     Source
}

// NewSelector creates a selector. A nil src is seeded from the clock.
func NewSelector(epsilon float64, src Source) *Selector {
	if src == nil {
		src = NewLockedSource(nil)
	}
	if epsilon < 0 {
		epsilon = 0
	}
	return &Selector{Epsilon: epsilon, src: src}
}

// Select ranks candidates by score and resolves ties at the top, steering
// away from the last assigned technician when others share the top score.
func (s *Selector) Select(scored []Scored, lastAssigned uint) (Scored, error) {
	if len(scored) == 0 {
		return Scored{}, ErrNoCandidates
	}

	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	top := s.TopTier(ranked)
	if len(top) == 1 {
		return top[0], nil
	}

	if lastAssigned != NoTechnician {
		filtered := top[:0:0]
		for _, c := range top {
			if c.Technician.ID != lastAssigned {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			top = filtered
		}
	}
	if len(top) == 1 {
		return top[0], nil
	}
	return top[s.src.Intn(len(top))], nil
}

// TopTier returns the leading candidates of a descending ranking whose score
// is within Epsilon of the best one.
func (s *Selector) TopTier(ranked []Scored) []Scored {
	if len(ranked) == 0 {
		return nil
	}
	best := ranked[0].Score
	n := 1
	for n < len(ranked) && math.Abs(best-ranked[n].Score) <= s.Epsilon {
		n++
	}
	return ranked[:n]
}
