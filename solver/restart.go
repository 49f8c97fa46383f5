package solver

// RestartSchedule produces the conflict budget for the n-th restart
// (0-indexed), per spec.md §4.1: either the Luby sequence or a
// geometric progression, each scaled by restart_first.
type RestartSchedule struct {
	first int
	inc   float64
	luby  bool
}

// NewRestartSchedule builds a schedule from the relevant Params fields.
func NewRestartSchedule(p Params) *RestartSchedule {
	return &RestartSchedule{first: p.RestartFirst, inc: p.RestartInc, luby: p.RestartLuby}
}

// Limit returns the conflict count the n-th restart interval runs for.
func (r *RestartSchedule) Limit(n int) int {
	if r.luby {
		return int(luby(r.inc, n)) * r.first
	}
	limit := float64(r.first)
	for i := 0; i < n; i++ {
		limit *= r.inc
	}
	return int(limit)
}

// luby computes the n-th term (0-indexed) of the Luby sequence scaled
// by y: 1,1,2,1,1,2,4,1,1,2,1,1,2,4,8,... — the standard restart
// sequence used by most CDCL solvers.
func luby(y float64, n int) float64 {
	size, seq := 1, 0
	for size < n+1 {
		seq++
		size = 2*size + 1
	}
	idx := n
	for size-1 != idx {
		size = (size - 1) / 2
		seq--
		idx = idx % size
	}
	result := 1.0
	for i := 0; i < seq; i++ {
		result *= y
	}
	return result
}
