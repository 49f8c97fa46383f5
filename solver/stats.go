package solver

// Stats is a point-in-time snapshot of solver progress, mirroring the
// shape of the teacher's timing/pipeline Stats (counters plus a
// derived ratio), reported at DONE or on request mid-run.
type Stats struct {
	Decisions  uint64
	Conflicts  uint64
	Propagations uint64
	Restarts   uint64
	Reductions uint64
	LearntClauses uint64
	MaxDecisionLevel int32
}

// ConflictsPerDecision is the derived ratio the teacher's Stats.CPI
// played the same role for: a coarse measure of search thrash.
func (s Stats) ConflictsPerDecision() float64 {
	if s.Decisions == 0 {
		return 0
	}
	return float64(s.Conflicts) / float64(s.Decisions)
}
