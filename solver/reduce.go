package solver

// ReduceSchedule tracks the growing learnt-clause budget: each time
// the conflicts since the last adjustment reach learnt_adjust_confl,
// learnt_adjust_confl is scaled by learnt_adjust_inc and max_learnts
// grows by learntsize_inc (spec.md §4.1's DB-reduction schedule).
// There is no separate learnt_adjust_cnt period: learnt_adjust_confl
// itself is the adjustment interval.
type ReduceSchedule struct {
	adjustConfl float64
	adjustInc   float64
	sizeInc     float64
	maxLearnts  float64
	sinceAdjust int
}

// NewReduceSchedule seeds the schedule from Params, with the initial
// max_learnts budget set to learnt_adjust_confl itself.
func NewReduceSchedule(p Params) *ReduceSchedule {
	return &ReduceSchedule{
		adjustConfl: float64(p.LearntAdjustConfl),
		adjustInc:   p.LearntAdjustInc,
		sizeInc:     p.LearntSizeInc,
		maxLearnts:  float64(p.LearntAdjustConfl),
	}
}

// MaxLearnts returns the current ceiling on learnt clause count.
func (r *ReduceSchedule) MaxLearnts() int { return int(r.maxLearnts) }

// OnConflict advances the schedule by one conflict, growing the
// budget once adjustConfl conflicts have accumulated.
func (r *ReduceSchedule) OnConflict() {
	r.sinceAdjust++
	if float64(r.sinceAdjust) >= r.adjustConfl {
		r.sinceAdjust = 0
		r.adjustConfl *= r.adjustInc
		r.maxLearnts *= r.sizeInc
	}
}

// ShouldReduce reports whether the live learnt-clause count has
// reached the current budget.
func (r *ReduceSchedule) ShouldReduce(liveLearnts int) bool {
	return float64(liveLearnts) >= r.maxLearnts
}
