// Package solver ties the propagation, analysis, and heap packages
// together behind the control finite-state machine described in
// spec.md §4.1: IDLE, INIT, STEP, PROPAGATE, DECIDE, ANALYZE,
// MINIMIZE, BTLEVEL, BACKTRACK, REDUCE, RESTART, WAIT_HEAP, DONE.
package solver

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/satx/analyze"
)

// Params is the solver's tunable configuration, loaded from YAML the
// way the original's timing/latency config.go loads its TimingConfig
// from JSON — same shape of DefaultParams/LoadParams/SaveParams/
// Validate/Clone, generalized to YAML since the ambient stack here
// uses go.yaml.in/yaml rather than encoding/json.
type Params struct {
	RestartFirst    int                 `yaml:"restart_first"`
	RestartInc      float64             `yaml:"restart_inc"`
	RestartLuby     bool                `yaml:"restart_luby"`
	LearntAdjustConfl int               `yaml:"learnt_adjust_confl"`
	LearntAdjustInc float64             `yaml:"learnt_adjust_inc"`
	LearntSizeInc   float64             `yaml:"learntsize_inc"`
	VarDecay        float64             `yaml:"var_decay"`
	// MaxConflPerRound caps how many distinct conflicting clauses a
	// single propagation round collects before analysis begins
	// (spec.md's B3 per-round bound on parallel conflict discovery).
	MaxConflPerRound int                `yaml:"max_confl_per_round"`
	// MaxConflTotal is the lifetime conflict-count budget after which
	// Run reports Unknown instead of continuing to search; 0 means
	// unbounded.
	MaxConflTotal   int                 `yaml:"max_confl_total"`
	ParaLits        int                 `yaml:"para_lits"`
	Propagators     int                 `yaml:"propagators"`
	HeapLanes       int                 `yaml:"heap_lanes"`
	Learners        int                 `yaml:"learners"`
	Minimizers      int                 `yaml:"minimizers"`
	Minimize        analyze.Minimization `yaml:"minimize"`
	UsePipelinedHeap bool               `yaml:"use_pipelined_heap"`
	RandomSeed      int64               `yaml:"random_seed"`
	ShuffleInit     bool                `yaml:"shuffle_init"`
	Verbose         bool                `yaml:"verbose"`
}

// DefaultParams returns the baseline configuration (MiniSat-style
// defaults for the restart/reduction schedule constants).
func DefaultParams() Params {
	return Params{
		RestartFirst:      100,
		RestartInc:        2.0,
		RestartLuby:       true,
		LearntAdjustConfl: 100,
		LearntAdjustInc:   1.5,
		LearntSizeInc:     1.1,
		VarDecay:          0.95,
		MaxConflPerRound:  8,
		MaxConflTotal:     0,
		ParaLits:          4,
		Propagators:       4,
		HeapLanes:         2,
		Learners:          2,
		Minimizers:        2,
		Minimize:          analyze.MinimizeBasic,
		UsePipelinedHeap:  false,
		RandomSeed:        1,
		ShuffleInit:       false,
		Verbose:           false,
	}
}

// LoadParams reads and validates a YAML params file, defaulting any
// field the file omits.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("solver: load params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("solver: parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("solver: invalid params: %w", err)
	}
	return p, nil
}

// SaveParams writes p to path as YAML.
func SaveParams(path string, p Params) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("solver: marshal params: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("solver: save params: %w", err)
	}
	return nil
}

// Validate rejects configurations that would produce nonsensical
// schedules or zero-capacity lane sets.
func (p Params) Validate() error {
	if p.RestartFirst <= 0 {
		return fmt.Errorf("restart_first must be positive")
	}
	if p.RestartInc <= 1 {
		return fmt.Errorf("restart_inc must exceed 1")
	}
	if p.ParaLits <= 0 || p.Propagators <= 0 || p.HeapLanes <= 0 || p.Learners <= 0 || p.Minimizers <= 0 {
		return fmt.Errorf("lane capacities must be positive")
	}
	if p.MaxConflPerRound <= 0 {
		return fmt.Errorf("max_confl_per_round must be positive")
	}
	if p.VarDecay <= 0 || p.VarDecay >= 1 {
		return fmt.Errorf("var_decay must be in (0,1)")
	}
	return nil
}

// Clone returns an independent copy of p.
func (p Params) Clone() Params { return p }
