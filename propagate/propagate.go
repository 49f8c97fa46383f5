// Package propagate implements unit propagation over the two-watched-
// literal scheme: each falsified literal's watcher list is walked to
// find a replacement watch, a unit implication, or a conflict. Each
// falsified literal in a propagation round is handed to its own
// cooperative worker (package sched), capped at the PARA_LITS lane
// count; within a single literal's walk, each watcher node is further
// handed to its own sub-worker capped at the PROPAGATORS lane count,
// mirroring the original's per-watcher fan-out (async_watches.{h,cc},
// satsolver.cc). Per-clause and per-watch-list spin-yield locks guard
// the shared state those sub-workers touch.
package propagate

import (
	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/sched"
	"github.com/sarchlab/satx/stats"
	"github.com/sarchlab/satx/vars"
	"github.com/sarchlab/satx/watch"
)

// Engine drives BFS unit propagation over a shared variable store,
// watch lists, and clause arena.
type Engine struct {
	vars    *vars.Store
	watches *watch.Store
	clauses *clause.Store

	laneCap    int // PARA_LITS: falsified literals fanned out per round
	subLaneCap int // PROPAGATORS: per-watcher sub-workers within one walk

	maxConflPerRound int

	clauseLocks *sched.LockSet
	listLocks   *sched.LockSet
	idCounter   int

	metrics stats.Collector

	trail []lit.Lit
	qHead int
	level int32
}

// SetMetrics attaches a histogram collector; Propagate records
// watchers-inspected and blocks-visited per literal and
// parallel-variables-consumed per batch, matching spec.md §4.2.
// A nil collector (the default) disables recording.
func (e *Engine) SetMetrics(c stats.Collector) { e.metrics = c }

func (e *Engine) observe(name string, v float64) {
	if e.metrics != nil {
		e.metrics.Observe(name, v)
	}
}

// NewEngine creates a propagation engine over the given stores. lanes
// bounds how many falsified literals the scheduler admits into flight
// at once (PARA_LITS); subLanes bounds, within a single literal's
// watcher-list walk, how many of its watcher nodes are processed by
// concurrent sub-workers at once (PROPAGATORS). maxConflPerRound caps
// how many distinct conflicting clauses a single Propagate round
// collects before returning (spec.md's B3; 0 means unbounded). Since
// every watcher-list walk mutates shared watch/clause/variable state,
// the scheduler still resumes at most one worker's body at a time —
// the lane counts bound concurrent occupancy, not concurrent
// execution, while clauseLocks/listLocks model the contention that
// occupancy would create.
func NewEngine(vs *vars.Store, ws *watch.Store, cs *clause.Store, lanes, subLanes, maxConflPerRound int) *Engine {
	if subLanes < 1 {
		subLanes = 1
	}
	return &Engine{
		vars: vs, watches: ws, clauses: cs,
		laneCap: lanes, subLaneCap: subLanes,
		maxConflPerRound: maxConflPerRound,
		clauseLocks:      sched.NewLockSet(),
		listLocks:        sched.NewLockSet(),
	}
}

func (e *Engine) nextID() int {
	e.idCounter++
	return e.idCounter
}

// Attach registers ref's first two literals as its watched pair,
// called once when a clause (input or learnt) enters the database.
// A unit clause (size 1) has no second watch; it should instead be
// enqueued directly by the caller.
func Attach(cs *clause.Store, ws *watch.Store, ref clause.Ref) {
	lits := cs.Literals(ref)
	if len(lits) < 2 {
		return
	}
	ws.Insert(lits[0].Negate().WatchIndex(), ref, lits[1])
	ws.Insert(lits[1].Negate().WatchIndex(), ref, lits[0])
}

// SetLevel sets the decision level new assignments are stamped with.
func (e *Engine) SetLevel(level int32) { e.level = level }

// Trail returns the assignment order accumulated so far.
func (e *Engine) Trail() []lit.Lit { return e.trail }

// QHead returns the index of the next trail entry awaiting propagation.
func (e *Engine) QHead() int { return e.qHead }

// Enqueue assigns l true at the engine's current level with the given
// reason (0 for a decision) and queues it for propagation. It reports
// false if l's variable was already assigned to a conflicting value.
func (e *Engine) Enqueue(l lit.Lit, reason clause.Ref) bool {
	cur := e.vars.LitValue(l)
	if cur == lit.True {
		return true
	}
	if cur == lit.False {
		return false
	}
	value := lit.True
	if l.Sign() {
		value = lit.False
	}
	e.vars.Assign(l.Var(), value, e.level, uint32(reason))
	e.trail = append(e.trail, l)
	return true
}

// TruncateTrail drops the trail back to n entries and resets qHead if
// it had advanced past that point, used when backtracking.
func (e *Engine) TruncateTrail(n int) {
	for i := len(e.trail) - 1; i >= n; i-- {
		e.vars.Unassign(e.trail[i].Var())
	}
	e.trail = e.trail[:n]
	if e.qHead > n {
		e.qHead = n
	}
}

// workerResult is what one literal's watcher-list walk reports back.
type workerResult struct {
	lit      lit.Lit
	conflict clause.Ref
	implied  []pendingImplication
	watchers int
	blocks   int
}

type pendingImplication struct {
	l      lit.Lit
	reason clause.Ref
}

// watcherOutcome is what processing a single watcher node decides:
// whether it should be dropped from its current watch list (because it
// moved to a new one), an updated blocker to write back in place, and
// any implication or conflict it produced.
type watcherOutcome struct {
	drop     bool
	blocker  lit.Lit
	implied  *pendingImplication
	conflict clause.Ref
}

// Propagate drains the trail, fanning each newly-falsified literal's
// watcher-list walk out to a cooperative worker. It returns a
// deduplicated set of conflicting clause references found in this
// round — capped at maxConflPerRound (spec.md's B3) — and whether
// propagation completed the whole trail with no conflicts at all.
func (e *Engine) Propagate() ([]clause.Ref, bool) {
	for e.qHead < len(e.trail) {
		batch := e.trail[e.qHead:]
		e.qHead = len(e.trail)

		results := make([]workerResult, len(batch))
		s := sched.NewScheduler(e.laneCap)
		for i, l := range batch {
			i, l := i, l
			id := e.nextID()
			s.Submit(func(lane int) *sched.Worker {
				return sched.Spawn(lane, func(w *sched.Worker, y *sched.Yielder) {
					results[i] = e.walkOne(l, id, w, y)
				})
			})
		}
		for s.Busy() {
			s.Tick()
		}

		e.observe("parallel_variables_per_batch", float64(len(batch)))
		for _, r := range results {
			e.observe("watchers_inspected", float64(r.watchers))
			e.observe("blocks_visited", float64(r.blocks))
		}

		for _, r := range results {
			for _, imp := range r.implied {
				if !e.Enqueue(imp.l, imp.reason) {
					return []clause.Ref{imp.reason}, false
				}
			}
		}

		var conflicts []clause.Ref
		seen := make(map[clause.Ref]bool)
		for _, r := range results {
			if r.conflict == clause.Undef || seen[r.conflict] {
				continue
			}
			seen[r.conflict] = true
			conflicts = append(conflicts, r.conflict)
			if e.maxConflPerRound > 0 && len(conflicts) >= e.maxConflPerRound {
				break
			}
		}
		if len(conflicts) > 0 {
			return conflicts, false
		}
	}
	return nil, true
}

// walkOne processes a single falsified literal's watcher list. It
// first walks the list sequentially (each Next depends on the
// previous slot, so this part cannot itself be parallelized), then
// hands every collected watcher node to its own sub-worker, and
// finally applies each outcome back to the list under the appropriate
// lock.
func (e *Engine) walkOne(falseLit lit.Lit, id int, w *sched.Worker, y *sched.Yielder) workerResult {
	watchIdx := falseLit.WatchIndex()
	res := workerResult{lit: falseLit, conflict: clause.Undef}

	type entry struct {
		slot watch.Slot
		node watch.Node
	}
	var entries []entry
	var lastBlock uint32
	slot, node, ok := e.watches.First(watchIdx)
	for ok {
		entries = append(entries, entry{slot, node})
		if slot.Block != 0 && slot.Block != lastBlock {
			res.blocks++
			lastBlock = slot.Block
		}
		slot, node, ok = e.watches.Next(watchIdx, slot)
	}
	res.watchers = len(entries)

	outcomes := make([]watcherOutcome, len(entries))
	sub := sched.NewScheduler(e.subLaneCap)
	for i, ent := range entries {
		i, ent := i, ent
		sid := e.nextID()
		sub.Submit(func(lane int) *sched.Worker {
			return sched.Spawn(lane, func(sw *sched.Worker, sy *sched.Yielder) {
				outcomes[i] = e.processWatcher(watchIdx, ent.slot, ent.node, falseLit, sid, sw, sy)
			})
		})
	}
	for sub.Busy() {
		sub.Tick()
	}

	for i, ent := range entries {
		o := outcomes[i]
		if o.drop {
			e.listLocks.Lock(uint64(watchIdx), id, w, y)
			e.watches.Invalidate(watchIdx, ent.slot)
			e.listLocks.Unlock(uint64(watchIdx), id)
			continue
		}
		if o.blocker != ent.node.Blocker {
			e.listLocks.Lock(uint64(watchIdx), id, w, y)
			e.watches.SetBlocker(watchIdx, ent.slot, o.blocker)
			e.listLocks.Unlock(uint64(watchIdx), id)
		}
		if o.implied != nil {
			res.implied = append(res.implied, *o.implied)
		}
		if o.conflict != clause.Undef && res.conflict == clause.Undef {
			res.conflict = o.conflict
		}
	}

	return res
}

// processWatcher resolves one watcher node: it keeps its cached
// blocker if still true, otherwise loads the clause (under its
// per-clause lock) and either finds a new literal to watch — moving
// the clause to a different watch list under that list's lock — or
// reports the implication/conflict the surviving first literal
// produces.
func (e *Engine) processWatcher(watchIdx int, slot watch.Slot, node watch.Node, falseLit lit.Lit, id int, w *sched.Worker, y *sched.Yielder) watcherOutcome {
	if e.vars.LitValue(node.Blocker) == lit.True {
		return watcherOutcome{blocker: node.Blocker}
	}

	ref := node.Clause
	e.clauseLocks.Lock(uint64(ref), id, w, y)
	lits := e.clauses.Literals(ref)
	// Ensure the falsified literal occupies slot 1, matching the
	// original's invariant for watch rotation.
	if lits[0] == falseLit.Negate() {
		lits[0], lits[1] = lits[1], lits[0]
		e.clauses.SetLiteral(ref, 0, lits[0])
		e.clauses.SetLiteral(ref, 1, lits[1])
	}

	first := lits[0]
	if e.vars.LitValue(first) == lit.True {
		e.clauseLocks.Unlock(uint64(ref), id)
		return watcherOutcome{blocker: first}
	}

	for k := 2; k < len(lits); k++ {
		if e.vars.LitValue(lits[k]) != lit.False {
			lits[1], lits[k] = lits[k], lits[1]
			e.clauses.SetLiteral(ref, 1, lits[1])
			e.clauses.SetLiteral(ref, k, lits[k])
			newIdx := lits[1].Negate().WatchIndex()
			e.clauseLocks.Unlock(uint64(ref), id)

			e.listLocks.Lock(uint64(newIdx), id, w, y)
			e.watches.Insert(newIdx, ref, first)
			e.listLocks.Unlock(uint64(newIdx), id)
			return watcherOutcome{drop: true}
		}
	}
	e.clauseLocks.Unlock(uint64(ref), id)

	if e.vars.LitValue(first) == lit.False {
		return watcherOutcome{blocker: first, conflict: ref}
	}
	imp := pendingImplication{l: first, reason: ref}
	return watcherOutcome{blocker: first, implied: &imp}
}
