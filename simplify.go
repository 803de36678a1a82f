package sct

// Simplify reduces a failing Outcome's Trace toward a minimal witness (§4.J):
// lexicographic normal form, dropping of commits that a later commit of the
// same writer to the same cell supersedes (a commit followed by a barrier is
// kept), pull-back and
// push-forward (merging each thread's scattered steps into longer runs
// wherever the dependency oracle certifies it safe), then a mandatory
// re-execution under a deterministic replay scheduler that follows the
// reduced `(tid, action-shape)` sequence, skipping decisions for threads
// that have already exited. Re-execution is both a sanity check and the
// source of the canonical reported trace: if replaying the reduced sequence
// does not reproduce the original outcome, Simplify discards its work and
// returns the original trace unchanged, logging a diagnostic instead.
func Simplify(prog Prog, st *settings, outcome Outcome, trace Trace) Trace {
	if !outcome.Failed() || len(trace) <= 1 {
		return trace
	}
	out := append(Trace(nil), trace...)
	out = normalizeOrder(out)
	out = dropRedundantCommits(out)
	out = pullBack(out)
	out = pushForward(out)

	replayed, reexecuted := reexecute(prog, st, out)
	eq := st.equality
	if eq == nil {
		eq = defaultEquality
	}
	if !eq(reexecuted, outcome) {
		if st.logger.IsEnabled(LevelWarn) {
			st.logger.Log(Entry{
				Level:   LevelWarn,
				Message: "simplify: re-execution diverged from original outcome, reporting original trace",
				Fields:  map[string]any{"steps": len(trace), "reducedSteps": len(out)},
			})
		}
		return trace
	}

	return renumberIDs(replayed)
}

// normalizeOrder repeatedly swaps adjacent independent steps to move smaller
// ThreadIDs earlier, bubble-sort style, bounded to avoid runaway passes on
// pathological inputs (§4.J "lexicographic normal form").
func normalizeOrder(trace Trace) Trace {
	n := len(trace)
	maxPasses := n * n
	for pass := 0; pass < maxPasses; pass++ {
		swapped := false
		for i := 0; i+1 < n; i++ {
			a, b := trace[i], trace[i+1]
			if a.Decision.Thread == b.Decision.Thread {
				continue
			}
			if a.Decision.Thread <= b.Decision.Thread {
				continue
			}
			if Dependent(a.Decision.Thread, a.Action, b.Decision.Thread, b.Action) {
				continue
			}
			trace[i], trace[i+1] = b, a
			swapped = true
		}
		if !swapped {
			break
		}
	}
	return trace
}

// dropRedundantCommits removes a commit event when a later commit of the
// same writer's buffer to the same cell supersedes it before any
// intervening read could have observed the earlier value — the commit
// becomes unobservable and can be elided from the minimized witness (§4.J
// "commit/barrier dropping").
func dropRedundantCommits(trace Trace) Trace {
	drop := make([]bool, len(trace))
	for i, e := range trace {
		if !e.Action.Commit {
			continue
		}
		for j := i + 1; j < len(trace); j++ {
			later := trace[j]
			if isCellOp(later.Action.Kind) && later.Action.Kind != KWriteCell && later.Action.CellID == e.Action.CellID {
				break // a read could observe i's commit: not redundant
			}
			if later.Action.Commit && later.Action.CellID == e.Action.CellID && later.Action.CommitOf == e.Action.CommitOf {
				drop[i] = true
				break
			}
		}
	}
	out := make(Trace, 0, len(trace))
	for i, e := range trace {
		if !drop[i] {
			out = append(out, e)
		}
	}
	return out
}

// pullBack implements §4.J step 3: given `(A,x), ..., (B,y), (A,z)` where
// `(B,y)` (and every other event between the two A-events) is independent of
// `z`, migrate `z` leftward one adjacent swap at a time until it sits
// immediately after the earlier A-event, or until it meets an event it
// cannot cross (a dependent barrier, or the front of the trace). Repeated to
// a fixpoint, this merges each thread's scattered steps into fewer, longer
// runs wherever the dependency oracle allows it — a stronger reduction in
// context switches than normalizeOrder's pure id-based adjacent swaps.
func pullBack(trace Trace) Trace {
	n := len(trace)
	maxPasses := n * n
	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for p := n - 1; p > 0; p-- {
			thread := trace[p].Decision.Thread
			if thread == trace[p-1].Decision.Thread {
				continue // already adjacent to its own run
			}
			if !hasEarlierSameThread(trace, p, thread) {
				continue // nothing to pull back toward
			}
			if Dependent(trace[p-1].Decision.Thread, trace[p-1].Action, thread, trace[p].Action) {
				continue // blocked: cannot cross a dependent predecessor
			}
			trace[p-1], trace[p] = trace[p], trace[p-1]
			moved = true
		}
		if !moved {
			break
		}
	}
	return trace
}

// pushForward implements §4.J step 4, the symmetric transformation: given
// `(A,x), ..., (B,y), (A,z)` where every event between is independent of
// `x`, migrate `x` rightward one adjacent swap at a time until it sits
// immediately before the later A-event it is being merged with.
func pushForward(trace Trace) Trace {
	n := len(trace)
	maxPasses := n * n
	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for p := 0; p < n-1; p++ {
			thread := trace[p].Decision.Thread
			if thread == trace[p+1].Decision.Thread {
				continue
			}
			if !hasLaterSameThread(trace, p, thread) {
				continue
			}
			if Dependent(thread, trace[p].Action, trace[p+1].Decision.Thread, trace[p+1].Action) {
				continue
			}
			trace[p], trace[p+1] = trace[p+1], trace[p]
			moved = true
		}
		if !moved {
			break
		}
	}
	return trace
}

func hasEarlierSameThread(trace Trace, before int, thread ThreadID) bool {
	for k := before - 1; k >= 0; k-- {
		if trace[k].Decision.Thread == thread {
			return true
		}
	}
	return false
}

func hasLaterSameThread(trace Trace, after int, thread ThreadID) bool {
	for k := after + 1; k < len(trace); k++ {
		if trace[k].Decision.Thread == thread {
			return true
		}
	}
	return false
}

// reexecute replays reduced under a deterministic scheduler that follows its
// `(tid, action-shape)` sequence, returning both the trace actually produced
// (the canonical trace Simplify reports on success) and the resulting
// Outcome, for the caller to compare against the original (§4.J).
func reexecute(prog Prog, st *settings, reduced Trace) (Trace, Outcome) {
	tids := make([]ThreadID, len(reduced))
	for i, e := range reduced {
		tids[i] = e.Decision.Thread
	}

	replaySt := &settings{memType: st.memType, numCapabilities: st.numCapabilities, logger: noopLogger{}}
	ctx := newContext(replaySt.memType, replaySt.numCapabilities, replaySt.logger)
	ctx.spawnRoot(prog)
	b := newBounds(0, 0, 0)
	sched := newReplayScheduler(tids)
	result, failure, replayed := runScheduleWithBounds(ctx, ctx.root, sched, b, replaySt)
	return replayed, Outcome{Result: result, Failure: failure, Trace: replayed}
}

// replayScheduler drives a re-execution by following a recorded tid
// sequence, skipping any recorded decision whose thread is not currently
// runnable (it has since exited, or the reduction moved its remaining steps
// elsewhere) so the replay can proceed safely over a sequence perturbed by
// pull-back/push-forward (§4.J "skipping decisions for exited threads").
// Falls back to a deterministic round robin once the recorded sequence is
// exhausted.
type replayScheduler struct {
	tids     []ThreadID
	idx      int
	fallback Scheduler
}

func newReplayScheduler(tids []ThreadID) *replayScheduler {
	return &replayScheduler{tids: tids, fallback: newRoundRobin()}
}

func (r *replayScheduler) Schedule(runnable []Lookahead, previous *Decision) ThreadID {
	for r.idx < len(r.tids) {
		tid := r.tids[r.idx]
		r.idx++
		for _, la := range runnable {
			if la.Thread == tid {
				return tid
			}
		}
	}
	return r.fallback.Schedule(runnable, previous)
}

// renumberIDs remaps every ThreadID/CellID/MVarID appearing in trace to a
// dense, first-seen-order numbering, purely for presentation: a minimized
// witness trace reads far more clearly as threads 1,2,3 than as whatever
// sparse ids the original exploration happened to allocate (§4.J "id
// renumbering").
func renumberIDs(trace Trace) Trace {
	threads := map[ThreadID]ThreadID{}
	cells := map[CellID]CellID{}
	mvars := map[MVarID]MVarID{}

	remapThread := func(t ThreadID) ThreadID {
		if t == 0 || isCommitThread(t) {
			return t
		}
		if id, ok := threads[t]; ok {
			return id
		}
		id := ThreadID(len(threads) + 1)
		threads[t] = id
		return id
	}
	remapCell := func(c CellID) CellID {
		if c == 0 {
			return 0
		}
		if id, ok := cells[c]; ok {
			return id
		}
		id := CellID(len(cells) + 1)
		cells[c] = id
		return id
	}
	remapMVar := func(m MVarID) MVarID {
		if m == 0 {
			return 0
		}
		if id, ok := mvars[m]; ok {
			return id
		}
		id := MVarID(len(mvars) + 1)
		mvars[m] = id
		return id
	}
	remapTag := func(t ActionTag) ActionTag {
		t.CellID = remapCell(t.CellID)
		t.MVarID = remapMVar(t.MVarID)
		t.ThrowTarget = remapThread(t.ThrowTarget)
		t.CommitOf = remapThread(t.CommitOf)
		return t
	}

	out := make(Trace, len(trace))
	for i, e := range trace {
		alts := make([]Lookahead, len(e.Alternatives))
		for j, a := range e.Alternatives {
			alts[j] = Lookahead{Thread: remapThread(a.Thread), Action: remapTag(a.Action)}
		}
		out[i] = Event{
			Decision:     Decision{Kind: e.Decision.Kind, Thread: remapThread(e.Decision.Thread)},
			Alternatives: alts,
			Action:       remapTag(e.Action),
			Result:       e.Result,
		}
	}
	return out
}
