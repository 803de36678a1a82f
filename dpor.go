package sct

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Explore systematically tests prog under every schedule reachable by
// dynamic partial-order reduction (§4.G, §4.H): it runs the program once
// with the default scheduler, then replays with a new thread forced at each
// backtrack point discovered from dependent action pairs in the prior
// trace, until no new backtrack points remain. Returns one Outcome per
// distinct schedule explored, deduplicated per the configured EqualityFunc
// (§4.K).
func Explore(prog Prog, opts ...Option) []Outcome {
	st := resolveSettings(opts)

	var outcomes []Outcome
	queue := [][]ThreadID{nil}
	seen := map[string]bool{}

	ds := newDriverState()
	ds.TryTransition(RunIdle, RunRunning)
	defer ds.Store(RunDone)

	for len(queue) > 0 {
		forced := queue[0]
		queue = queue[1:]
		key := forcedKey(forced)
		if seen[key] {
			continue
		}
		seen[key] = true

		ctx := newContext(st.memType, st.numCapabilities, st.logger)
		ctx.spawnRoot(prog)
		b := newBounds(st.preemptionBound, st.fairBound, st.lengthBound)
		sched := &prefixScheduler{forced: forced, fallback: newRoundRobin()}
		result, failure, trace := runScheduleWithBounds(ctx, ctx.root, sched, b, st)

		outcome := Outcome{Result: result, Failure: failure, Trace: trace}
		if failure != nil && failure.Kind() == FailureInternalError && st.debugFatal {
			panic(failure)
		}
		if st.discard == nil || !st.discard(outcome) {
			outcomes = append(outcomes, outcome)
		}
		if st.earlyExit != nil && st.earlyExit(outcome) {
			// early_exit moves the driver to Aborting and empties the work
			// queue; the deferred ds.Store(RunDone) then runs, just as when
			// the queue runs out (§4.N). A bound-triggered AbortError is
			// recorded as an ordinary outcome and exploration continues.
			ds.requestAbort()
			queue = nil
			break
		}

		for i, threads := range backtrackPoints(trace) {
			slices.Sort(threads)
			for _, tid := range threads {
				next := make([]ThreadID, i+1)
				for k := 0; k < i; k++ {
					next[k] = trace[k].Decision.Thread
				}
				next[i] = tid
				if !seen[forcedKey(next)] {
					queue = append(queue, next)
				}
			}
		}
	}

	if st.simplify {
		for i := range outcomes {
			if outcomes[i].Failed() {
				outcomes[i].Trace = Simplify(prog, st, outcomes[i], outcomes[i].Trace)
			}
		}
	}

	return dedupe(outcomes, st.equality)
}

// forcedKey renders a forced-schedule prefix into a comparable string, so
// Explore's work queue never re-derives (and re-runs) the same prefix twice.
func forcedKey(forced []ThreadID) string {
	var b strings.Builder
	for i, tid := range forced {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", tid)
	}
	return b.String()
}

// prefixScheduler replays a previously observed decision sequence verbatim,
// then falls back to an ordinary Scheduler once the forced prefix is
// exhausted — the mechanism by which Explore diverges a new run from an
// existing trace at exactly one backtrack point (§4.H).
type prefixScheduler struct {
	forced   []ThreadID
	idx      int
	fallback Scheduler
}

func (p *prefixScheduler) Schedule(runnable []Lookahead, previous *Decision) ThreadID {
	if p.idx < len(p.forced) {
		tid := p.forced[p.idx]
		p.idx++
		return tid
	}
	return p.fallback.Schedule(runnable, previous)
}

// runScheduleWithBounds is runSchedule augmented with bounds.go's orthogonal
// preemption/fairness/length checks, and optional debug logging (§4.K,
// §4.L).
func runScheduleWithBounds(ctx *Context, root ThreadID, sched Scheduler, b *bounds, st *settings) (result any, failure Failure, trace Trace) {
	var prev *Decision
	for {
		if ctx.pendingFailure != nil {
			err := ctx.pendingFailure
			ctx.pendingFailure = nil
			f, _ := AsFailure(err)
			if f == nil {
				f = &InternalError{Message: "runScheduleWithBounds", Cause: err}
			}
			return nil, f, trace
		}
		runnable := ctx.runnableIDs()
		if len(runnable) == 0 {
			blocked := ctx.blockedIDs()
			if len(blocked) == 0 {
				rt := ctx.threads[root]
				return rt.result, nil, trace
			}
			return nil, &DeadlockError{Blocked: blocked}, trace
		}
		alts := ctx.lookaheads()
		chosen := sched.Schedule(alts, prev)

		if ab := b.checkLength(); ab != nil {
			return nil, ab, trace
		}
		if ab := b.recordDecision(chosen, prev, runnable); ab != nil {
			return nil, ab, trace
		}

		tag, err := step(ctx, chosen)
		if err != nil {
			f, ok := AsFailure(err)
			if !ok {
				f = &InternalError{Message: "runScheduleWithBounds: step failed", Cause: err}
			}
			return nil, f, trace
		}

		kind := DecisionStart
		if prev != nil {
			if prev.Thread == chosen {
				kind = DecisionContinue
			} else {
				kind = DecisionSwitchTo
			}
		}
		dec := Decision{Kind: kind, Thread: chosen}
		if st.debugPrint && st.logger.IsEnabled(LevelDebug) {
			st.logger.Log(Entry{Level: LevelDebug, Message: "step", Fields: map[string]any{
				"thread": uint64(chosen),
				"kind":   kind.String(),
				"action": tag.String(),
			}})
		}
		trace = append(trace, Event{Decision: dec, Alternatives: alts, Action: tag})
		prev = &dec
	}
}

// backtrackPoints implements the simplified dynamic-POR backtrack-set rule
// of §4.G/§4.H: for each step j, walk backward to the closest prior step i
// performed by a different thread that is dependent with j (stopping at the
// most recent prior step of j's own thread, since nothing earlier could have
// raced with j without also racing through that step); if j's thread was
// itself an enabled alternative at i, record it as a backtrack candidate
// there. This is the commonly presented single-predecessor variant of
// classic DPOR — it omits the full happens-before/clock-vector bookkeeping
// needed to avoid occasionally proposing a prefix that replays no new
// interleaving at all, which Explore's seen-prefix cache safely absorbs (at
// the cost of sometimes re-running an already-seen schedule) rather than
// leaving unexplored.
func backtrackPoints(trace Trace) map[int][]ThreadID {
	out := map[int][]ThreadID{}
	for j := 1; j < len(trace); j++ {
		tj := trace[j].Decision.Thread
		aj := trace[j].Action
		for i := j - 1; i >= 0; i-- {
			ti := trace[i].Decision.Thread
			if ti == tj {
				break
			}
			if !Dependent(ti, trace[i].Action, tj, aj) {
				continue
			}
			for _, alt := range trace[i].Alternatives {
				if alt.Thread == tj {
					out[i] = append(out[i], tj)
					break
				}
			}
			break
		}
	}
	return out
}
