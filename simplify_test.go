package sct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplify_UnchangedWhenNotFailed(t *testing.T) {
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 1}, Action: ActionTag{Kind: KYield}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 2}, Action: ActionTag{Kind: KYield}},
	}
	out := Simplify(nil, resolveSettings(nil), Outcome{Result: 1}, trace)
	assert.Equal(t, trace, out)
}

func TestSimplify_UnchangedWhenTraceTooShort(t *testing.T) {
	trace := Trace{{Decision: Decision{Kind: DecisionStart, Thread: 1}, Action: ActionTag{Kind: KYield}}}
	out := Simplify(nil, resolveSettings(nil), Outcome{Failure: &DeadlockError{}}, trace)
	assert.Equal(t, trace, out)
}

func TestNormalizeOrder_SwapsAdjacentIndependentSteps(t *testing.T) {
	// thread 2 runs a disjoint-cell write before thread 1; since they're
	// independent, normalizeOrder should bubble thread 1 (the smaller id) first.
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 2}, Action: ActionTag{Kind: KWriteCell, CellID: 2}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
	}
	out := normalizeOrder(append(Trace(nil), trace...))
	assert.Equal(t, ThreadID(1), out[0].Decision.Thread)
	assert.Equal(t, ThreadID(2), out[1].Decision.Thread)
}

func TestNormalizeOrder_NeverSwapsDependentSteps(t *testing.T) {
	// same cell, both writes: dependent, so order must be preserved.
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 2}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
	}
	out := normalizeOrder(append(Trace(nil), trace...))
	assert.Equal(t, ThreadID(2), out[0].Decision.Thread)
	assert.Equal(t, ThreadID(1), out[1].Decision.Thread)
}

func TestDropRedundantCommits_DropsSupersededCommit(t *testing.T) {
	trace := Trace{
		{Decision: Decision{Thread: commitThreadID(1, 5, false)}, Action: ActionTag{Commit: true, CommitOf: 1, CellID: 5}},
		{Decision: Decision{Thread: commitThreadID(1, 5, false)}, Action: ActionTag{Commit: true, CommitOf: 1, CellID: 5}},
		{Decision: Decision{Thread: 2}, Action: ActionTag{Kind: KReadCell, CellID: 5}},
	}
	out := dropRedundantCommits(trace)
	assert.Len(t, out, 2, "the first commit is superseded by the second before any read observes it")
}

func TestDropRedundantCommits_KeepsCommitObservedByRead(t *testing.T) {
	trace := Trace{
		{Decision: Decision{Thread: commitThreadID(1, 5, false)}, Action: ActionTag{Commit: true, CommitOf: 1, CellID: 5}},
		{Decision: Decision{Thread: 2}, Action: ActionTag{Kind: KReadCell, CellID: 5}},
		{Decision: Decision{Thread: commitThreadID(1, 5, false)}, Action: ActionTag{Commit: true, CommitOf: 1, CellID: 5}},
	}
	out := dropRedundantCommits(trace)
	assert.Len(t, out, 3, "a read stands between the two commits, so the first is observable and must be kept")
}

func TestRenumberIDs_DenseFirstSeenOrder(t *testing.T) {
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 7}, Action: ActionTag{Kind: KWriteCell, CellID: 42}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 3}, Action: ActionTag{Kind: KReadCell, CellID: 42}},
	}
	out := renumberIDs(trace)
	assert.Equal(t, ThreadID(1), out[0].Decision.Thread)
	assert.Equal(t, ThreadID(2), out[1].Decision.Thread)
	assert.Equal(t, CellID(1), out[0].Action.CellID)
	assert.Equal(t, CellID(1), out[1].Action.CellID)
}

func TestRenumberIDs_LeavesCommitThreadsAndZeroUntouched(t *testing.T) {
	ct := commitThreadID(7, 42, false)
	trace := Trace{
		{Decision: Decision{Thread: ct}, Action: ActionTag{Commit: true, CommitOf: 7, CellID: 42}},
		{Decision: Decision{Thread: 1}, Action: ActionTag{Kind: KYield}},
	}
	out := renumberIDs(trace)
	assert.Equal(t, ct, out[0].Decision.Thread, "commit-thread ids must never be renumbered into the ordinary-thread namespace")
	assert.Equal(t, CellID(0), out[1].Action.CellID)
}

func TestPullBack_MergesScatteredSameThreadStepsAcrossAnIndependentEvent(t *testing.T) {
	// (1,x), (2,y), (1,z) with (2,y) on a disjoint cell from z: z should
	// migrate left to sit immediately after thread 1's first step.
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 2}, Action: ActionTag{Kind: KWriteCell, CellID: 2}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
	}
	out := pullBack(append(Trace(nil), trace...))
	assert.Equal(t, []ThreadID{1, 1, 2}, []ThreadID{out[0].Decision.Thread, out[1].Decision.Thread, out[2].Decision.Thread})
}

func TestPullBack_BlockedByDependentEventDoesNotMove(t *testing.T) {
	// (1,x), (2,y), (1,z) but (2,y) and z touch the same cell: dependent,
	// so z cannot cross it.
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 9}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 2}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
	}
	out := pullBack(append(Trace(nil), trace...))
	assert.Equal(t, []ThreadID{1, 2, 1}, []ThreadID{out[0].Decision.Thread, out[1].Decision.Thread, out[2].Decision.Thread})
}

func TestPushForward_MergesScatteredSameThreadStepsAcrossAnIndependentEvent(t *testing.T) {
	// (1,x), (2,y), (1,z) with (2,y) independent of x: x should migrate
	// right to sit immediately before thread 1's later step.
	trace := Trace{
		{Decision: Decision{Kind: DecisionStart, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 2}, Action: ActionTag{Kind: KWriteCell, CellID: 2}},
		{Decision: Decision{Kind: DecisionSwitchTo, Thread: 1}, Action: ActionTag{Kind: KWriteCell, CellID: 1}},
	}
	out := pushForward(append(Trace(nil), trace...))
	assert.Equal(t, []ThreadID{2, 1, 1}, []ThreadID{out[0].Decision.Thread, out[1].Decision.Thread, out[2].Decision.Thread})
}

func TestReplayScheduler_SkipsDecisionsForExitedThreads(t *testing.T) {
	// thread 3 is recorded but never appears in any runnable set passed to
	// Schedule (it already exited by the time the replay reaches it): the
	// scheduler must skip over it rather than getting stuck.
	sched := newReplayScheduler([]ThreadID{1, 3, 2})
	got := sched.Schedule([]Lookahead{{Thread: 1}, {Thread: 2}}, nil)
	assert.Equal(t, ThreadID(1), got)
	got = sched.Schedule([]Lookahead{{Thread: 2}}, &Decision{Thread: 1})
	assert.Equal(t, ThreadID(2), got, "thread 3's recorded decision must be skipped since it is not runnable")
}

func TestSimplify_FullPipelineReproducesADeadlockWitness(t *testing.T) {
	// two threads each permanently block taking an empty MVar: every
	// schedule deadlocks, so Simplify's re-execution must always confirm
	// the same DeadlockError kind regardless of how the trace was reduced.
	prog := Bind(NewMVar("mv"), func(r any) Prog {
		id := r.(MVarID)
		other := Bind(TakeMVar(id), func(any) Prog { return Return(nil) })
		return Bind(Fork("other", other), func(any) Prog {
			return TakeMVar(id)
		})
	})
	outcomes := Explore(prog, WithLengthBound(50))
	assert.NotEmpty(t, outcomes)
	for _, o := range outcomes {
		assert.True(t, o.Failed())
		assert.Equal(t, FailureDeadlock, o.Failure.Kind())
		assert.NotEmpty(t, o.Trace, "simplification must never discard the witness entirely")
	}
}
