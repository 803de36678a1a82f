package sct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanSnapshot_TrueOnlyWhenDontCheckIsFirst(t *testing.T) {
	assert.True(t, canSnapshot(DontCheck(nil, Return(1))))
	assert.False(t, canSnapshot(Return(1)))
	assert.False(t, canSnapshot(Bind(Yield(), func(any) Prog { return DontCheck(nil, Return(1)) })))
}

func TestTrySnapshot_FailsWithoutLeadingDontCheck(t *testing.T) {
	_, ok := trySnapshot(Return(1), SC, 1, nil)
	assert.False(t, ok)
}

func TestTrySnapshot_SucceedsAndCapturesPreludeState(t *testing.T) {
	prog := DontCheck(nil, Bind(NewCell("x", 1), func(r any) Prog {
		return WriteCell(r.(CellID), 2)
	}))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)
	assert.NotNil(t, snap.ctx)
}

func TestSnapshotRestore_CloneIsIndependentOfOriginal(t *testing.T) {
	prog := DontCheck(nil, NewCell("x", 1))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)

	var cellID CellID
	for id := range snap.ctx.mem.cells {
		cellID = id
	}

	clone := snap.restore()
	clone.mem.cells[cellID].value = 99

	assert.Equal(t, 1, snap.ctx.mem.cells[cellID].value, "mutating the restored clone must not affect the snapshot's own Context")
	assert.Equal(t, 99, clone.mem.cells[cellID].value)
}

func TestSnapshotRestore_TwoClonesAreIndependentOfEachOther(t *testing.T) {
	prog := DontCheck(nil, NewCell("x", 1))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)

	var cellID CellID
	for id := range snap.ctx.mem.cells {
		cellID = id
	}

	cloneA := snap.restore()
	cloneB := snap.restore()
	cloneA.mem.cells[cellID].value = "from-a"

	assert.Equal(t, 1, cloneB.mem.cells[cellID].value, "restoring twice must yield independent clones")
}

func TestTrySnapshot_CapturesLiftEffectsFromThePrelude(t *testing.T) {
	calls := 0
	prog := DontCheck(nil, Lift(func() any { calls++; return calls }))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)
	assert.Equal(t, 1, calls, "the prelude's Lift runs exactly once during capture")
	assert.Len(t, snap.replayLog, 1)
	assert.Equal(t, 1, snap.replayLog[0].Result)
}

func TestSnapshotRestore_ReplaysLiftEffectsForSideEffectsOnly(t *testing.T) {
	calls := 0
	prog := DontCheck(nil, Lift(func() any { calls++; return calls }))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)

	_ = snap.restore()
	assert.Equal(t, 2, calls, "restore must re-invoke the recorded Lift effect once for its side effect")

	_ = snap.restore()
	assert.Equal(t, 3, calls, "each subsequent restore replays the effect again")
}

func TestSnapshotRestore_LiftReplayDiscardsNewResult(t *testing.T) {
	// the continuation captured by the snapshot already resolved using the
	// Result observed during capture; restore's replay must not change
	// that, even though the effect itself now returns something different.
	n := 0
	prog := DontCheck(nil, Bind(Lift(func() any { n++; return n }), func(r any) Prog {
		return NewCell("seen", r)
	}))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)

	var cellID CellID
	for id := range snap.ctx.mem.cells {
		cellID = id
	}
	assert.Equal(t, 1, snap.ctx.mem.cells[cellID].value, "the cell was seeded from the prelude's original Lift result")

	clone := snap.restore()
	assert.Equal(t, 2, n, "the effect ran again for its side effect")
	assert.Equal(t, 1, clone.mem.cells[cellID].value, "the cloned continuation's captured value must not change just because replay observed a new result")
}

func TestSnapshotRestore_NeverLowersIDSourceBelowPreludeHighWaterMark(t *testing.T) {
	prog := DontCheck(nil, Bind(NewCell("x", 1), func(any) Prog { return NewCell("y", 2) }))
	snap, ok := trySnapshot(prog, SC, 1, nil)
	assert.True(t, ok)

	before := snap.ctx.ids.mark()
	_ = snap.restore()
	after := snap.ctx.ids.mark()
	assert.Equal(t, before, after, "restore must never lower the shared id source below the prelude's high-water mark")
}
