package sct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemModel_SC_WritesCommitImmediately(t *testing.T) {
	m := newMemModel(SC)
	m.newCell(1, "x", 0)
	m.afterWrite(10, 1, 42)
	v, ver := m.readsFor(20, 1)
	assert.Equal(t, 42, v)
	assert.Equal(t, uint64(2), ver)
	assert.Empty(t, m.commitOptions())
}

func TestMemModel_TSO_BuffersUntilCommit(t *testing.T) {
	m := newMemModel(TSO)
	m.newCell(1, "x", 0)
	m.afterWrite(10, 1, 42)

	// the writer itself sees its own buffered write
	v, _ := m.readsFor(10, 1)
	assert.Equal(t, 42, v)

	// another thread still sees the stale committed value
	v, _ = m.readsFor(20, 1)
	assert.Equal(t, 0, v)

	opts := m.commitOptions()
	assert.Len(t, opts, 1)
	assert.Equal(t, ThreadID(10), opts[0].writer)
	assert.Equal(t, CellID(1), opts[0].cell)

	assert.True(t, m.commit(10, 1))
	v, _ = m.readsFor(20, 1)
	assert.Equal(t, 42, v)
	assert.Empty(t, m.commitOptions())
}

func TestMemModel_TSO_OneBufferSpansAllCells(t *testing.T) {
	m := newMemModel(TSO)
	m.newCell(1, "x", 0)
	m.newCell(2, "y", 0)
	m.afterWrite(10, 1, "a")
	m.afterWrite(10, 2, "b")

	// TSO keys the buffer by writer alone: both writes share one FIFO queue,
	// so cell 2's write cannot commit ahead of cell 1's.
	opts := m.commitOptions()
	assert.Len(t, opts, 1)
	assert.Equal(t, CellID(1), opts[0].cell)
}

func TestMemModel_PSO_IndependentBuffersPerCell(t *testing.T) {
	m := newMemModel(PSO)
	m.newCell(1, "x", 0)
	m.newCell(2, "y", 0)
	m.afterWrite(10, 1, "a")
	m.afterWrite(10, 2, "b")

	opts := m.commitOptions()
	assert.Len(t, opts, 2, "PSO keys buffers by (writer, cell): both cells have independent commit options")
}

func TestMemModel_Barrier_FlushesInFIFOOrderUpToTarget(t *testing.T) {
	m := newMemModel(TSO)
	m.newCell(1, "x", 0)
	m.newCell(2, "y", 0)
	m.afterWrite(10, 1, "first")
	m.afterWrite(10, 2, "second")

	m.barrier(2, false)

	v1, _ := m.readsFor(20, 1)
	v2, _ := m.readsFor(20, 2)
	assert.Equal(t, "first", v1, "flushing to cell 2 must first flush cell 1's earlier-queued write")
	assert.Equal(t, "second", v2)
	assert.False(t, m.hasPendingWritesTo(1))
	assert.False(t, m.hasPendingWritesTo(2))
}

func TestMemModel_CAS_SucceedsOnMatchingTicket(t *testing.T) {
	m := newMemModel(SC)
	m.newCell(1, "x", "old")
	_, ver := m.readsFor(1, 1)
	ok := m.cas(1, Ticket{Cell: 1, Version: ver}, "new")
	assert.True(t, ok)
	v, _ := m.readsFor(1, 1)
	assert.Equal(t, "new", v)
}

func TestMemModel_CAS_FailsOnStaleTicket(t *testing.T) {
	m := newMemModel(SC)
	m.newCell(1, "x", "old")
	_, ver := m.readsFor(1, 1)
	m.afterWrite(1, 1, "concurrent")
	ok := m.cas(1, Ticket{Cell: 1, Version: ver}, "new")
	assert.False(t, ok)
	v, _ := m.readsFor(1, 1)
	assert.Equal(t, "concurrent", v)
}

func TestMemModel_CAS_BarriersPendingWritesFirst(t *testing.T) {
	m := newMemModel(TSO)
	m.newCell(1, "x", 0)
	m.afterWrite(10, 1, 1) // buffered, not yet visible
	_, committedVer := m.readsFor(20, 1)

	ok := m.cas(1, Ticket{Cell: 1, Version: committedVer}, 99)
	assert.False(t, ok, "the barrier must promote the buffered write before comparing, invalidating the stale ticket")
	v, _ := m.readsFor(20, 1)
	assert.Equal(t, 1, v)
}

func TestMemModel_ModCAS_AtomicFetchAndMutate(t *testing.T) {
	m := newMemModel(SC)
	m.newCell(1, "counter", 0)
	m.modCAS(1, func(v any) any { return v.(int) + 1 })
	m.modCAS(1, func(v any) any { return v.(int) + 1 })
	v, ver := m.readsFor(1, 1)
	assert.Equal(t, 2, v)
	assert.Equal(t, uint64(3), ver)
}

func TestMemModel_ModCAS_BarriersFirst(t *testing.T) {
	m := newMemModel(TSO)
	m.newCell(1, "x", 10)
	m.afterWrite(5, 1, 20)
	m.modCAS(1, func(v any) any { return v.(int) + 1 })
	v, _ := m.readsFor(99, 1)
	assert.Equal(t, 21, v, "modCAS must observe the just-flushed buffered value, not the stale committed one")
}
