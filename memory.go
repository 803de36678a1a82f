package sct

import (
	"sort"

	"github.com/joeycumines/go-sct/internal/ring"
)

// MemType selects the relaxed-memory model a run simulates (§4.B).
type MemType int

const (
	// SC: sequential consistency — writes commit atomically, no buffering.
	SC MemType = iota
	// TSO: total store order — one write buffer per thread, shared across
	// all cells.
	TSO
	// PSO: partial store order — one write buffer per (thread, cell) pair.
	PSO
)

func (m MemType) String() string {
	switch m {
	case SC:
		return "SC"
	case TSO:
		return "TSO"
	case PSO:
		return "PSO"
	default:
		return "Unknown"
	}
}

// cellWrite is one entry of a per-thread write buffer (§3).
type cellWrite struct {
	cell  CellID
	value any
}

// cell is a mutable cell's committed state (§3).
type cell struct {
	id      CellID
	name    string
	value   any
	version uint64
}

// memModel implements the write-buffering and commit semantics of §4.B,
// parameterized by MemType.
type memModel struct {
	kind MemType

	cells map[CellID]*cell

	// buffers maps a buffering key to its FIFO queue of pending writes.
	// Under SC this map is always empty. Under TSO the key is the writer
	// ThreadID alone (one buffer spans every cell that writer touches);
	// under PSO it is (writer, cell).
	buffers map[bufferKey]*ring.Ring[cellWrite]
}

type bufferKey struct {
	writer ThreadID
	cell   CellID // zero under TSO, since TSO keys by writer alone
}

func newMemModel(kind MemType) *memModel {
	return &memModel{
		kind:    kind,
		cells:   make(map[CellID]*cell),
		buffers: make(map[bufferKey]*ring.Ring[cellWrite]),
	}
}

func (m *memModel) newCell(id CellID, name string, v any) {
	m.cells[id] = &cell{id: id, name: name, value: v, version: 1}
}

func (m *memModel) key(writer ThreadID, c CellID) bufferKey {
	if m.kind == PSO {
		return bufferKey{writer: writer, cell: c}
	}
	return bufferKey{writer: writer}
}

// afterWrite enqueues a pending write, or commits it immediately under SC
// (§4.B).
func (m *memModel) afterWrite(writer ThreadID, c CellID, v any) {
	if m.kind == SC {
		cl := m.cells[c]
		cl.version++
		cl.value = v
		return
	}
	k := m.key(writer, c)
	buf, ok := m.buffers[k]
	if !ok {
		buf = ring.New[cellWrite](4)
		m.buffers[k] = buf
	}
	buf.Push(cellWrite{cell: c, value: v})
}

// readsFor returns the reading thread's most recent buffered write to c, or
// the globally committed value if none (§4.B, never blocks). The returned
// version is always the globally *committed* version, even when the value
// comes from the reader's own buffer. A CASCell with such a ticket fails if
// that buffered write is still pending, because CASCell's barrier commits it
// first and so moves the cell past the ticket's version.
func (m *memModel) readsFor(reader ThreadID, c CellID) (any, uint64) {
	cl := m.cells[c]
	if m.kind != SC {
		k := m.key(reader, c)
		if buf, ok := m.buffers[k]; ok {
			if latest, found := lastMatching(buf, c); found {
				return latest, cl.version
			}
		}
	}
	return cl.value, cl.version
}

func lastMatching(buf *ring.Ring[cellWrite], c CellID) (any, bool) {
	var out any
	found := false
	for _, w := range buf.Slice() {
		if w.cell == c {
			out = w.value
			found = true
		}
	}
	return out, found
}

// commitOption describes one deferred write eligible to become globally
// visible (§4.B).
type commitOption struct {
	writer ThreadID
	cell   CellID
	commit ThreadID // the synthetic commit-thread id
}

// commitOptions lists, for each non-empty buffer head, the synthetic
// commit-thread exposed as runnable to the scheduler (§4.B), ordered by
// commit-thread id.
func (m *memModel) commitOptions() []commitOption {
	if m.kind == SC {
		return nil
	}
	var out []commitOption
	for k, buf := range m.buffers {
		head, ok := buf.PeekFront()
		if !ok {
			continue
		}
		out = append(out, commitOption{
			writer: k.writer,
			cell:   head.cell,
			commit: commitThreadID(k.writer, head.cell, m.kind == PSO),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].commit < out[j].commit })
	return out
}

// commit promotes the oldest buffered write for (writer[, cell]) to the
// global value, in FIFO order (§3, §4.B).
func (m *memModel) commit(writer ThreadID, c CellID) bool {
	k := m.key(writer, c)
	buf, ok := m.buffers[k]
	if !ok || buf.Len() == 0 {
		return false
	}
	w := buf.Pop()
	cl := m.cells[w.cell]
	cl.version++
	cl.value = w.value
	return true
}

// barrier forces commit of all pending writes to the target cell c (or every
// cell, if allCells) across every writer (§4.B). Under TSO, a writer's
// buffer spans every cell it has touched, so flushing its write to c
// requires first flushing — in FIFO order — anything that writer buffered
// ahead of it, exactly as §3's "Buffer order" invariant requires. Buffers
// are flushed in commit-thread id order.
func (m *memModel) barrier(c CellID, allCells bool) {
	for _, opt := range m.commitOptions() {
		k := m.key(opt.writer, opt.cell)
		buf := m.buffers[k]
		if buf.Len() == 0 {
			continue
		}
		if allCells {
			for buf.Len() > 0 {
				head, _ := buf.PeekFront()
				m.commit(k.writer, head.cell)
			}
			continue
		}
		if !bufferTargets(buf, c) {
			continue
		}
		for bufferTargets(buf, c) {
			head, _ := buf.PeekFront()
			m.commit(k.writer, head.cell)
		}
	}
}

func bufferTargets(buf *ring.Ring[cellWrite], c CellID) bool {
	for _, w := range buf.Slice() {
		if w.cell == c {
			return true
		}
	}
	return false
}

// cas barriers every pending write to c, then atomically swaps its value if
// it is still at ticket's version (§4.D KCASCell). The barrier is required
// even on a failing compare: CASCell observes the *globally committed*
// state, never a buffered one, so any outstanding write must be forced
// first.
func (m *memModel) cas(c CellID, ticket Ticket, v any) bool {
	m.barrier(c, false)
	cl := m.cells[c]
	if cl.version != ticket.Version {
		return false
	}
	cl.version++
	cl.value = v
	return true
}

// modCAS barriers c, then applies f to its committed value and writes the
// result back as a single step, bypassing any per-thread buffer: the
// teacher's fetch-and-mutate primitives (e.g. atomic increment) are always
// specified as one indivisible commit (§4.D KModCellCAS).
func (m *memModel) modCAS(c CellID, f func(any) any) {
	m.barrier(c, false)
	cl := m.cells[c]
	cl.version++
	cl.value = f(cl.value)
}

// hasPendingWritesTo reports whether any thread has a pending write to c.
func (m *memModel) hasPendingWritesTo(c CellID) bool {
	for _, buf := range m.buffers {
		if bufferTargets(buf, c) {
			return true
		}
	}
	return false
}
