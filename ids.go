package sct

import "sync/atomic"

// ThreadID, CellID, MVarID and TVarID are opaque, monotonically allocated
// identifiers (§3). They are never reused within a single run.
type (
	ThreadID uint64
	CellID   uint64
	MVarID   uint64
	TVarID   uint64
)

// idKind selects which counter fresh draws from.
type idKind int

const (
	kindThread idKind = iota
	kindCell
	kindMVar
	kindTVar
	numIDKinds
)

// idSource is a monotonic allocator for the four id kinds (§4.A). Fresh ids
// are never reused within one run; the post-snapshot state restores the
// source to its high-water mark (§4.I) so that resumed runs keep allocating
// from where the deterministic prelude left off.
type idSource struct {
	counters [numIDKinds]atomic.Uint64
}

func newIDSource() *idSource {
	return &idSource{}
}

func (s *idSource) fresh(kind idKind) uint64 {
	// ids start at 1; 0 is reserved to mean "no id" in optional fields.
	return s.counters[kind].Add(1)
}

func (s *idSource) freshThread() ThreadID { return ThreadID(s.fresh(kindThread)) }
func (s *idSource) freshCell() CellID     { return CellID(s.fresh(kindCell)) }
func (s *idSource) freshMVar() MVarID     { return MVarID(s.fresh(kindMVar)) }
func (s *idSource) freshTVar() TVarID     { return TVarID(s.fresh(kindTVar)) }

// highWaterMark captures the current value of every counter, for the
// snapshot facility (§4.I).
type highWaterMark [numIDKinds]uint64

func (s *idSource) mark() highWaterMark {
	var m highWaterMark
	for i := range s.counters {
		m[i] = s.counters[i].Load()
	}
	return m
}

// restore resets every counter to at least the given mark. It never lowers a
// counter below its current value, since ids must never be reused.
func (s *idSource) restore(m highWaterMark) {
	for i := range s.counters {
		if cur := s.counters[i].Load(); cur < m[i] {
			s.counters[i].Store(m[i])
		}
	}
}

// commitThreadID derives the synthetic "commit-thread" id for a deferred
// write becoming globally visible (§4.B). TSO derives identity from the
// writer alone; PSO additionally folds in the cell, so that commit-thread
// ids for a single writer differ across cells (§8 testable property 5).
//
// These ids are deliberately drawn from a disjoint high bit rather than the
// monotonic idSource, so that they remain stable and reproducible across
// repeated runs and re-executions of the same schedule (the monotonic
// source's allocation order depends on execution order, which is exactly
// what DPOR is varying).
func commitThreadID(writer ThreadID, cell CellID, pso bool) ThreadID {
	const commitBit = ThreadID(1) << 63
	if !pso {
		return commitBit | ThreadID(writer)
	}
	// Fold the cell id into the high half so PSO commit-threads differ per
	// cell while remaining a pure function of (writer, cell).
	return commitBit | (ThreadID(cell) << 32) | ThreadID(uint32(writer))
}

// isCommitThread reports whether tid was produced by commitThreadID.
func isCommitThread(tid ThreadID) bool {
	const commitBit = ThreadID(1) << 63
	return tid&commitBit != 0
}
