package sct

// Dependent implements the conflict relation of §4.G: two steps, from
// different threads, are dependent if swapping their relative order could
// change either step's outcome. DPOR only needs to add a backtrack point for
// dependent pairs; independent pairs can be freely reordered without
// re-exploring.
func Dependent(t1 ThreadID, a1 ActionTag, t2 ThreadID, a2 ActionTag) bool {
	if t1 == t2 {
		// Never compared in practice (DPOR only consults pairs of distinct
		// threads), but program order within one thread is trivially
		// dependent.
		return true
	}

	// A commit event (a deferred write becoming globally visible) is
	// dependent on anything touching its cell — including another commit —
	// since reordering it changes what later reads observe (§4.B, §4.G).
	if a1.Commit || a2.Commit {
		return a1.CellID == a2.CellID
	}

	// Fork is conservatively dependent with everything: the forked thread's
	// body is unknown until it runs, so DPOR cannot assume independence
	// (§4.G "Fork conservative dependency").
	if a1.Kind == KFork || a1.Kind == KForkOS || a2.Kind == KFork || a2.Kind == KForkOS {
		return true
	}

	// ThrowTo depends on any action performed by its target, since the
	// target's mask state and handler stack at the moment of delivery
	// determine whether/where the exception lands.
	if a1.Kind == KThrowTo && a1.ThrowTarget == t2 {
		return true
	}
	if a2.Kind == KThrowTo && a2.ThrowTarget == t1 {
		return true
	}

	// Two Atomic (STM) steps conflict exactly when one's write set
	// intersects the other's read or write set — the same read/write and
	// write/write conflict rule §4.G states for cells, applied across each
	// transaction's full logged set rather than a single id (§3
	// "Transaction log").
	if a1.Kind == KAtomic && a2.Kind == KAtomic {
		return tvarSetsConflict(a1.TVarReads, a1.TVarWrites, a2.TVarReads, a2.TVarWrites)
	}

	switch {
	case isCellOp(a1.Kind) && isCellOp(a2.Kind):
		if a1.CellID != a2.CellID {
			return false // disjoint cells: always independent
		}
		if isReadOnlyCell(a1.Kind) && isReadOnlyCell(a2.Kind) {
			return false // same-cell reads never conflict
		}
		return true // at least one write: dependent

	case isMVarOp(a1.Kind) && isMVarOp(a2.Kind):
		return a1.MVarID == a2.MVarID

	case isCellOp(a1.Kind) && isMVarOp(a2.Kind), isMVarOp(a1.Kind) && isCellOp(a2.Kind):
		return false // disjoint primitive families never conflict

	default:
		// Remaining control/meta actions (Yield, ThreadDelay, MyThreadID,
		// Lift, Message, GetNumCapabilities, SetNumCapabilities, IsBound,
		// Stop, Throw, Catching, Masking, Sub, DontCheck) carry no shared
		// resource identity at the tag level, so conservatively treat them
		// as independent of cell/MVar/TVar traffic and of each other.
		// Atomic-vs-Atomic was already handled above; a lone Atomic paired
		// with a non-Atomic action never shares a resource, since TVars are
		// never touched outside a transaction.
		return false
	}
}

func isCellOp(k ActionKind) bool {
	switch k {
	case KNewCell, KReadCell, KReadCellCAS, KWriteCell, KCASCell, KModCell, KModCellCAS:
		return true
	default:
		return false
	}
}

func isReadOnlyCell(k ActionKind) bool {
	switch k {
	case KReadCell, KReadCellCAS:
		return true
	default:
		return false
	}
}

func isMVarOp(k ActionKind) bool {
	switch k {
	case KNewMVar, KPutMVar, KTakeMVar, KReadMVar, KTryPutMVar, KTryTakeMVar, KTryReadMVar:
		return true
	default:
		return false
	}
}

// tvarSetsConflict reports whether two transactions' logged read/write sets
// overlap in a way that could change either's outcome if reordered: a write
// against the other's read or write set. Two reads of the same TVar never
// conflict, mirroring the cell rule.
func tvarSetsConflict(reads1, writes1, reads2, writes2 []TVarID) bool {
	return tvarSetsIntersect(writes1, reads2) ||
		tvarSetsIntersect(writes1, writes2) ||
		tvarSetsIntersect(writes2, reads1)
}

func tvarSetsIntersect(a, b []TVarID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
