package sct

// STMComp is a single pending STM step (§4.E), analogous to Comp but scoped
// to the transaction sub-interpreter.
type STMComp func() STMAction

// STM is a composable STM program, analogous to Prog.
type STM func(next func(result any) STMComp) STMComp

func (s STM) terminal() STMComp {
	return s(func(r any) STMComp { return func() STMAction { return STMAction{Kind: SReturn, Value: r} } })
}

// BindSTM sequences an STM program with a function from its result to the
// next STM program.
func BindSTM(s STM, f func(any) STM) STM {
	return func(next func(any) STMComp) STMComp {
		return s(func(r any) STMComp {
			return f(r)(next)
		})
	}
}

// ReturnSTM yields an STM program that immediately completes with v.
func ReturnSTM(v any) STM {
	return func(next func(any) STMComp) STMComp {
		return next(v)
	}
}

// STMActionKind identifies a transaction sub-step.
type STMActionKind int

const (
	SNewTVar STMActionKind = iota
	SReadTVar
	SWriteTVar
	SRetry
	SReturn
	SThrow
)

// STMAction is a single transaction sub-step.
type STMAction struct {
	Kind   STMActionKind
	TVarID TVarID
	Value  any

	K func(result any) STMComp
}

// NewTVar creates a fresh TVar initialized to v within the enclosing
// transaction, completing with its id.
func NewTVar(v any) STM {
	return func(next func(any) STMComp) STMComp {
		return func() STMAction { return STMAction{Kind: SNewTVar, Value: v, K: next} }
	}
}

// ReadTVar logs id into the transaction's read set (if not already present)
// and completes with the tentative value (the transaction's own pending
// write, if any, else the last committed value) (§3).
func ReadTVar(id TVarID) STM {
	return func(next func(any) STMComp) STMComp {
		return func() STMAction { return STMAction{Kind: SReadTVar, TVarID: id, K: next} }
	}
}

// WriteTVar logs a tentative write to id in the transaction's write set.
func WriteTVar(id TVarID, v any) STM {
	return func(next func(any) STMComp) STMComp {
		return func() STMAction { return STMAction{Kind: SWriteTVar, TVarID: id, Value: v, K: next} }
	}
}

// Retry aborts and re-queues the transaction, to be retried once any TVar in
// its read set changes. If the read set is empty, the run fails with
// STMDeadlockError (§7).
func Retry() STM {
	return func(func(any) STMComp) STMComp {
		return func() STMAction { return STMAction{Kind: SRetry} }
	}
}

// ThrowSTM raises e within the transaction, aborting it; logged writes are
// discarded (as with any transaction that does not commit).
func ThrowSTM(e any) STM {
	return func(func(any) STMComp) STMComp {
		return func() STMAction { return STMAction{Kind: SThrow, Value: e} }
	}
}
