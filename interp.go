package sct

import "fmt"

// CellRead pairs a ReadCellCAS result with the Ticket needed for a later
// CASCell (§3, GLOSSARY).
type CellRead struct {
	Value  any
	Ticket Ticket
}

// TakeResult is the completion value of TryTakeMVar and TryReadMVar (§4.D):
// the value taken/read, and whether the MVar was full. TryPutMVar completes
// with a plain bool instead.
type TakeResult struct {
	Value any
	OK    bool
}

// UnsupportedBoundThreadError is thrown into the calling thread by ForkOS:
// this module never binds a goroutine to an OS thread (see Non-goals).
type UnsupportedBoundThreadError struct{}

func (e *UnsupportedBoundThreadError) Error() string {
	return "sct: bound threads are not supported; ForkOS always fails"
}

// step performs tid's next action against ctx, mutating interpreter state,
// and reports a summary of what happened. It never blocks on this call: if
// the action would block, step parks the thread (via its BlockReason) and
// returns promptly, leaving tid out of future runnable sets until woken.
func step(ctx *Context, tid ThreadID) (ActionTag, error) {
	if isCommitThread(tid) {
		return stepCommit(ctx, tid)
	}
	t, ok := ctx.threads[tid]
	if !ok || !t.runnable() {
		return ActionTag{}, &InternalError{Message: fmt.Sprintf("step: thread %d is not runnable", tid)}
	}
	ctx.stepCount++
	a := t.cont()
	tag := tagFromAction(a)
	perform(ctx, t, a, &tag)
	if ctx.pendingFailure != nil {
		err := ctx.pendingFailure
		ctx.pendingFailure = nil
		if f, ok := AsFailure(err); ok {
			return tag, f
		}
		return tag, err
	}
	return tag, nil
}

func stepCommit(ctx *Context, tid ThreadID) (ActionTag, error) {
	for _, opt := range ctx.mem.commitOptions() {
		if opt.commit == tid {
			ctx.mem.commit(opt.writer, opt.cell)
			return ActionTag{Commit: true, CommitOf: opt.writer, CellID: opt.cell}, nil
		}
	}
	return ActionTag{}, &InternalError{Message: fmt.Sprintf("step: commit-thread %d has no pending write", tid)}
}

// perform executes a single Action's semantics against t, updating t.cont
// (or t.block) and ctx's shared state. tag is pre-populated from a and may
// be refined (e.g. with a freshly allocated id).
func perform(ctx *Context, t *thread, a Action, tag *ActionTag) {
	switch a.Kind {

	// --- Control ---

	case KFork:
		child := ctx.spawn(a.Name, a.ForkBody.terminal(), false)
		t.cont = a.K(child.id)

	case KForkOS:
		throwException(ctx, t, &UnsupportedBoundThreadError{})

	case KYield, KThreadDelay:
		t.cont = a.K(nil)

	case KMyThreadID:
		t.cont = a.K(t.id)

	case KStop:
		t.done = true

	case KGetNumCapabilities:
		t.cont = a.K(ctx.numCaps)

	case KSetNumCapabilities:
		ctx.numCaps = a.NumCaps
		t.cont = a.K(nil)

	case KIsBound:
		t.cont = a.K(t.bound)

	case KLift:
		var result any
		if a.Effect != nil {
			result = a.Effect()
		}
		if ctx.inDontCheck {
			ctx.liftLog = append(ctx.liftLog, liftRecord{Effect: a.Effect, Result: result})
		}
		t.cont = a.K(result)

	case KMessage:
		t.cont = a.K(nil)

	// --- Cells ---

	case KNewCell:
		id := ctx.ids.freshCell()
		ctx.mem.newCell(id, a.Name, a.Value)
		tag.CellID = id
		t.cont = a.K(id)

	case KReadCell:
		v, _ := ctx.mem.readsFor(t.id, a.CellID)
		t.cont = a.K(v)

	case KReadCellCAS:
		v, ver := ctx.mem.readsFor(t.id, a.CellID)
		t.cont = a.K(CellRead{Value: v, Ticket: Ticket{Cell: a.CellID, Version: ver}})

	case KWriteCell:
		ctx.mem.afterWrite(t.id, a.CellID, a.Value)
		t.cont = a.K(nil)

	case KCASCell:
		ok := ctx.mem.cas(a.CellID, a.Ticket, a.Value)
		t.cont = a.K(ok)

	case KModCell:
		// The read happens now; the buffered write is a separate WriteCell
		// step, so other threads can be scheduled between the two.
		v, _ := ctx.mem.readsFor(t.id, a.CellID)
		nv := a.ModFunc(v)
		t.cont = func() Action { return Action{Kind: KWriteCell, CellID: a.CellID, Value: nv, K: a.K} }

	case KModCellCAS:
		ctx.mem.modCAS(a.CellID, a.ModFunc)
		t.cont = a.K(nil)

	// --- MVars ---

	case KNewMVar:
		id := ctx.ids.freshMVar()
		ctx.mvars[id] = newMVar(id, a.Name)
		tag.MVarID = id
		t.cont = a.K(id)

	case KPutMVar:
		mv := ctx.mvars[a.MVarID]
		if mv.tryPut(a.Value) {
			wakeOneReader(ctx, mv)
			t.cont = a.K(nil)
		} else {
			mv.enqueueWriter(t.id, a.Value)
			t.block = BlockedPutMVar
			t.blockMVar = a.MVarID
		}

	case KTakeMVar:
		mv := ctx.mvars[a.MVarID]
		if v, ok := mv.tryTake(); ok {
			wakeOneWriter(ctx, mv)
			t.cont = a.K(v)
		} else {
			mv.enqueueReader(t.id)
			t.block = BlockedTakeMVar
			t.blockMVar = a.MVarID
		}

	case KReadMVar:
		mv := ctx.mvars[a.MVarID]
		if v, ok := mv.tryRead(); ok {
			t.cont = a.K(v)
		} else {
			mv.enqueueReader(t.id)
			t.block = BlockedReadMVar
			t.blockMVar = a.MVarID
		}

	case KTryPutMVar:
		mv := ctx.mvars[a.MVarID]
		ok := mv.tryPut(a.Value)
		if ok {
			wakeOneReader(ctx, mv)
		}
		t.cont = a.K(ok)

	case KTryTakeMVar:
		mv := ctx.mvars[a.MVarID]
		v, ok := mv.tryTake()
		if ok {
			wakeOneWriter(ctx, mv)
		}
		t.cont = a.K(TakeResult{Value: v, OK: ok})

	case KTryReadMVar:
		mv := ctx.mvars[a.MVarID]
		v, ok := mv.tryRead()
		t.cont = a.K(TakeResult{Value: v, OK: ok})

	// --- Exceptions / mask ---

	case KThrow:
		throwException(ctx, t, a.Exception)

	case KThrowTo:
		performThrowTo(ctx, t, a)

	case KCatching:
		performCatching(t, a)

	case KMasking:
		performMasking(ctx, t, a)

	// --- STM ---

	case KAtomic:
		performAtomic(ctx, t, a, tag)

	// --- Meta ---

	case KSub:
		performSub(ctx, t, a)

	case KDontCheck:
		performDontCheck(ctx, t, a)

	default:
		ctx.pendingFailure = &InternalError{Message: fmt.Sprintf("perform: unknown action kind %v", a.Kind)}
	}
}

func wakeOneReader(ctx *Context, mv *mvar) {
	if w, ok := mv.popReader(); ok {
		if th, ok := ctx.threads[w.thread]; ok {
			th.block = NotBlocked
		}
	}
}

func wakeOneWriter(ctx *Context, mv *mvar) {
	if w, ok := mv.popWriter(); ok {
		if th, ok := ctx.threads[w.thread]; ok {
			th.block = NotBlocked
		}
	}
}

// throwException unwinds target's handler stack looking for a match,
// innermost first. If none matches, the thread dies silently (ordinary
// forkIO semantics), except for the root thread, whose uncaught exception
// ends the whole run (§7).
func throwException(ctx *Context, target *thread, exc any) {
	for i := len(target.handlers) - 1; i >= 0; i-- {
		frame := target.handlers[i]
		if body, matched := frame.handler(exc); matched {
			target.handlers = target.handlers[:i]
			target.cont = body(frame.resumeK)
			return
		}
	}
	target.handlers = nil
	target.done = true
	if target.id == ctx.root {
		ctx.pendingFailure = &UncaughtExceptionError{Value: exc}
	}
}

// performThrowTo delivers synchronously if target's mask is Unmasked and no
// earlier ThrowTo against it is still queued ahead of this one; otherwise it
// queues (if not already queued) and blocks the caller. Masking's
// interruptible level is treated identically to uninterruptible for
// delivery purposes — a documented simplification; see DESIGN.md.
//
// Because a blocked thread's Comp is re-invoked verbatim on every step
// attempt (§9), this action must stay idempotent even after the target
// unmasks: delivery and dequeuing happen together, atomically, only from the
// queue's head. maybeDeliverPending merely unblocks the head waiter so it
// gets re-scheduled; it never delivers on the target's behalf, which would
// risk a second delivery when the woken thrower's ThrowTo is replayed.
func performThrowTo(ctx *Context, t *thread, a Action) {
	target, ok := ctx.threads[a.ThrowTarget]
	if !ok || target.done {
		t.cont = a.K(nil)
		return
	}
	isHead := len(target.pendingThrows) == 0 || target.pendingThrows[0].from == t.id
	if target.mask == Unmasked && isHead {
		if len(target.pendingThrows) > 0 {
			target.pendingThrows = target.pendingThrows[1:]
		}
		throwException(ctx, target, a.Exception)
		t.cont = a.K(nil)
		return
	}
	alreadyQueued := false
	for _, p := range target.pendingThrows {
		if p.from == t.id {
			alreadyQueued = true
			break
		}
	}
	if !alreadyQueued {
		target.pendingThrows = append(target.pendingThrows, pendingThrow{from: t.id, exc: a.Exception})
	}
	t.block = BlockedMaskedThrow
}

// maybeDeliverPending wakes the thread whose ThrowTo is at the head of t's
// pending queue, now that t.mask is Unmasked, so it can re-attempt (and this
// time complete) its delivery. Never delivers directly — see performThrowTo.
func maybeDeliverPending(ctx *Context, t *thread) {
	if t.mask != Unmasked || len(t.pendingThrows) == 0 {
		return
	}
	head := t.pendingThrows[0]
	if from, ok := ctx.threads[head.from]; ok {
		from.block = NotBlocked
	}
}

// performCatching installs a handler frame for the dynamic extent of
// a.CatchBody. On normal completion, wrapNext pops this frame (and
// anything left above it) before resuming a.K; on a matching exception,
// throwException has already truncated the stack back to this frame's
// depth, so the replacement body chains straight into a.K (§4.D, §9).
func performCatching(t *thread, a Action) {
	depth := len(t.handlers)
	frame := handlerFrame{handler: a.HandlerFunc, resumeK: a.K}
	t.handlers = append(t.handlers, frame)
	wrapNext := func(result any) Comp {
		if len(t.handlers) > depth {
			t.handlers = t.handlers[:depth]
		}
		return a.K(result)
	}
	t.cont = a.CatchBody(wrapNext)
}

// performMasking pushes a.MaskLevel for the dynamic extent of a.MaskBody,
// popping back to the prior level (and delivering any now-eligible pending
// ThrowTo) once it completes or Unmask's nested Prog completes (§4.D, §9).
func performMasking(ctx *Context, t *thread, a Action) {
	prevMask := t.mask
	t.mask = a.MaskLevel

	unmask := Unmask(func(p Prog) Prog {
		return func(next func(any) Comp) Comp {
			saved := t.mask
			t.mask = prevMask
			maybeDeliverPending(ctx, t)
			wrapped := func(result any) Comp {
				t.mask = saved
				return next(result)
			}
			return p(wrapped)
		}
	})

	body := a.MaskBody(unmask)
	wrapNext := func(result any) Comp {
		t.mask = prevMask
		maybeDeliverPending(ctx, t)
		return a.K(result)
	}
	t.cont = body(wrapNext)
}

// performAtomic runs a.Txn to completion as a single barriered step (§5).
func performAtomic(ctx *Context, t *thread, a Action, tag *ActionTag) {
	log, committed, retry, thrown, result := runSTM(ctx, t.id, a.Txn)
	// The dependency oracle (§4.G) needs the transaction's full read/write
	// sets, not just the fact that it touched TVars at all, so two Atomic
	// steps over disjoint TVars are still recognized as independent.
	tag.TVarReads = log.readSet()
	tag.TVarWrites = log.writeSet()
	switch {
	case retry:
		if len(log.reads) == 0 {
			ctx.pendingFailure = &STMDeadlockError{Thread: t.id}
			return
		}
		t.block = BlockedSTMRetry
		t.stmTx = log
	case thrown != nil:
		throwException(ctx, t, thrown)
	case committed:
		t.cont = a.K(result)
		wakeRetriers(ctx)
	}
}

// runSTM executes tx to completion against ctx.tvars, returning its
// transaction log alongside the outcome.
func runSTM(ctx *Context, tid ThreadID, tx STM) (log *txLog, committed, retry bool, thrown any, result any) {
	log = newTxLog(tid)
	comp := tx.terminal()
	for {
		act := comp()
		switch act.Kind {
		case SNewTVar:
			id := ctx.ids.freshTVar()
			ctx.tvars.create(id, act.Value)
			log.created[id] = true
			comp = act.K(id)
		case SReadTVar:
			comp = act.K(ctx.tvars.read(log, act.TVarID))
		case SWriteTVar:
			ctx.tvars.write(log, act.TVarID, act.Value)
			comp = act.K(nil)
		case SRetry:
			return log, false, true, nil, nil
		case SThrow:
			return log, false, false, act.Value, nil
		case SReturn:
			if !ctx.tvars.validate(log) {
				return log, false, true, nil, nil
			}
			ctx.tvars.commit(log)
			return log, true, false, nil, act.Value
		default:
			return log, false, false, &InternalError{Message: "runSTM: unknown STM action kind"}, nil
		}
	}
}

func wakeRetriers(ctx *Context) {
	for _, tid := range ctx.order {
		th := ctx.threads[tid]
		if th.block == BlockedSTMRetry && th.stmTx != nil && ctx.tvars.changed(th.stmTx.reads) {
			th.block = NotBlocked
			th.stmTx = nil
		}
	}
}

// performSub runs a.SubBody to quiescence in an isolated Context (fresh
// cells/MVars/TVars, shared id allocator) and completes with its Outcome
// (§7). Nesting Sub inside Sub, or inside a DontCheck prelude, is illegal; a
// nested Sub's IllegalSubconcurrency failure ends the enclosing run too.
func performSub(ctx *Context, t *thread, a Action) {
	if ctx.subDepth > 0 || ctx.inDontCheck {
		ctx.pendingFailure = &IllegalSubconcurrencyError{Thread: t.id}
		return
	}
	ctx.subDepth++
	sub := &Context{
		ids:     ctx.ids,
		mem:     newMemModel(ctx.mem.kind),
		mvars:   make(map[MVarID]*mvar),
		tvars:   newTVarStore(),
		threads: make(map[ThreadID]*thread),
		numCaps: ctx.numCaps,
		logger:  ctx.logger,
	}
	sub.subDepth = ctx.subDepth
	sub.spawnRoot(a.SubBody)
	result, failure, trace := runSchedule(sub, sub.root, newRoundRobin())
	ctx.subDepth--
	if failure != nil && failure.Kind() == FailureIllegalSubconcurrency {
		ctx.pendingFailure = failure
		return
	}
	t.cont = a.K(Outcome{Result: result, Failure: failure, Trace: trace})
}

// performDontCheck executes a.DontCheckBody deterministically against the
// shared ctx (not isolated, unlike Sub: its whole purpose is to prime
// shared state before exploration begins), folding the entire prelude into
// this one visible step. Only legal as the computation's very first action
// (§4.I, §7 IllegalDontCheckError).
func performDontCheck(ctx *Context, t *thread, a Action) {
	if ctx.stepCount != 1 {
		ctx.pendingFailure = &IllegalDontCheckError{}
		return
	}
	ctx.inDontCheck = true
	defer func() { ctx.inDontCheck = false }()

	finished := false
	var result any
	t.cont = a.DontCheckBody(func(r any) Comp {
		finished = true
		result = r
		return stopComp
	})

	sched := newRoundRobin()
	steps := 0
	for !finished {
		if ctx.pendingFailure != nil {
			return
		}
		runnable := ctx.runnableIDs()
		if len(runnable) == 0 {
			ctx.pendingFailure = &DeadlockError{Blocked: ctx.blockedIDs()}
			return
		}
		alts := ctx.lookaheads()
		chosen := sched.Schedule(alts, nil)
		if _, err := step(ctx, chosen); err != nil {
			if f, ok := AsFailure(err); ok {
				ctx.pendingFailure = f
			} else {
				ctx.pendingFailure = &InternalError{Message: "DontCheck prelude step failed", Cause: err}
			}
			return
		}
		steps++
		if a.DontCheckBound != nil && steps > *a.DontCheckBound {
			ctx.pendingFailure = &AbortError{Bound: BoundLength, Limit: *a.DontCheckBound, Actual: steps}
			return
		}
	}
	t.cont = a.K(result)
}

// runSchedule drives ctx to quiescence using sched to pick among runnable
// alternatives at every step, returning the root thread's result (or the
// failure that ended the run) plus the trace produced. Used for Sub's
// isolated sub-computations and can also drive the DPOR-forced portion of a
// schedule when wrapped in a prefixScheduler (see dpor.go).
func runSchedule(ctx *Context, root ThreadID, sched Scheduler) (result any, failure Failure, trace Trace) {
	var prev *Decision
	for {
		if ctx.pendingFailure != nil {
			err := ctx.pendingFailure
			ctx.pendingFailure = nil
			f, _ := AsFailure(err)
			if f == nil {
				f = &InternalError{Message: "runSchedule", Cause: err}
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
		tag, err := step(ctx, chosen)
		if err != nil {
			f, ok := AsFailure(err)
			if !ok {
				f = &InternalError{Message: "runSchedule: step failed", Cause: err}
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
		trace = append(trace, Event{Decision: dec, Alternatives: alts, Action: tag})
		prev = &dec
	}
}
