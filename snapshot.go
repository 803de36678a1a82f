package sct

// liftRecord captures one Lift effect invoked while a DontCheck prelude was
// running, for side-effect-only replay on every subsequent restore (§4.D,
// §4.I). The prelude is never re-interpreted once snapshotted — the cloned
// threads' continuations already carry Result forward from the original
// run — but real-world effects the prelude performed (logging, metrics,
// opening a resource) must still fire once per restored run to keep
// observable side effects consistent with a program that actually re-ran
// its prelude every time. Result is retained only for diagnostics; replay
// discards whatever the reinvoked Effect returns (§9: correctness requires
// effect idempotence).
type liftRecord struct {
	Effect func() any
	Result any
}

// snapshot captures the interpreter state immediately after a DontCheck
// prelude has run to completion, so that state can be cloned and reused as
// the starting point for exploring the remainder of the computation under
// many different schedules, without re-running the (deterministic, by
// construction) prelude from scratch each time (§4.I).
type snapshot struct {
	ctx       *Context
	mark      highWaterMark
	replayLog []liftRecord
}

// canSnapshot reports whether prog's very first action is DontCheck, the
// only shape this module knows how to snapshot (§4.I). Peeking the first
// Action performs no interpreter action. Building it does evaluate any
// function bound after a leading Return, since Return invokes its
// continuation immediately.
func canSnapshot(prog Prog) bool {
	a := prog(func(any) Comp { return stopComp })()
	return a.Kind == KDontCheck
}

// trySnapshot runs prog's DontCheck prelude once to completion against a
// dedicated Context and returns the resulting snapshot. ok is false if prog
// does not start with DontCheck, or if the prelude itself fails (the
// failure should surface through an ordinary Explore run instead).
func trySnapshot(prog Prog, memType MemType, numCaps int, logger Logger) (snap *snapshot, ok bool) {
	if !canSnapshot(prog) {
		return nil, false
	}
	ctx := newContext(memType, numCaps, logger)
	ctx.spawnRoot(prog)
	if _, err := step(ctx, ctx.root); err != nil {
		return nil, false
	}
	return &snapshot{ctx: ctx, mark: ctx.ids.mark(), replayLog: ctx.liftLog}, true
}

// restore replays the snapshot's recorded Lift effects for their side
// effects only (discarding whatever they now return), then deep-clones the
// snapshot's Context, so the caller can drive it through a fresh
// exploration of the remaining schedule without disturbing the snapshot for
// the next restore (§4.I).
func (s *snapshot) restore() *Context {
	for _, rec := range s.replayLog {
		if rec.Effect != nil {
			rec.Effect()
		}
	}
	c := &Context{
		ids:         s.ctx.ids, // the id allocator is shared and monotonic by design (§4.A); restore never rewinds it
		mem:         cloneMemModel(s.ctx.mem),
		mvars:       cloneMVars(s.ctx.mvars),
		tvars:       cloneTVarStore(s.ctx.tvars),
		threads:     cloneThreads(s.ctx.threads),
		order:       append([]ThreadID(nil), s.ctx.order...),
		numCaps:     s.ctx.numCaps,
		logger:      s.ctx.logger,
		root:        s.ctx.root,
		subDepth:    s.ctx.subDepth,
		inDontCheck: s.ctx.inDontCheck,
		stepCount:   s.ctx.stepCount,
	}
	s.ctx.ids.restore(s.mark)
	return c
}

func cloneMemModel(m *memModel) *memModel {
	out := newMemModel(m.kind)
	for id, c := range m.cells {
		out.cells[id] = &cell{id: c.id, name: c.name, value: c.value, version: c.version}
	}
	for k, buf := range m.buffers {
		out.buffers[k] = buf.Clone()
	}
	return out
}

func cloneMVars(in map[MVarID]*mvar) map[MVarID]*mvar {
	out := make(map[MVarID]*mvar, len(in))
	for id, v := range in {
		clone := &mvar{id: v.id, name: v.name, full: v.full, value: v.value}
		clone.readers = v.readers.Clone()
		clone.writers = v.writers.Clone()
		out[id] = clone
	}
	return out
}

func cloneTVarStore(s *tvarStore) *tvarStore {
	out := newTVarStore()
	for id, tv := range s.vars {
		out.vars[id] = &tvar{id: tv.id, value: tv.value, version: tv.version}
	}
	return out
}

func cloneThreads(in map[ThreadID]*thread) map[ThreadID]*thread {
	out := make(map[ThreadID]*thread, len(in))
	for id, t := range in {
		clone := *t
		clone.handlers = append([]handlerFrame(nil), t.handlers...)
		clone.pendingThrows = append([]pendingThrow(nil), t.pendingThrows...)
		out[id] = &clone
	}
	return out
}
