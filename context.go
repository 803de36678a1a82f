package sct

// Context bundles every piece of per-run interpreter state: the thread
// table, memory model, MVar and TVar stores, and id allocator (§3). One
// Context exists per schedule explored by the driver; re-execution for
// simplification constructs a fresh Context and drives it from scratch,
// while snapshot restore clones the Context captured after the prelude.
type Context struct {
	ids     *idSource
	mem     *memModel
	mvars   map[MVarID]*mvar
	tvars   *tvarStore
	threads map[ThreadID]*thread
	// order records thread creation order, for deterministic iteration
	// wherever map order would otherwise leak into scheduling decisions.
	order []ThreadID

	numCaps int
	logger  Logger

	// root is the id of the computation's top-level thread, the only thread
	// whose uncaught exception ends the whole run (§7) and whose DontCheck
	// eligibility is checked against stepCount (§4.I).
	root ThreadID

	// subDepth is >0 while interpreting the body of a Sub action; nesting
	// Sub inside Sub is illegal (§7).
	subDepth int
	// inDontCheck is true while interpreting a DontCheck prelude.
	inDontCheck bool

	// stepCount counts ordinary (non-commit-thread) steps taken so far,
	// used to check that DontCheck is the very first action (§4.I, §7
	// IllegalDontCheckError).
	stepCount int

	// liftLog records every Lift effect invoked while inDontCheck is true,
	// in order, so a snapshot taken at the end of the prelude can replay
	// those effects' side effects on every subsequent restore without
	// re-interpreting the prelude itself (§4.D, §4.I).
	liftLog []liftRecord

	// pendingFailure is set by throwException when an uncaught exception
	// reaches the root thread, including when delivered asynchronously via
	// a deferred ThrowTo well after the step that enqueued it; runSchedule
	// checks it after every step.
	pendingFailure error
}

func newContext(kind MemType, numCaps int, logger Logger) *Context {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Context{
		ids:     newIDSource(),
		mem:     newMemModel(kind),
		mvars:   make(map[MVarID]*mvar),
		tvars:   newTVarStore(),
		threads: make(map[ThreadID]*thread),
		numCaps: numCaps,
		logger:  logger,
	}
}

// spawn registers a new thread running cont and returns it.
func (c *Context) spawn(name string, cont Comp, bound bool) *thread {
	id := c.ids.freshThread()
	t := newThread(id, name, cont, bound)
	c.threads[id] = t
	c.order = append(c.order, id)
	return t
}

// spawnRoot registers prog as the computation's top-level thread, wiring its
// final continuation to capture the computation's result rather than
// discarding it (unlike an ordinary forked thread, whose result nobody
// observes directly).
func (c *Context) spawnRoot(prog Prog) *thread {
	id := c.ids.freshThread()
	t := newThread(id, "main", nil, false)
	t.cont = prog(func(r any) Comp {
		t.result = r
		t.done = true
		return stopComp
	})
	c.threads[id] = t
	c.order = append(c.order, id)
	c.root = id
	return t
}

// runnableIDs lists every ordinary thread id currently runnable, in creation
// order (§3).
func (c *Context) runnableIDs() []ThreadID {
	out := make([]ThreadID, 0, len(c.order))
	for _, id := range c.order {
		if t := c.threads[id]; t.runnable() {
			out = append(out, id)
		}
	}
	return out
}

// blockedIDs lists every thread id currently blocked, in creation order.
func (c *Context) blockedIDs() []ThreadID {
	out := make([]ThreadID, 0, len(c.order))
	for _, id := range c.order {
		if t := c.threads[id]; !t.done && t.block != NotBlocked {
			out = append(out, id)
		}
	}
	return out
}

// peek calls a thread's continuation to summarize its next action without
// committing any effect: the Comp closures built by this package are pure
// constructors over an Action record (the action's own side effect, if any,
// happens only when the interpreter later invokes Action.Effect / mutates
// state in response to Action.Kind), so calling cont() repeatedly to compute
// a lookahead and then again to actually step is safe and referentially
// transparent (§3 "Alternative", §9).
func (c *Context) peek(t *thread) ActionTag {
	return tagFromAction(t.cont())
}

// lookaheads lists every schedulable alternative at the current point: one
// per runnable ordinary thread, plus one synthetic commit-thread entry per
// non-empty write buffer under TSO/PSO (§4.B, §4.D).
func (c *Context) lookaheads() []Lookahead {
	var out []Lookahead
	for _, id := range c.runnableIDs() {
		out = append(out, Lookahead{Thread: id, Action: c.peek(c.threads[id])})
	}
	for _, opt := range c.mem.commitOptions() {
		out = append(out, Lookahead{
			Thread: opt.commit,
			Action: ActionTag{Commit: true, CommitOf: opt.writer, CellID: opt.cell},
		})
	}
	return out
}

// runnable reports whether tid denotes a currently schedulable alternative:
// either a runnable ordinary thread, or a synthetic commit-thread whose
// buffer is still non-empty.
func (c *Context) runnable(tid ThreadID) bool {
	if isCommitThread(tid) {
		for _, opt := range c.mem.commitOptions() {
			if opt.commit == tid {
				return true
			}
		}
		return false
	}
	t, ok := c.threads[tid]
	return ok && t.runnable()
}
