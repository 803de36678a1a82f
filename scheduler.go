package sct

// Scheduler picks the next thread to run from the runnable set (§3). Explore
// drives each schedule through a prefixScheduler (a forced prefix, then
// roundRobin); the same interface also drives DontCheck preludes, Sub's
// isolated runs, and the simplifier's re-execution.
type Scheduler interface {
	// Schedule chooses one entry of runnable (which is never empty) given
	// the previous Decision (nil on the first call).
	Schedule(runnable []Lookahead, previous *Decision) ThreadID
}

// roundRobin is a deterministic Scheduler that keeps running the previously
// chosen thread while it remains runnable, otherwise advances to the next
// runnable thread in creation order, wrapping around. It is used to drive
// DontCheck preludes, which must be scheduled deterministically rather than
// explored (§4.I).
type roundRobin struct {
	last ThreadID
	has  bool
}

func newRoundRobin() *roundRobin { return &roundRobin{} }

func (r *roundRobin) Schedule(runnable []Lookahead, previous *Decision) ThreadID {
	// runnable is supplied in thread creation order (Context.lookaheads).
	if r.has {
		for _, la := range runnable {
			if la.Thread == r.last {
				return r.last
			}
		}
		for _, la := range runnable {
			if la.Thread > r.last {
				r.last = la.Thread
				return r.last
			}
		}
	}
	r.last = runnable[0].Thread
	r.has = true
	return r.last
}
