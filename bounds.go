package sct

// BoundKind names the kind of execution bound an AbortError reports (§4.K).
type BoundKind int

const (
	// BoundPreemption limits the number of preemptive context switches (a
	// SwitchTo decision away from a thread that was not itself blocking) a
	// single schedule may contain.
	BoundPreemption BoundKind = iota
	// BoundFair limits how far any one runnable thread may be starved: the
	// number of consecutive steps taken by other threads while it remained
	// runnable.
	BoundFair
	// BoundLength limits the total number of steps a single schedule may
	// take, guarding against runaway or non-terminating computations.
	BoundLength
)

func (b BoundKind) String() string {
	switch b {
	case BoundPreemption:
		return "preemption"
	case BoundFair:
		return "fair"
	case BoundLength:
		return "length"
	default:
		return "unknown"
	}
}

// bounds tracks the running counters needed to enforce the three orthogonal
// bound kinds over one schedule (§4.K). A zero-value limit disables that
// bound.
type bounds struct {
	preemptionLimit int
	fairLimit       int
	lengthLimit     int

	preemptions int
	length      int
	// starved maps a runnable thread to how many consecutive steps other
	// threads have taken while it stayed runnable (reset whenever it runs).
	starved map[ThreadID]int
}

func newBounds(preemption, fair, length int) *bounds {
	return &bounds{
		preemptionLimit: preemption,
		fairLimit:       fair,
		lengthLimit:     length,
		starved:         make(map[ThreadID]int),
	}
}

// checkLength must be called once per step, before the step is taken.
func (b *bounds) checkLength() *AbortError {
	b.length++
	if b.lengthLimit > 0 && b.length > b.lengthLimit {
		return &AbortError{Bound: BoundLength, Limit: b.lengthLimit, Actual: b.length}
	}
	return nil
}

// recordDecision must be called once per step with the chosen thread, the
// previous decision (nil for the first step), and the full runnable set
// observed before the step. It updates preemption/fairness counters and
// reports an abort if a limit was just exceeded.
func (b *bounds) recordDecision(chosen ThreadID, previous *Decision, runnable []ThreadID) *AbortError {
	// A switch away from the previous thread only counts as a preemption
	// (§4.H "not caused by blocking") if that thread was still runnable —
	// i.e. it didn't just block on a full/empty MVar, a retrying
	// transaction, or similar. A switch forced by blocking is not a choice
	// the scheduler made and must not count against the preemption bound.
	isPreemption := previous != nil && previous.Thread != chosen && containsThread(runnable, previous.Thread)
	if isPreemption {
		b.preemptions++
		if b.preemptionLimit > 0 && b.preemptions > b.preemptionLimit {
			return &AbortError{Bound: BoundPreemption, Limit: b.preemptionLimit, Actual: b.preemptions}
		}
	}
	maxStarved := 0
	for _, tid := range runnable {
		if tid == chosen {
			delete(b.starved, tid)
			continue
		}
		b.starved[tid]++
		if b.starved[tid] > maxStarved {
			maxStarved = b.starved[tid]
		}
	}
	if b.fairLimit > 0 && maxStarved > b.fairLimit {
		return &AbortError{Bound: BoundFair, Limit: b.fairLimit, Actual: maxStarved}
	}
	return nil
}

func containsThread(ids []ThreadID, id ThreadID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
