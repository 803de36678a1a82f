package sct

import "sync/atomic"

// RunState represents the lifecycle of one Explore call, driven by atomic
// CAS rather than a mutex.
//
// State machine:
//
//	RunIdle (0) → RunRunning (1)      [Explore starts]
//	RunRunning (1) → RunDone (2)      [work queue exhausted]
//	RunRunning (1) → RunAborting (3)  [the early-exit predicate matched]
//	RunAborting (3) → RunDone (2)     [Explore returns]
type RunState uint64

const (
	RunIdle RunState = iota
	RunRunning
	RunDone
	RunAborting
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "Idle"
	case RunRunning:
		return "Running"
	case RunDone:
		return "Done"
	case RunAborting:
		return "Aborting"
	default:
		return "Unknown"
	}
}

// driverState is a lock-free state machine for one Explore invocation.
// Cache-line padding keeps the state word on its own cache line.
type driverState struct {
	_ [64]byte
	v atomic.Uint64
	_ [56]byte
}

func newDriverState() *driverState {
	s := &driverState{}
	s.v.Store(uint64(RunIdle))
	return s
}

func (s *driverState) Load() RunState { return RunState(s.v.Load()) }

func (s *driverState) Store(state RunState) { s.v.Store(uint64(state)) }

func (s *driverState) TryTransition(from, to RunState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *driverState) IsTerminal() bool { return s.Load() == RunDone }

// requestAbort transitions Running -> Aborting, a no-op if already aborting
// or done.
func (s *driverState) requestAbort() bool {
	return s.TryTransition(RunRunning, RunAborting)
}
