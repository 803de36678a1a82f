package sct

import (
	"errors"
	"fmt"
)

// Failure is the taxonomy described by §7. Every outcome's error side is one
// of these concrete types (or wraps one via errors.As).
type Failure interface {
	error
	// Kind returns a stable, comparable tag for this failure, used by
	// outcome-equality comparisons that compare "failure outcomes by kind"
	// rather than by full error identity (§4.K, §8 testable property 1).
	Kind() FailureKind
}

// FailureKind enumerates the taxonomy of §7.
type FailureKind int

const (
	// FailureDeadlock: no runnable thread and at least one blocked.
	FailureDeadlock FailureKind = iota
	// FailureSTMDeadlock: a thread retried an STM transaction that read no
	// TVars. Raised at that retry, whether or not other threads are still
	// runnable; a run that stalls with threads blocked in a retry that did
	// read TVars ends with FailureDeadlock instead.
	FailureSTMDeadlock
	// FailureInternalError: an interpreter invariant violated; always a bug.
	FailureInternalError
	// FailureUncaughtException: root thread propagated an exception.
	FailureUncaughtException
	// FailureIllegalSubconcurrency: nested Sub, or Sub inside DontCheck.
	FailureIllegalSubconcurrency
	// FailureIllegalDontCheck: DontCheck not at the head of the computation.
	FailureIllegalDontCheck
	// FailureAbort: a bound was exceeded.
	FailureAbort
)

func (k FailureKind) String() string {
	switch k {
	case FailureDeadlock:
		return "Deadlock"
	case FailureSTMDeadlock:
		return "STMDeadlock"
	case FailureInternalError:
		return "InternalError"
	case FailureUncaughtException:
		return "UncaughtException"
	case FailureIllegalSubconcurrency:
		return "IllegalSubconcurrency"
	case FailureIllegalDontCheck:
		return "IllegalDontCheck"
	case FailureAbort:
		return "Abort"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// DeadlockError reports a run that ended with at least one thread blocked and
// none runnable.
type DeadlockError struct {
	// Blocked lists the threads that were blocked when the run stalled.
	Blocked []ThreadID
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("sct: deadlock: %d thread(s) blocked, none runnable", len(e.Blocked))
}

// Kind implements Failure.
func (e *DeadlockError) Kind() FailureKind { return FailureDeadlock }

// STMDeadlockError reports a run in which a thread retried an STM
// transaction with an empty read set, so no TVar write can ever wake it. It
// ends the run at that retry, even if other threads are still runnable.
type STMDeadlockError struct {
	Thread ThreadID
}

func (e *STMDeadlockError) Error() string {
	return fmt.Sprintf("sct: STM deadlock: thread %d retried with no writer that could wake it", e.Thread)
}

// Kind implements Failure.
func (e *STMDeadlockError) Kind() FailureKind { return FailureSTMDeadlock }

// InternalError reports an interpreter invariant violation. Always a bug in
// this module, never in the user program.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sct: internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("sct: internal error: %s", e.Message)
}

// Kind implements Failure.
func (e *InternalError) Kind() FailureKind { return FailureInternalError }

// Unwrap exposes the underlying cause, if any, for errors.Is/errors.As.
func (e *InternalError) Unwrap() error { return e.Cause }

// UncaughtExceptionError reports an exception that propagated past the root
// thread's handler stack.
type UncaughtExceptionError struct {
	// Value is the exception value thrown; may or may not be an error.
	Value any
}

func (e *UncaughtExceptionError) Error() string {
	return fmt.Sprintf("sct: uncaught exception: %v", e.Value)
}

// Kind implements Failure.
func (e *UncaughtExceptionError) Kind() FailureKind { return FailureUncaughtException }

// Unwrap returns the underlying error if the thrown value is itself an
// error, enabling errors.Is/errors.As through the cause chain.
func (e *UncaughtExceptionError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IllegalSubconcurrencyError reports a nested Sub, or a Sub appearing inside
// a DontCheck prelude.
type IllegalSubconcurrencyError struct {
	Thread ThreadID
}

func (e *IllegalSubconcurrencyError) Error() string {
	return fmt.Sprintf("sct: illegal subconcurrency on thread %d", e.Thread)
}

// Kind implements Failure.
func (e *IllegalSubconcurrencyError) Kind() FailureKind { return FailureIllegalSubconcurrency }

// IllegalDontCheckError reports a DontCheck action that did not appear as the
// very first step of the computation.
type IllegalDontCheckError struct{}

func (e *IllegalDontCheckError) Error() string {
	return "sct: DontCheck must be the first action of the computation"
}

// Kind implements Failure.
func (e *IllegalDontCheckError) Kind() FailureKind { return FailureIllegalDontCheck }

// AbortError reports that a configured bound (preemption, fair, or length)
// was exceeded.
type AbortError struct {
	Bound  BoundKind
	Limit  int
	Actual int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("sct: aborted: %s bound %d exceeded (observed %d)", e.Bound, e.Limit, e.Actual)
}

// Kind implements Failure.
func (e *AbortError) Kind() FailureKind { return FailureAbort }

// SameKind reports whether two failures share the same FailureKind, the
// comparison §4.K's default equality predicate uses for left (failure)
// outcomes.
func SameKind(a, b Failure) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind()
}

// AsFailure extracts a Failure from err, following the cause chain.
func AsFailure(err error) (Failure, bool) {
	var f Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
