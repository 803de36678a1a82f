package sct

import "github.com/joeycumines/go-sct/internal/ring"

// mvarWaiter is one entry of an MVar's reader or writer wait queue.
type mvarWaiter struct {
	thread ThreadID
	// value is the pending value for a writer waiter (unused for readers).
	value any
}

// mvar is the per-MVar record of §3: an optional value plus two FIFO queues.
type mvar struct {
	id       MVarID
	name     string
	full     bool
	value    any
	readers  *ring.Ring[mvarWaiter] // threads blocked in TakeMVar/ReadMVar
	writers  *ring.Ring[mvarWaiter] // threads blocked in PutMVar
}

func newMVar(id MVarID, name string) *mvar {
	return &mvar{
		id:      id,
		name:    name,
		readers: ring.New[mvarWaiter](2),
		writers: ring.New[mvarWaiter](2),
	}
}

// tryPut attempts a non-blocking put. Returns true on success.
func (v *mvar) tryPut(val any) bool {
	if v.full {
		return false
	}
	v.full = true
	v.value = val
	return true
}

// tryTake attempts a non-blocking take. Returns (value, true) on success.
func (v *mvar) tryTake() (any, bool) {
	if !v.full {
		return nil, false
	}
	val := v.value
	v.full = false
	v.value = nil
	return val, true
}

// tryRead attempts a non-blocking, non-destructive read.
func (v *mvar) tryRead() (any, bool) {
	if !v.full {
		return nil, false
	}
	return v.value, true
}

// popReader removes and returns the longest-waiting reader, and whether
// there was one. A successful put wakes exactly one reader this way.
func (v *mvar) popReader() (mvarWaiter, bool) {
	if v.readers.Len() == 0 {
		return mvarWaiter{}, false
	}
	return v.readers.Pop(), true
}

func (v *mvar) popWriter() (mvarWaiter, bool) {
	if v.writers.Len() == 0 {
		return mvarWaiter{}, false
	}
	return v.writers.Pop(), true
}

func (v *mvar) enqueueReader(tid ThreadID) {
	v.readers.Push(mvarWaiter{thread: tid})
}

func (v *mvar) enqueueWriter(tid ThreadID, val any) {
	v.writers.Push(mvarWaiter{thread: tid, value: val})
}

func (v *mvar) removeWaiter(tid ThreadID) {
	v.readers.Remove(func(w mvarWaiter) bool { return w.thread == tid })
	v.writers.Remove(func(w mvarWaiter) bool { return w.thread == tid })
}
