package sct

import "golang.org/x/exp/slices"

// tvar is a TVar's committed state: a value plus a version counter, read
// inside transactions only (§3).
type tvar struct {
	id      TVarID
	value   any
	version uint64
}

// txLog is a single STM execution's transaction log (§3): a read set
// (TVarID -> observed version) and a write set (TVarID -> tentative value).
type txLog struct {
	thread  ThreadID
	reads   map[TVarID]uint64
	writes  map[TVarID]any
	created map[TVarID]bool // ids allocated (NewTVar) within this transaction
}

func newTxLog(thread ThreadID) *txLog {
	return &txLog{
		thread:  thread,
		reads:   make(map[TVarID]uint64),
		writes:  make(map[TVarID]any),
		created: make(map[TVarID]bool),
	}
}

// readSet returns the ids this transaction's retry should wait on, in a
// stable, sorted order so two runs of the same schedule report identical
// ActionTags (§8 testable property 1: determinism).
func (l *txLog) readSet() []TVarID {
	ids := make([]TVarID, 0, len(l.reads))
	for id := range l.reads {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// writeSet returns the ids this transaction tentatively wrote, sorted for the
// same determinism reason as readSet.
func (l *txLog) writeSet() []TVarID {
	ids := make([]TVarID, 0, len(l.writes))
	for id := range l.writes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// tvarStore holds every TVar created across the run.
type tvarStore struct {
	vars map[TVarID]*tvar
}

func newTVarStore() *tvarStore {
	return &tvarStore{vars: make(map[TVarID]*tvar)}
}

func (s *tvarStore) create(id TVarID, v any) {
	s.vars[id] = &tvar{id: id, value: v, version: 1}
}

// read logs id into the transaction's read set (first access only) and
// returns the transaction's tentative view: its own pending write if any,
// else the last committed value.
func (s *tvarStore) read(log *txLog, id TVarID) any {
	tv := s.vars[id]
	if _, ok := log.reads[id]; !ok {
		log.reads[id] = tv.version
	}
	if v, ok := log.writes[id]; ok {
		return v
	}
	return tv.value
}

// write logs a tentative write in the transaction's write set, without
// touching global state.
func (s *tvarStore) write(log *txLog, id TVarID, v any) {
	log.writes[id] = v
}

// validate reports whether every version the transaction observed still
// matches the committed version — the precondition for commit (§3).
func (s *tvarStore) validate(log *txLog) bool {
	for id, observed := range log.reads {
		if s.vars[id].version != observed {
			return false
		}
	}
	return true
}

// commit applies every logged write under a single barrier, bumping the
// version of each written TVar (§5 "Atomicity of STM").
func (s *tvarStore) commit(log *txLog) {
	for id, v := range log.writes {
		tv := s.vars[id]
		tv.value = v
		tv.version++
	}
}

// changed reports whether any TVar in ids has a version different from the
// one recorded in observed, used to wake retry-blocked transactions.
func (s *tvarStore) changed(observed map[TVarID]uint64) bool {
	for id, v := range observed {
		if s.vars[id].version != v {
			return true
		}
	}
	return false
}
