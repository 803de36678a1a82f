package sct

import (
	"encoding/json"
	"fmt"
)

// DecisionKind classifies how the scheduler arrived at the chosen thread for
// one trace event (§3).
type DecisionKind int

const (
	// DecisionContinue: the same thread that ran the previous step ran again.
	DecisionContinue DecisionKind = iota
	// DecisionSwitchTo: a different thread than the previous step was chosen.
	DecisionSwitchTo
	// DecisionStart: the very first event of the trace.
	DecisionStart
)

func (d DecisionKind) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionSwitchTo:
		return "switch"
	case DecisionStart:
		return "start"
	default:
		return "unknown"
	}
}

// Decision names which thread ran and how the scheduler got there (§3).
type Decision struct {
	Kind   DecisionKind
	Thread ThreadID
}

// ActionTag is a lightweight summary of an Action — everything
// the dependency oracle, DPOR driver, and trace simplifier need, without
// requiring a closure to live on (§3 "Alternative", §6 wire format).
type ActionTag struct {
	Kind        ActionKind
	Name        string
	CellID      CellID
	MVarID      MVarID
	ThrowTarget ThreadID
	Commit      bool // true if this tag describes a synthetic commit-thread step
	CommitOf    ThreadID

	// TVarReads and TVarWrites are the transaction's full read/write sets
	// (§3 "Transaction log"), populated from the committed txLog once an
	// Atomic step completes. The dependency oracle needs the whole sets,
	// not just a single TVarID, since one Atomic step may touch many TVars.
	TVarReads  []TVarID
	TVarWrites []TVarID
}

func (t ActionTag) String() string {
	switch {
	case t.Commit:
		return fmt.Sprintf("Commit(%d->cell%d)", t.CommitOf, t.CellID)
	case t.Kind == KNewCell, t.Kind == KReadCell, t.Kind == KReadCellCAS, t.Kind == KWriteCell, t.Kind == KCASCell, t.Kind == KModCell, t.Kind == KModCellCAS:
		return fmt.Sprintf("%s(cell%d)", t.Kind, t.CellID)
	case t.Kind == KNewMVar, t.Kind == KPutMVar, t.Kind == KTakeMVar, t.Kind == KReadMVar, t.Kind == KTryPutMVar, t.Kind == KTryTakeMVar, t.Kind == KTryReadMVar:
		return fmt.Sprintf("%s(mvar%d)", t.Kind, t.MVarID)
	case t.Kind == KThrowTo:
		return fmt.Sprintf("ThrowTo(%d)", t.ThrowTarget)
	case t.Kind == KAtomic:
		return fmt.Sprintf("Atomic(r=%v,w=%v)", t.TVarReads, t.TVarWrites)
	default:
		return t.Kind.String()
	}
}

func tagFromAction(a Action) ActionTag {
	return ActionTag{
		Kind:        a.Kind,
		Name:        a.Name,
		CellID:      a.CellID,
		MVarID:      a.MVarID,
		ThrowTarget: a.ThrowTarget,
	}
}

// Lookahead is a description of a thread's next action, exposed to
// schedulers and the DPOR driver (§3, GLOSSARY).
type Lookahead struct {
	Thread ThreadID
	Action ActionTag
}

// Event is one ordered entry of a Trace (§3).
type Event struct {
	Decision     Decision
	Alternatives []Lookahead
	Action       ActionTag
	Result       any `json:"-"`
}

// Trace is the ordered, append-only sequence of events produced by one run
// (§3). It is frozen (never mutated) once a run completes.
type Trace []Event

// wireEvent is the §6 external wire format for a single event.
type wireEvent struct {
	Kind         string         `json:"kind"`
	Tid          uint64         `json:"tid"`
	Alternatives []wireLookhead `json:"alternatives"`
	Action       wireAction     `json:"action"`
}

type wireLookhead struct {
	Tid    uint64     `json:"tid"`
	Action wireAction `json:"action"`
}

type wireAction struct {
	Tag        string   `json:"tag"`
	Name       string   `json:"name,omitempty"`
	Cell       uint64   `json:"cell,omitempty"`
	MVar       uint64   `json:"mvar,omitempty"`
	Target     uint64   `json:"target,omitempty"`
	TVarReads  []uint64 `json:"tvarReads,omitempty"`
	TVarWrites []uint64 `json:"tvarWrites,omitempty"`
}

func toWireAction(t ActionTag) wireAction {
	tag := t.Kind.String()
	if t.Commit {
		tag = "Commit"
	}
	return wireAction{
		Tag:        tag,
		Name:       t.Name,
		Cell:       uint64(t.CellID),
		MVar:       uint64(t.MVarID),
		Target:     uint64(t.ThrowTarget),
		TVarReads:  tvarIDsToUint64(t.TVarReads),
		TVarWrites: tvarIDsToUint64(t.TVarWrites),
	}
}

func tvarIDsToUint64(ids []TVarID) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

// MarshalJSON implements the §6 trace wire format: an array of decisions,
// each `{kind, tid, alternatives, action}`, with lookahead/action tags
// mirroring the action alphabet 1:1.
func (tr Trace) MarshalJSON() ([]byte, error) {
	out := make([]wireEvent, len(tr))
	for i, e := range tr {
		alts := make([]wireLookhead, len(e.Alternatives))
		for j, a := range e.Alternatives {
			alts[j] = wireLookhead{Tid: uint64(a.Thread), Action: toWireAction(a.Action)}
		}
		out[i] = wireEvent{
			Kind:         e.Decision.Kind.String(),
			Tid:          uint64(e.Decision.Thread),
			Alternatives: alts,
			Action:       toWireAction(e.Action),
		}
	}
	return json.Marshal(out)
}
