package sct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRobin_StaysOnSameThreadWhileRunnable(t *testing.T) {
	r := newRoundRobin()
	runnable := []Lookahead{{Thread: 1}, {Thread: 2}}
	chosen := r.Schedule(runnable, nil)
	assert.Equal(t, ThreadID(1), chosen)

	chosen = r.Schedule(runnable, &Decision{Thread: 1})
	assert.Equal(t, ThreadID(1), chosen, "roundRobin sticks with the last thread while it remains runnable")
}

func TestRoundRobin_AdvancesWhenLastThreadNoLongerRunnable(t *testing.T) {
	r := newRoundRobin()
	r.Schedule([]Lookahead{{Thread: 1}, {Thread: 2}}, nil)

	chosen := r.Schedule([]Lookahead{{Thread: 2}, {Thread: 3}}, &Decision{Thread: 1})
	assert.Equal(t, ThreadID(2), chosen)
}

func TestRoundRobin_WrapsAroundToFirst(t *testing.T) {
	r := newRoundRobin()
	r.Schedule([]Lookahead{{Thread: 3}}, nil) // last = 3

	chosen := r.Schedule([]Lookahead{{Thread: 1}, {Thread: 2}}, &Decision{Thread: 3})
	assert.Equal(t, ThreadID(1), chosen, "no runnable thread id exceeds 3, so it wraps to the first")
}
