package sct

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKinds(t *testing.T) {
	cases := []struct {
		f    Failure
		kind FailureKind
	}{
		{&DeadlockError{Blocked: []ThreadID{1, 2}}, FailureDeadlock},
		{&STMDeadlockError{Thread: 1}, FailureSTMDeadlock},
		{&InternalError{Message: "boom"}, FailureInternalError},
		{&UncaughtExceptionError{Value: "oops"}, FailureUncaughtException},
		{&IllegalSubconcurrencyError{Thread: 1}, FailureIllegalSubconcurrency},
		{&IllegalDontCheckError{}, FailureIllegalDontCheck},
		{&AbortError{Bound: BoundLength, Limit: 10, Actual: 11}, FailureAbort},
	}
	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			assert.Equal(t, c.kind, c.f.Kind())
			assert.NotEmpty(t, c.f.Error())
		})
	}
}

func TestSameKind(t *testing.T) {
	a := &DeadlockError{Blocked: []ThreadID{1}}
	b := &DeadlockError{Blocked: []ThreadID{1, 2, 3}}
	c := &STMDeadlockError{Thread: 1}
	assert.True(t, SameKind(a, b))
	assert.False(t, SameKind(a, c))
	assert.True(t, SameKind(nil, nil))
	assert.False(t, SameKind(a, nil))
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := &InternalError{Message: "wrapped", Cause: cause}
	assert.ErrorIs(t, e, cause)
}

func TestUncaughtExceptionError_UnwrapsErrorValues(t *testing.T) {
	cause := errors.New("user error")
	e := &UncaughtExceptionError{Value: cause}
	assert.ErrorIs(t, e, cause)

	nonErr := &UncaughtExceptionError{Value: "not an error"}
	assert.Nil(t, nonErr.Unwrap())
}

func TestAsFailure(t *testing.T) {
	wrapped := &InternalError{Message: "outer", Cause: &DeadlockError{}}
	f, ok := AsFailure(wrapped)
	assert.True(t, ok)
	assert.Equal(t, FailureInternalError, f.Kind())

	_, ok = AsFailure(errors.New("plain error"))
	assert.False(t, ok)
}
