package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := New(KindCorrupt, "bad index entry", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestError_Is_MatchesByKind(t *testing.T) {
	a := New(KindCycleDetected, "A->B->A", nil)
	b := New(KindCycleDetected, "C->D->C", nil)
	c := New(KindConflict, "duplicate id", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestKindOf(t *testing.T) {
	err := New(KindLockTimeout, "waited too long", nil)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindLockTimeout, kind)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}

func TestRetryable(t *testing.T) {
	assert.True(t, TransportFailure("dispatch failed", nil).Retryable())
	assert.True(t, OracleUnavailable("timeout", nil).Retryable())
	assert.False(t, CycleDetected("cycle").Retryable())
	assert.False(t, Validation("bad title", nil).Retryable())
	assert.False(t, PathViolation("escape").Retryable())
	assert.False(t, Cancelled("stopped").Retryable())
}

func TestInternal_NotRecoverable(t *testing.T) {
	err := Internal("invariant violated", nil)
	assert.False(t, err.Recoverable)
}

func TestCancelled_NotRecoverable(t *testing.T) {
	err := Cancelled("cooperative cancellation")
	assert.False(t, err.Recoverable)
}
