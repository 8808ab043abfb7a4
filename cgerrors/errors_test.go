package cgerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesKindAndMessage(t *testing.T) {
	err := New(NotFound, "version %d unknown", 7)
	assert.Equal(t, "not_found: version 7 unknown", err.Error())

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NotFound, kind)
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, AlreadyExists))
}

func TestWrapPreservesCauseThroughUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(InvariantViolation, cause, "checking frontier")

	assert.True(t, Is(wrapped, InvariantViolation))
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOfFalseForForeignError(t *testing.T) {
	_, ok := KindOf(errors.New("not ours"))
	assert.False(t, ok)
}

func TestKindStringers(t *testing.T) {
	cases := map[Kind]string{
		NotFound:           "not_found",
		InvariantViolation: "invariant_violation",
		AlreadyExists:      "already_exists",
		InvalidArgument:    "invalid_argument",
		Kind(99):           "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
