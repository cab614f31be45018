package outcome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessDefaultsMessage(t *testing.T) {
	o := Success(42)
	assert.True(t, o.IsSuccess())
	assert.Equal(t, 42, o.Value())
	assert.Equal(t, DefaultSuccessMessage, o.Message())
	assert.Empty(t, o.Code())
	assert.NoError(t, o.Err())

	custom := SuccessWithMessage("x", "created")
	assert.Equal(t, "created", custom.Message())
}

func TestFailureHasNoValue(t *testing.T) {
	o := Failure[int](CodeNotFound, "missing")
	assert.True(t, o.IsFailure())
	assert.Equal(t, 0, o.Value())
	assert.Equal(t, CodeNotFound, o.Code())
	assert.Equal(t, "missing", o.Message())
	assert.Equal(t, 7, o.OrElse(7))
}

func TestPropagateKeepsCodeAndCause(t *testing.T) {
	cause := errors.New("boom")
	o := FailureFrom[string](CodeDatabaseError, cause)
	p := Propagate[int](o)
	assert.Equal(t, CodeDatabaseError, p.Code())
	assert.Equal(t, "boom", p.Message())
	assert.ErrorIs(t, p.Err(), cause)

	assert.Panics(t, func() { Propagate[int](Success("ok")) })
}

func TestMapAndFlatMap(t *testing.T) {
	doubled := Map(Success(2), func(v int) int { return v * 2 })
	assert.Equal(t, 4, doubled.Value())

	failed := Map(Failure[int](CodeNotFound, "x"), func(v int) int { return v * 2 })
	assert.Equal(t, CodeNotFound, failed.Code())

	chained := FlatMap(Success(3), func(v int) Outcome[string] {
		if v > 2 {
			return Failure[string](CodeInvalidQuery, "too big")
		}
		return Success("fine")
	})
	assert.Equal(t, CodeInvalidQuery, chained.Code())
}

func TestErrRoundTrip(t *testing.T) {
	err := Failure[Unit](CodeWriteConflict, "serialization failure").Err()
	require.Error(t, err)
	assert.Equal(t, "WRITE_CONFLICT: serialization failure", err.Error())

	back := FromError[Unit](err, CodeUpsertError)
	assert.Equal(t, CodeWriteConflict, back.Code())

	other := FromError[Unit](errors.New("plain"), CodeUpsertError)
	assert.Equal(t, CodeUpsertError, other.Code())
	assert.Equal(t, "plain", other.Message())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(CodeDatabaseError))
	assert.True(t, IsTransient(CodeWriteConflict))
	assert.False(t, IsTransient(CodeNotFound))
	assert.False(t, IsTransient(CodeUnauthorizedAccess))
}
