package mediator

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetCommand struct {
	CommandOf[string]
	Name string
}

func (greetCommand) RequestName() string { return "greet" }

type countQuery struct {
	QueryOf[int]
}

func (countQuery) RequestName() string { return "greet" }

type orphanCommand struct {
	CommandOf[int]
}

func (orphanCommand) RequestName() string { return "orphan" }

type explodeCommand struct {
	CommandOf[int]
}

func (explodeCommand) RequestName() string { return "explode" }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	b := NewBuilder(zerolog.Nop())
	RegisterCommand(b, func(_ context.Context, c greetCommand) outcome.Outcome[string] {
		return outcome.Success("hello " + c.Name)
	})
	RegisterQuery(b, func(_ context.Context, _ countQuery) outcome.Outcome[int] {
		return outcome.Success(3)
	})
	RegisterCommand(b, func(_ context.Context, _ explodeCommand) outcome.Outcome[int] {
		panic("kaboom")
	})
	d, err := b.Build()
	require.NoError(t, err)
	return d
}

func TestSendRoutesToRegisteredHandler(t *testing.T) {
	d := newTestDispatcher(t)

	out := Send[string](context.Background(), d, greetCommand{Name: "ada"})
	require.True(t, out.IsSuccess())
	assert.Equal(t, "hello ada", out.Value())
}

func TestCommandAndQueryRegistriesAreIndependent(t *testing.T) {
	d := newTestDispatcher(t)

	// Both requests are named "greet"; the variant picks the registry.
	q := Ask[int](context.Background(), d, countQuery{})
	require.True(t, q.IsSuccess())
	assert.Equal(t, 3, q.Value())
	assert.True(t, d.HasCommand("greet"))
	assert.True(t, d.HasQuery("greet"))
}

func TestSendUnknownCommandNamesType(t *testing.T) {
	d := newTestDispatcher(t)

	var out outcome.Outcome[int]
	assert.NotPanics(t, func() {
		out = Send[int](context.Background(), d, orphanCommand{})
	})
	require.True(t, out.IsFailure())
	assert.Equal(t, outcome.CodeNoHandler, out.Code())
	assert.Contains(t, out.Message(), "orphan")
	assert.Contains(t, out.Message(), "orphanCommand")
}

func TestSendRecoversHandlerPanic(t *testing.T) {
	d := newTestDispatcher(t)

	out := Send[int](context.Background(), d, explodeCommand{})
	require.True(t, out.IsFailure())
	assert.Equal(t, outcome.CodeHandlerPanic, out.Code())
	assert.Equal(t, "kaboom", out.Message())
}

func TestBuildRejectsDuplicateRegistration(t *testing.T) {
	b := NewBuilder(zerolog.Nop())
	h := func(_ context.Context, _ greetCommand) outcome.Outcome[string] { return outcome.Success("") }
	RegisterCommand(b, h)
	RegisterCommand(b, h)

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestConcurrentSend(t *testing.T) {
	d := newTestDispatcher(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := Send[string](context.Background(), d, greetCommand{Name: "x"})
			assert.True(t, out.IsSuccess())
		}()
	}
	wg.Wait()
}
