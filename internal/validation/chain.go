// Package validation runs commands through an ordered, fail-fast sequence
// of checks before any state is touched.
package validation

import (
	"context"

	"github.com/stemsi/qbank-core/internal/outcome"
)

// Validator checks one aspect of a command.
type Validator[C any] interface {
	Validate(ctx context.Context, cmd C) outcome.Outcome[outcome.Unit]
}

// Func adapts a function to Validator.
type Func[C any] func(ctx context.Context, cmd C) outcome.Outcome[outcome.Unit]

func (f Func[C]) Validate(ctx context.Context, cmd C) outcome.Outcome[outcome.Unit] {
	return f(ctx, cmd)
}

// Chain runs validators in order and stops at the first failure. It is
// immutable once built and safe for concurrent use.
type Chain[C any] struct {
	validators []Validator[C]
}

// NewChain builds a chain from validators in execution order.
func NewChain[C any](validators ...Validator[C]) Chain[C] {
	vs := make([]Validator[C], len(validators))
	copy(vs, validators)
	return Chain[C]{validators: vs}
}

// Len returns the number of validators.
func (c Chain[C]) Len() int { return len(c.validators) }

// Validate returns the first failure unchanged, or success when every
// validator passes. An empty chain succeeds.
func (c Chain[C]) Validate(ctx context.Context, cmd C) outcome.Outcome[outcome.Unit] {
	for _, v := range c.validators {
		if res := v.Validate(ctx, cmd); res.IsFailure() {
			return res
		}
	}
	return outcome.OK()
}
