// Package mediator routes commands and queries to the single handler
// registered for their type.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/outcome"
)

var (
	// ErrNameRequired indicates a request type whose RequestName is blank.
	ErrNameRequired = errors.New("request name is required")
	// ErrAlreadyRegistered indicates a second handler for the same request.
	ErrAlreadyRegistered = errors.New("handler already registered")
)

type kind string

const (
	kindCommand kind = "command"
	kindQuery   kind = "query"
)

// handlerFunc is the type-erased form stored in the registry. It always
// returns an outcome.Outcome[R] for the R the request declares.
type handlerFunc func(ctx context.Context, req Request) any

// Builder collects registrations at startup. It is not safe for concurrent
// use; Build produces the immutable Dispatcher used at runtime.
type Builder struct {
	commands map[string]handlerFunc
	queries  map[string]handlerFunc
	errs     []error
	log      zerolog.Logger
}

// NewBuilder creates an empty Builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		commands: make(map[string]handlerFunc),
		queries:  make(map[string]handlerFunc),
		log:      log,
	}
}

// RegisterCommand associates h with the command type C. Passing a method
// value lets the compiler infer both C and R:
//
//	mediator.RegisterCommand(b, upsertService.Handle)
func RegisterCommand[C Command[R], R any](b *Builder, h func(ctx context.Context, cmd C) outcome.Outcome[R]) {
	var zero C
	b.add(kindCommand, b.commands, zero.RequestName(), func(ctx context.Context, req Request) any {
		return h(ctx, req.(C))
	})
}

// RegisterQuery associates h with the query type Q.
func RegisterQuery[Q Query[R], R any](b *Builder, h func(ctx context.Context, q Q) outcome.Outcome[R]) {
	var zero Q
	b.add(kindQuery, b.queries, zero.RequestName(), func(ctx context.Context, req Request) any {
		return h(ctx, req.(Q))
	})
}

func (b *Builder) add(k kind, registry map[string]handlerFunc, name string, h handlerFunc) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", k, ErrNameRequired))
		return
	}
	if _, exists := registry[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%s %q: %w", k, name, ErrAlreadyRegistered))
		return
	}
	registry[name] = h
}

// Build freezes the registrations. It fails if any registration was invalid.
func (b *Builder) Build() (*Dispatcher, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		commands: make(map[string]handlerFunc, len(b.commands)),
		queries:  make(map[string]handlerFunc, len(b.queries)),
		log:      b.log.With().Str("component", "dispatcher").Logger(),
	}
	for name, h := range b.commands {
		d.commands[name] = h
	}
	for name, h := range b.queries {
		d.queries[name] = h
	}
	d.log.Info().
		Int("commands", len(d.commands)).
		Int("queries", len(d.queries)).
		Msg("Dispatcher ready")
	return d, nil
}

// Dispatcher holds the read-only command and query registries. It is safe
// for concurrent use.
type Dispatcher struct {
	commands map[string]handlerFunc
	queries  map[string]handlerFunc
	log      zerolog.Logger
}

// Send routes a command to its handler.
func Send[R any](ctx context.Context, d *Dispatcher, cmd Command[R]) outcome.Outcome[R] {
	return dispatch[R](ctx, d, kindCommand, d.commands, cmd)
}

// Ask routes a query to its handler.
func Ask[R any](ctx context.Context, d *Dispatcher, q Query[R]) outcome.Outcome[R] {
	return dispatch[R](ctx, d, kindQuery, d.queries, q)
}

// HasCommand reports whether a handler is registered for the command name.
func (d *Dispatcher) HasCommand(name string) bool {
	_, ok := d.commands[name]
	return ok
}

// HasQuery reports whether a handler is registered for the query name.
func (d *Dispatcher) HasQuery(name string) bool {
	_, ok := d.queries[name]
	return ok
}

func dispatch[R any](ctx context.Context, d *Dispatcher, k kind, registry map[string]handlerFunc, req Request) (out outcome.Outcome[R]) {
	name := req.RequestName()
	h, ok := registry[name]
	if !ok {
		d.log.Warn().Str("kind", string(k)).Str("request", name).Msg("No handler registered")
		return outcome.Failuref[R](outcome.CodeNoHandler, "no handler found for %s %q (%T)", k, name, req)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("kind", string(k)).
				Str("request", name).
				Interface("panic", r).
				Msg("Handler panicked")
			out = outcome.Failuref[R](outcome.CodeHandlerPanic, "%v", r)
		}
	}()

	res, ok := h(ctx, req).(outcome.Outcome[R])
	if !ok {
		return outcome.Failuref[R](outcome.CodeHandlerPanic, "handler for %s %q returned an unexpected result type", k, name)
	}

	d.log.Debug().
		Str("kind", string(k)).
		Str("request", name).
		Bool("success", res.IsSuccess()).
		Str("code", string(res.Code())).
		Dur("took", time.Since(start)).
		Msg("Dispatched")
	return res
}
