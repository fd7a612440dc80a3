// Package actorify turns a function that may be called from many goroutines
// into one that executes strictly one call at a time, actor-style: callers post
// a message to a mailbox and wait for the reply.
package actorify

import (
	"context"
	"errors"
)

// ErrActorDied is returned when the actor shut down before or while handling a
// call, usually because its context was canceled.
var ErrActorDied = errors.New("actorify: actor is no longer running")

// Handler is the guarded logic the actor runs for each call.
type Handler[In, Out any] func(ctx context.Context, input In) (Out, error)

type envelope[In, Out any] struct {
	ctx   context.Context
	input In
	reply chan outcome[Out]
}

type outcome[Out any] struct {
	value Out
	err   error
}

// Actor owns a mailbox and a single goroutine draining it. All calls made
// through Call happen one after another, in arrival order.
type Actor[In, Out any] struct {
	handler Handler[In, Out]
	mailbox chan envelope[In, Out]
	done    chan struct{}
}

// New starts an actor around handler. Cancel ctx to stop it; calls in flight
// and calls made afterwards fail with ErrActorDied.
func New[In, Out any](ctx context.Context, handler Handler[In, Out]) *Actor[In, Out] {
	a := &Actor[In, Out]{
		handler: handler,
		mailbox: make(chan envelope[In, Out], 32),
		done:    make(chan struct{}),
	}

	go a.run(ctx)

	return a
}

func (a *Actor[In, Out]) run(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-a.mailbox:
			value, err := a.handler(env.ctx, env.input)
			env.reply <- outcome[Out]{value: value, err: err}
		}
	}
}

// Call hands input to the actor and waits for its reply. Unary on purpose:
// bundle multiple inputs into a struct.
func (a *Actor[In, Out]) Call(ctx context.Context, input In) (Out, error) {
	var zero Out

	env := envelope[In, Out]{
		ctx:   ctx,
		input: input,
		reply: make(chan outcome[Out], 1),
	}

	select {
	case a.mailbox <- env:
	case <-a.done:
		return zero, ErrActorDied
	case <-ctx.Done():
		return zero, context.Cause(ctx)
	}

	select {
	case out := <-env.reply:
		return out.value, out.err
	case <-a.done:
		return zero, ErrActorDied
	case <-ctx.Done():
		return zero, context.Cause(ctx)
	}
}
