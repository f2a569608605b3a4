package notify

import (
	"context"
	"errors"
)

// Notifier delivers order events through some outbound channel.
type Notifier interface {
	Notify(ctx context.Context, event OrderEvent) error
}

type NotifierFunc func(ctx context.Context, event OrderEvent) error

func (f NotifierFunc) Notify(ctx context.Context, event OrderEvent) error {
	return f(ctx, event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, OrderEvent) error { return nil }

// Multi fans an event out to every channel and joins their errors. One
// failing channel does not stop the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
