package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

type DispatcherConfig struct {
	Name        string
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	// AttemptTimeout bounds a single delivery attempt.
	AttemptTimeout time.Duration
}

// Dispatcher decouples delivery from the caller: Notify only enqueues, a
// background worker delivers with retries. Delivery failures are logged and
// never reach the caller.
type Dispatcher struct {
	next  Notifier
	cfg   DispatcherConfig
	log   *zap.Logger
	queue chan OrderEvent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(next Notifier, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		next:  next,
		cfg:   cfg,
		log:   log.With(zap.String("channel", cfg.Name)),
		queue: make(chan OrderEvent, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Notify(_ context.Context, event OrderEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		d.log.Error("dropping order notification, queue full",
			zap.String("order_number", event.OrderNumber),
			zap.String("event", string(event.Type)))
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event OrderEvent) {
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.AttemptTimeout)
		err := d.next.Notify(ctx, event)
		cancel()
		if err == nil {
			d.log.Debug("order notification delivered",
				zap.String("order_number", event.OrderNumber),
				zap.Int("attempt", attempt))
			return
		}

		if attempt == d.cfg.MaxAttempts {
			d.log.Error("giving up on order notification",
				zap.String("order_number", event.OrderNumber),
				zap.String("event", string(event.Type)),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}
		d.log.Warn("order notification failed, retrying",
			zap.String("order_number", event.OrderNumber),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(d.cfg.Backoff * time.Duration(attempt))
	}
}
