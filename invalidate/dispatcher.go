package invalidate

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives a published event.
type Handler func(ctx context.Context, ev Event)

type subscription struct {
	id      int
	name    string
	handler Handler
}

// Dispatcher fans events out to its subscribers synchronously, in
// subscription order.
type Dispatcher struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	logger zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers fn under name and returns a function that removes it.
func (d *Dispatcher) Subscribe(name string, fn Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, name: name, handler: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every subscriber. Events that invalidate nothing
// are dropped. A panicking subscriber is logged and does not stop delivery.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	if ev.Empty() {
		return
	}

	d.mu.RLock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, s := range subs {
		d.deliver(ctx, s, ev)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("subscriber", s.name).
				Str("op", string(ev.Op)).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in invalidation subscriber")
		}
	}()
	s.handler(ctx, ev)
}
