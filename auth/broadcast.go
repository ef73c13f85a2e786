package auth

import (
	"sync"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 16

type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan SessionEvent
	logger zerolog.Logger
}

func newBroadcaster(logger zerolog.Logger) *broadcaster {
	return &broadcaster{subs: make(map[int]chan SessionEvent), logger: logger}
}

func (b *broadcaster) subscribe() (<-chan SessionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan SessionEvent, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// publish never blocks; a subscriber with a full buffer misses the event.
func (b *broadcaster) publish(ev SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn().Int("subscriber", id).Str("kind", string(ev.Kind)).Msg("session event dropped, subscriber is slow")
		}
	}
}
