package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const defaultChannelBufferSize = 64

// Broker fans events out to every live subscriber. Subscriptions end when
// their context is cancelled or the broker is shut down.
type Broker[T any] struct {
	subs     map[chan Event[T]]context.CancelFunc
	mu       sync.RWMutex
	isClosed bool
	wg       sync.WaitGroup
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]context.CancelFunc),
	}
}

func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	if b.isClosed {
		b.mu.Unlock()
		return
	}
	b.isClosed = true

	for ch, cancel := range b.subs {
		cancel()
		close(ch)
		delete(b.subs, ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
	slog.Debug("pubsub broker shut down", "type", fmt.Sprintf("%T", *new(T)))
}

func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed {
		closedCh := make(chan Event[T])
		close(closedCh)
		return closedCh
	}

	subCtx, subCancel := context.WithCancel(ctx)
	ch := make(chan Event[T], defaultChannelBufferSize)
	b.subs[ch] = subCancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		<-subCtx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			close(ch)
			delete(b.subs, ch)
		}
	}()

	return ch
}

// Publish never blocks on a full subscriber: the event is dropped for that
// subscriber and a warning is logged.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.isClosed {
		slog.Warn("publish on closed pubsub broker", "type", eventType)
		return
	}

	event := Event[T]{Type: eventType, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("pubsub subscriber full, dropping event", "type", eventType)
		}
	}
}

func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
