package bus

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 100

// MessageBus queues inbound updates and outbound replies and fans out
// dispatch events.
type MessageBus struct {
	updates chan Update
	replies chan Reply

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return NewMessageBusSize(defaultBufferSize)
}

func NewMessageBusSize(buffer int) *MessageBus {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &MessageBus{
		updates:          make(chan Update, buffer),
		replies:          make(chan Reply, buffer),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

func (mb *MessageBus) PublishUpdate(ctx context.Context, update Update) bool {
	if update.ReceivedAt.IsZero() {
		update.ReceivedAt = time.Now().UTC()
	}
	return send(ctx, mb.done, mb.updates, update)
}

func (mb *MessageBus) ConsumeUpdate(ctx context.Context) (Update, bool) {
	return receive(ctx, mb.done, mb.updates)
}

func (mb *MessageBus) PublishReply(ctx context.Context, reply Reply) bool {
	return send(ctx, mb.done, mb.replies, reply)
}

func (mb *MessageBus) ConsumeReply(ctx context.Context) (Reply, bool) {
	return receive(ctx, mb.done, mb.replies)
}

// Pending returns the number of queued updates.
func (mb *MessageBus) Pending() int {
	return len(mb.updates)
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}

// send refuses to enqueue once ctx or the bus is done, even when the buffer
// has room.
func send[T any](ctx context.Context, done <-chan struct{}, ch chan<- T, v T) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-done:
		return false
	case ch <- v:
		return true
	}
}

func receive[T any](ctx context.Context, done <-chan struct{}, ch <-chan T) (T, bool) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return zero, false
	case <-done:
		return zero, false
	case v := <-ch:
		return v, true
	}
}
