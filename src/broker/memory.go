package broker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when publishing or subscribing on a closed broker.
var ErrClosed = errors.New("broker is closed")

const subscriberBuffer = 100

type subscriber struct {
	ch  chan Message
	ctx context.Context
}

// InMemoryBroker fans every published message out to all current subscribers of its topic.
type InMemoryBroker struct {
	mu     sync.Mutex
	subs   map[string][]*subscriber
	offset int64
	closed bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{subs: make(map[string][]*subscriber)}
}

// Publish delivers value to every subscriber of topic. A subscriber whose
// buffer is full loses the message rather than blocking the publisher.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	b.offset++
	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offset,
		Timestamp: time.Now().UnixMilli(),
	}

	live := b.subs[topic][:0]
	for _, sub := range b.subs[topic] {
		if sub.ctx.Err() != nil {
			close(sub.ch)
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
		live = append(live, sub)
	}
	b.subs[topic] = live
	return nil
}

// Subscribe registers a new subscriber on topic. The channel closes when the
// broker closes or on the first publish after ctx is done.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscriber{ch: make(chan Message, subscriberBuffer), ctx: ctx}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub.ch, nil
}

// Close closes every subscriber channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	b.subs = nil
	return nil
}
