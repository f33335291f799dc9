package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"cistat/src/logger"
	"cistat/src/provider"
)

const (
	clientID       = "cistat"
	produceTimeout = 10 * time.Second
	produceRetries = 3
)

// RedpandaBroker shares transition events through a Kafka-compatible cluster.
// One client produces for every watcher; each subscription opens its own
// consuming client that starts at the end of the topic, so listeners only see
// transitions that happen while they run.
type RedpandaBroker struct {
	seeds    []string
	log      logger.Logger
	producer *kgo.Client

	mu        sync.Mutex
	consumers map[*kgo.Client]struct{}
	closed    bool
}

// NewRedpandaBroker connects lazily to the given seed addresses.
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: at least one broker address is required", provider.ErrConfiguration)
	}

	// Transitions are keyed by group; the default sticky key partitioner keeps
	// a group's events in order on one partition.
	producer, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
		kgo.ProduceRequestTimeout(produceTimeout),
		kgo.RecordRetries(produceRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid broker settings: %v", provider.ErrConfiguration, err)
	}

	return &RedpandaBroker{
		seeds:     seeds,
		log:       log,
		producer:  producer,
		consumers: make(map[*kgo.Client]struct{}),
	}, nil
}

// Publish writes one event and waits for the cluster to acknowledge it.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe streams events published on topic from now on. With an empty
// groupID every subscriber sees every event; a groupID shares the stream
// between subscribers of that group. The channel closes when ctx is done or
// the broker is closed.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	consumer, err := kgo.NewClient(consumerOpts(b.seeds, topic, groupID)...)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	b.consumers[consumer] = struct{}{}

	out := make(chan Message, 64)
	go b.consume(ctx, consumer, out)
	return out, nil
}

func consumerOpts(seeds []string, topic, groupID string) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if groupID != "" {
		opts = append(opts, kgo.ConsumerGroup(groupID))
	}
	return opts
}

func (b *RedpandaBroker) consume(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	defer close(out)
	defer b.release(consumer)

	for {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}

		// Partition errors are retried by the client; report them and keep
		// delivering whatever did arrive.
		fetches.EachError(func(topic string, partition int32, err error) {
			b.log.Error("fetch %s[%d]: %v", topic, partition, err)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- toMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

func toMessage(rec *kgo.Record) Message {
	return Message{
		Topic:     rec.Topic,
		Key:       string(rec.Key),
		Value:     rec.Value,
		Offset:    rec.Offset,
		Partition: rec.Partition,
		Timestamp: rec.Timestamp.UnixMilli(),
	}
}

// release closes a consumer whose subscription ended, unless Close already did.
func (b *RedpandaBroker) release(consumer *kgo.Client) {
	b.mu.Lock()
	_, owned := b.consumers[consumer]
	delete(b.consumers, consumer)
	b.mu.Unlock()

	if owned {
		consumer.Close()
	}
}

// Close ends every subscription and closes the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.consumers = make(map[*kgo.Client]struct{})
	b.mu.Unlock()

	for consumer := range consumers {
		consumer.Close()
	}
	b.producer.Close()
	return nil
}
