// Package broker publishes build transition events to interested consumers.
package broker

import (
	"context"

	"cistat/src/logger"
)

// Broker abstracts message publishing and consumption.
// Implemented in memory for a single process and by Redpanda/Kafka for a team feed.
type Broker interface {
	// Publish sends a message to a topic with an optional key for partitioning.
	// For in-memory broker, key is carried but not used for routing.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel for consuming messages from a topic.
	// Subscribers sharing a non-empty groupID split the stream; an empty
	// groupID receives every message. The in-memory broker ignores groupID.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// New returns a Redpanda broker for the given seed addresses, or an in-memory
// broker when none are configured.
func New(addrs []string, log logger.Logger) (Broker, error) {
	if len(addrs) == 0 {
		return NewInMemoryBroker(), nil
	}
	return NewRedpandaBroker(addrs, log)
}
