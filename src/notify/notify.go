// Package notify reports build status transitions between refresh cycles.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cistat/src/aggregate"
	"cistat/src/broker"
	"cistat/src/logger"
	"cistat/src/status"
)

// Notifier receives the changes found between two consecutive snapshots.
type Notifier interface {
	Notify(ctx context.Context, changes aggregate.Changes) error
}

// TransitionEvent is the message published for each status transition.
type TransitionEvent struct {
	ID      uuid.UUID     `json:"id"`
	Group   string        `json:"group"`
	Project string        `json:"project"`
	From    status.Status `json:"from"`
	To      status.Status `json:"to"`
	Number  int64         `json:"number,omitempty"`
	Commit  string        `json:"commit,omitempty"`
	URL     string        `json:"url,omitempty"`
	At      time.Time     `json:"at"`
}

// String renders the event as a single human readable line.
func (e TransitionEvent) String() string {
	s := fmt.Sprintf("%s: %s -> %s", e.Group, e.From, e.To)
	if e.Number > 0 {
		s += fmt.Sprintf(" (#%d)", e.Number)
	}
	return s
}

// NewEvent builds the event for one transition.
func NewEvent(t aggregate.Transition, at time.Time) TransitionEvent {
	return TransitionEvent{
		ID:      uuid.New(),
		Group:   t.Group,
		Project: t.Build.Project,
		From:    t.From,
		To:      t.To,
		Number:  t.Build.Number,
		Commit:  t.Build.Commit,
		URL:     t.Build.URL,
		At:      at,
	}
}

// DecodeEvent parses a published event.
func DecodeEvent(data []byte) (TransitionEvent, error) {
	var e TransitionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransitionEvent{}, fmt.Errorf("failed to decode transition event: %w", err)
	}
	return e, nil
}

// LogNotifier writes one line per change to the logger.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs transitions at info level and added/removed groups at debug level.
func (n *LogNotifier) Notify(ctx context.Context, changes aggregate.Changes) error {
	for _, t := range changes.Transitions {
		n.log.Info("%s", NewEvent(t, time.Time{}))
	}
	for _, name := range changes.Added {
		n.log.Debug("new group %s", name)
	}
	for _, name := range changes.Removed {
		n.log.Debug("group %s no longer reported", name)
	}
	return nil
}

// BrokerNotifier publishes a TransitionEvent per transition to a broker topic.
type BrokerNotifier struct {
	broker broker.Broker
	topic  string
	now    func() time.Time
}

// NewBrokerNotifier creates a notifier publishing to topic.
func NewBrokerNotifier(b broker.Broker, topic string) *BrokerNotifier {
	return &BrokerNotifier{broker: b, topic: topic, now: time.Now}
}

// Notify publishes every transition keyed by group name, so a group's events
// stay ordered within one partition.
func (n *BrokerNotifier) Notify(ctx context.Context, changes aggregate.Changes) error {
	var errs []error
	at := n.now()
	for _, t := range changes.Transitions {
		data, err := json.Marshal(NewEvent(t, at))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.broker.Publish(ctx, n.topic, t.Group, data); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", t.Group, err))
		}
	}
	return errors.Join(errs...)
}

// Multi fans out to several notifiers, joining their errors.
type Multi []Notifier

// Notify calls every notifier even when an earlier one fails.
func (m Multi) Notify(ctx context.Context, changes aggregate.Changes) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, changes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe streams transitions published on topic from now on. Every caller
// sees every event. Messages that do not decode are logged and skipped.
func Subscribe(ctx context.Context, b broker.Broker, topic string, log logger.Logger) (<-chan TransitionEvent, error) {
	msgs, err := b.Subscribe(ctx, topic, "")
	if err != nil {
		return nil, err
	}

	events := make(chan TransitionEvent)
	go func() {
		defer close(events)
		for msg := range msgs {
			ev, err := DecodeEvent(msg.Value)
			if err != nil {
				log.Error("skipping malformed event at offset %d: %v", msg.Offset, err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
