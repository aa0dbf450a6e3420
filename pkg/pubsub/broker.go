package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/coco/pkg/logging"
)

var log = logging.New("pubsub")

var (
	// ErrClosed is returned when subscribing or publishing after Close
	ErrClosed = errors.New("broker is closed")
	// ErrUnknownTopic is returned for topics the broker does not carry
	ErrUnknownTopic = errors.New("unknown topic")
)

// subscriberBuffer bounds each subscriber queue. A full queue sheds its
// oldest event so slow readers always converge on the latest state.
const subscriberBuffer = 16

// Broker carries the analysis status and report topics. Each topic keeps
// its last event and hands it to new subscribers, so a client that
// connects mid-run still sees the current state.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

type topic struct {
	seq  int
	last *Event
	subs map[*Subscription]struct{}
}

// NewBroker creates a broker for TopicAnalysisStatus and TopicReport
func NewBroker() *Broker {
	return &Broker{
		topics: map[string]*topic{
			TopicAnalysisStatus: {subs: make(map[*Subscription]struct{})},
			TopicReport:         {subs: make(map[*Subscription]struct{})},
		},
	}
}

// HasTopic reports whether name is a topic the broker carries
func (b *Broker) HasTopic(name string) bool {
	_, ok := b.topics[name]
	return ok
}

// PublishStatus publishes an analysis state change
func (b *Broker) PublishStatus(status AnalysisStatus) error {
	return b.publish(TopicAnalysisStatus, status.State, status)
}

// PublishReport announces a new report
func (b *Broker) PublishReport(update ReportUpdate) error {
	return b.publish(TopicReport, StateComplete, update)
}

func (b *Broker) publish(name, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	t := b.topics[name]
	t.seq++
	event := Event{Topic: name, Type: eventType, Seq: t.seq, Data: data}
	t.last = &event

	for sub := range t.subs {
		if sub.offer(event) {
			log.Debug("Subscriber lagging, dropped oldest event", "topic", name, "seq", event.Seq)
		}
	}
	return nil
}

// Subscribe registers a subscriber on a topic. The topic's last event, if
// any, is delivered first. The subscription ends when ctx is done, when
// Close is called, or when the broker closes.
func (b *Broker) Subscribe(ctx context.Context, name string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	t, ok := b.topics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, name)
	}

	sub := &Subscription{
		topic:  name,
		events: make(chan Event, subscriberBuffer),
		broker: b,
	}
	if t.last != nil {
		sub.events <- *t.last
	}
	t.subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// Close ends every subscription and rejects further use
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, t := range b.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		t.subs = nil
	}
	return nil
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	delete(b.topics[sub.topic].subs, sub)
}

// Subscription receives the events of one topic
type Subscription struct {
	topic  string
	events chan Event
	broker *Broker
	once   sync.Once
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() string { return s.topic }

// Events yields events in publish order. It is closed only when the
// broker closes.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close unregisters the subscription
func (s *Subscription) Close() error {
	s.once.Do(func() { s.broker.remove(s) })
	return nil
}

// offer queues event without blocking, shedding the oldest queued event
// when the queue is full. Called with the broker lock held.
func (s *Subscription) offer(event Event) (dropped bool) {
	for {
		select {
		case s.events <- event:
			return dropped
		default:
		}
		select {
		case <-s.events:
			dropped = true
		default:
		}
	}
}
