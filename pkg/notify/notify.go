// Package notify is an asynchronous, best-effort fan-out of mutation
// events to external subscribers (e.g. a webhook forwarder or an SSE
// handler). It is deliberately separate from the Query Engine's
// synchronous store.Reactor: a slow or absent subscriber must never
// slow down a commit, so delivery here is buffered and drops rather
// than blocks.
package notify

import (
	"sync"
	"time"

	"github.com/cuemby/driftdb/pkg/log"
	"github.com/cuemby/driftdb/pkg/store"
)

// EventType identifies the kind of mutation that occurred.
type EventType string

const (
	DocumentAdded   EventType = "document.added"
	DocumentUpdated EventType = "document.updated"
	DocumentDeleted EventType = "document.deleted"
)

// Event describes a single document mutation.
type Event struct {
	Type       EventType
	DocumentID string
	Value      any
	Timestamp  time.Time
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker distributes Events to any number of Subscribers. A Publish call
// never blocks the caller past handing the event to the broker's own
// queue; a full subscriber buffer drops that event for that subscriber
// rather than stall the broadcast loop.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker constructs a Broker. Call Start to begin distributing.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop in its own goroutine.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts distribution and closes every live subscriber channel.
func (b *Broker) Stop() {
	close(b.stopCh)

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Subscribe registers a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish enqueues event for broadcast. It never blocks: if the broker's
// internal queue is full, the event is dropped.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- event:
	default:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			log.WithDocumentID(event.DocumentID).Debug().
				Str("event", string(event.Type)).
				Msg("notify: subscriber buffer full, event dropped")
		}
	}
}

// SubscriberCount reports how many subscriptions are currently live.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Plugin adapts a Broker into a store.Plugin, publishing one Event per
// entry in every mutation batch. It attaches "notify.Subscribe" and
// "notify.Unsubscribe" so callers can reach the broker through the same
// dynamic method table as boltsnap and httpsnap use.
type Plugin struct {
	broker *Broker
}

// NewPlugin constructs a notify Plugin with its own Broker.
func NewPlugin() *Plugin {
	return &Plugin{broker: NewBroker()}
}

// Name implements store.Plugin.
func (p *Plugin) Name() string { return "notify" }

// Hooks implements store.Plugin.
func (p *Plugin) Hooks() store.Hooks {
	return store.Hooks{
		OnInit: func(store.Handle) error {
			p.broker.Start()
			return nil
		},
		OnDispose: func(store.Handle) error {
			p.broker.Stop()
			return nil
		},
		OnAdd:    func(entries []store.Entry) { p.publishAll(DocumentAdded, entries) },
		OnUpdate: func(entries []store.Entry) { p.publishAll(DocumentUpdated, entries) },
		OnDelete: func(ids []string) {
			for _, id := range ids {
				p.broker.Publish(&Event{Type: DocumentDeleted, DocumentID: id})
			}
		},
	}
}

// Methods implements store.Plugin.
func (p *Plugin) Methods(store.Handle) map[string]any {
	return map[string]any{
		"notify.Subscribe":   func() Subscriber { return p.broker.Subscribe() },
		"notify.Unsubscribe": func(sub Subscriber) { p.broker.Unsubscribe(sub) },
	}
}

func (p *Plugin) publishAll(t EventType, entries []store.Entry) {
	for _, e := range entries {
		p.broker.Publish(&Event{Type: t, DocumentID: e.ID, Value: e.Value})
	}
}
