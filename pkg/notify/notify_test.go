package notify

import (
	"testing"
	"time"

	"github.com/cuemby/driftdb/pkg/store"
)

func TestBrokerDeliversPublishedEventToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: DocumentAdded, DocumentID: "d1"})

	select {
	case ev := <-sub:
		if ev.DocumentID != "d1" || ev.Type != DocumentAdded {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.SubscriberCount())
	}

	b.Unsubscribe(sub)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	if _, ok := <-sub; ok {
		t.Fatal("expected channel to be closed")
	}
}

func TestPluginPublishesMutationEvents(t *testing.T) {
	p := NewPlugin()
	s := store.New()
	if err := s.Use(p); err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	sub := p.broker.Subscribe()
	defer p.broker.Unsubscribe(sub)

	id, err := s.Add(map[string]any{"name": "Alice"}, store.WithID("u1"))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-sub:
		if ev.Type != DocumentAdded || ev.DocumentID != id {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for add event")
	}

	if err := s.Update("u1", map[string]any{"name": "Alicia"}); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-sub:
		if ev.Type != DocumentUpdated {
			t.Fatalf("expected update event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update event")
	}

	if err := s.Del("u1"); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-sub:
		if ev.Type != DocumentDeleted {
			t.Fatalf("expected delete event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delete event")
	}
}

func TestSubscribeMethodAttachedViaDynamicTable(t *testing.T) {
	p := NewPlugin()
	s := store.New()
	if err := s.Use(p); err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	defer s.Dispose()

	subscribeFn, ok := store.Method[func() Subscriber](s, "notify.Subscribe")
	if !ok {
		t.Fatal("expected notify.Subscribe method to be attached")
	}
	sub := subscribeFn()
	defer p.broker.Unsubscribe(sub)

	if p.broker.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", p.broker.SubscriberCount())
	}
}
