package clock

import (
	"testing"

	"github.com/cuemby/driftdb/pkg/eventstamp"
)

func TestNowIsStrictlyMonotonic(t *testing.T) {
	c := New()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		next := c.Now()
		if !eventstamp.Less(prev, next) {
			t.Fatalf("Now() not strictly increasing at iteration %d: %v -> %v", i, prev, next)
		}
		prev = next
	}
}

func TestNowAdvancesMillisWhenWallAdvances(t *testing.T) {
	wall := uint64(1000)
	c := NewWithNowFunc(func() uint64 { return wall })

	first := c.Now()
	wall = 1001
	second := c.Now()

	if first.Millis != 1000 || second.Millis != 1001 {
		t.Fatalf("expected millis to track wall clock, got %d then %d", first.Millis, second.Millis)
	}
	if second.Counter != 0 {
		t.Fatalf("counter should reset to 0 on a new millisecond, got %d", second.Counter)
	}
}

func TestNowIncrementsCounterWithinSameMillis(t *testing.T) {
	c := NewWithNowFunc(func() uint64 { return 42 })

	a := c.Now()
	b := c.Now()
	c2 := c.Now()

	if a.Millis != b.Millis || b.Millis != c2.Millis {
		t.Fatalf("expected constant millis within same wall tick")
	}
	if b.Counter != a.Counter+1 || c2.Counter != b.Counter+1 {
		t.Fatalf("expected strictly incrementing counters: %d, %d, %d", a.Counter, b.Counter, c2.Counter)
	}
}

func TestCounterOverflowBumpsMillis(t *testing.T) {
	c := NewWithNowFunc(func() uint64 { return 7 })
	c.counter = 0xFFFF
	c.lastMillis = 7

	next := c.Now()
	if next.Millis != 8 {
		t.Fatalf("expected millis to bump to 8 on counter overflow, got %d", next.Millis)
	}
	if next.Counter != 0 {
		t.Fatalf("expected counter to wrap to 0, got %d", next.Counter)
	}
}

func TestLatestReturnsLastEmittedWithoutAdvancing(t *testing.T) {
	c := New()
	emitted := c.Now()
	for i := 0; i < 5; i++ {
		if got := c.Latest(); got != emitted {
			t.Fatalf("Latest() = %v, want %v (should not advance)", got, emitted)
		}
	}
}

func TestForwardAdoptsLaterStamp(t *testing.T) {
	c := NewWithNowFunc(func() uint64 { return 1 })
	remote := eventstamp.Stamp{Millis: 1_000_000, Counter: 5, Nonce: 9}

	c.Forward(remote)

	if got := c.Latest(); got != remote {
		t.Fatalf("Forward should adopt the remote stamp verbatim, got %v want %v", got, remote)
	}

	next := c.Now()
	if !eventstamp.Less(remote, next) {
		t.Fatalf("Now() after Forward(%v) should be strictly greater, got %v", remote, next)
	}
}

func TestForwardIsIdempotentForOlderOrEqualStamps(t *testing.T) {
	c := New()
	current := c.Now()

	older := eventstamp.Stamp{Millis: 0, Counter: 0, Nonce: 0}
	c.Forward(older)
	if got := c.Latest(); got != current {
		t.Fatalf("Forward with an older stamp must be a no-op, got %v want %v", got, current)
	}

	c.Forward(current)
	if got := c.Latest(); got != current {
		t.Fatalf("Forward with an equal stamp must be a no-op, got %v want %v", got, current)
	}
}

func TestStatsTracksTicksAndForwardJumps(t *testing.T) {
	c := New()
	c.Now()
	c.Now()
	c.Forward(eventstamp.Stamp{Millis: 1 << 42})

	stats := c.Stats()
	if stats.TicksObserved != 2 {
		t.Fatalf("expected 2 ticks observed, got %d", stats.TicksObserved)
	}
	if stats.ForwardJumps != 1 {
		t.Fatalf("expected 1 forward jump, got %d", stats.ForwardJumps)
	}
}
