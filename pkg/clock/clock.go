// Package clock produces strictly monotonic eventstamps for a single
// replica and absorbs stamps observed from remote replicas without ever
// moving backwards.
package clock

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cuemby/driftdb/pkg/eventstamp"
)

// NowFunc returns the current wall time in milliseconds. Overridable in
// tests; defaults to the real wall clock.
type NowFunc func() uint64

func systemNowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Clock generates strictly increasing eventstamp.Stamp values for one
// replica and forwards its local state when it observes a later stamp
// from a peer.
type Clock struct {
	mu sync.Mutex

	nowFunc NowFunc

	lastMillis  uint64
	counter     uint16
	lastNonce   uint16
	forwardHits uint64
	ticks       uint64
}

// New creates a Clock seeded at eventstamp.Min.
func New() *Clock {
	return &Clock{nowFunc: systemNowMillis}
}

// NewWithNowFunc creates a Clock using a custom wall-clock source, for
// deterministic tests.
func NewWithNowFunc(fn NowFunc) *Clock {
	return &Clock{nowFunc: fn}
}

// Now reads the wall clock, advances internal state, and returns a fresh
// stamp strictly greater than every stamp previously returned by Now or
// adopted via Forward.
func (c *Clock) Now() eventstamp.Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	wall := c.nowFunc()
	c.ticks++

	switch {
	case wall > c.lastMillis:
		c.lastMillis = wall
		c.counter = 0
	default:
		// wall <= lastMillis: either the clock hasn't ticked forward yet, or
		// Forward() already pushed lastMillis ahead of real time. Either way
		// we stay on lastMillis and advance the counter.
		if c.counter == 0xFFFF {
			c.counter = 0
			c.lastMillis++
		} else {
			c.counter++
		}
	}
	c.lastNonce = randomNonce()

	return eventstamp.Stamp{Millis: c.lastMillis, Counter: c.counter, Nonce: c.lastNonce}
}

// Latest returns the last stamp emitted by Now or adopted by Forward,
// without advancing any state.
func (c *Clock) Latest() eventstamp.Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return eventstamp.Stamp{Millis: c.lastMillis, Counter: c.counter, Nonce: c.lastNonce}
}

// Forward adopts stamp as the new clock state if it orders strictly after
// the clock's current state; otherwise it is ignored. After Forward(s),
// every subsequent Now() call produces a stamp strictly greater than s.
func (c *Clock) Forward(stamp eventstamp.Stamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := eventstamp.Stamp{Millis: c.lastMillis, Counter: c.counter, Nonce: c.lastNonce}
	if !eventstamp.Less(current, stamp) {
		return
	}
	c.lastMillis = stamp.Millis
	c.counter = stamp.Counter
	c.lastNonce = stamp.Nonce
	c.forwardHits++
}

// Stats reports lightweight counters consumed by pkg/metrics; it is purely
// observational and does not affect ordering guarantees.
type Stats struct {
	TicksObserved uint64
	ForwardJumps  uint64
}

// Stats returns a snapshot of the clock's internal counters.
func (c *Clock) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{TicksObserved: c.ticks, ForwardJumps: c.forwardHits}
}

func randomNonce() uint16 {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is a platform-level emergency; fall back to a
		// weaker but still varying source rather than panicking the clock.
		return uint16(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint16(buf[:])
}
