package metrics

import (
	"time"

	"github.com/cuemby/driftdb/pkg/clock"
	"github.com/cuemby/driftdb/pkg/collection"
)

// storeSource is the slice of *store.Store the Collector needs. It is
// expressed as an interface, not the concrete type, so that pkg/store can
// import pkg/metrics to increment counters/histograms inline without the
// two packages forming an import cycle.
type storeSource interface {
	Collection() *collection.Collection
	Clock() *clock.Clock
}

// Collector periodically samples a Store and its Clock, publishing the
// results as gauges. It does not touch counters or histograms, which are
// updated inline by the code performing the operation they measure.
type Collector struct {
	store  storeSource
	stopCh chan struct{}
}

// NewCollector creates a collector over s.
func NewCollector(s storeSource) *Collector {
	return &Collector{
		store:  s,
		stopCh: make(chan struct{}),
	}
}

// Start begins polling at a fixed interval, collecting immediately on
// start.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the polling goroutine.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectDocumentMetrics()
	c.collectClockMetrics()
}

func (c *Collector) collectDocumentMetrics() {
	snapshot := c.store.Collection()

	var visible, deleted int
	for _, d := range snapshot.Documents {
		if d.DeletedAt == nil {
			visible++
		} else {
			deleted++
		}
	}
	DocumentsTotal.WithLabelValues("visible").Set(float64(visible))
	DocumentsTotal.WithLabelValues("deleted").Set(float64(deleted))
}

func (c *Collector) collectClockMetrics() {
	stats := c.store.Clock().Stats()
	ClockTicksTotal.Set(float64(stats.TicksObserved))
	ClockForwardJumpsTotal.Set(float64(stats.ForwardJumps))
}
