// Package boltsnap is a durable store.Plugin backed by go.etcd.io/bbolt.
// It persists the store's whole collection.Collection as one JSON blob
// per mutation batch (debounced) and, optionally, polls the backend on
// an interval to merge in snapshots written by another process.
package boltsnap

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/driftdb/pkg/collection"
	"github.com/cuemby/driftdb/pkg/log"
	"github.com/cuemby/driftdb/pkg/metrics"
	"github.com/cuemby/driftdb/pkg/store"
)

var (
	bucketSnapshot = []byte("snapshot")
	keySnapshot    = []byte("current")
)

// Option customizes a Plugin.
type Option func(*Plugin)

// WithDebounce sets how long to wait after the last mutation before
// flushing to disk. Zero flushes immediately (still off the commit path).
func WithDebounce(d time.Duration) Option {
	return func(p *Plugin) { p.debounce = d }
}

// WithPollInterval enables periodic reload-and-merge from the backend,
// for the case where another process writes to the same database file.
// Zero (the default) disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(p *Plugin) { p.pollInterval = d }
}

// WithOnBeforeSet transforms the collection immediately before it is
// persisted.
func WithOnBeforeSet(fn func(*collection.Collection) *collection.Collection) Option {
	return func(p *Plugin) { p.onBeforeSet = fn }
}

// WithOnAfterGet transforms a collection immediately after it is loaded
// from the backend, before being merged into the store.
func WithOnAfterGet(fn func(*collection.Collection) *collection.Collection) Option {
	return func(p *Plugin) { p.onAfterGet = fn }
}

// WithSkip installs a predicate consulted before every flush; a true
// result skips that flush without clearing the pending flag; the next
// mutation schedules another attempt.
func WithSkip(fn func() bool) Option {
	return func(p *Plugin) { p.skip = fn }
}

// WithSyncOnInit controls whether OnInit loads and merges any snapshot
// already on disk. Defaults to true.
func WithSyncOnInit(sync bool) Option {
	return func(p *Plugin) { p.syncOnInit = sync }
}

// Plugin is a store.Plugin persisting to a bbolt database file.
type Plugin struct {
	db *bolt.DB

	debounce     time.Duration
	pollInterval time.Duration
	onBeforeSet  func(*collection.Collection) *collection.Collection
	onAfterGet   func(*collection.Collection) *collection.Collection
	skip         func() bool
	syncOnInit   bool

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	handle  store.Handle

	stopPoll chan struct{}
	pollDone chan struct{}

	logger zerolog.Logger
}

// Open opens (or creates) a bbolt database under dataDir and returns a
// Plugin ready to register with a Store via Store.Use.
func Open(dataDir string, opts ...Option) (*Plugin, error) {
	dbPath := filepath.Join(dataDir, "driftdb.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshot)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot bucket: %w", err)
	}

	p := &Plugin{
		db:         db,
		syncOnInit: true,
		logger:     log.WithComponent("boltsnap"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name implements store.Plugin.
func (p *Plugin) Name() string { return "boltsnap" }

// Hooks implements store.Plugin.
func (p *Plugin) Hooks() store.Hooks {
	return store.Hooks{
		OnInit:    p.onInit,
		OnDispose: p.onDispose,
		OnAdd:     func(_ []store.Entry) { p.scheduleFlush() },
		OnUpdate:  func(_ []store.Entry) { p.scheduleFlush() },
		OnDelete:  func(_ []string) { p.scheduleFlush() },
	}
}

// Methods implements store.Plugin, attaching a manual Flush in addition
// to the automatic debounced one.
func (p *Plugin) Methods(h store.Handle) map[string]any {
	return map[string]any{
		"boltsnap.Flush": func() error { return p.flushNow() },
	}
}

func (p *Plugin) onInit(h store.Handle) error {
	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()

	if p.syncOnInit {
		snap, err := p.load()
		if err != nil {
			metrics.ReportSubsystem("persistence", false, err.Error())
			return fmt.Errorf("boltsnap: loading snapshot on init: %w", err)
		}
		if snap != nil {
			if _, err := h.Merge(snap); err != nil {
				metrics.ReportSubsystem("persistence", false, err.Error())
				return fmt.Errorf("boltsnap: merging snapshot on init: %w", err)
			}
		}
	}
	metrics.ReportSubsystem("persistence", true, "ready")

	if p.pollInterval > 0 {
		p.stopPoll = make(chan struct{})
		p.pollDone = make(chan struct{})
		go p.pollLoop()
	}
	return nil
}

func (p *Plugin) onDispose(h store.Handle) error {
	if p.stopPoll != nil {
		close(p.stopPoll)
		<-p.pollDone
	}

	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()

	// Always flush on dispose, not just when pending is still true: an
	// undebounced flush races a detached goroutine against this very
	// call, and losing that race must never mean losing the write.
	// flushNow is idempotent, so a redundant flush here is harmless.
	if err := p.flushNow(); err != nil {
		return err
	}
	return p.db.Close()
}

func (p *Plugin) pollLoop() {
	defer close(p.pollDone)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap, err := p.load()
			if err != nil {
				p.logger.Error().Err(err).Msg("boltsnap poll: loading snapshot failed")
				continue
			}
			if snap == nil {
				continue
			}
			p.mu.Lock()
			h := p.handle
			p.mu.Unlock()
			if h == nil {
				continue
			}
			if _, err := h.Merge(snap); err != nil {
				p.logger.Error().Err(err).Msg("boltsnap poll: merge failed")
			}
		case <-p.stopPoll:
			return
		}
	}
}

// scheduleFlush is called synchronously from the commit path. It only
// schedules the write: the debounce timer (or, with no debounce, a
// detached goroutine) performs the actual bbolt I/O off that path, so the
// commit path itself never suspends on disk I/O.
func (p *Plugin) scheduleFlush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = true
	if p.debounce <= 0 {
		go func() { _ = p.flushNow() }()
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, func() { _ = p.flushNow() })
}

func (p *Plugin) flushNow() error {
	p.mu.Lock()
	if p.skip != nil && p.skip() {
		p.mu.Unlock()
		return nil
	}
	h := p.handle
	p.pending = false
	p.mu.Unlock()

	if h == nil {
		return nil
	}

	snap := h.Collection()
	if p.onBeforeSet != nil {
		snap = p.onBeforeSet(snap)
	}

	timer := metrics.NewTimer()
	err := p.persist(snap)
	timer.ObserveDuration(metrics.PersistenceFlushDuration)

	if err != nil {
		metrics.PersistenceFlushesTotal.WithLabelValues("error").Inc()
		metrics.ReportSubsystem("persistence", false, err.Error())
		return err
	}
	metrics.PersistenceFlushesTotal.WithLabelValues("ok").Inc()
	metrics.ReportSubsystem("persistence", true, "ready")
	return nil
}

func (p *Plugin) persist(snap *collection.Collection) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("boltsnap: marshaling snapshot: %w", err)
	}

	return p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		return b.Put(keySnapshot, data)
	})
}

func (p *Plugin) load() (*collection.Collection, error) {
	var data []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		v := b.Get(keySnapshot)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("boltsnap: reading snapshot: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var snap collection.Collection
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("boltsnap: unmarshaling snapshot: %w", err)
	}
	if p.onAfterGet != nil {
		return p.onAfterGet(&snap), nil
	}
	return &snap, nil
}
