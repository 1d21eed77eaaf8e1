package httpsnap

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/driftdb/pkg/log"
	"github.com/cuemby/driftdb/pkg/metrics"
	"github.com/cuemby/driftdb/pkg/store"
)

// Option customizes a Plugin.
type Option func(*Plugin)

// WithRequestTimeout bounds each individual pull request. Defaults
// to 10s.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Plugin) { p.timeout = d }
}

// Plugin is a store.Plugin that polls a fixed set of peers on an
// interval, pulling each one's snapshot and merging it into the local
// store. It is the automatic counterpart to driftd's one-shot `pull`
// subcommand, which drives a Client directly instead.
type Plugin struct {
	peers        []string
	pollInterval time.Duration
	timeout      time.Duration

	mu      sync.Mutex
	handle  store.Handle
	clients map[string]*Client

	stop chan struct{}
	done chan struct{}

	logger zerolog.Logger
}

// NewPlugin returns a Plugin that polls peers every pollInterval.
func NewPlugin(peers []string, pollInterval time.Duration, opts ...Option) *Plugin {
	p := &Plugin{
		peers:        peers,
		pollInterval: pollInterval,
		timeout:      10 * time.Second,
		clients:      make(map[string]*Client, len(peers)),
		logger:       log.WithComponent("httpsnap"),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, addr := range peers {
		p.clients[addr] = NewClient(addr, p.timeout)
	}
	return p
}

// Name implements store.Plugin.
func (p *Plugin) Name() string { return "httpsnap" }

// Hooks implements store.Plugin. Sync has nothing to react to on the
// commit path itself; it only polls.
func (p *Plugin) Hooks() store.Hooks {
	return store.Hooks{
		OnInit:    p.onInit,
		OnDispose: p.onDispose,
	}
}

// Methods implements store.Plugin, attaching a manual pull-all-peers-now
// in addition to the automatic poll loop.
func (p *Plugin) Methods(h store.Handle) map[string]any {
	return map[string]any{
		"httpsnap.PullAll": func(ctx context.Context) error { return p.pullAll(ctx) },
	}
}

func (p *Plugin) onInit(h store.Handle) error {
	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()

	if p.pollInterval <= 0 || len(p.peers) == 0 {
		return nil
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.pollLoop()
	return nil
}

func (p *Plugin) onDispose(h store.Handle) error {
	if p.stop != nil {
		close(p.stop)
		<-p.done
	}
	return nil
}

func (p *Plugin) pollLoop() {
	defer close(p.done)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := p.pullAll(ctx); err != nil {
				p.logger.Error().Err(err).Msg("httpsnap poll: pulling peers failed")
			}
			cancel()
		case <-p.stop:
			return
		}
	}
}

func (p *Plugin) pullAll(ctx context.Context) error {
	p.mu.Lock()
	h := p.handle
	p.mu.Unlock()
	if h == nil {
		return nil
	}

	var firstErr error
	for addr, client := range p.clients {
		snapshot, err := client.Pull(ctx)
		if err != nil {
			p.logger.Error().Err(err).Str("peer", addr).Msg("pull failed")
			metrics.SyncPullsTotal.WithLabelValues("error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := h.Merge(snapshot); err != nil {
			p.logger.Error().Err(err).Str("peer", addr).Msg("merge failed")
			metrics.SyncPullsTotal.WithLabelValues("error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.SyncPullsTotal.WithLabelValues("ok").Inc()
	}

	if firstErr != nil {
		metrics.ReportSubsystem("sync", false, firstErr.Error())
	} else {
		metrics.ReportSubsystem("sync", true, "ready")
	}
	return firstErr
}
