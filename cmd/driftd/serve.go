package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/driftdb/pkg/metrics"
	"github.com/cuemby/driftdb/pkg/notify"
	"github.com/cuemby/driftdb/pkg/persistence/boltsnap"
	"github.com/cuemby/driftdb/pkg/store"
	"github.com/cuemby/driftdb/pkg/sync/httpsnap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a long-lived driftd instance",
	Long: `serve opens (or creates) a bbolt data file, starts an HTTP snapshot
server, and exposes Prometheus metrics and health endpoints, all on the
same listen address.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringSlice("peers", nil, "Peer addresses to poll for snapshots (host:port, repeatable)")
	serveCmd.Flags().Int("poll-interval-ms", 0, "Peer poll interval in milliseconds (0 disables automatic polling)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %v", err)
	}

	s := store.New()

	persist, err := boltsnap.Open(cfg.DataDir, boltsnap.WithDebounce(time.Duration(cfg.DebounceMs)*time.Millisecond))
	if err != nil {
		return fmt.Errorf("opening persistence backend: %v", err)
	}
	if err := s.Use(persist); err != nil {
		return fmt.Errorf("registering persistence plugin: %v", err)
	}

	peers, _ := cmd.Flags().GetStringSlice("peers")
	if len(peers) == 0 {
		peers = cfg.Peers
	}
	pollMs := cfg.PollIntervalMs
	if cmd.Flags().Changed("poll-interval-ms") {
		pollMs, _ = cmd.Flags().GetInt("poll-interval-ms")
	}
	if len(peers) > 0 {
		syncPlugin := httpsnap.NewPlugin(peers, time.Duration(pollMs)*time.Millisecond)
		if err := s.Use(syncPlugin); err != nil {
			return fmt.Errorf("registering sync plugin: %v", err)
		}
	}

	if err := s.Use(notify.NewPlugin()); err != nil {
		return fmt.Errorf("registering notify plugin: %v", err)
	}

	if err := s.Init(); err != nil {
		return fmt.Errorf("initializing plugins: %v", err)
	}
	defer s.Dispose()

	collector := metrics.NewCollector(s)
	collector.Start()
	defer collector.Stop()

	metrics.ReportSubsystem("store", true, "ready")

	mux := http.NewServeMux()
	mux.Handle("/snapshot", httpsnap.NewServer(s))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("driftd listening on %s (data: %s)\n", cfg.Listen, cfg.DataDir)
		errCh <- http.ListenAndServe(cfg.Listen, mux)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		return fmt.Errorf("server error: %v", err)
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}
