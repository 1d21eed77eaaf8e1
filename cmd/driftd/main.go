package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/driftdb/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "driftd",
	Short: "driftd - a local-first, in-memory CRDT document store",
	Long: `driftd is a local-first document store: every replica keeps its
full working set in memory, merges concurrent edits deterministically via
field-level last-write-wins, and exposes a reactive query engine that
stays current as documents change.

Run "driftd serve" to start a long-lived instance with HTTP snapshot sync
and a bbolt-backed persistence plugin, or use the one-shot get/add/update/del
subcommands to script against a local data directory.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"driftd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", os.Getenv("DRIFTD_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().String("data", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().String("listen", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format (overrides config)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(pullCmd)
}

func initLogging() {
	cfg, _ := loadConfig(rootCmd)

	level := cfg.LogLevel
	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	jsonOut := cfg.LogJSON
	if rootCmd.PersistentFlags().Changed("log-json") {
		jsonOut, _ = rootCmd.PersistentFlags().GetBool("log-json")
	}

	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOut,
	})
}
