package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/driftdb/pkg/config"
)

// loadConfig reads the --config file (or $DRIFTD_CONFIG, the default set
// on the flag) and overlays any persistent flag the caller actually
// passed, so precedence is flag > file > built-in default.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("data") {
		cfg.DataDir, _ = cmd.Flags().GetString("data")
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen, _ = cmd.Flags().GetString("listen")
	}
	return cfg, nil
}
