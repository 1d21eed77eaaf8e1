package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/driftdb/pkg/sync/httpsnap"
)

var pullCmd = &cobra.Command{
	Use:   "pull PEER-ADDR",
	Short: "Pull a peer's snapshot and merge it into the local data directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openLocalStore(cmd)
		if err != nil {
			return err
		}
		defer s.Dispose()

		client := httpsnap.NewClient(args[0], 10*time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		snapshot, err := client.Pull(ctx)
		if err != nil {
			return fmt.Errorf("pulling from %s: %v", args[0], err)
		}

		changes, err := s.Merge(snapshot)
		if err != nil {
			return fmt.Errorf("merging pulled snapshot: %v", err)
		}

		fmt.Printf("✓ pulled from %s: %d added, %d updated, %d deleted\n",
			args[0], len(changes.Added), len(changes.Updated), len(changes.Deleted))
		return nil
	},
}
