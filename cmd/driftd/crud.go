package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/driftdb/pkg/persistence/boltsnap"
	"github.com/cuemby/driftdb/pkg/store"
)

// openLocalStore opens a store backed by the configured data directory's
// bbolt file, loading whatever snapshot is already there. Callers must
// Dispose it, which flushes any pending write.
func openLocalStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %v", err)
	}

	persist, err := boltsnap.Open(cfg.DataDir, boltsnap.WithDebounce(0))
	if err != nil {
		return nil, fmt.Errorf("opening data directory %s: %v", cfg.DataDir, err)
	}

	s := store.New()
	if err := s.Use(persist); err != nil {
		return nil, fmt.Errorf("registering persistence plugin: %v", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("loading existing data: %v", err)
	}
	return s, nil
}

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a document by id as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openLocalStore(cmd)
		if err != nil {
			return err
		}
		defer s.Dispose()

		v, ok := s.Get(args[0])
		if !ok {
			return fmt.Errorf("no document with id %q", args[0])
		}
		return printJSON(v)
	},
}

var addCmd = &cobra.Command{
	Use:   "add JSON",
	Short: "Add a new document from a JSON object, printing its generated id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value map[string]any
		if err := json.Unmarshal([]byte(args[0]), &value); err != nil {
			return fmt.Errorf("parsing JSON argument: %v", err)
		}

		s, err := openLocalStore(cmd)
		if err != nil {
			return err
		}
		defer s.Dispose()

		id, _ := cmd.Flags().GetString("id")
		var opts []store.AddOption
		if id != "" {
			opts = append(opts, store.WithID(id))
		}

		newID, err := s.Add(value, opts...)
		if err != nil {
			return fmt.Errorf("adding document: %v", err)
		}
		fmt.Println(newID)
		return nil
	},
}

func init() {
	addCmd.Flags().String("id", "", "Use this id instead of generating one")
}

var updateCmd = &cobra.Command{
	Use:   "update ID JSON",
	Short: "Merge a partial JSON object into an existing document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var partial map[string]any
		if err := json.Unmarshal([]byte(args[1]), &partial); err != nil {
			return fmt.Errorf("parsing JSON argument: %v", err)
		}

		s, err := openLocalStore(cmd)
		if err != nil {
			return err
		}
		defer s.Dispose()

		if err := s.Update(args[0], partial); err != nil {
			return fmt.Errorf("updating document: %v", err)
		}
		fmt.Printf("✓ updated %s\n", args[0])
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del ID",
	Short: "Tombstone a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openLocalStore(cmd)
		if err != nil {
			return err
		}
		defer s.Dispose()

		if err := s.Del(args[0]); err != nil {
			return fmt.Errorf("deleting document: %v", err)
		}
		fmt.Printf("✓ deleted %s\n", args[0])
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %v", err)
	}
	fmt.Println(string(data))
	return nil
}
