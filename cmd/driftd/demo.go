package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/driftdb/pkg/query"
	"github.com/cuemby/driftdb/pkg/store"
)

// demoCmd is a self-contained, in-memory walkthrough of the core API: it
// never touches a data directory or the network, and exists purely to
// show Store, Query, and reactivity working together end to end.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an in-memory walkthrough of the Store and Query Engine",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	s := store.New()

	incomplete := query.New(s, query.Config[string]{
		Where:  func(v map[string]any) bool { return v["completed"] != true },
		Select: func(v map[string]any) string { return v["text"].(string) },
	})
	defer incomplete.Dispose()

	unsubscribe := incomplete.OnChange(func() {
		fmt.Println("incomplete tasks changed:")
		for _, r := range incomplete.Results() {
			fmt.Printf("  - %s\n", r.Value)
		}
	})
	defer unsubscribe()

	fmt.Println("adding three tasks...")
	if _, err := s.Add(map[string]any{"text": "write the merge algorithm", "completed": false}, store.WithID("t1")); err != nil {
		return err
	}
	if _, err := s.Add(map[string]any{"text": "wire up the query engine", "completed": false}, store.WithID("t2")); err != nil {
		return err
	}
	if _, err := s.Add(map[string]any{"text": "ship it", "completed": false}, store.WithID("t3")); err != nil {
		return err
	}

	fmt.Println("\ncompleting t1...")
	if err := s.Update("t1", map[string]any{"completed": true}); err != nil {
		return err
	}

	fmt.Println("\ndeleting t2...")
	if err := s.Del("t2"); err != nil {
		return err
	}

	fmt.Println("\nfinal query results (should be just t3):")
	for _, r := range incomplete.Results() {
		fmt.Printf("  - %s\n", r.Value)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
