/*
Package boltsnap is a store.Plugin that persists a Store's whole
collection.Collection to a single go.etcd.io/bbolt bucket under one key,
since the unit of persistence is the whole snapshot rather than
individual typed records.

Usage:

	p, err := boltsnap.Open("/var/lib/driftd", boltsnap.WithDebounce(200*time.Millisecond))
	if err != nil {
		log.Fatal(err)
	}
	s := store.New()
	if err := s.Use(p); err != nil {
		log.Fatal(err)
	}
	if err := s.Init(); err != nil { // loads any snapshot already on disk
		log.Fatal(err)
	}
	defer s.Dispose() // flushes any pending write before closing the db

Every mutation batch schedules a flush of store.Collection() to disk,
debounced by WithDebounce to collapse bursts. WithPollInterval additionally
reloads the backend on a ticker and merges it in, for the case where
another process (or a restore from backup) writes to the same file.
WithOnBeforeSet/WithOnAfterGet let a caller transform the collection
immediately around each write/read; WithSkip installs a predicate that can
veto an individual flush; the next mutation schedules another attempt, and
Dispose always flushes.

The plugin also attaches "boltsnap.Flush" to the store's method table, for
callers that want to force an immediate flush outside the debounce window:

	flush, _ := store.Method[func() error](s, "boltsnap.Flush")
	_ = flush()
*/
package boltsnap
