/*
Package httpsnap synchronizes two stores over plain net/http by
exchanging whole collection.Collection snapshots. See DESIGN.md for why
a generated RPC transport was not used here instead.

Server exposes a store over HTTP:

	srv := httpsnap.NewServer(s)
	http.Handle("/snapshot", srv)
	http.ListenAndServe(":7070", nil)

Client pulls or pushes a peer's snapshot directly, used by driftd's
one-shot `pull <peer-addr>` subcommand:

	client := httpsnap.NewClient("10.0.0.2:7070", 10*time.Second)
	snapshot, err := client.Pull(ctx)
	changes, err := s.Merge(snapshot)

Plugin automates this on an interval for a fixed peer list, registering
like any other store.Plugin:

	p := httpsnap.NewPlugin([]string{"10.0.0.2:7070", "10.0.0.3:7070"}, 5*time.Second)
	s.Use(p)
	s.Init()
	defer s.Dispose()

It attaches "httpsnap.PullAll" to the store's method table for callers
that want to force an immediate round outside the poll interval.
*/
package httpsnap
