package httpsnap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/driftdb/pkg/collection"
)

// Client pulls and pushes snapshots against a peer's Server.
type Client struct {
	addr string
	http *http.Client
}

// NewClient returns a Client targeting a peer at addr (e.g.
// "10.0.0.2:7070"), timing out individual requests after timeout.
func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		addr: addr,
		http: &http.Client{Timeout: timeout},
	}
}

// Pull fetches the peer's current snapshot.
func (c *Client) Pull(ctx context.Context) (*collection.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("httpsnap: building pull request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpsnap: pulling from %s: %w", c.addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpsnap: pull from %s returned status %d", c.addr, resp.StatusCode)
	}

	var snapshot collection.Collection
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("httpsnap: decoding pulled snapshot: %w", err)
	}
	return &snapshot, nil
}

// Push sends snapshot to the peer, which merges it into its own store.
func (c *Client) Push(ctx context.Context, snapshot *collection.Collection) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("httpsnap: marshaling snapshot to push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpsnap: building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpsnap: pushing to %s: %w", c.addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpsnap: push to %s returned status %d", c.addr, resp.StatusCode)
	}
	return nil
}

func (c *Client) url() string {
	return fmt.Sprintf("http://%s/snapshot", c.addr)
}
