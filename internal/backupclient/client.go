// Package backupclient talks to the pgbackup sidecar that dumps and restores the portal database.
package backupclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultURL = "http://pgbackup:8081"

type Client struct {
	base string
	http *http.Client
}

// New returns a client for the sidecar at base ("" → DefaultURL).
func New(base string) *Client {
	if base == "" {
		base = DefaultURL
	}
	return &Client{base: strings.TrimRight(base, "/"), http: &http.Client{}}
}

// Trigger starts a dump and returns the path of the file the sidecar wrote.
func (c *Client) Trigger(ctx context.Context) (string, error) {
	return c.do(ctx, "/cgi-bin/backup", 2*time.Minute)
}

// RestoreLatest restores the newest dump and returns its path.
func (c *Client) RestoreLatest(ctx context.Context) (string, error) {
	return c.do(ctx, "/cgi-bin/restore-latest", 5*time.Minute)
}

func (c *Client) do(ctx context.Context, path string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}
