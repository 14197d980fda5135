package transport

import (
	"context"
	"time"
)

// Link reports whether the node's network link is associated
type Link interface {
	Associated() bool
}

// Resolver resolves a host name
type Resolver interface {
	Resolve(ctx context.Context, host string) error
}

// Client performs HTTP requests and returns the status code and body.
// A non-nil error means no response was received.
type Client interface {
	Get(ctx context.Context, url string, timeout time.Duration) (int, []byte, error)
	Post(ctx context.Context, url string, headers map[string]string, body []byte) (int, []byte, error)
}
