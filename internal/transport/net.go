package transport

import (
	"context"
	"net"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
)

const DefaultResolveTimeout = 2 * time.Second

// InterfaceLink checks the state of a network interface. With an empty name
// any non-loopback interface that is up and has an address counts.
type InterfaceLink struct {
	Name string
}

func (l InterfaceLink) Associated() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if l.Name != "" && iface.Name != l.Name {
			continue
		}
		if l.Name == "" && iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}

	return false
}

// NetResolver resolves names with a per-call timeout
type NetResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

func NewNetResolver(timeout time.Duration) *NetResolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}

	return &NetResolver{
		resolver: net.DefaultResolver,
		timeout:  timeout,
	}
}

func (r *NetResolver) Resolve(ctx context.Context, host string) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.resolver.LookupHost(ctx, host)
	if err != nil {
		return errFactory.Wrap(ErrResolveFailed, err)
	}
	if len(addrs) == 0 {
		return errFactory.WithData(ErrNoAddresses, host)
	}

	return nil
}

// WaitAssociated polls link until it is associated, ctx is done or limit
// elapses, and reports whether the link came up.
func WaitAssociated(ctx context.Context, link Link, poll, limit time.Duration) bool {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for !link.Associated() {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
		}
	}

	return true
}
