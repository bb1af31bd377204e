// Package probe performs a single bounded reachability check of the
// configured public host. This is part of the Imperative Shell. The result
// is advisory only: DNS propagation delay is expected right after a host is
// registered, so a failed probe never blocks a deployment.
package probe

import (
	"context"
	"net"
	"time"
)

// DefaultTimeout bounds the whole probe.
const DefaultTimeout = 3 * time.Second

// Result is the outcome of one reachability probe.
type Result struct {
	Host      string
	Resolved  bool     // DNS resolution produced at least one address
	Addresses []string // resolved addresses, when any
	Dialed    bool     // a TCP connection to the HTTPS port succeeded
	Err       string   // resolution error text, when resolution failed
}

// Resolver is the lookup operation the prober needs; *net.Resolver
// satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Dialer is the dial operation the prober needs; *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober checks whether a host resolves and answers.
type Prober struct {
	resolver Resolver
	dialer   Dialer
	timeout  time.Duration
}

// NewProber creates a Prober with the default resolver and timeout.
func NewProber() *Prober {
	return NewProberWith(net.DefaultResolver, &net.Dialer{}, DefaultTimeout)
}

// NewProberWith creates a Prober with an explicit resolver and dialer.
// A non-positive timeout falls back to DefaultTimeout.
func NewProberWith(resolver Resolver, dialer Dialer, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		resolver: resolver,
		dialer:   dialer,
		timeout:  timeout,
	}
}

// Check resolves host and, when resolution succeeds, attempts one TCP dial
// to its HTTPS port. Both steps share a single timeout.
func (p *Prober) Check(ctx context.Context, host string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := Result{Host: host}

	ips, err := p.resolver.LookupIPAddr(ctx, host)
	if err != nil || len(ips) == 0 {
		if err != nil {
			result.Err = err.Error()
		} else {
			result.Err = "no addresses found for " + host
		}
		return result
	}

	result.Resolved = true
	for _, ip := range ips {
		result.Addresses = append(result.Addresses, ip.String())
	}

	// Best effort; an unreachable port is still only a warning upstream.
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err == nil {
		conn.Close()
		result.Dialed = true
	}

	return result
}
