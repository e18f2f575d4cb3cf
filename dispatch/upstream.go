package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/miekg/dns"
)

// Upstream forwards a query to a single configured resolver and returns its
// response, honoring ctx's deadline. It is the interface the Dispatcher's
// Forward action uses; all paths see the same "produce a response" contract
// regardless of whether the answer came from the network or was
// synthesized locally (spec.md §4.5, §9 "Deferred/future values").
type Upstream interface {
	Query(ctx context.Context, q dns.Question) (*dns.Msg, error)
}

// Client is the Upstream Client (spec.md §4.5): a thin wrapper around a
// single configured resolver address, reusing github.com/miekg/dns's own
// client machinery exactly as resolver.go's doQuery does
// (c.ExchangeContext(ctx, m, addr)).
type Client struct {
	addr string
	dns  *dns.Client
}

var _ Upstream = (*Client)(nil)

// NewClient returns a Client that forwards queries to ip:port over UDP.
func NewClient(ip string, port int) *Client {
	return &Client{
		addr: net.JoinHostPort(ip, strconv.Itoa(port)),
		dns:  &dns.Client{Net: "udp"},
	}
}

// Query sends q to the configured upstream and returns its response.
// Network errors are classified into ErrUpstreamTimeout or
// ErrUpstreamRefused; the upstream's own rcode (including error rcodes
// like SERVFAIL) is returned unchanged as part of the response message, per
// spec.md §4.3's "Forward-path failures ... surface the upstream's error
// code unchanged."
func (c *Client) Query(ctx context.Context, q dns.Question) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(q.Name, q.Qtype)
	m.Question[0].Qclass = q.Qclass
	m.RecursionDesired = true

	resp, _, err := c.dns.ExchangeContext(ctx, m, c.addr)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRefused, err)
	}

	return resp, nil
}
