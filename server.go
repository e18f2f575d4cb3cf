// Package fakednsproxy wires the Policy Table, Dispatcher and Upstream
// Client into a UDP DNS server, following the teacher's
// dns.Server{PacketConn: ..., Handler: ...} / ActivateAndServe wiring
// (server_test.go's NewTestServer).
package fakednsproxy

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"

	"github.com/constcast/fakednsproxy/dispatch"
	"github.com/constcast/fakednsproxy/internal/log"
)

// DefaultUpstreamTimeout bounds how long the dispatcher waits for an
// upstream reply before giving up and answering SERVFAIL.
const DefaultUpstreamTimeout = 5 * time.Second

// Server answers DNS queries over UDP by delegating to a dispatch.Dispatcher
// and logging one line per processed query (spec.md §6, "Log format").
type Server struct {
	Dispatcher *dispatch.Dispatcher
	Timeout    time.Duration

	logger zerolog.Logger
	dns    *dns.Server
}

// New returns a Server that will listen on addr:port/udp once Run is
// called.
func New(ip string, port int, dispatcher *dispatch.Dispatcher) *Server {
	return &Server{
		Dispatcher: dispatcher,
		Timeout:    DefaultUpstreamTimeout,
		logger:     log.WithComponent("server"),
		dns: &dns.Server{
			Addr: net.JoinHostPort(ip, strconv.Itoa(port)),
			Net:  "udp",
		},
	}
}

// Run starts serving and blocks until ctx is canceled, at which point it
// shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.dns.Handler = dns.HandlerFunc(s.handle)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dns.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.dns.ShutdownContext(shutdownCtx)
	}
}

func (s *Server) handle(w dns.ResponseWriter, req *dns.Msg) {
	resp := s.Dispatcher.Dispatch(context.Background(), req, s.Timeout)

	if err := w.WriteMsg(resp); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}

	s.logQuery(w.RemoteAddr(), req, resp)
}

// logQuery emits the one-line-per-query record spec.md §6 requires: client
// address, query type and name, and either the rendered answer records or
// the literal string "NXDomain" -- following the original's
// getAnswerDNSLogging rendering (dotted-quad for A, inet_ntop-equivalent
// for AAAA, a generic fallback otherwise), emitted after the response is
// sent.
func (s *Server) logQuery(client net.Addr, req *dns.Msg, resp *dns.Msg) {
	if len(req.Question) != 1 {
		return
	}
	q := req.Question[0]
	qtype := dns.TypeToString[q.Qtype]

	evt := s.logger.Info().
		Str("client", client.String()).
		Str("qtype", qtype).
		Str("qname", strings.TrimSuffix(q.Name, "."))

	if resp.Rcode == dns.RcodeNameError || len(resp.Answer) == 0 {
		evt.Msg("NXDomain")
		return
	}

	values := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		values = append(values, renderRR(rr))
	}
	evt.Strs("answers", values).Msg(strings.Join(values, ", "))
}

// renderRR formats one synthesized or forwarded record as "type - name -
// value", falling back to the RR's own presentation-format text (rr.String()
// with the header stripped) when it is a type this rewrite has no custom
// renderer for.
func renderRR(rr dns.RR) string {
	hdr := rr.Header()
	name := strings.TrimSuffix(hdr.Name, ".")
	rtype := dns.TypeToString[hdr.Rrtype]

	var value string
	switch v := rr.(type) {
	case *dns.A:
		value = v.A.String()
	case *dns.AAAA:
		value = v.AAAA.String()
	case *dns.MX:
		value = strings.TrimSuffix(v.Mx, ".")
	case *dns.NS:
		value = strings.TrimSuffix(v.Ns, ".")
	default:
		value = strings.TrimPrefix(rr.String(), hdr.String())
	}

	return rtype + " - " + name + " - " + value
}
