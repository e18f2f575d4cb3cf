package fakednsproxy

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constcast/fakednsproxy/answer"
	"github.com/constcast/fakednsproxy/dispatch"
	"github.com/constcast/fakednsproxy/policy"
)

// TestUpstream is a zone-backed fake upstream resolver, adapted from the
// teacher's NewTestServer: instead of answering recursively, it's a single
// authoritative-looking server the dispatcher's Forward action can target,
// so package dispatch's Client is exercised against a real dns.Server
// rather than a mock.
type TestUpstream struct {
	db map[uint16]map[string][]dns.RR
	dns.Server
}

// NewTestUpstream returns a running UDP server seeded with zone, an RFC
// 1035 style zonefile. It listens on an OS-assigned port on 127.0.0.1 and
// is shut down automatically when the test finishes.
func NewTestUpstream(t *testing.T, zone string) *TestUpstream {
	t.Helper()

	ts := &TestUpstream{db: map[uint16]map[string][]dns.RR{}}

	zp := dns.NewZoneParser(strings.NewReader(strings.TrimSpace(zone)+"\n"), ".", "test.zone")
	zp.SetIncludeAllowed(false)

	for {
		rr, ok := zp.Next()
		if !ok {
			break
		}
		hdr := rr.Header()
		if ts.db[hdr.Rrtype] == nil {
			ts.db[hdr.Rrtype] = map[string][]dns.RR{}
		}
		ts.db[hdr.Rrtype][hdr.Name] = append(ts.db[hdr.Rrtype][hdr.Name], rr)
	}
	require.NoError(t, zp.Err())

	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ts.Server = dns.Server{PacketConn: ln, Handler: dns.HandlerFunc(ts.serve)}

	t.Cleanup(func() { _ = ts.Shutdown() })
	go func() { _ = ts.ActivateAndServe() }()

	return ts
}

func (ts *TestUpstream) serve(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)

	if len(r.Question) != 1 {
		m.Rcode = dns.RcodeFormatError
		_ = w.WriteMsg(m)
		return
	}

	q := r.Question[0]
	m.Answer = ts.db[q.Qtype][q.Name]
	if len(m.Answer) == 0 {
		m.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(m)
}

// Addr returns the upstream's listening host and port, split for
// dispatch.NewClient.
func (ts *TestUpstream) Addr(t *testing.T) (host string, port int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ts.PacketConn.LocalAddr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

// newRunningServer starts srv on an OS-assigned 127.0.0.1 UDP port and
// returns its address, replacing the fixed addr:5354 the teacher's
// NewTestServer bound to (port 53/5354 isn't available to an unprivileged
// test process here).
func newRunningServer(t *testing.T, srv *Server) string {
	t.Helper()

	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv.dns.PacketConn = ln
	srv.dns.Addr = ""
	srv.dns.Handler = dns.HandlerFunc(srv.handle)

	t.Cleanup(func() { _ = srv.dns.Shutdown() })
	go func() { _ = srv.dns.ActivateAndServe() }()

	time.Sleep(50 * time.Millisecond)
	return ln.LocalAddr().String()
}

func queryOverUDP(t *testing.T, addr, name string, qtype uint16) *dns.Msg {
	t.Helper()
	c := new(dns.Client)
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	resp, _, err := c.ExchangeContext(context.Background(), m, addr)
	require.NoError(t, err)
	return resp
}

func TestServerForwardsToUpstream(t *testing.T) {
	upstream := NewTestUpstream(t, `
foobar.com. 60 IN A 1.2.3.4
`)
	host, port := upstream.Addr(t)

	client := dispatch.NewClient(host, port)
	tbl, err := policy.NewTable(nil, policy.NewForward(), nil)
	require.NoError(t, err)

	srv := New("127.0.0.1", 0, dispatch.NewDispatcher(tbl, client))
	addr := newRunningServer(t, srv)

	resp := queryOverUDP(t, addr, "foobar.com", dns.TypeA)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "1.2.3.4", resp.Answer[0].(*dns.A).A.String())
	assert.Equal(t, dns.RcodeSuccess, resp.Rcode)
}

func TestServerForwardEmptyUpstreamAnswerBecomesNXDomain(t *testing.T) {
	upstream := NewTestUpstream(t, `
known.test. 60 IN A 9.9.9.9
`)
	host, port := upstream.Addr(t)

	client := dispatch.NewClient(host, port)
	tbl, err := policy.NewTable(nil, policy.NewForward(), nil)
	require.NoError(t, err)

	srv := New("127.0.0.1", 0, dispatch.NewDispatcher(tbl, client))
	addr := newRunningServer(t, srv)

	resp := queryOverUDP(t, addr, "unknown.test", dns.TypeA)
	assert.Equal(t, dns.RcodeNameError, resp.Rcode)
}

func TestServerNXDomainPolicy(t *testing.T) {
	tbl, err := policy.NewTable(nil, policy.NewNXDomain(), nil)
	require.NoError(t, err)

	srv := New("127.0.0.1", 0, dispatch.NewDispatcher(tbl, nil))
	addr := newRunningServer(t, srv)

	resp := queryOverUDP(t, addr, "anything.test", dns.TypeA)
	assert.Equal(t, dns.RcodeNameError, resp.Rcode)
}

func TestServerCustomAnswerPolicy(t *testing.T) {
	spec, err := answer.New("127.0.0.1")
	require.NoError(t, err)

	tbl, err := policy.NewTable([]policy.Entry{
		{Pattern: "custom.test", Policy: policy.NewCustomAnswer(spec)},
	}, policy.NewNXDomain(), nil)
	require.NoError(t, err)

	srv := New("127.0.0.1", 0, dispatch.NewDispatcher(tbl, nil))
	addr := newRunningServer(t, srv)

	resp := queryOverUDP(t, addr, "custom.test", dns.TypeA)
	require.Len(t, resp.Answer, 1)
	assert.Equal(t, "127.0.0.1", resp.Answer[0].(*dns.A).A.String())
}

func TestRenderRR(t *testing.T) {
	rr, err := dns.NewRR("example.com. 0 IN A 9.9.9.9")
	require.NoError(t, err)
	assert.Equal(t, "A - example.com - 9.9.9.9", renderRR(rr))
}
