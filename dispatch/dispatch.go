// Package dispatch implements the Dispatcher, Response Finalizer and
// Upstream Client (spec.md §4.3-§4.5): the component that turns a classified
// Policy into a finished wire response.
package dispatch

import (
	"context"
	"time"

	"github.com/miekg/dns"

	"github.com/constcast/fakednsproxy/answer"
	"github.com/constcast/fakednsproxy/policy"
	"github.com/constcast/fakednsproxy/synth"
)

// Dispatcher resolves one incoming query to a finished response, using a
// Table to classify the query name and an Upstream to forward queries the
// table sends onward. A Dispatcher is immutable after construction and safe
// for concurrent use by many goroutines, one per in-flight query, matching
// spec.md §5's concurrency model.
type Dispatcher struct {
	Table    *policy.Table
	Upstream Upstream
}

// NewDispatcher returns a Dispatcher backed by table and upstream.
func NewDispatcher(table *policy.Table, upstream Upstream) *Dispatcher {
	return &Dispatcher{Table: table, Upstream: upstream}
}

// classify resolves a question name to a Policy, falling back to the
// table's DefaultPolicy when no rule matches -- the three-valued
// Match/NoMatch/Error discipline from spec.md §9, expressed here as a plain
// Policy with no error, since classification itself cannot fail once a
// Table has been validated by policy.NewTable.
func (d *Dispatcher) classify(name string) policy.Policy {
	if p, ok := d.Table.Match(name); ok {
		return p
	}
	return d.Table.DefaultPolicy
}

// Dispatch resolves req and returns the finished response to write back to
// the client. It never returns a nil message: any internal failure is
// reported as a SERVFAIL response rather than a Go error, since by this
// point there is always a client waiting on a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, req *dns.Msg, timeout time.Duration) *dns.Msg {
	if len(req.Question) != 1 {
		return ServerFailure(req)
	}
	q := req.Question[0]
	name := q.Name

	p := d.classify(name)

	switch p.Kind {
	case policy.Forward:
		return d.dispatchForward(ctx, req, q, timeout)
	case policy.NXDomain:
		return Finalize(req, nil, nil, nil, dns.RcodeNameError)
	case policy.DefaultValue:
		return d.dispatchSynthesize(req, q, d.Table.DefaultAnswer)
	case policy.CustomAnswer:
		return d.dispatchSynthesize(req, q, p.Answer)
	default:
		return ServerFailure(req)
	}
}

func (d *Dispatcher) dispatchForward(ctx context.Context, req *dns.Msg, q dns.Question, timeout time.Duration) *dns.Msg {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.Upstream.Query(ctx, q)
	if err != nil {
		return ServerFailure(req)
	}

	return Finalize(req, resp.Answer, resp.Ns, resp.Extra, resp.Rcode)
}

func (d *Dispatcher) dispatchSynthesize(req *dns.Msg, q dns.Question, spec answer.Spec) *dns.Msg {
	rrs, err := synth.Synthesize(q.Name, q.Qtype, spec)
	if err != nil {
		return ServerFailure(req)
	}
	return Finalize(req, rrs, nil, nil, dns.RcodeSuccess)
}
