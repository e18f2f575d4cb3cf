package dispatch

import "github.com/miekg/dns"

// Finalize implements the Response Finalizer (spec.md §4.4): it wraps a
// dispatcher-produced triple into a wire message addressed back to the
// client, with the message id, opcode, recursion-desired flag and question
// section copied from req (dns.Msg.SetReply does exactly this).
//
// The critical rule: whenever the resulting rcode would otherwise be
// NOERROR but the answer section is empty, the rcode is forced to NXDOMAIN.
// This applies uniformly to every path -- synthesized or forwarded -- which
// is why a non-empty upstream error rcode (SERVFAIL, REFUSED, ...) is left
// untouched: it is not NOERROR to begin with, so it is never reinterpreted
// as a true NXDOMAIN.
func Finalize(req *dns.Msg, answer, authority, additional []dns.RR, rcode int) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = false
	resp.Answer = answer
	resp.Ns = authority
	resp.Extra = additional
	resp.Rcode = rcode

	if resp.Rcode == dns.RcodeSuccess && len(resp.Answer) == 0 {
		resp.Rcode = dns.RcodeNameError
	}

	return resp
}

// ServerFailure builds a bare SERVFAIL response to req, used when dispatch
// fails fatally (classification/synthesis errors, or upstream transport
// failures that never produced a response to finalize).
func ServerFailure(req *dns.Msg) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Rcode = dns.RcodeServerFailure
	return resp
}
