// Package synth implements the Record Synthesizer (spec.md §4.2): turning a
// query (name, qtype) and an answer.Spec into zero or more wire resource
// records.
package synth

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/constcast/fakednsproxy/answer"
)

// ttl is the TTL applied to every synthesized record, per spec.md §4.2 step
// 4 ("a TTL of 0, or a configured constant"). This rewrite does not expose
// it as a configuration key -- the config schema in spec.md §6 has no slot
// for it -- so it is the constant zero the spec allows.
const ttl = 0

type builder func(hdr dns.RR_Header, value string) (dns.RR, error)

// builders lists the record types this synthesizer knows how to build, per
// spec.md §6: "Supported query types in synthesis paths: at minimum A,
// AAAA, MX, NS". A tag not in this table, even if it is a perfectly valid
// DNS type and present in spec, yields UnsupportedRecordType.
var builders = map[string]builder{
	"A":    buildA,
	"AAAA": buildAAAA,
	"MX":   buildMX,
	"NS":   buildNS,
}

// Synthesize returns the ordered list of RRs for query (name, qtype) given
// spec.
//
// If qtype is not a type github.com/miekg/dns knows the string tag for, it
// fails with ErrUnsupportedQueryType. If the tag is absent from spec, or its
// value list is empty, Synthesize returns a nil list and no error -- a
// legitimate "no records of this type" outcome that the Response Finalizer
// turns into NXDOMAIN. If the tag is present but this synthesizer does not
// build that type of record, it fails with ErrUnsupportedRecordType.
func Synthesize(name string, qtype uint16, spec answer.Spec) ([]dns.RR, error) {
	tag, ok := dns.TypeToString[qtype]
	if !ok {
		return nil, fmt.Errorf("%w: query type %d", ErrUnsupportedQueryType, qtype)
	}

	values := spec[tag]
	if len(values) == 0 {
		return nil, nil
	}

	build, ok := builders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRecordType, tag)
	}

	hdr := dns.RR_Header{
		Name:   dns.Fqdn(name),
		Rrtype: qtype,
		Class:  dns.ClassINET,
		Ttl:    ttl,
	}

	rrs := make([]dns.RR, 0, len(values))
	for _, v := range values {
		rr, err := build(hdr, v)
		if err != nil {
			return nil, err
		}
		rrs = append(rrs, rr)
	}

	return rrs, nil
}

func buildA(hdr dns.RR_Header, value string) (dns.RR, error) {
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: %q is not an IPv4 address", ErrMalformedRecordValue, value)
	}
	return &dns.A{Hdr: hdr, A: ip.To4()}, nil
}

func buildAAAA(hdr dns.RR_Header, value string) (dns.RR, error) {
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() != nil {
		return nil, fmt.Errorf("%w: %q is not an IPv6 address", ErrMalformedRecordValue, value)
	}
	return &dns.AAAA{Hdr: hdr, AAAA: ip.To16()}, nil
}

// buildMX builds an MX record. The value is ordinarily just the mail
// exchanger's domain name, in which case the preference defaults to 0, per
// spec.md §4.2 step 3. A value of the form "<preference> <exchange>" (for
// instance "10 mail.example.com") sets the preference explicitly.
func buildMX(hdr dns.RR_Header, value string) (dns.RR, error) {
	exchange := value
	var preference uint16

	if fields := strings.Fields(value); len(fields) == 2 {
		if n, err := strconv.ParseUint(fields[0], 10, 16); err == nil {
			preference = uint16(n)
			exchange = fields[1]
		}
	}

	if exchange == "" {
		return nil, fmt.Errorf("%w: empty MX exchange", ErrMalformedRecordValue)
	}

	return &dns.MX{Hdr: hdr, Preference: preference, Mx: dns.Fqdn(exchange)}, nil
}

func buildNS(hdr dns.RR_Header, value string) (dns.RR, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: empty NS target", ErrMalformedRecordValue)
	}
	return &dns.NS{Hdr: hdr, Ns: dns.Fqdn(value)}, nil
}
