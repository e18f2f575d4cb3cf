package synth

import "errors"

// ErrUnsupportedQueryType is returned by Synthesize when the numeric query
// type is not one github.com/miekg/dns can name, i.e. it is not a query
// type at all. It is per-query fatal and should be reported to the client
// as SERVFAIL. ErrUnsupportedQueryType may be wrapped and must be tested
// for with errors.Is.
var ErrUnsupportedQueryType = errors.New("unsupported query type")

// ErrUnsupportedRecordType is returned by Synthesize when an answer.Spec
// references a recognized DNS type tag that this synthesizer does not yet
// build records for. It is per-query fatal.
var ErrUnsupportedRecordType = errors.New("unsupported record type")

// ErrMalformedRecordValue is returned by Synthesize when a value in an
// answer.Spec's value list cannot be parsed into the payload its tag
// requires (for instance, a non-IPv4 string under "A"). It is per-query
// fatal.
var ErrMalformedRecordValue = errors.New("malformed record value")
