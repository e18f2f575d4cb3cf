package dispatch

import "errors"

// ErrUpstreamTimeout is returned by an Upstream's Query method when the
// caller's timeout elapses before a response arrives. It is surfaced to the
// client as SERVFAIL. ErrUpstreamTimeout may be wrapped and must be tested
// for with errors.Is.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// ErrUpstreamRefused is returned by an Upstream's Query method for any
// other transport-level failure (connection refused, network unreachable,
// malformed response). It is surfaced to the client as SERVFAIL.
var ErrUpstreamRefused = errors.New("upstream refused")

// ErrInternalInvariant names the condition of classification producing a
// Policy.Kind outside the four known kinds. Dispatch does not return Go
// errors: in that case it answers SERVFAIL, and this sentinel is not
// referenced by Dispatch. Because Kind is a closed Go enum populated only by
// the constructors in package policy, the condition is unreachable in
// practice (spec.md §4.3 step 5).
var ErrInternalInvariant = errors.New("internal invariant violated: unknown policy kind")
