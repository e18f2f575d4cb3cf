package answer

import "errors"

// ErrBadAnswerValue is returned by New when the surface input cannot be
// classified as an IPv4 literal, an IPv6 literal, a reserved policy keyword,
// or a valid DNS type tag. It is startup-fatal: the caller should abort
// configuration loading. ErrBadAnswerValue may be wrapped and must be
// tested for with errors.Is.
var ErrBadAnswerValue = errors.New("not a valid answer value")
