package policy

import "errors"

// ErrBadConfiguration is returned by NewTable when the table itself violates
// an invariant (a DefaultValue default policy without a default answer, or
// an uncompilable pattern). It is startup-fatal. ErrBadConfiguration may be
// wrapped and must be tested for with errors.Is.
var ErrBadConfiguration = errors.New("bad policy table configuration")
