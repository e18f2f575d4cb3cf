package config

import "errors"

// ErrBadConfiguration is returned by Load when a required key is missing,
// has the wrong type, or fails a schema-level validation rule. It is
// startup-fatal. ErrBadConfiguration may be wrapped and must be tested for
// with errors.Is.
var ErrBadConfiguration = errors.New("bad configuration")
