// Package answer implements the per-name response payload (spec §3's
// AnswerSpec): a mapping from DNS record-type tag to an ordered list of
// type-appropriate values, built from the three surface forms a
// configuration file may use.
package answer

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// Reserved policy keywords. A bare string equal to one of these is "sugar"
// for a rule whose action is a keyword rather than answer data; it is
// stored under the pseudo-tag Keyword.
const (
	KeywordForward      = "forward"
	KeywordNXDomain     = "nxdomain"
	KeywordDefaultValue = "default_value"
)

// Keyword is the pseudo-tag under which a bare policy keyword is stored when
// Spec is constructed from such a string. Nothing in the dispatch engine
// reads this tag; callers that need to distinguish a keyword rule from an
// answer-data rule should do so before calling New, not after.
const Keyword = "*"

var keywords = map[string]bool{
	KeywordForward:      true,
	KeywordNXDomain:     true,
	KeywordDefaultValue: true,
}

// IsKeyword reports whether s is one of the reserved policy keywords.
func IsKeyword(s string) bool {
	return keywords[s]
}

// Spec is the canonical per-name answer payload: record-type tag (such as
// "A", "AAAA", "MX", "NS") to an ordered, non-empty list of values.
type Spec map[string][]string

// New builds a Spec from one of the three surface forms a configuration file
// may use:
//
//   - a string, classified as an IPv4 literal, an IPv6 literal, or a reserved
//     policy keyword;
//   - a list, whose elements are each classified as IPv4 or IPv6 literals
//     (order preserved within each resulting tag);
//   - a map, whose keys must be recognized DNS type tags and whose values
//     are coerced to a one-element list when scalar.
//
// Any other input, or a string that matches none of the above, is a
// BadAnswerValue error.
func New(value interface{}) (Spec, error) {
	switch v := value.(type) {
	case string:
		return fromString(v)
	case []string:
		return fromList(toAnySlice(v))
	case []interface{}:
		return fromList(v)
	case map[string]interface{}:
		return fromMap(v)
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: map key %v is not a string", ErrBadAnswerValue, k)
			}
			m[ks] = val
		}
		return fromMap(m)
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrBadAnswerValue, value)
	}
}

func toAnySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func fromString(s string) (Spec, error) {
	switch {
	case IsIPv4(s):
		return Spec{"A": {s}}, nil
	case IsIPv6(s):
		return Spec{"AAAA": {s}}, nil
	case IsKeyword(s):
		return Spec{Keyword: {s}}, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a valid IP address", ErrBadAnswerValue, s)
	}
}

func fromList(values []interface{}) (Spec, error) {
	spec := Spec{}
	for _, raw := range values {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a string", ErrBadAnswerValue, raw)
		}
		switch {
		case IsIPv4(s):
			spec["A"] = append(spec["A"], s)
		case IsIPv6(s):
			spec["AAAA"] = append(spec["AAAA"], s)
		default:
			return nil, fmt.Errorf("%w: %q is not a valid IP address", ErrBadAnswerValue, s)
		}
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrBadAnswerValue)
	}
	return spec, nil
}

func fromMap(values map[string]interface{}) (Spec, error) {
	spec := Spec{}
	for tag, raw := range values {
		canonical := strings.ToUpper(tag)
		if !isValidQueryType(canonical) {
			return nil, fmt.Errorf("%w: %q is not a valid query type", ErrBadAnswerValue, tag)
		}

		list, err := coerceList(raw)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: %q has no values", ErrBadAnswerValue, tag)
		}
		spec[canonical] = list
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: empty map", ErrBadAnswerValue)
	}
	return spec, nil
}

func coerceList(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %v is not a string", ErrBadAnswerValue, elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v is not a string or list of strings", ErrBadAnswerValue, raw)
	}
}

func isValidQueryType(tag string) bool {
	_, ok := dns.StringToType[tag]
	return ok
}

// IsIPv4 reports whether s parses as an IPv4 address literal.
func IsIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// IsIPv6 reports whether s parses as an IPv6 address literal (and is not
// also representable as IPv4).
func IsIPv6(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil
}
