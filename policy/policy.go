// Package policy implements the Policy Table and Pattern Matcher: the
// insertion-ordered list of (pattern, action) rules a query name is matched
// against, plus the default policy and default answer that apply when no
// rule matches.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/constcast/fakednsproxy/answer"
)

// Kind is one of the four response disciplines a Policy may select.
type Kind int

const (
	// Forward proxies the query upstream.
	Forward Kind = iota
	// NXDomain responds with an empty answer/authority/additional section
	// and NXDOMAIN rcode.
	NXDomain
	// DefaultValue responds using the table's default answer spec.
	DefaultValue
	// CustomAnswer responds using the rule's own answer spec.
	CustomAnswer
)

func (k Kind) String() string {
	switch k {
	case Forward:
		return "forward"
	case NXDomain:
		return "nxdomain"
	case DefaultValue:
		return "default_value"
	case CustomAnswer:
		return "custom_value"
	default:
		return fmt.Sprintf("policy.Kind(%d)", int(k))
	}
}

// Policy is the tagged variant described in spec.md §9: a single type
// interpreted by one dispatch function, rather than a class hierarchy. Only
// CustomAnswer policies carry an Answer; it is the zero value otherwise.
type Policy struct {
	Kind   Kind
	Answer answer.Spec
}

// NewForward returns the Forward policy.
func NewForward() Policy { return Policy{Kind: Forward} }

// NewNXDomain returns the NXDomain policy.
func NewNXDomain() Policy { return Policy{Kind: NXDomain} }

// NewDefaultValue returns the DefaultValue policy.
func NewDefaultValue() Policy { return Policy{Kind: DefaultValue} }

// NewCustomAnswer returns a CustomAnswer policy carrying spec.
func NewCustomAnswer(spec answer.Spec) Policy {
	return Policy{Kind: CustomAnswer, Answer: spec}
}

// Entry is a single (pattern, policy) rule as it appears, in file order, in
// a configuration's domain_config mapping.
type Entry struct {
	Pattern string
	Policy  Policy
}

type rule struct {
	pattern string
	re      *regexp.Regexp
	policy  Policy
}

// Table is the ordered rule list plus the default policy and, if
// DefaultPolicy.Kind == DefaultValue, the default answer spec. A Table is
// built once at startup and is safe for concurrent read-only use by many
// goroutines thereafter; it has no mutating methods.
type Table struct {
	rules         []rule
	DefaultPolicy Policy
	DefaultAnswer answer.Spec
}

// NewTable compiles entries into a Table. Patterns are compiled once here so
// that Match never does regexp construction work per query.
//
// NewTable enforces the invariant that a DefaultPolicy of DefaultValue must
// be paired with a non-empty DefaultAnswer.
func NewTable(entries []Entry, defaultPolicy Policy, defaultAnswer answer.Spec) (*Table, error) {
	if defaultPolicy.Kind == DefaultValue && len(defaultAnswer) == 0 {
		return nil, fmt.Errorf("%w: default_dns_policy is default_value but default_dns_value is missing", ErrBadConfiguration)
	}

	t := &Table{
		DefaultPolicy: defaultPolicy,
		DefaultAnswer: defaultAnswer,
	}

	for _, e := range entries {
		re, err := compilePattern(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", ErrBadConfiguration, e.Pattern, err)
		}
		t.rules = append(t.rules, rule{pattern: strings.ToLower(e.Pattern), re: re, policy: e.Policy})
	}

	return t, nil
}

// compilePattern turns a DomainPattern into the anchored, wildcard-aware
// regular expression described in spec.md §4.1: every character is escaped
// except '*', which becomes a greedy "any run of any characters" token, and
// the result is anchored only at the start. A pattern with no '*' therefore
// still matches any name it is a literal prefix of -- "foo.com" matches
// "foo.com.evil.test" -- which is the documented, tested behavior, not a
// bug.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	lowered := strings.ToLower(pattern)
	escaped := regexp.QuoteMeta(lowered)
	wildcarded := strings.ReplaceAll(escaped, `\*`, `.*`)
	return regexp.Compile("^" + wildcarded)
}

// Match resolves name to the first rule whose pattern matches, in insertion
// order. The second return value is false if no rule matches -- a
// recoverable "fall through to the default policy" condition, not an error,
// per spec.md §4.1's failure semantics.
func (t *Table) Match(name string) (Policy, bool) {
	name = NormalizeName(name)

	for _, r := range t.rules {
		if r.re.MatchString(name) {
			return r.policy, true
		}
	}

	return Policy{}, false
}

// NormalizeName lowercases name and strips a single trailing dot, the
// normalization spec.md §3 requires before any pattern comparison.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	if name == "." {
		return name
	}
	return strings.TrimSuffix(name, ".")
}
