// Package config loads and validates the YAML configuration file described
// in spec.md §6, producing an immutable Config whose policy.Table is fully
// built at load time -- default_dns_value is normalized to exactly one
// answer.Spec here, never carried around as a raw list (spec.md §9, Open
// Question 3).
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/constcast/fakednsproxy/answer"
	"github.com/constcast/fakednsproxy/policy"
)

// Endpoint is an {ip, port} pair, the shape of both dns_server and
// listening_info.
type Endpoint struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// Config is the validated, fully-resolved result of Load. It is immutable
// and safe for concurrent read-only use, same as the policy.Table it
// embeds.
type Config struct {
	DNSServer Endpoint
	Listen    Endpoint
	Table     *policy.Table

	policyName string
	entries    []policy.Entry
}

// Load reads, parses and validates the configuration file at path. Any
// problem -- a missing key, a malformed address, an unrecognized policy
// keyword, a bad AnswerSpec surface form, a pattern that fails to compile --
// is reported wrapped in ErrBadConfiguration, a fatal condition the caller
// should report to stderr and exit on (spec.md §6, "Validation failures at
// load time produce a fatal startup error").
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrBadConfiguration, path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parsing yaml: %v", ErrBadConfiguration, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top-level document must be a mapping", ErrBadConfiguration)
	}
	top := nodeMap(root.Content[0])

	dnsServer, err := decodeEndpoint(top, "dns_server")
	if err != nil {
		return nil, err
	}
	listen, err := decodeEndpoint(top, "listening_info")
	if err != nil {
		return nil, err
	}

	policyNode, ok := top["default_dns_policy"]
	if !ok {
		return nil, fmt.Errorf("%w: missing default_dns_policy", ErrBadConfiguration)
	}
	var policyName string
	if err := policyNode.Decode(&policyName); err != nil {
		return nil, fmt.Errorf("%w: default_dns_policy: %v", ErrBadConfiguration, err)
	}

	defaultPolicy, err := keywordPolicy(policyName)
	if err != nil {
		return nil, fmt.Errorf("%w: default_dns_policy %q: %v", ErrBadConfiguration, policyName, err)
	}

	var defaultAnswer answer.Spec
	if defaultPolicy.Kind == policy.DefaultValue {
		valueNode, ok := top["default_dns_value"]
		if !ok {
			return nil, fmt.Errorf("%w: default_dns_policy is default_value but default_dns_value is missing", ErrBadConfiguration)
		}
		var raw interface{}
		if err := valueNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: default_dns_value: %v", ErrBadConfiguration, err)
		}
		defaultAnswer, err = answer.New(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: default_dns_value: %v", ErrBadConfiguration, err)
		}
	}

	entries, err := decodeDomainConfig(top["domain_config"])
	if err != nil {
		return nil, err
	}

	table, err := policy.NewTable(entries, defaultPolicy, defaultAnswer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadConfiguration, err)
	}

	return &Config{
		DNSServer:  dnsServer,
		Listen:     listen,
		Table:      table,
		policyName: policyName,
		entries:    entries,
	}, nil
}

func decodeEndpoint(top map[string]*yaml.Node, key string) (Endpoint, error) {
	node, ok := top[key]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: missing %s", ErrBadConfiguration, key)
	}
	var ep Endpoint
	if err := node.Decode(&ep); err != nil {
		return Endpoint{}, fmt.Errorf("%w: %s: %v", ErrBadConfiguration, key, err)
	}
	if ep.IP == "" || ep.Port <= 0 {
		return Endpoint{}, fmt.Errorf("%w: %s requires a non-empty ip and a positive port", ErrBadConfiguration, key)
	}
	return ep, nil
}

// decodeDomainConfig walks domainNode's Content pairs directly rather than
// decoding into a Go map, since yaml.v3 preserves a mapping node's Content
// in file order and a map[string]interface{} would not -- domain_config's
// matching order is semantically significant (spec.md §3).
func decodeDomainConfig(domainNode *yaml.Node) ([]policy.Entry, error) {
	if domainNode == nil {
		return nil, nil
	}
	if domainNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: domain_config must be a mapping", ErrBadConfiguration)
	}

	var entries []policy.Entry
	for i := 0; i+1 < len(domainNode.Content); i += 2 {
		keyNode, valNode := domainNode.Content[i], domainNode.Content[i+1]

		var pattern string
		if err := keyNode.Decode(&pattern); err != nil {
			return nil, fmt.Errorf("%w: domain_config key: %v", ErrBadConfiguration, err)
		}

		var raw interface{}
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: domain_config[%q]: %v", ErrBadConfiguration, pattern, err)
		}

		p, err := entryPolicy(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: domain_config[%q]: %v", ErrBadConfiguration, pattern, err)
		}

		entries = append(entries, policy.Entry{Pattern: pattern, Policy: p})
	}

	return entries, nil
}

// entryPolicy turns one domain_config value into a Policy: a bare keyword
// string selects Forward/NXDomain/DefaultValue directly (rather than being
// stuffed into the AnswerSpec under the pseudo-tag answer.Keyword, per
// spec.md §9's open question about the source's DNSAnswerConfig); anything
// else is parsed as an AnswerSpec surface form and becomes a CustomAnswer
// policy.
func entryPolicy(raw interface{}) (policy.Policy, error) {
	if s, ok := raw.(string); ok && answer.IsKeyword(s) {
		return keywordPolicy(s)
	}

	spec, err := answer.New(raw)
	if err != nil {
		return policy.Policy{}, err
	}
	return policy.NewCustomAnswer(spec), nil
}

func keywordPolicy(name string) (policy.Policy, error) {
	switch name {
	case answer.KeywordForward:
		return policy.NewForward(), nil
	case answer.KeywordNXDomain:
		return policy.NewNXDomain(), nil
	case answer.KeywordDefaultValue:
		return policy.NewDefaultValue(), nil
	default:
		return policy.Policy{}, fmt.Errorf("%w: not one of forward, nxdomain, default_value", ErrBadConfiguration)
	}
}

func nodeMap(m *yaml.Node) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		out[m.Content[i].Value] = m.Content[i+1]
	}
	return out
}

// Dump renders a human-readable summary of the loaded configuration, the
// Go-native equivalent of the original's ConfigParser.print() debug dump
// (spec.md's supplemented features). It is only ever printed at
// --log-level debug.
func (c *Config) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dns_server: %s\n", c.DNSServer)
	fmt.Fprintf(&b, "listening_info: %s\n", c.Listen)
	fmt.Fprintf(&b, "default_dns_policy: %s\n", c.policyName)
	fmt.Fprintf(&b, "domain_config: %d rule(s)\n", len(c.entries))
	for _, e := range c.entries {
		fmt.Fprintf(&b, "  %-32s -> %s\n", e.Pattern, e.Policy.Kind)
	}
	return b.String()
}
