package origins

import (
	"net/url"
	"strings"
)

// Registry routes external-identifier claims to origin rule tables. Several
// origins may share one property (regional variants of a catalog); the
// identifier shape decides between them.
type Registry struct {
	byProperty map[string][]*Rules
	byHost     map[string]*Rules
	all        []*Rules
	skipSocial bool
}

// NewRegistry creates a registry pre-populated with the built-in origins.
func NewRegistry(skipSocial bool) *Registry {
	r := &Registry{
		byProperty: make(map[string][]*Rules),
		byHost:     make(map[string]*Rules),
		skipSocial: skipSocial,
	}
	for _, rules := range Builtin() {
		r.Register(rules)
	}
	return r
}

// Register adds an origin rule table to the registry.
func (r *Registry) Register(rules *Rules) {
	r.all = append(r.all, rules)
	if rules.Property != "" {
		r.byProperty[rules.Property] = append(r.byProperty[rules.Property], rules)
	}
	for _, host := range rules.Hosts {
		r.byHost[strings.ToLower(host)] = rules
	}
}

// ForProperty returns the origin matching an identifier under a property, or
// nil when no registered origin claims it.
func (r *Registry) ForProperty(property, identifier string) *Rules {
	for _, rules := range r.byProperty[property] {
		if rules.Matches(identifier) {
			return rules
		}
	}
	return nil
}

// ForURL resolves a generic web-link claim (described-at-URL, official
// website) to an origin by hostname and extracts the identifier from the
// URL. Returns nil when the host is unknown or the identifier shape does not
// match.
func (r *Registry) ForURL(raw string) (*Rules, string) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, ""
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")

	rules, ok := r.byHost[host]
	if !ok {
		return nil, ""
	}

	if rules.IDPattern != nil {
		if match := rules.IDPattern.FindStringSubmatch(raw); match != nil {
			if len(match) > 1 {
				return rules, match[1]
			}
			return rules, match[0]
		}
		return nil, ""
	}

	return rules, strings.Trim(parsed.Path, "/")
}

// SkipSocial reports whether social-media cross-reference patterns are
// disabled for this run.
func (r *Registry) SkipSocial() bool {
	return r.skipSocial
}

// Origins returns every registered rule table.
func (r *Registry) Origins() []*Rules {
	return r.all
}
