package merge

import "strings"

// Directive narrows a processing run to one property. The bare form
// processes only the named property; a "+" suffix continues into properties
// discovered after it; a "*" suffix skips the named property itself but
// still processes everything discovered after it.
type Directive struct {
	Property string
	Continue bool
	SkipSelf bool
}

// ParseDirective parses a restriction directive ("P123", "P123+", "P123*").
// The empty string means no restriction.
func ParseDirective(s string) Directive {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Directive{Continue: true}
	case strings.HasSuffix(s, "+"):
		return Directive{Property: strings.TrimSuffix(s, "+"), Continue: true}
	case strings.HasSuffix(s, "*"):
		return Directive{Property: strings.TrimSuffix(s, "*"), Continue: true, SkipSelf: true}
	default:
		return Directive{Property: s}
	}
}

// Restricted reports whether the directive names a specific property.
func (d Directive) Restricted() bool {
	return d.Property != ""
}
