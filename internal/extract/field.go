package extract

import (
	"regexp"
	"strings"
)

// Resolver turns free text into entity references using cached operator
// decisions. Resolve returns the entity id and true on a hit; with
// interactive=false it must consult the cache only and never prompt.
type Resolver interface {
	Resolve(category, raw string, interactive bool) (string, bool)
}

// MatchOptions controls how a raw regex capture is resolved.
type MatchOptions struct {
	Category string   // disambiguation category; empty returns the raw capture
	Exclude  []string // a cached hit in any of these suppresses the match
	Alt      []string // a cached hit in any of these wins over Category, in order
}

// Extractor applies extraction rules to fetched page text. It is stateless
// apart from the resolver it delegates free-text disambiguation to.
type Extractor struct {
	resolver Resolver
}

// NewExtractor creates an extractor backed by the given resolver.
func NewExtractor(resolver Resolver) *Extractor {
	return &Extractor{resolver: resolver}
}

// FindOne applies pattern to text and returns the resolved first capture of
// the first match, or "" when nothing matches or resolution declines it.
func (x *Extractor) FindOne(pattern *regexp.Regexp, text string, opt MatchOptions) string {
	if pattern == nil {
		return ""
	}
	match := pattern.FindStringSubmatch(text)
	if match == nil || len(match) < 2 {
		return ""
	}
	value, _ := x.resolveCapture(match[1], opt)
	return value
}

// FindAll applies pattern to text and returns every resolved capture,
// deduplicated in order of first appearance.
func (x *Extractor) FindAll(pattern *regexp.Regexp, text string, opt MatchOptions) []string {
	if pattern == nil {
		return nil
	}

	seen := make(map[string]bool)
	var values []string

	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		if len(match) < 2 {
			continue
		}
		value, ok := x.resolveCapture(match[1], opt)
		if !ok || value == "" {
			continue
		}
		if !seen[value] {
			seen[value] = true
			values = append(values, value)
		}
	}

	return values
}

// resolveCapture runs the three-tier resolution for one raw capture:
// alternative categories win first, exclusion categories veto, then the main
// category is consulted interactively. Without a category the raw text is
// returned as-is.
func (x *Extractor) resolveCapture(raw string, opt MatchOptions) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if opt.Category == "" {
		return raw, true
	}

	for _, alt := range opt.Alt {
		if value, ok := x.resolver.Resolve(alt, raw, false); ok {
			return value, true
		}
	}

	for _, excluded := range opt.Exclude {
		if _, ok := x.resolver.Resolve(excluded, raw, false); ok {
			return "", false
		}
	}

	value, ok := x.resolver.Resolve(opt.Category, raw, true)
	if !ok {
		return "", false
	}
	return value, true
}

// Region returns the first capture of pattern applied to text, used to
// restrict a page to the fragment the per-field rules operate on. An origin
// without a region pattern uses the whole page.
func Region(pattern *regexp.Regexp, text string) string {
	if pattern == nil {
		return text
	}
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	if len(match) > 1 {
		return match[1]
	}
	return match[0]
}
