package origins

import (
	"regexp"
	"strings"

	"github.com/quelltext/provenia/internal/model"
)

// Rule is one extraction pattern plus its disambiguation categories. The
// first capture group of Pattern is the extracted value.
type Rule struct {
	Pattern  *regexp.Regexp
	Category string   // disambiguation category; empty keeps the raw capture
	Exclude  []string // cached hit in any of these suppresses the match
	Alt      []string // cached hit in any of these wins over Category
}

// PropertyRule binds a rule to the property its matches populate.
type PropertyRule struct {
	Property string
	Rule     Rule
}

// DateRule extracts a date-valued property. When RangeStart/RangeEnd are set
// a hyphen-joined range is split into two facts (a floruit rule); an
// identical start and end collapses into one fact on Property.
type DateRule struct {
	Property   string
	Pattern    *regexp.Regexp
	RangeStart string
	RangeEnd   string
}

// NameRule extracts label/alias suggestions in one language.
type NameRule struct {
	Language string
	Pattern  *regexp.Regexp
	All      bool // collect every match rather than the first
}

// DescriptionRule extracts a description suggestion in one language.
type DescriptionRule struct {
	Language string
	Pattern  *regexp.Regexp
}

// Sparql describes a query-backed origin: instead of fetching a page, the
// engine runs Query (with $1 substituted by the identifier) against Endpoint
// and extraction rules operate on the serialized result rows.
type Sparql struct {
	Endpoint string
	Query    string
}

// Rules is the complete per-origin configuration record: metadata describing
// the origin database plus the sparse table of extraction rules the
// dispatcher runs against its pages. Everything here is data; the dispatch
// logic lives in internal/extract.
type Rules struct {
	Name        string // human-readable origin name
	Property    string // external-identifier property, e.g. "P214"
	Item        string // Q-id of the origin database, "" if uncatalogued
	URLTemplate string // page URL with $1 for the identifier
	IsWiki      bool
	HideURL     bool // suppress the reference-URL snak for this origin
	QueryBased  bool // page reached through a search endpoint; source URL is the resolved one
	Hosts       []string
	IDPattern   *regexp.Regexp // identifier shape, used to pick this origin
	PlainText   bool           // run rules against visible text, not raw markup
	Region      *regexp.Regexp // restrict the page to one fragment first
	Sparql      *Sparql
	NoCrossref  bool // origin pages known to embed misleading foreign identifiers

	Identity     []PropertyRule // single-valued, definitional, never sourced
	Singles      []PropertyRule // first non-empty match, sourced
	Multis       []PropertyRule // every match, self-references dropped, sourced
	SplitNames   []PropertyRule // every match, never sourced
	Dates        []DateRule
	Quantities   []PropertyRule
	Media        []PropertyRule
	Reported     []PropertyRule // surfaced to the operator only, never created
	Names        []NameRule
	Descriptions []DescriptionRule
}

// Source builds the provenance descriptor for a fact extracted from this
// origin for the given identifier.
func (r *Rules) Source(identifier, resolvedURL string) *model.Source {
	return &model.Source{
		Property:    r.Property,
		Item:        r.Item,
		IsWiki:      r.IsWiki,
		URLTemplate: r.URLTemplate,
		QueryBased:  r.QueryBased,
		ShowURL:     !r.HideURL,
		Identifier:  identifier,
		ResolvedURL: resolvedURL,
	}
}

// PageURL returns the fetch URL for an identifier, or "" when the origin has
// no URL template (SPARQL-backed origins).
func (r *Rules) PageURL(identifier string) string {
	if r.URLTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(r.URLTemplate, "$1", identifier)
}

// Matches reports whether an identifier fits this origin's shape. Origins
// without an explicit shape accept everything routed to their property.
func (r *Rules) Matches(identifier string) bool {
	if r.IDPattern == nil {
		return true
	}
	return r.IDPattern.MatchString(identifier)
}
