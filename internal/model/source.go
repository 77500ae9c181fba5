package model

import (
	"strings"
	"time"
)

// Source describes the provenance of an extracted fact: which origin database
// it came from and how to reconstruct the page URL from the identifier.
type Source struct {
	Property    string `json:"property"`     // external-identifier property of the origin
	Item        string `json:"item"`         // Q-id of the origin database itself, "" if uncatalogued
	IsWiki      bool   `json:"is_wiki"`      // origin is a wiki; its page titles are not sourced identifiers
	URLTemplate string `json:"url_template"` // page URL with $1 for the identifier
	QueryBased  bool   `json:"query_based"`  // lookup goes through a query endpoint; no stable page URL
	ShowURL     bool   `json:"show_url"`     // false suppresses the reference-URL snak entirely
	Identifier  string `json:"identifier"`   // the identifier value this fact was extracted from
	ResolvedURL string `json:"resolved_url"` // canonical URL, used when QueryBased
}

// URL returns the reference URL for the source, or "" when none applies.
func (s *Source) URL() string {
	if !s.ShowURL {
		return ""
	}
	if s.QueryBased {
		return s.ResolvedURL
	}
	if s.URLTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(s.URLTemplate, "$1", s.Identifier)
}

// Snaks builds the reference snak group attached to claims created or
// confirmed from this source: stated-in, reference URL, the original
// identifier, and a retrieval date. The identifier snak is omitted when the
// origin is a wiki or the identifier is itself a URL; the retrieval date is
// only attached when a URL is.
func (s *Source) Snaks(retrieved time.Time) []Snak {
	var snaks []Snak

	if s.Item != "" {
		snaks = append(snaks, Snak{Property: PropStatedIn, Value: s.Item})
	}

	url := s.URL()
	if url != "" {
		snaks = append(snaks, Snak{Property: PropReferenceURL, Value: url})
	}

	if !s.IsWiki && s.Property != "" && !strings.HasPrefix(s.Identifier, "http") {
		snaks = append(snaks, Snak{Property: s.Property, Value: s.Identifier})
	}

	if url != "" {
		// P813 is time-typed; the sentinel makes the wire encoder emit a
		// time datavalue rather than a string.
		snaks = append(snaks, Snak{Property: PropRetrieved, Value: TagDate(retrieved.Format("2006-01-02"))})
	}

	return snaks
}
