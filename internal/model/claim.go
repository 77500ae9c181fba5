package model

import "strings"

// Well-known property and item identifiers the engine itself depends on.
// Per-origin rule tables carry their own identifiers as data.
const (
	PropInstanceOf   = "P31"
	PropReferenceURL = "P854"
	PropStatedIn     = "P248"
	PropRetrieved    = "P813"
	PropDescribedAt  = "P973"
	PropOfficialSite = "P856"
	PropISNI         = "P213"
	PropCoordinates  = "P625"
)

// Pseudo-properties injected into the merge engine's work queue. They never
// exist as real claims: Wiki carries the entity's interlanguage links, Data a
// self-reference, so analyzers registered for them run on every entity.
const (
	PropWiki = "Wiki"
	PropData = "Data"
)

// Snak is a single property/value pair used inside claim references.
type Snak struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Claim is one structured statement on an entity as seen in a snapshot.
// Value carries the same string encoding the extraction stage uses (plain
// text, Q-id, or sentinel-tagged date/quantity/media).
type Claim struct {
	ID       string   `json:"id,omitempty"`
	Property string   `json:"property"`
	Value    string   `json:"value"`
	Datatype string   `json:"datatype,omitempty"`
	Sources  [][]Snak `json:"sources,omitempty"`
}

// HasSource reports whether the claim already carries a reference equal to
// the given snak group, ignoring retrieval-date snaks: a source confirmed on
// two different days is still the same source.
func (c *Claim) HasSource(source []Snak) bool {
	for _, existing := range c.Sources {
		if sameSource(existing, source) {
			return true
		}
	}
	return false
}

func sameSource(a, b []Snak) bool {
	return sourceKey(a) == sourceKey(b)
}

func sourceKey(snaks []Snak) string {
	key := ""
	for _, s := range snaks {
		if s.Property == PropRetrieved {
			continue
		}
		key += s.Property + "=" + s.Value + ";"
	}
	return key
}

// Entity is the live snapshot of one entity under processing: claims, labels,
// aliases, descriptions and site links. Owned by exactly one in-flight
// processing run; re-fetched after every mutation.
type Entity struct {
	ID           string              `json:"id"`
	Labels       map[string]string   `json:"labels"`
	Aliases      map[string][]string `json:"aliases"`
	Descriptions map[string]string   `json:"descriptions"`
	Claims       map[string][]*Claim `json:"claims"`
	SiteLinks    map[string]string   `json:"sitelinks"` // site id -> page title
}

// HasLabel reports whether name already appears among the entity's labels or
// aliases in any language, compared case-insensitively.
func (e *Entity) HasLabel(name string) bool {
	lower := strings.ToLower(name)
	for _, label := range e.Labels {
		if strings.ToLower(label) == lower {
			return true
		}
	}
	for _, aliases := range e.Aliases {
		for _, alias := range aliases {
			if strings.ToLower(alias) == lower {
				return true
			}
		}
	}
	return false
}
