package origins

import (
	"regexp"
	"strings"

	"github.com/quelltext/provenia/internal/model"
)

// crossRef is one known third-party identifier URL shape. Origin pages link
// to each other constantly, so one fetched page can passively confirm
// identifiers in several other catalogs.
type crossRef struct {
	property string
	pattern  *regexp.Regexp
	social   bool
}

var crossRefs = []crossRef{
	{property: "P214", pattern: regexp.MustCompile(`viaf\.org/(?:viaf/)?(\d{1,22})`)},
	{property: "P227", pattern: regexp.MustCompile(`d-nb\.info/gnd/(1[0-9X-]{7,11})`)},
	{property: model.PropISNI, pattern: regexp.MustCompile(`isni\.org/isni/(\d{15}[\dX])`)},
	{property: "P244", pattern: regexp.MustCompile(`id\.loc\.gov/authorities/names/([a-z]+\d+)`)},
	{property: "P268", pattern: regexp.MustCompile(`data\.bnf\.fr/(?:[a-z]+/)?ark:/12148/cb(\d{8}[0-9bcdfghjkmnpqrstvwxz])`)},
	{property: "P269", pattern: regexp.MustCompile(`idref\.fr/(\d{8}[\dX])`)},
	{property: "P245", pattern: regexp.MustCompile(`vocab\.getty\.edu/(?:page/)?ulan/(500\d{6})`)},
	{property: "P345", pattern: regexp.MustCompile(`imdb\.com/(?:name|title)/((?:nm|tt)\d{6,10})`)},
	{property: "P535", pattern: regexp.MustCompile(`findagrave\.com/memorial/(\d+)`)},
	{property: "P650", pattern: regexp.MustCompile(`rkd\.nl/(?:en/)?explore/artists/(\d+)`)},
	{property: "P1006", pattern: regexp.MustCompile(`data\.bibliotheken\.nl/id/thes/p(\d{8}[\dX])`)},
	{property: "P1015", pattern: regexp.MustCompile(`authority\.bibsys\.no/authority/rest/authorities/html/(\d+)`)},
	{property: "P1207", pattern: regexp.MustCompile(`nukat\.edu\.pl/aut/(n\s?\d+)`)},
	{property: "P2163", pattern: regexp.MustCompile(`id\.worldcat\.org/fast/(\d+)`)},
	{property: "P3430", pattern: regexp.MustCompile(`snaccooperative\.org/(?:view|ark:/99166)/(w6[a-z0-9]+)`)},
	{property: "P2002", pattern: regexp.MustCompile(`twitter\.com/(\w{1,15})\b`), social: true},
	{property: "P2003", pattern: regexp.MustCompile(`instagram\.com/([a-z0-9_.]{1,30})/`), social: true},
	{property: "P2013", pattern: regexp.MustCompile(`facebook\.com/([a-zA-Z0-9.]{5,})`), social: true},
}

// isniGrouped matches the 4-4-4-4 grouped form ISNIs are printed in.
var isniGrouped = regexp.MustCompile(`\b(\d{4}) (\d{4}) (\d{4}) (\d{3}[\dX])\b`)

// denylist holds known false-positive cross-reference values: placeholder
// slugs, search endpoints and template text that match the URL shapes above.
var denylist = map[string]map[string]bool{
	"P2002": {"share": true, "intent": true, "home": true, "search": true, "hashtag": true},
	"P2003": {"explore": true, "accounts": true, "p": true},
	"P2013": {"sharer": true, "sharer.php": true, "plugins": true, "profile.php": true},
	"P345":  {"nm0000000": true},
	"P535":  {"0": true},
}

// ScanCrossRefs scans raw page text for known identifier URL shapes and
// returns the confirmed (property, identifier) pairs, deduplicated in order
// of first appearance. selfValue suppresses the identifier the page was
// fetched from; skipSocial drops social-media shapes.
func ScanCrossRefs(text, selfProperty, selfValue string, skipSocial bool) []model.Fact {
	seen := make(map[string]bool)
	var facts []model.Fact

	add := func(property, value string) {
		if value == "" || (property == selfProperty && value == selfValue) {
			return
		}
		if denylist[property][strings.ToLower(value)] {
			return
		}
		key := property + ":" + value
		if seen[key] {
			return
		}
		seen[key] = true
		facts = append(facts, model.Fact{Property: property, Value: value})
	}

	for _, ref := range crossRefs {
		if ref.social && skipSocial {
			continue
		}
		for _, match := range ref.pattern.FindAllStringSubmatch(text, -1) {
			add(ref.property, match[1])
		}
	}

	return facts
}

// ScanGroupedISNI scans page text for the grouped ISNI form and returns the
// ungrouped identifiers. It runs on every origin page, separate from the
// cross-reference scan: the grouped form appears in prose, not in links.
// selfValue suppresses the identifier the page was fetched from when the
// origin itself is the ISNI registry.
func ScanGroupedISNI(text, selfProperty, selfValue string) []model.Fact {
	seen := make(map[string]bool)
	var facts []model.Fact

	for _, match := range isniGrouped.FindAllStringSubmatch(text, -1) {
		value := match[1] + match[2] + match[3] + match[4]
		if selfProperty == model.PropISNI && value == selfValue {
			continue
		}
		if seen[value] {
			continue
		}
		seen[value] = true
		facts = append(facts, model.Fact{Property: model.PropISNI, Value: value})
	}

	return facts
}
