package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quelltext/provenia/internal/model"
	"github.com/quelltext/provenia/internal/origins"
)

// Result is everything one origin page yielded: candidate facts for the
// merge engine, label/description suggestions, and report-only notices.
type Result struct {
	Facts        []model.Fact
	Names        []model.NameSuggestion
	Descriptions map[string]string
	Notices      []string
}

// Dispatcher runs an origin's rule table against a fetched page and turns
// the matches into a uniform list of candidate facts. It has no state of its
// own; persistent effects happen only inside the resolver it delegates to.
type Dispatcher struct {
	extractor  *Extractor
	skipSocial bool
}

// NewDispatcher creates a dispatcher using the given resolver for free-text
// disambiguation.
func NewDispatcher(resolver Resolver, skipSocial bool) *Dispatcher {
	return &Dispatcher{
		extractor:  NewExtractor(resolver),
		skipSocial: skipSocial,
	}
}

// socialProperties are handle-valued identifiers whose pages embed a
// placeholder handle in templates, a recurring false positive.
var socialProperties = map[string]bool{"P2002": true, "P2003": true, "P2013": true}

const socialPlaceholder = "username"

// yearLike matches the three-digit year fragment a usable date must contain.
var yearLike = regexp.MustCompile(`\d{3}`)

// Extract runs every rule category of the origin against the page text and
// returns the candidate facts. entityID is the entity under processing (its
// own id never becomes a fact value); source describes provenance and is
// attached to sourced categories only.
func (d *Dispatcher) Extract(rules *origins.Rules, page, entityID string, source *model.Source) *Result {
	result := &Result{Descriptions: make(map[string]string)}

	text := Region(rules.Region, page)
	if rules.PlainText {
		text = VisibleText(text)
	}

	for _, rule := range rules.Identity {
		d.safely(result, rules.Name, rule.Property, func() {
			if value := d.extractor.FindOne(rule.Rule.Pattern, text, options(rule.Rule)); value != "" {
				result.Facts = append(result.Facts, model.Fact{Property: rule.Property, Value: value})
			}
		})
	}

	for _, rule := range rules.Multis {
		d.safely(result, rules.Name, rule.Property, func() {
			for _, value := range d.extractor.FindAll(rule.Rule.Pattern, text, options(rule.Rule)) {
				if value == entityID {
					continue // a fact never asserts an entity's relation to itself
				}
				result.Facts = append(result.Facts, model.Fact{Property: rule.Property, Value: value, Source: source})
			}
		})
	}

	for _, rule := range rules.SplitNames {
		d.safely(result, rules.Name, rule.Property, func() {
			for _, value := range d.extractor.FindAll(rule.Rule.Pattern, text, options(rule.Rule)) {
				result.Facts = append(result.Facts, model.Fact{Property: rule.Property, Value: value})
			}
		})
	}

	for _, rule := range rules.Singles {
		d.safely(result, rules.Name, rule.Property, func() {
			value := d.extractor.FindOne(rule.Rule.Pattern, text, options(rule.Rule))
			if value == "" {
				return
			}
			if rule.Property == model.PropOfficialSite && strings.Contains(value, "wikipedia.org") {
				return // a "website" that points back at Wikipedia is never the subject's site
			}
			if socialProperties[rule.Property] && strings.EqualFold(value, socialPlaceholder) {
				return
			}
			result.Facts = append(result.Facts, model.Fact{Property: rule.Property, Value: value, Source: source})
		})
	}

	for _, rule := range rules.Dates {
		d.safely(result, rules.Name, rule.Property, func() {
			result.Facts = append(result.Facts, d.dateFacts(rule, text, source)...)
		})
	}

	for _, rule := range rules.Quantities {
		d.safely(result, rules.Name, rule.Property, func() {
			for _, value := range d.extractor.FindAll(rule.Rule.Pattern, text, options(rule.Rule)) {
				result.Facts = append(result.Facts, model.Fact{
					Property: rule.Property,
					Value:    model.TagQuantity(value),
					Source:   source,
				})
			}
		})
	}

	for _, rule := range rules.Media {
		d.safely(result, rules.Name, rule.Property, func() {
			value := d.extractor.FindOne(rule.Rule.Pattern, text, options(rule.Rule))
			name := StripTags(value)
			// Heuristic for "looks like a real filename".
			if len(name) <= 2 || !strings.Contains(name, ".") {
				return
			}
			result.Facts = append(result.Facts, model.Fact{
				Property: rule.Property,
				Value:    model.TagMedia(name),
				Source:   source,
			})
		})
	}

	for _, rule := range rules.Reported {
		d.safely(result, rules.Name, rule.Property, func() {
			if value := d.extractor.FindOne(rule.Rule.Pattern, text, MatchOptions{}); value != "" {
				result.Notices = append(result.Notices,
					fmt.Sprintf("%s: %s %s (not created automatically)", rules.Name, rule.Property, value))
			}
		})
	}

	for _, rule := range rules.Names {
		d.safely(result, rules.Name, "name", func() {
			if rule.All {
				for _, name := range d.extractor.FindAll(rule.Pattern, text, MatchOptions{}) {
					result.Names = append(result.Names, model.NameSuggestion{Language: rule.Language, Name: name})
				}
				return
			}
			if name := d.extractor.FindOne(rule.Pattern, text, MatchOptions{}); name != "" {
				result.Names = append(result.Names, model.NameSuggestion{Language: rule.Language, Name: name})
			}
		})
	}

	for _, rule := range rules.Descriptions {
		d.safely(result, rules.Name, "description", func() {
			if desc := d.extractor.FindOne(rule.Pattern, text, MatchOptions{}); desc != "" {
				if _, ok := result.Descriptions[rule.Language]; !ok {
					result.Descriptions[rule.Language] = desc
				}
			}
		})
	}

	d.safely(result, rules.Name, model.PropISNI, func() {
		// The grouped ISNI scan runs on every page, even ones with cross
		// references disabled.
		selfValue := ""
		if source != nil {
			selfValue = source.Identifier
		}
		for _, fact := range origins.ScanGroupedISNI(page, rules.Property, selfValue) {
			fact.Source = source
			result.Facts = append(result.Facts, fact)
		}
	})

	if !rules.NoCrossref && source != nil {
		d.safely(result, rules.Name, "crossref", func() {
			// Cross references are scanned over the whole page, not the
			// restricted region: identifier links live in footers and sidebars.
			known := make(map[string]bool)
			for _, fact := range result.Facts {
				if fact.Property == model.PropISNI {
					known[fact.Value] = true
				}
			}
			for _, fact := range origins.ScanCrossRefs(page, rules.Property, source.Identifier, d.skipSocial) {
				if fact.Property == model.PropISNI && known[fact.Value] {
					continue
				}
				fact.Source = source
				result.Facts = append(result.Facts, fact)
			}
		})
	}

	return result
}

// dateFacts applies one date rule. Raw dates with an uncertainty marker or
// without a year-like digit group are dropped. A floruit rule splits a
// hyphen-joined range into work-period start and end facts; a degenerate
// range (start equals end) collapses into a single point-in-time fact.
func (d *Dispatcher) dateFacts(rule origins.DateRule, text string, source *model.Source) []model.Fact {
	raw := d.extractor.FindOne(rule.Pattern, text, MatchOptions{})
	if raw == "" || strings.Contains(raw, "?") || !yearLike.MatchString(raw) {
		return nil
	}

	if rule.RangeStart != "" {
		start, end, ok := splitRange(raw)
		if ok {
			if start == end {
				return []model.Fact{{Property: rule.Property, Value: model.TagDate(start), Source: source}}
			}
			return []model.Fact{
				{Property: rule.RangeStart, Value: model.TagDate(start), Source: source},
				{Property: rule.RangeEnd, Value: model.TagDate(end), Source: source},
			}
		}
	}

	return []model.Fact{{Property: rule.Property, Value: model.TagDate(raw), Source: source}}
}

// splitRange splits "1680-1720" style ranges. Only a single hyphen between
// two year-bearing halves counts; ISO dates like 1680-05-12 stay whole.
func splitRange(raw string) (string, string, bool) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	start := strings.TrimSpace(parts[0])
	end := strings.TrimSpace(parts[1])
	if !yearLike.MatchString(start) || !yearLike.MatchString(end) {
		return "", "", false
	}
	return start, end, true
}

// safely isolates one rule invocation: a rule that panics must not abort
// extraction of the remaining fields.
func (d *Dispatcher) safely(result *Result, origin, field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			result.Notices = append(result.Notices, fmt.Sprintf("%s: rule for %s failed: %v", origin, field, r))
		}
	}()
	fn()
}

func options(rule origins.Rule) MatchOptions {
	return MatchOptions{Category: rule.Category, Exclude: rule.Exclude, Alt: rule.Alt}
}
