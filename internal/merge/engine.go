package merge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/quelltext/provenia/internal/console"
	"github.com/quelltext/provenia/internal/extract"
	"github.com/quelltext/provenia/internal/model"
	"github.com/quelltext/provenia/internal/origins"
	"github.com/quelltext/provenia/internal/resolve"
)

// EntityService is the wiki read/write boundary the engine drives. The
// engine never talks to the wiki API directly.
type EntityService interface {
	GetEntity(ctx context.Context, id string, refresh bool) (*model.Entity, error)
	AddClaim(ctx context.Context, entityID, property, value string) (*model.Claim, error)
	AddSources(ctx context.Context, entityID string, claim *model.Claim, source []model.Snak) error
	EditLabels(ctx context.Context, entityID string, labels map[string]string) error
	EditAliases(ctx context.Context, entityID string, aliases map[string][]string) error
	EditDescriptions(ctx context.Context, entityID string, descriptions map[string]string) error
}

// Fetcher retrieves one origin page as text.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// QueryRunner executes a SPARQL query for query-backed origins and returns
// the result rows serialized as text the extraction rules can match.
type QueryRunner interface {
	Run(ctx context.Context, endpoint, query string) (string, error)
}

// Engine reconciles facts extracted from origin pages against the live
// claims of one entity at a time: equal values get the source attached,
// genuinely new values become claims, and newly discovered identifier
// properties join the work queue.
type Engine struct {
	svc        EntityService
	fetcher    Fetcher
	sparql     QueryRunner
	registry   *origins.Registry
	dispatcher *extract.Dispatcher
	store      *resolve.Store
	ui         console.Interactor
	always     bool
	verbose    bool
}

// NewEngine wires up a merge engine. sparql may be nil when no query-backed
// origin is registered; always suppresses per-origin creation confirmations.
func NewEngine(svc EntityService, fetcher Fetcher, sparql QueryRunner, registry *origins.Registry,
	store *resolve.Store, ui console.Interactor, always, verbose bool) *Engine {
	return &Engine{
		svc:        svc,
		fetcher:    fetcher,
		sparql:     sparql,
		registry:   registry,
		dispatcher: extract.NewDispatcher(store, registry.SkipSocial()),
		store:      store,
		ui:         ui,
		always:     always,
		verbose:    verbose,
	}
}

// run is the state of one entity-processing pass.
type run struct {
	entity       *model.Entity
	queue        []string
	queued       map[string]bool
	done         map[string]bool
	directive    Directive
	started      bool
	descriptions map[string][]string
	unidentified []string
	failed       []string
	notices      []string
}

func (r *run) enqueue(property string) {
	if r.queued[property] || r.done[property] {
		return
	}
	r.queued[property] = true
	r.queue = append(r.queue, property)
}

// Process treats one entity: walks every identifier-bearing property on it
// (plus the synthetic Wiki and Data pseudo-properties), harvests the origin
// pages and merges the results back. restrict optionally narrows the run to
// one property ("P123", "P123+", "P123*").
func (e *Engine) Process(ctx context.Context, entityID, restrict string) error {
	entity, err := e.svc.GetEntity(ctx, entityID, false)
	if err != nil {
		return fmt.Errorf("get entity %s: %w", entityID, err)
	}

	r := &run{
		entity:       entity,
		queued:       make(map[string]bool),
		done:         make(map[string]bool),
		directive:    ParseDirective(restrict),
		descriptions: make(map[string][]string),
	}

	var seeds []string
	for property := range entity.Claims {
		seeds = append(seeds, property)
	}
	sort.Strings(seeds)
	for _, property := range seeds {
		r.enqueue(property)
	}
	r.enqueue(model.PropWiki)
	r.enqueue(model.PropData)

	for len(r.queue) > 0 {
		property := r.queue[0]
		r.queue = r.queue[1:]
		if r.done[property] {
			continue
		}
		r.done[property] = true

		if r.directive.Restricted() && !r.started {
			if property != r.directive.Property {
				continue
			}
			r.started = true
			if r.directive.SkipSelf {
				continue
			}
		} else if r.directive.Restricted() && !r.directive.Continue {
			break
		}

		if err := e.processProperty(ctx, r, property); err != nil {
			return err
		}
	}

	e.resolveDescriptions(ctx, r)
	e.reportRun(r)

	return nil
}

// processProperty harvests every identifier claim under one property.
func (e *Engine) processProperty(ctx context.Context, r *run, property string) error {
	for _, claim := range e.claimsFor(r.entity, property) {
		rules, identifier, pageURL := e.route(r, property, claim)
		if rules == nil {
			continue
		}

		if e.verbose {
			e.ui.Report("processing %s %s (%s)", property, identifier, rules.Name)
		}

		page, err := e.fetchOrigin(ctx, rules, identifier, pageURL)
		if err != nil {
			r.failed = append(r.failed, fmt.Sprintf("%s %s: %v", rules.Name, identifier, err))
			continue
		}

		source := rules.Source(identifier, pageURL)
		result := e.dispatcher.Extract(rules, page, r.entity.ID, source)
		r.notices = append(r.notices, result.Notices...)
		for lang, description := range result.Descriptions {
			r.descriptions[lang] = append(r.descriptions[lang], description)
		}

		if err := e.reconcile(ctx, r, rules, result.Facts); err != nil {
			return err
		}
		if err := e.offerNames(ctx, r, result.Names); err != nil {
			return err
		}

		// Label and alias edits may have happened; later dispatch steps must
		// never see a stale snapshot.
		fresh, err := e.svc.GetEntity(ctx, r.entity.ID, true)
		if err != nil {
			return fmt.Errorf("refresh entity %s: %w", r.entity.ID, err)
		}
		r.entity = fresh
	}

	return nil
}

// claimsFor returns the claims to harvest under a property. The Wiki and
// Data pseudo-properties synthesize quasi-claims from the entity's site
// links and its own identifier.
func (e *Engine) claimsFor(entity *model.Entity, property string) []*model.Claim {
	switch property {
	case model.PropWiki:
		var claims []*model.Claim
		var sites []string
		for site := range entity.SiteLinks {
			sites = append(sites, site)
		}
		sort.Strings(sites)
		for _, site := range sites {
			claims = append(claims, &model.Claim{Property: model.PropWiki, Value: site + ":" + entity.SiteLinks[site]})
		}
		return claims
	case model.PropData:
		return []*model.Claim{{Property: model.PropData, Value: entity.ID}}
	default:
		return entity.Claims[property]
	}
}

// route picks the origin rule table for one claim: web-link properties by
// hostname, everything else by property and identifier shape. Identifier
// claims no registered origin recognizes are collected for the end-of-run
// report.
func (e *Engine) route(r *run, property string, claim *model.Claim) (*origins.Rules, string, string) {
	switch property {
	case model.PropWiki:
		site, title, ok := strings.Cut(claim.Value, ":")
		if !ok {
			return nil, "", ""
		}
		rules := e.registry.ForProperty(model.PropWiki, claim.Value)
		return rules, claim.Value, wikiPageURL(site, title)
	case model.PropData:
		rules := e.registry.ForProperty(model.PropData, claim.Value)
		if rules == nil {
			return nil, "", ""
		}
		return rules, claim.Value, rules.PageURL(claim.Value)
	case model.PropDescribedAt, model.PropOfficialSite:
		rules, identifier := e.registry.ForURL(claim.Value)
		if rules == nil {
			return nil, "", ""
		}
		return rules, identifier, claim.Value
	default:
		rules := e.registry.ForProperty(property, claim.Value)
		if rules != nil {
			return rules, claim.Value, rules.PageURL(claim.Value)
		}
		if claim.Datatype == "external-id" {
			r.unidentified = append(r.unidentified, property+" "+claim.Value)
		}
		return nil, "", ""
	}
}

// fetchOrigin retrieves the origin's data: a page fetch for URL-backed
// origins, a query for SPARQL-backed ones.
func (e *Engine) fetchOrigin(ctx context.Context, rules *origins.Rules, identifier, pageURL string) (string, error) {
	if rules.Sparql != nil {
		if e.sparql == nil {
			return "", errors.New("no query runner configured")
		}
		query := strings.ReplaceAll(rules.Sparql.Query, "$1", identifier)
		return e.sparql.Run(ctx, rules.Sparql.Endpoint, query)
	}
	if pageURL == "" {
		return "", errors.New("no page URL")
	}
	return e.fetcher.Fetch(ctx, pageURL)
}

// reconcile applies one origin's candidate facts to the entity. Exactly one
// of the merge path and the create path happens per candidate: a matching
// existing claim gets the source attached, anything else becomes a new claim
// after the per-origin confirmation.
func (e *Engine) reconcile(ctx context.Context, r *run, rules *origins.Rules, facts []model.Fact) error {
	var creates []model.Fact

	for _, fact := range facts {
		existing := e.findEqual(r.entity, fact)
		if existing == nil {
			creates = append(creates, fact)
			continue
		}
		if err := e.attachSource(ctx, r.entity.ID, existing, fact); err != nil {
			return err
		}
	}

	if len(creates) == 0 {
		return nil
	}

	if !e.confirmCreates(rules, creates) {
		return nil
	}

	for _, fact := range creates {
		// A creation earlier in the batch may have introduced this value;
		// the duplicate takes the merge path instead.
		if existing := e.findEqual(r.entity, fact); existing != nil {
			if err := e.attachSource(ctx, r.entity.ID, existing, fact); err != nil {
				return err
			}
			continue
		}
		if err := e.create(ctx, r, fact); err != nil {
			return err
		}
	}

	return nil
}

// attachSource runs the merge path for one candidate: the existing claim
// gets this origin's reference group unless it already carries it.
func (e *Engine) attachSource(ctx context.Context, entityID string, existing *model.Claim, fact model.Fact) error {
	if fact.Source == nil {
		return nil
	}
	snaks := fact.Source.Snaks(time.Now())
	if len(snaks) == 0 || existing.HasSource(snaks) {
		return nil
	}
	if err := e.svc.AddSources(ctx, entityID, existing, snaks); err != nil {
		return fmt.Errorf("add source to %s: %w", existing.Property, err)
	}
	existing.Sources = append(existing.Sources, snaks)
	return nil
}

// confirmCreates shows the pending creations for one origin and asks for a
// go-ahead. Answering "a" suppresses all further confirmations for the run.
func (e *Engine) confirmCreates(rules *origins.Rules, creates []model.Fact) bool {
	if e.always {
		return true
	}

	e.ui.Report("%s suggests %d new claim(s):", rules.Name, len(creates))
	for _, fact := range creates {
		e.ui.Report("  %s = %s", fact.Property, e.describe(fact.Value))
	}

	switch strings.ToLower(e.ui.Input("Create them? [y/N/a(lways)]")) {
	case "a", "always":
		e.always = true
		return true
	case "y", "yes":
		return true
	default:
		return false
	}
}

// create runs the create path for one candidate fact.
func (e *Engine) create(ctx context.Context, r *run, fact model.Fact) error {
	value := fact.Value

	if model.Kind(value) == model.KindDate {
		date, err := ParseDate(model.Untag(value))
		if err != nil {
			e.ui.Report("cannot parse date for %s: %v", fact.Property, err)
			if e.always || e.ui.Confirm("Skip this candidate and continue?") {
				return nil
			}
			return err
		}
		value = model.TagDate(date.String())
	}

	claim, err := e.svc.AddClaim(ctx, r.entity.ID, fact.Property, value)
	if err != nil {
		if model.Kind(value) == model.KindMedia {
			// Media saves reject spurious duplicates constantly; not worth
			// failing the entity over.
			e.ui.Report("media claim %s rejected: %v", fact.Property, err)
			return nil
		}
		return fmt.Errorf("add claim %s: %w", fact.Property, err)
	}

	if fact.Source != nil {
		snaks := fact.Source.Snaks(time.Now())
		if len(snaks) > 0 {
			if err := e.svc.AddSources(ctx, r.entity.ID, claim, snaks); err != nil {
				return fmt.Errorf("source claim %s: %w", fact.Property, err)
			}
			claim.Sources = append(claim.Sources, snaks)
		}
	}

	r.entity.Claims[fact.Property] = append(r.entity.Claims[fact.Property], claim)

	// Transitive discovery: a newly created identifier property joins the
	// work queue so its origin gets processed too.
	if r.directive.Continue && !r.done[fact.Property] {
		r.enqueue(fact.Property)
	}

	return nil
}

// findEqual returns the existing claim a candidate duplicates, if any.
func (e *Engine) findEqual(entity *model.Entity, fact model.Fact) *model.Claim {
	for _, claim := range entity.Claims[fact.Property] {
		if equalValue(claim.Value, fact.Value) {
			return claim
		}
	}
	return nil
}

// equalValue compares an existing claim value with a candidate value after
// stripping sentinels and applying type-specific normalization.
func equalValue(existing, candidate string) bool {
	existingKind, candidateKind := model.Kind(existing), model.Kind(candidate)
	e, c := model.Untag(existing), model.Untag(candidate)

	if existingKind == model.KindDate || candidateKind == model.KindDate {
		ed, errE := ParseDate(e)
		cd, errC := ParseDate(c)
		if errE == nil && errC == nil {
			return ed.String() == cd.String()
		}
		return e == c
	}

	if existingKind == model.KindMedia || candidateKind == model.KindMedia {
		return strings.EqualFold(normalizeMedia(e), normalizeMedia(c))
	}

	return e == c
}

func normalizeMedia(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "_", " ")
}

// offerNames offers the origin's label/alias suggestions, deduplicated
// against the current labels and aliases, one by one.
func (e *Engine) offerNames(ctx context.Context, r *run, suggestions []model.NameSuggestion) error {
	suggestions = model.DedupeNames(suggestions, r.entity)
	if len(suggestions) == 0 {
		return nil
	}

	labels := make(map[string]string)
	aliases := make(map[string][]string)

	for _, s := range suggestions {
		if !e.always && !e.ui.Confirm(fmt.Sprintf("Add name %q (%s)?", s.Name, s.Language)) {
			continue
		}
		if _, ok := r.entity.Labels[s.Language]; !ok {
			if _, taken := labels[s.Language]; !taken {
				labels[s.Language] = s.Name
				continue
			}
		}
		aliases[s.Language] = append(aliases[s.Language], s.Name)
	}

	if len(labels) > 0 {
		if err := e.svc.EditLabels(ctx, r.entity.ID, labels); err != nil {
			return fmt.Errorf("edit labels: %w", err)
		}
	}
	if len(aliases) > 0 {
		if err := e.svc.EditAliases(ctx, r.entity.ID, aliases); err != nil {
			return fmt.Errorf("edit aliases: %w", err)
		}
	}

	return nil
}

// resolveDescriptions offers the collected description candidates, one
// language at a time, once at the very end of the run. The default keeps
// the existing description.
func (e *Engine) resolveDescriptions(ctx context.Context, r *run) {
	var languages []string
	for lang := range r.descriptions {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	edits := make(map[string]string)
	for _, lang := range languages {
		candidates := dedupeStrings(r.descriptions[lang])
		current := r.entity.Descriptions[lang]
		question := fmt.Sprintf("Description (%s), currently %q:", lang, current)
		if choice := e.ui.Select(question, candidates); choice >= 0 {
			edits[lang] = candidates[choice]
		}
	}

	if len(edits) == 0 {
		return
	}
	if err := e.svc.EditDescriptions(ctx, r.entity.ID, edits); err != nil {
		e.ui.Report("edit descriptions failed: %v", err)
	}
}

// reportRun surfaces everything non-fatal collected along the way.
func (e *Engine) reportRun(r *run) {
	for _, notice := range r.notices {
		e.ui.Report("notice: %s", notice)
	}
	if len(r.unidentified) > 0 {
		e.ui.Report("unidentified origins (no rule table):")
		for _, entry := range r.unidentified {
			e.ui.Report("  %s", entry)
		}
	}
	if len(r.failed) > 0 {
		e.ui.Report("failed origins (treated as zero candidates):")
		for _, entry := range r.failed {
			e.ui.Report("  %s", entry)
		}
	}
}

// describe renders a fact value for the confirmation listing, resolving
// entity ids to cached labels.
func (e *Engine) describe(value string) string {
	if model.IsItem(value) {
		label := e.store.Label(value)
		if label != value {
			return fmt.Sprintf("%s (%s)", value, label)
		}
	}
	return value
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// wikiPageURL builds the article URL for a site-link quasi-claim. Site ids
// follow the MediaWiki convention ("enwiki", "dewiki").
func wikiPageURL(site, title string) string {
	lang := strings.TrimSuffix(site, "wiki")
	if lang == "" || lang == site {
		return ""
	}
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, url.PathEscape(strings.ReplaceAll(title, " ", "_")))
}
