package merge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/quelltext/provenia/internal/console"
	"github.com/quelltext/provenia/internal/model"
	"github.com/quelltext/provenia/internal/origins"
	"github.com/quelltext/provenia/internal/resolve"
)

// fakeService keeps entities in memory and records every write.
type fakeService struct {
	entities map[string]*model.Entity
	nextID   int

	addedClaims  []string // "property=value"
	addedSources int
	failOn       map[string]error // property -> AddClaim error
}

func newFakeService(entities ...*model.Entity) *fakeService {
	s := &fakeService{
		entities: make(map[string]*model.Entity),
		failOn:   make(map[string]error),
	}
	for _, entity := range entities {
		s.entities[entity.ID] = entity
	}
	return s
}

func (s *fakeService) GetEntity(ctx context.Context, id string, refresh bool) (*model.Entity, error) {
	entity, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("no entity %s", id)
	}
	return copyEntity(entity), nil
}

func (s *fakeService) AddClaim(ctx context.Context, entityID, property, value string) (*model.Claim, error) {
	if err := s.failOn[property]; err != nil {
		return nil, err
	}
	s.nextID++
	claim := &model.Claim{
		ID:       fmt.Sprintf("%s$%d", entityID, s.nextID),
		Property: property,
		Value:    value,
	}
	entity := s.entities[entityID]
	entity.Claims[property] = append(entity.Claims[property], claim)
	s.addedClaims = append(s.addedClaims, property+"="+value)
	return copyClaim(claim), nil
}

func (s *fakeService) AddSources(ctx context.Context, entityID string, claim *model.Claim, source []model.Snak) error {
	entity := s.entities[entityID]
	for _, claims := range entity.Claims {
		for _, c := range claims {
			if c.ID == claim.ID {
				c.Sources = append(c.Sources, source)
				s.addedSources++
				return nil
			}
		}
	}
	return fmt.Errorf("no claim %s", claim.ID)
}

func (s *fakeService) EditLabels(ctx context.Context, entityID string, labels map[string]string) error {
	for language, value := range labels {
		s.entities[entityID].Labels[language] = value
	}
	return nil
}

func (s *fakeService) EditAliases(ctx context.Context, entityID string, aliases map[string][]string) error {
	entity := s.entities[entityID]
	for language, values := range aliases {
		entity.Aliases[language] = append(entity.Aliases[language], values...)
	}
	return nil
}

func (s *fakeService) EditDescriptions(ctx context.Context, entityID string, descriptions map[string]string) error {
	for language, value := range descriptions {
		s.entities[entityID].Descriptions[language] = value
	}
	return nil
}

func copyEntity(e *model.Entity) *model.Entity {
	out := &model.Entity{
		ID:           e.ID,
		Labels:       make(map[string]string),
		Aliases:      make(map[string][]string),
		Descriptions: make(map[string]string),
		Claims:       make(map[string][]*model.Claim),
		SiteLinks:    make(map[string]string),
	}
	for k, v := range e.Labels {
		out.Labels[k] = v
	}
	for k, v := range e.Aliases {
		out.Aliases[k] = append([]string(nil), v...)
	}
	for k, v := range e.Descriptions {
		out.Descriptions[k] = v
	}
	for k, v := range e.SiteLinks {
		out.SiteLinks[k] = v
	}
	for property, claims := range e.Claims {
		for _, claim := range claims {
			out.Claims[property] = append(out.Claims[property], copyClaim(claim))
		}
	}
	return out
}

func copyClaim(c *model.Claim) *model.Claim {
	out := &model.Claim{ID: c.ID, Property: c.Property, Value: c.Value, Datatype: c.Datatype}
	for _, source := range c.Sources {
		out.Sources = append(out.Sources, append([]model.Snak(nil), source...))
	}
	return out
}

// fakeFetcher serves pages from a map and records every URL asked for.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.fetched = append(f.fetched, rawURL)
	page, ok := f.pages[rawURL]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

// The Data pseudo-property fetches the entity's own record on every full run;
// originFetches hides that constant from per-test assertions.
const q1DataURL = "https://www.wikidata.org/wiki/Special:EntityData/Q1.json"

func originFetches(f *fakeFetcher) []string {
	var out []string
	for _, url := range f.fetched {
		if strings.Contains(url, "Special:EntityData") {
			continue
		}
		out = append(out, url)
	}
	return out
}

func testEntity(id string, claims map[string][]*model.Claim) *model.Entity {
	if claims == nil {
		claims = make(map[string][]*model.Claim)
	}
	return &model.Entity{
		ID:           id,
		Labels:       make(map[string]string),
		Aliases:      make(map[string][]string),
		Descriptions: make(map[string]string),
		Claims:       claims,
		SiteLinks:    make(map[string]string),
	}
}

func externalID(id, property, value string) *model.Claim {
	return &model.Claim{ID: id, Property: property, Value: value, Datatype: "external-id"}
}

func testRegistry(tables ...*origins.Rules) *origins.Registry {
	registry := origins.NewRegistry(false)
	for _, table := range tables {
		registry.Register(table)
	}
	return registry
}

func newTestEngine(t *testing.T, svc EntityService, fetcher Fetcher, registry *origins.Registry, always bool) *Engine {
	t.Helper()
	store := resolve.NewStore(t.TempDir(), &console.Silent{})
	return NewEngine(svc, fetcher, nil, registry, store, &console.Silent{}, always, false)
}

// catalogA and catalogB are synthetic origins on properties the built-in
// tables leave free; their pages use trivial key=value markup.
func catalogA() *origins.Rules {
	return &origins.Rules{
		Name:        "Catalog A",
		Property:    "P9901",
		Item:        "Q9901",
		URLTemplate: "https://a.example/$1",
		IDPattern:   regexp.MustCompile(`^a\d+$`),
		NoCrossref:  true,
		Singles: []origins.PropertyRule{
			{Property: "P19", Rule: origins.Rule{Pattern: regexp.MustCompile(`birthplace=(Q\d+)`)}},
		},
		Multis: []origins.PropertyRule{
			{Property: "P9902", Rule: origins.Rule{Pattern: regexp.MustCompile(`other=(b\d+)`)}},
		},
		Dates: []origins.DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`born=(\S+)`)},
		},
	}
}

func catalogB() *origins.Rules {
	return &origins.Rules{
		Name:        "Catalog B",
		Property:    "P9902",
		Item:        "Q9902",
		URLTemplate: "https://b.example/$1",
		IDPattern:   regexp.MustCompile(`^b\d+$`),
		NoCrossref:  true,
		Singles: []origins.PropertyRule{
			{Property: "P20", Rule: origins.Rule{Pattern: regexp.MustCompile(`deathplace=(Q\d+)`)}},
		},
	}
}

func TestProcess_MergeAttachesSource(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
		"P19":   {{ID: "Q1$2", Property: "P19", Value: "Q64"}},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "birthplace=Q64",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA()), false)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(svc.addedClaims) != 0 {
		t.Errorf("added claims %v, want none (value already present)", svc.addedClaims)
	}
	if svc.addedSources != 1 {
		t.Errorf("added %d sources, want 1", svc.addedSources)
	}
	sources := svc.entities["Q1"].Claims["P19"][0].Sources
	if len(sources) != 1 {
		t.Fatalf("claim sources = %v", sources)
	}
}

func TestProcess_MergeIdempotent(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
		"P19":   {{ID: "Q1$2", Property: "P19", Value: "Q64"}},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "birthplace=Q64",
		q1DataURL:              "{}",
	}}
	registry := testRegistry(catalogA())

	engine := newTestEngine(t, svc, fetcher, registry, false)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if svc.addedSources != 1 {
		t.Errorf("added %d sources across two runs, want 1", svc.addedSources)
	}
}

func TestProcess_CreateAndTransitiveDiscovery(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "born=1680-05-12 other=b7",
		"https://b.example/b7": "deathplace=Q90",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA(), catalogB()), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := map[string]bool{
		"P569=" + model.TagDate("1680-05-12"): true,
		"P9902=b7":                            true,
		"P20=Q90":                             true,
	}
	if len(svc.addedClaims) != len(want) {
		t.Fatalf("added claims %v, want %d", svc.addedClaims, len(want))
	}
	for _, added := range svc.addedClaims {
		if !want[added] {
			t.Errorf("unexpected claim %s", added)
		}
	}

	// The discovered identifier's origin was actually fetched.
	found := false
	for _, url := range fetcher.fetched {
		if url == "https://b.example/b7" {
			found = true
		}
	}
	if !found {
		t.Errorf("catalog B never fetched: %v", fetcher.fetched)
	}
}

func TestProcess_TerminatesOnMutualReference(t *testing.T) {
	// Catalog A's page points at B's identifier and vice versa; the done set
	// must keep the run finite.
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	a := catalogA()
	b := catalogB()
	b.Multis = []origins.PropertyRule{
		{Property: "P9901", Rule: origins.Rule{Pattern: regexp.MustCompile(`back=(a\d+)`)}},
	}
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "other=b7",
		"https://b.example/b7": "back=a1",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(a, b), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := originFetches(fetcher); len(got) != 2 {
		t.Errorf("fetched %v, want each origin exactly once", got)
	}
}

func TestProcess_RestrictOnly(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
		"P9902": {externalID("Q1$2", "P9902", "b7")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "",
		"https://b.example/b7": "",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA(), catalogB()), true)
	if err := engine.Process(context.Background(), "Q1", "P9902"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got := originFetches(fetcher)
	if len(got) != 1 || got[0] != "https://b.example/b7" {
		t.Errorf("fetched %v, want only catalog B", got)
	}
}

func TestProcess_RestrictContinue(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
		"P9902": {externalID("Q1$2", "P9902", "b7")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "",
		"https://b.example/b7": "",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA(), catalogB()), true)
	if err := engine.Process(context.Background(), "Q1", "P9901+"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := originFetches(fetcher); len(got) != 2 {
		t.Errorf("fetched %v, want both catalogs", got)
	}
}

func TestProcess_RestrictSkipSelf(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
		"P9902": {externalID("Q1$2", "P9902", "b7")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "",
		"https://b.example/b7": "",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA(), catalogB()), true)
	if err := engine.Process(context.Background(), "Q1", "P9901*"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got := originFetches(fetcher)
	if len(got) != 1 || got[0] != "https://b.example/b7" {
		t.Errorf("fetched %v, want catalog A skipped", got)
	}
}

func TestProcess_FailedOriginIsNonFatal(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
		"P9902": {externalID("Q1$2", "P9902", "b7")},
	})
	svc := newFakeService(entity)
	// Catalog A's page is missing entirely.
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://b.example/b7": "deathplace=Q90",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA(), catalogB()), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(svc.addedClaims) != 1 || svc.addedClaims[0] != "P20=Q90" {
		t.Errorf("added claims %v, want catalog B's fact despite A failing", svc.addedClaims)
	}
}

func TestProcess_UnparseableDateSkipped(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "born=1680-13",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA()), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(svc.addedClaims) != 0 {
		t.Errorf("added claims %v, want unparseable date dropped", svc.addedClaims)
	}
}

func TestProcess_MediaCreateErrorSkipped(t *testing.T) {
	a := catalogA()
	a.Media = []origins.PropertyRule{
		{Property: "P18", Rule: origins.Rule{Pattern: regexp.MustCompile(`photo=(\S+)`)}},
	}
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	svc := newFakeService(entity)
	svc.failOn["P18"] = errors.New("no such file on commons")
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "photo=portrait.jpg birthplace=Q64",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(a), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("media failure must not abort the run: %v", err)
	}

	// The non-media creation still happened.
	if len(svc.addedClaims) != 1 || svc.addedClaims[0] != "P19=Q64" {
		t.Errorf("added claims %v", svc.addedClaims)
	}
}

func TestProcess_NonMediaCreateErrorFatal(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	svc := newFakeService(entity)
	svc.failOn["P19"] = errors.New("abuse filter hit")
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "birthplace=Q64",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA()), true)
	if err := engine.Process(context.Background(), "Q1", ""); err == nil {
		t.Fatal("expected a write failure to abort the run")
	}
}

func TestProcess_DuplicateCandidatesCreateOnce(t *testing.T) {
	// Two rules of one origin can yield the same (property, value) pair. The
	// first candidate creates the claim; the second must take the merge path
	// rather than create a twin.
	a := catalogA()
	a.Multis = []origins.PropertyRule{
		{Property: "P19", Rule: origins.Rule{Pattern: regexp.MustCompile(`place=(Q\d+)`)}},
	}
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "birthplace=Q64 place=Q64",
		q1DataURL:              "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(a), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(svc.addedClaims) != 1 || svc.addedClaims[0] != "P19=Q64" {
		t.Errorf("added claims %v, want a single P19", svc.addedClaims)
	}
	if got := len(svc.entities["Q1"].Claims["P19"]); got != 1 {
		t.Errorf("entity ended with %d P19 claims, want 1", got)
	}
	if svc.addedSources != 1 {
		t.Errorf("added %d sources, want the origin attached once", svc.addedSources)
	}
}

func TestProcess_DeclinedCreation(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P9901": {externalID("Q1$1", "P9901", "a1")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example/a1": "birthplace=Q64",
		q1DataURL:              "{}",
	}}

	// The silent UI answers the confirmation with no decision, which
	// declines every creation.
	engine := newTestEngine(t, svc, fetcher, testRegistry(catalogA()), false)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(svc.addedClaims) != 0 {
		t.Errorf("added claims %v, want none when declined", svc.addedClaims)
	}
}

func TestProcess_SiteLinkCrossReference(t *testing.T) {
	// An interlanguage link becomes a Wiki quasi-claim; the article's
	// authority-control links yield identifier claims, and the newly created
	// identifier's own origin gets processed in the same run.
	entity := testEntity("Q1", nil)
	entity.SiteLinks["dewiki"] = "Jan Steen"
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://de.wikipedia.org/wiki/Jan_Steen": `Normdaten: <a href="https://viaf.org/viaf/59089902">VIAF</a>`,
		"https://viaf.org/viaf/59089902/":         "{}",
		q1DataURL:                                 "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(svc.addedClaims) != 1 || svc.addedClaims[0] != "P214=59089902" {
		t.Errorf("added claims %v, want the VIAF identifier", svc.addedClaims)
	}

	found := false
	for _, url := range fetcher.fetched {
		if url == "https://viaf.org/viaf/59089902/" {
			found = true
		}
	}
	if !found {
		t.Errorf("discovered VIAF origin never fetched: %v", fetcher.fetched)
	}
}

func TestProcess_UnknownIdentifierNotFetched(t *testing.T) {
	entity := testEntity("Q1", map[string][]*model.Claim{
		"P4444": {externalID("Q1$1", "P4444", "zz9")},
	})
	svc := newFakeService(entity)
	fetcher := &fakeFetcher{pages: map[string]string{
		q1DataURL: "{}",
	}}

	engine := newTestEngine(t, svc, fetcher, testRegistry(), true)
	if err := engine.Process(context.Background(), "Q1", ""); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := originFetches(fetcher); len(got) != 0 {
		t.Errorf("fetched %v, want nothing for an unknown identifier", got)
	}
}

func TestEqualValue(t *testing.T) {
	cases := []struct {
		existing, candidate string
		want                bool
	}{
		{"Q64", "Q64", true},
		{"Q64", "Q65", false},
		{"!date!1680", "!date!1680", true},
		{"!i!Jan_Steen.jpg", "!i!Jan Steen.jpg", true},
		{"!i!jan steen.jpg", "!i!Jan Steen.jpg", true},
		{"!q!170", "!q!170", true},
		{"!q!170", "!q!171", false},
		{"plain", "plain", true},
	}
	for _, tc := range cases {
		if got := equalValue(tc.existing, tc.candidate); got != tc.want {
			t.Errorf("equalValue(%q, %q) = %v, want %v", tc.existing, tc.candidate, got, tc.want)
		}
	}
}
