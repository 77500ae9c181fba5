package extract

import (
	"regexp"
	"testing"
)

// fakeResolver answers from a fixed (category, normalized) table and records
// whether any interactive resolution was requested.
type fakeResolver struct {
	table       map[string]string // "category/raw" -> entity id
	interactive []string          // raw values that reached interactive resolution
}

func (r *fakeResolver) Resolve(category, raw string, interactive bool) (string, bool) {
	if interactive {
		r.interactive = append(r.interactive, raw)
	}
	value, ok := r.table[category+"/"+raw]
	return value, ok
}

func TestFindOne_FirstCapture(t *testing.T) {
	x := NewExtractor(&fakeResolver{})
	pattern := regexp.MustCompile(`born in (\w+)`)

	got := x.FindOne(pattern, "was born in Leiden and died in Delft", MatchOptions{})
	if got != "Leiden" {
		t.Errorf("FindOne = %q, want Leiden", got)
	}
}

func TestFindOne_NoMatch(t *testing.T) {
	x := NewExtractor(&fakeResolver{})
	if got := x.FindOne(regexp.MustCompile(`born in (\w+)`), "no dates here", MatchOptions{}); got != "" {
		t.Errorf("FindOne = %q, want empty", got)
	}
}

func TestFindOne_NilPattern(t *testing.T) {
	x := NewExtractor(&fakeResolver{})
	if got := x.FindOne(nil, "anything", MatchOptions{}); got != "" {
		t.Errorf("FindOne = %q, want empty", got)
	}
}

func TestFindOne_CategoryResolution(t *testing.T) {
	resolver := &fakeResolver{table: map[string]string{"place/Leiden": "Q43631"}}
	x := NewExtractor(resolver)
	pattern := regexp.MustCompile(`born in (\w+)`)

	got := x.FindOne(pattern, "born in Leiden", MatchOptions{Category: "place"})
	if got != "Q43631" {
		t.Errorf("FindOne = %q, want Q43631", got)
	}
	if len(resolver.interactive) != 1 {
		t.Errorf("expected one interactive resolution, got %v", resolver.interactive)
	}
}

func TestFindOne_AltWinsWithoutPrompt(t *testing.T) {
	resolver := &fakeResolver{table: map[string]string{
		"occupation-art/painter": "Q1028181",
		"occupation/painter":     "Q99999",
	}}
	x := NewExtractor(resolver)
	pattern := regexp.MustCompile(`profession: (\w+)`)

	got := x.FindOne(pattern, "profession: painter", MatchOptions{
		Category: "occupation",
		Alt:      []string{"occupation-art"},
	})
	if got != "Q1028181" {
		t.Errorf("FindOne = %q, want the alt category hit Q1028181", got)
	}
	if len(resolver.interactive) != 0 {
		t.Errorf("alt hit must not prompt, got interactive %v", resolver.interactive)
	}
}

func TestFindOne_ExcludeVetoes(t *testing.T) {
	resolver := &fakeResolver{table: map[string]string{
		"not-a-place/Heaven": "Q190",
		"place/Heaven":       "Q31354462",
	}}
	x := NewExtractor(resolver)
	pattern := regexp.MustCompile(`died in (\w+)`)

	got := x.FindOne(pattern, "died in Heaven", MatchOptions{
		Category: "place",
		Exclude:  []string{"not-a-place"},
	})
	if got != "" {
		t.Errorf("FindOne = %q, want suppressed match", got)
	}
	if len(resolver.interactive) != 0 {
		t.Errorf("vetoed capture must not prompt, got %v", resolver.interactive)
	}
}

func TestFindOne_UnresolvedDeclined(t *testing.T) {
	x := NewExtractor(&fakeResolver{})
	pattern := regexp.MustCompile(`born in (\w+)`)

	if got := x.FindOne(pattern, "born in Atlantis", MatchOptions{Category: "place"}); got != "" {
		t.Errorf("FindOne = %q, want empty for undecided value", got)
	}
}

func TestFindAll_DedupInOrder(t *testing.T) {
	x := NewExtractor(&fakeResolver{})
	pattern := regexp.MustCompile(`id/(\w+)`)
	text := "id/b id/a id/b id/c id/a"

	got := x.FindAll(pattern, text, MatchOptions{})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("FindAll = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindAll_DedupAfterResolution(t *testing.T) {
	// Two different raw captures resolving to the same entity collapse.
	resolver := &fakeResolver{table: map[string]string{
		"occupation/painter": "Q1028181",
		"occupation/Maler":   "Q1028181",
	}}
	x := NewExtractor(resolver)
	pattern := regexp.MustCompile(`job: (\w+)`)

	got := x.FindAll(pattern, "job: painter job: Maler", MatchOptions{Category: "occupation"})
	if len(got) != 1 || got[0] != "Q1028181" {
		t.Errorf("FindAll = %v, want single Q1028181", got)
	}
}

func TestFindAll_SkipsUnresolved(t *testing.T) {
	resolver := &fakeResolver{table: map[string]string{"occupation/painter": "Q1028181"}}
	x := NewExtractor(resolver)
	pattern := regexp.MustCompile(`job: (\w+)`)

	got := x.FindAll(pattern, "job: painter job: unknownthing", MatchOptions{Category: "occupation"})
	if len(got) != 1 {
		t.Errorf("FindAll = %v, want only the resolved value", got)
	}
}

func TestRegion(t *testing.T) {
	pattern := regexp.MustCompile(`(?s)<table id="record">(.*?)</table>`)
	text := `junk <table id="record">the payload</table> trailer`

	if got := Region(pattern, text); got != "the payload" {
		t.Errorf("Region = %q", got)
	}
	if got := Region(pattern, "no table here"); got != "" {
		t.Errorf("Region = %q, want empty when the fragment is absent", got)
	}
	if got := Region(nil, text); got != text {
		t.Errorf("Region without pattern must return the whole text")
	}
}
