package origins

import (
	"testing"

	"github.com/quelltext/provenia/internal/model"
)

func TestScanCrossRefs_KnownShapes(t *testing.T) {
	page := `
		<a href="https://viaf.org/viaf/59089902">VIAF</a>
		<a href="https://d-nb.info/gnd/118540238">GND</a>
		<a href="https://www.imdb.com/name/nm0000122/">IMDb</a>
		<a href="https://www.findagrave.com/memorial/534">grave</a>
	`
	facts := ScanCrossRefs(page, "", "", false)

	want := map[string]string{
		"P214": "59089902",
		"P227": "118540238",
		"P345": "nm0000122",
		"P535": "534",
	}
	if len(facts) != len(want) {
		t.Fatalf("got %d facts %v, want %d", len(facts), facts, len(want))
	}
	for _, fact := range facts {
		if want[fact.Property] != fact.Value {
			t.Errorf("%s = %q, want %q", fact.Property, fact.Value, want[fact.Property])
		}
	}
}

func TestScanCrossRefs_SelfReferenceSuppressed(t *testing.T) {
	page := `see https://viaf.org/viaf/123 and https://viaf.org/viaf/456`
	facts := ScanCrossRefs(page, "P214", "123", false)

	if len(facts) != 1 || facts[0].Value != "456" {
		t.Errorf("facts = %v, want only the foreign id", facts)
	}
}

func TestScanCrossRefs_Deduplicated(t *testing.T) {
	page := `https://viaf.org/viaf/123 ... https://viaf.org/viaf/123`
	facts := ScanCrossRefs(page, "", "", false)

	if len(facts) != 1 {
		t.Errorf("facts = %v, want one", facts)
	}
}

func TestScanGroupedISNI(t *testing.T) {
	facts := ScanGroupedISNI("ISNI: 0000 0001 2281 955X and again 0000 0001 2281 955X", "", "")

	if len(facts) != 1 {
		t.Fatalf("facts = %v, want one deduplicated fact", facts)
	}
	if facts[0].Property != model.PropISNI || facts[0].Value != "000000012281955X" {
		t.Errorf("fact = %+v, want ungrouped ISNI", facts[0])
	}
}

func TestScanGroupedISNI_SelfReferenceSuppressed(t *testing.T) {
	facts := ScanGroupedISNI("ISNI: 0000 0001 2281 955X", model.PropISNI, "000000012281955X")

	if len(facts) != 0 {
		t.Errorf("facts = %v, want the page's own identifier suppressed", facts)
	}
}

func TestScanCrossRefs_Denylist(t *testing.T) {
	page := `https://twitter.com/share https://twitter.com/VincentvanGogh`
	facts := ScanCrossRefs(page, "", "", false)

	if len(facts) != 1 || facts[0].Value != "VincentvanGogh" {
		t.Errorf("facts = %v, want the placeholder dropped", facts)
	}
}

func TestScanCrossRefs_SkipSocial(t *testing.T) {
	page := `https://twitter.com/VincentvanGogh https://viaf.org/viaf/9854560`
	facts := ScanCrossRefs(page, "", "", true)

	if len(facts) != 1 || facts[0].Property != "P214" {
		t.Errorf("facts = %v, want social shapes skipped", facts)
	}
}
