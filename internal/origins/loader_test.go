package origins

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTable = `
name: RKDartists ID
property: P650
item: Q17299517
url_template: https://rkd.nl/en/explore/artists/$1
id_pattern: '^\d+$'
hosts:
  - rkd.nl
singles:
  - property: P21
    pattern: 'Gender:\s*(\w+)'
    category: gender
multis:
  - property: P106
    pattern: 'Occupation:\s*(\w+)'
    category: occupation
    exclude:
      - city
dates:
  - property: P1317
    pattern: 'Active:\s*([\d-]+)'
    range_start: P2031
    range_end: P2032
names:
  - language: nl
    pattern: 'Naam:\s*(.+)'
    all: true
`

func TestParse(t *testing.T) {
	rules, err := Parse([]byte(sampleTable))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if rules.Property != "P650" || rules.Item != "Q17299517" {
		t.Errorf("metadata = %+v", rules)
	}
	if !rules.Matches("123") || rules.Matches("abc") {
		t.Error("id pattern not compiled")
	}
	if len(rules.Singles) != 1 || rules.Singles[0].Rule.Category != "gender" {
		t.Errorf("singles = %+v", rules.Singles)
	}
	if len(rules.Multis) != 1 || len(rules.Multis[0].Rule.Exclude) != 1 {
		t.Errorf("multis = %+v", rules.Multis)
	}
	if len(rules.Dates) != 1 || rules.Dates[0].RangeStart != "P2031" {
		t.Errorf("dates = %+v", rules.Dates)
	}
	if len(rules.Names) != 1 || !rules.Names[0].All {
		t.Errorf("names = %+v", rules.Names)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("name: x\n")); err == nil {
		t.Error("expected error for missing property")
	}
	if _, err := Parse([]byte("property: P1\nsingles:\n  - property: P2\n    pattern: '('\n")); err == nil {
		t.Error("expected error for bad regex")
	}
	if _, err := Parse([]byte("{{{")); err == nil {
		t.Error("expected error for bad YAML")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rkd.yaml"), []byte(sampleTable), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry(false)
	if err := LoadDir(registry, dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if registry.ForProperty("P650", "123") == nil {
		t.Error("loaded table not registered")
	}
}

func TestLoadDir_Missing(t *testing.T) {
	registry := NewRegistry(false)
	if err := LoadDir(registry, filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Errorf("missing dir must not fail, got %v", err)
	}
}
