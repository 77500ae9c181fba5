package resolve

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/quelltext/provenia/internal/console"
	"github.com/quelltext/provenia/internal/model"
)

// Hinter optionally proposes a likely resolution shown inside the prompt.
// The hint is advisory text only; the operator still types the answer.
type Hinter interface {
	Hint(category, text string) string
}

// Store is the persistent disambiguation cache: a decide-once-apply-
// everywhere mapping from (category, normalized text) to an entity
// reference, plus a permanent-skip set and a label cache for display. It is
// owned by the bot instance and flushed to disk at teardown.
type Store struct {
	dir string
	ui  console.Interactor

	mu     sync.Mutex
	labels map[string]string // entity id -> cached label
	values map[string]string // category:normalizedText -> entity id
	skips  map[string]bool   // normalizedText, category-independent

	hinter  Hinter
	labelFn func(id string) (string, error)
}

const (
	labelFile = "labels.txt"
	valueFile = "values.txt"
	skipFile  = "skips.txt"
)

// NewStore creates a disambiguation cache persisting under dir, prompting
// through ui when an unknown value needs a decision.
func NewStore(dir string, ui console.Interactor) *Store {
	return &Store{
		dir:    dir,
		ui:     ui,
		labels: make(map[string]string),
		values: make(map[string]string),
		skips:  make(map[string]bool),
	}
}

// SetHinter installs an optional prompt hint provider.
func (s *Store) SetHinter(h Hinter) { s.hinter = h }

// SetLabelFunc installs the lookup used to fill the label cache on miss.
func (s *Store) SetLabelFunc(fn func(id string) (string, error)) { s.labelFn = fn }

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
var whitespace = regexp.MustCompile(`\s+`)

// Normalize canonicalizes free text for cache lookup: entities decoded,
// parenthetical suffix dropped, trailing period/comma stripped, whitespace
// collapsed, lower-cased.
func Normalize(raw string) string {
	text := html.UnescapeString(raw)
	text = strings.TrimSpace(text)
	text = parenthetical.ReplaceAllString(text, "")
	text = strings.TrimRight(text, ".,")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// Resolve maps free text within a category to an entity reference. A cached
// decision is returned without interaction; a cached skip or an empty
// normalization declines the value. Unknown text prompts the operator when
// interactive, and never prompts otherwise (the probe mode used for
// exclude/alt category checks).
func (s *Store) Resolve(category, raw string, interactive bool) (string, bool) {
	norm := Normalize(raw)
	if norm == "" {
		return "", false
	}

	s.mu.Lock()
	if s.skips[norm] {
		s.mu.Unlock()
		return "", false
	}
	if value, ok := s.values[category+":"+norm]; ok {
		s.mu.Unlock()
		return value, true
	}
	s.mu.Unlock()

	if !interactive {
		return "", false
	}

	return s.prompt(category, norm)
}

// prompt asks the operator to decide an unknown value. Accepted answers:
// an entity id (cached permanently), X followed by an entity id (used once,
// not cached), XXX (permanent skip), or blank (no decision, nothing cached).
func (s *Store) prompt(category, norm string) (string, bool) {
	question := fmt.Sprintf("[%s] %q -> entity id? (Q… caches, X Q… one-time, XXX skips forever, empty skips once)", category, norm)
	if s.hinter != nil {
		if hint := s.hinter.Hint(category, norm); hint != "" {
			question = fmt.Sprintf("%s\n  hint: %s", question, hint)
		}
	}

	answer := strings.TrimSpace(s.ui.Input(question))
	switch {
	case answer == "":
		return "", false
	case answer == "XXX":
		s.mu.Lock()
		s.skips[norm] = true
		s.mu.Unlock()
		return "", false
	case strings.HasPrefix(answer, "X"):
		oneTime := strings.TrimSpace(strings.TrimPrefix(answer, "X"))
		if model.IsItem(oneTime) {
			return oneTime, true
		}
		return "", false
	case model.IsItem(answer):
		s.mu.Lock()
		s.values[category+":"+norm] = answer
		s.mu.Unlock()
		return answer, true
	default:
		s.ui.Report("unrecognized answer %q, skipping once", answer)
		return "", false
	}
}

// Label returns a display label for an entity id, fetching and caching it
// on first use. Falls back to the bare id when no lookup is installed or
// the lookup fails.
func (s *Store) Label(id string) string {
	s.mu.Lock()
	if label, ok := s.labels[id]; ok {
		s.mu.Unlock()
		return label
	}
	s.mu.Unlock()

	if s.labelFn == nil {
		return id
	}
	label, err := s.labelFn(id)
	if err != nil || label == "" {
		return id
	}

	s.mu.Lock()
	s.labels[id] = label
	s.mu.Unlock()
	return label
}

// Stats returns the entry counts of the three caches.
func (s *Store) Stats() (labels, values, skips int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.labels), len(s.values), len(s.skips)
}

// Clear empties all three caches in memory.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = make(map[string]string)
	s.values = make(map[string]string)
	s.skips = make(map[string]bool)
}

// Load reads the three cache files from the store directory. Missing files
// mean a fresh cache; malformed lines are an error, since the files are
// operator-maintained local state, not untrusted input.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadPairs(labelFile, s.labels); err != nil {
		return err
	}

	if err := eachLine(filepath.Join(s.dir, valueFile), func(line string) error {
		// category:normalizedText:resolution — the text may itself contain
		// colons, so the category is split off the front and the resolution
		// off the back. A key whose category or resolution contains a colon
		// cannot round-trip; see DESIGN.md.
		first := strings.Index(line, ":")
		last := strings.LastIndex(line, ":")
		if first < 0 || last <= first {
			return fmt.Errorf("malformed cache line %q", line)
		}
		s.values[line[:first]+":"+line[first+1:last]] = line[last+1:]
		return nil
	}); err != nil {
		return err
	}

	return eachLine(filepath.Join(s.dir, skipFile), func(line string) error {
		s.skips[line] = true
		return nil
	})
}

func (s *Store) loadPairs(name string, into map[string]string) error {
	return eachLine(filepath.Join(s.dir, name), func(line string) error {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("malformed cache line %q", line)
		}
		into[key] = value
		return nil
	})
}

func eachLine(path string, fn func(string) error) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}

// Persist writes the three caches back to disk, one entry per line.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	var labels strings.Builder
	for key, value := range s.labels {
		fmt.Fprintf(&labels, "%s:%s\n", key, value)
	}
	if err := os.WriteFile(filepath.Join(s.dir, labelFile), []byte(labels.String()), 0o644); err != nil {
		return fmt.Errorf("write label cache: %w", err)
	}

	var values strings.Builder
	for key, value := range s.values {
		fmt.Fprintf(&values, "%s:%s\n", key, value)
	}
	if err := os.WriteFile(filepath.Join(s.dir, valueFile), []byte(values.String()), 0o644); err != nil {
		return fmt.Errorf("write value cache: %w", err)
	}

	var skips strings.Builder
	for key := range s.skips {
		fmt.Fprintf(&skips, "%s\n", key)
	}
	if err := os.WriteFile(filepath.Join(s.dir, skipFile), []byte(skips.String()), 0o644); err != nil {
		return fmt.Errorf("write skip cache: %w", err)
	}

	return nil
}
