package model

import "strings"

// NameSuggestion is a label or alias candidate harvested from an origin page,
// offered to the operator after the field that produced it is done.
type NameSuggestion struct {
	Language string `json:"language"`
	Name     string `json:"name"`
}

// DedupeNames drops suggestions already present as labels or aliases on the
// entity and collapses case-insensitive duplicates, preserving order.
func DedupeNames(suggestions []NameSuggestion, entity *Entity) []NameSuggestion {
	seen := make(map[string]bool)
	var unique []NameSuggestion

	for _, s := range suggestions {
		key := s.Language + "\x00" + strings.ToLower(s.Name)
		if seen[key] || entity.HasLabel(s.Name) {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}

	return unique
}
