package model

import "strings"

// Sentinel prefixes mark extracted values that the merge engine must turn
// into a non-string claim value. The extractor tags raw text; the engine
// strips the tag and builds the typed value at claim-creation time.
const (
	DateSentinel     = "!date!"
	QuantitySentinel = "!q!"
	MediaSentinel    = "!i!"
)

// Fact is one proposed (property, value, source) triple produced by the
// extraction stage, not yet committed to the entity.
type Fact struct {
	Property string  `json:"property"`
	Value    string  `json:"value"`
	Source   *Source `json:"source,omitempty"` // nil for definitional facts (names, instance-of)
}

// ValueKind classifies a fact value by its sentinel tag.
type ValueKind int

const (
	KindString ValueKind = iota
	KindItem             // entity reference (Q-id)
	KindDate
	KindQuantity
	KindMedia
)

// Kind returns the value kind of a tagged or plain value.
func Kind(value string) ValueKind {
	switch {
	case strings.HasPrefix(value, DateSentinel):
		return KindDate
	case strings.HasPrefix(value, QuantitySentinel):
		return KindQuantity
	case strings.HasPrefix(value, MediaSentinel):
		return KindMedia
	case IsItem(value):
		return KindItem
	default:
		return KindString
	}
}

// Untag strips any sentinel prefix from a value, returning the raw text.
func Untag(value string) string {
	for _, sentinel := range []string{DateSentinel, QuantitySentinel, MediaSentinel} {
		if strings.HasPrefix(value, sentinel) {
			return value[len(sentinel):]
		}
	}
	return value
}

// TagDate wraps raw date text with the date sentinel.
func TagDate(raw string) string { return DateSentinel + raw }

// TagQuantity wraps raw quantity text with the quantity sentinel.
func TagQuantity(raw string) string { return QuantitySentinel + raw }

// TagMedia wraps a media file name with the media sentinel.
func TagMedia(raw string) string { return MediaSentinel + raw }

// IsItem reports whether a value is an entity reference (Q followed by digits).
func IsItem(value string) bool {
	if len(value) < 2 || value[0] != 'Q' {
		return false
	}
	for _, r := range value[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
