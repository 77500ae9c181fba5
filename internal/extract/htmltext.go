package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var tagPattern = regexp.MustCompile(`<[^<>]*>`)

// VisibleText parses HTML content and returns the visible text, skipping
// script, style and similar non-content elements. Origins whose rules operate
// on prose rather than markup run their patterns against this.
func VisibleText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// Fall back to crude tag stripping on unparseable input.
		return StripTags(htmlContent)
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return buf.String()
}

// StripTags removes markup from an HTML fragment without parsing it.
func StripTags(fragment string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(fragment, ""))
}
