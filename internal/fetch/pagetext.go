package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
}

// blockElements force a line break between text runs, so "Pricing</h1><p>Now"
// does not collapse into one word.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "header": true, "footer": true,
	"nav": true, "main": true, "table": true, "ul": true, "ol": true,
	"blockquote": true, "pre": true,
}

// VisibleText flattens an HTML document to its normalized visible text:
// scripts, styles and other non-rendered elements are dropped, runs of
// whitespace collapse to a single space, and block boundaries become
// newlines. The result is the canonical snapshot text used for drift
// comparison, so it must be deterministic for a given document.
func VisibleText(document string) (string, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			// Collapse the node's own whitespace here, newlines included,
			// so line breaks only ever come from block boundaries.
			if fields := strings.Fields(n.Data); len(fields) > 0 {
				sb.WriteString(strings.Join(fields, " "))
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteByte('\n')
		}
	}
	walk(root)

	return normalizeWhitespace(sb.String()), nil
}

// normalizeWhitespace collapses each line's internal whitespace to single
// spaces and drops blank lines.
func normalizeWhitespace(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}
