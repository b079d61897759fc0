package web

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

type CleanConfig struct {
	TagsToRemove  []string
	MaxOutputSize int
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "nav", "footer", "form", "button",
	},
	MaxOutputSize: 8000,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "section": true, "article": true, "blockquote": true,
	"pre": true, "dd": true, "dt": true,
}

// ExtractText turns an HTML document or fragment into readable plain text:
// one paragraph per block element, whitespace collapsed.
func ExtractText(rawHTML string, cfg *CleanConfig) string {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return truncate(rawHTML, cfg.MaxOutputSize)
	}

	var lines []string
	var current strings.Builder
	flush := func() {
		line := strings.Join(strings.Fields(current.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.TextNode:
			current.WriteString(n.Data)
			current.WriteString(" ")
			return
		case html.ElementNode:
			if isOneOf(n.Data, cfg.TagsToRemove...) {
				return
			}
			if blockTags[n.Data] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()

	return truncate(strings.Join(lines, "\n"), cfg.MaxOutputSize)
}

// Title returns the document <title>, if any.
func Title(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var find func(n *html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}

func truncate(s string, maxSize int) string {
	if maxSize <= 0 || len(s) <= maxSize {
		return s
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n... (truncated)"
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
