package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute visible text
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// FlattenHTML reduces an HTML message body (MMS, RCS, e-mail to SMS gateways)
// to plain text. Link targets are appended after the visible text so that
// hidden hrefs reach URL extraction.
func FlattenHTML(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	var hrefs []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}

		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				text.WriteString(t)
				text.WriteByte(' ')
			}
		case html.ElementNode:
			if n.Data == "a" {
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						if href := linkTarget(attr.Val); href != "" {
							hrefs = append(hrefs, href)
						}
					}
				}
			}
			if n.Data == "br" || n.Data == "p" || n.Data == "div" {
				text.WriteByte(' ')
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out := strings.TrimSpace(text.String())
	if len(hrefs) > 0 {
		out += "\n" + strings.Join(hrefs, "\n")
	}
	return out, nil
}

// linkTarget keeps absolute or scheme-less web targets and drops anchors and pseudo-schemes
func linkTarget(href string) string {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)

	switch {
	case href == "", strings.HasPrefix(href, "#"):
		return ""
	case strings.HasPrefix(lower, "javascript:"), strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"), strings.HasPrefix(lower, "sms:"):
		return ""
	case strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//"):
		// Relative paths have no host to judge.
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	}
	return href
}
