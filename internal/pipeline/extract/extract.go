// Package extract pulls structured job-application facts out of HTML
// documents. Every field is mined by an ordered list of named
// strategies; the first one that yields a plausible value wins and the
// rest are skipped. Extraction is heuristic by design — a miss is a
// normal outcome, never an error.
package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_apply/internal/pipeline"
)

// strategy is one attempt at locating a field value in a document.
type strategy struct {
	name string
	fn   func(doc *goquery.Document) (string, bool)
}

// run tries strategies in order and returns the first normalized,
// plausibly sized hit.
func run(doc *goquery.Document, maxLen int, strategies []strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s.fn(doc); ok {
			v = pipeline.NormalizeSpace(v)
			if v != "" && len(v) <= maxLen {
				return v, true
			}
		}
	}
	return "", false
}

// selectorText returns a strategy that takes the text of the first
// non-empty match for a CSS selector.
func selectorText(name, selector string) strategy {
	return strategy{name: name, fn: func(doc *goquery.Document) (string, bool) {
		var out string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := strings.TrimSpace(s.Text()); t != "" {
				out = t
				return false
			}
			return true
		})
		return out, out != ""
	}}
}

// metaContent returns a strategy reading a meta tag's content attribute.
func metaContent(name, selector string) strategy {
	return strategy{name: name, fn: func(doc *goquery.Document) (string, bool) {
		v, ok := doc.Find(selector).First().Attr("content")
		return v, ok && strings.TrimSpace(v) != ""
	}}
}

// Parse builds a goquery document from raw HTML. Malformed input still
// yields a usable (possibly empty) document.
func Parse(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// bodyText returns the document body text with script and style content
// removed, for keyword-cue scanning.
func bodyText(doc *goquery.Document) string {
	clone := doc.Find("body").Clone()
	clone.Find("script, style, noscript").Remove()
	return strings.ToLower(clone.Text())
}
