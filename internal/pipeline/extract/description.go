package extract

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_apply/internal/pipeline"
)

// Containers job boards use for the posting body, in preference order.
const descriptionSelectors = ".show-more-less-html__markup, .description__text, " +
	".job-description, #job-details, [class*=job-description]"

const minDescriptionChars = 200

// Description extracts the posting's description text. The preferred
// path renders a known description container to markdown with script
// and style content stripped; otherwise the first sufficiently long,
// sentence-bearing block of page text is used.
func Description(doc *goquery.Document) (string, bool) {
	if sel := doc.Find(descriptionSelectors).First(); sel.Length() > 0 {
		clone := sel.Clone()
		clone.Find("script, style, noscript").Remove()
		if inner, err := clone.Html(); err == nil && strings.TrimSpace(inner) != "" {
			if md, err := htmltomarkdown.ConvertString(inner); err == nil {
				md = strings.TrimSpace(md)
				if md != "" {
					return md, true
				}
			}
			if t := pipeline.NormalizeSpace(clone.Text()); t != "" {
				return t, true
			}
		}
	}

	return longTextBlock(doc)
}

// longTextBlock scans block elements for the first run of text long
// enough to be a description and containing at least one full sentence.
func longTextBlock(doc *goquery.Document) (string, bool) {
	var out string
	doc.Find("article, section, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := pipeline.NormalizeSpace(s.Text())
		if len(t) > minDescriptionChars && strings.Contains(t, ". ") {
			out = t
			return false
		}
		return true
	})
	return out, out != ""
}
