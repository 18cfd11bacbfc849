package extract

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Query parameters job boards commonly use for the posting id, in
// preference order.
var idQueryParams = []string{"jobId", "id", "job_id", "jid", "opportunityId"}

// viewURLIDRe matches LinkedIn-style view URLs, both
// /jobs/view/4335742219 and /jobs/view/golang-developer-at-acme-4335742219.
var viewURLIDRe = regexp.MustCompile(`/jobs/view/[^?]*?(\d{7,})`)

// pathSegmentRe accepts a plausible id-bearing last path segment.
var pathSegmentRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ExternalJobID derives a stable source-specific id for a posting URL.
// Known query parameters win, then a view-URL numeric id, then a
// plausible last path segment, then a data attribute on the document.
// As a last resort the URL itself is hashed, so repeated extraction of
// the same unresolvable URL stays idempotent.
func ExternalJobID(rawURL string, doc *goquery.Document) string {
	if rawURL == "" {
		return ""
	}

	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		for _, p := range idQueryParams {
			if v := q.Get(p); v != "" {
				return v
			}
		}

		if m := viewURLIDRe.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}

		// A digit is required so generic endpoint names ("viewjob",
		// "apply") never pass as ids shared by every posting.
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) > 0 {
			last := segments[len(segments)-1]
			if len(last) > 3 && strings.ContainsAny(last, "0123456789") && pathSegmentRe.MatchString(last) {
				return last
			}
		}
	}

	if doc != nil {
		for _, attr := range []string{"data-job-id", "data-jobid", "data-id"} {
			if v, ok := doc.Find("[" + attr + "]").First().Attr(attr); ok && v != "" {
				return v
			}
		}
	}

	return hashURL(rawURL)
}

// hashURL synthesizes a stable id from the URL.
func hashURL(rawURL string) string {
	h := fnv.New64a()
	h.Write([]byte(rawURL))
	return fmt.Sprintf("url-%x", h.Sum64())
}
