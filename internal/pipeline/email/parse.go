package email

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/extract"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// parseApplication extracts a new-application item.
func parseApplication(msg Message) Item {
	item := Item{
		Kind:    KindApplication,
		Date:    msg.Date,
		Subject: msg.Subject,
	}
	fillCommon(&item, msg)
	return item
}

// parseStatusUpdate extracts an interim-signal item, e.g. "your
// application was viewed".
func parseStatusUpdate(msg Message) Item {
	item := Item{
		Kind:    KindStatusUpdate,
		Date:    msg.Date,
		Subject: msg.Subject,
		Note:    pipeline.NormalizeSpace(msg.Subject),
	}
	fillCommon(&item, msg)
	return item
}

// parseResponse extracts a terminal or semi-terminal outcome item. The
// body is scanned for keyword families; rejection cues outrank
// interview and offer cues. defaultOutcome applies when no cue matches.
func parseResponse(msg Message, defaultOutcome store.Response) Item {
	item := Item{
		Kind:    KindResponse,
		Date:    msg.Date,
		Subject: msg.Subject,
		Note:    pipeline.NormalizeSpace(msg.Subject),
		Outcome: classifyOutcome(msg.Text, defaultOutcome),
	}
	fillCommon(&item, msg)
	return item
}

// classifyOutcome scans body text for outcome keyword families.
func classifyOutcome(body string, defaultOutcome store.Response) store.Response {
	l := strings.ToLower(body)
	if _, ok := containsAnyCue(l, rejectionCues); ok {
		return store.ResponseRejected
	}
	if _, ok := containsAnyCue(l, hiredCues); ok {
		return store.ResponseHired
	}
	if _, ok := containsAnyCue(l, offerCues); ok {
		return store.ResponseOffer
	}
	if _, ok := containsAnyCue(l, phoneScreenCues); ok {
		return store.ResponsePhoneScreen
	}
	if _, ok := containsAnyCue(l, interviewCues); ok {
		return store.ResponseInterview
	}
	return defaultOutcome
}

// fillCommon populates company, title, posting URL, and external id
// using each field's fallback chain.
func fillCommon(item *Item, msg Message) {
	item.Company = extractCompany(msg)
	if raw := extractPostingURL(msg); raw != "" {
		// The id comes off the raw link: boards like Indeed carry the
		// posting id in the query string, which cleaning may touch.
		item.ExternalJobID = extract.ExternalJobID(raw, nil)
		item.PostingURL = cleanPostingURL(raw)
	}
	item.JobTitle = extractTitle(msg)
	if item.JobTitle == "" && item.Company != "" {
		// Degrade to a placeholder rather than dropping the item.
		item.JobTitle = "Position at " + item.Company
	}
}

// extractCompany tries subject patterns, then sender heuristics, then
// the body's signature block.
func extractCompany(msg Message) string {
	for _, re := range companySubjectRes {
		if m := re.FindStringSubmatch(msg.Subject); m != nil {
			if c := cleanCompany(m[1]); c != "" {
				return c
			}
		}
	}

	if c := companyFromSender(msg.From, msg.FromName); c != "" {
		return c
	}

	return companyFromSignature(msg.Text)
}

// companyFromSender derives a company from the display name or, for
// non-provider domains, the domain's first label.
func companyFromSender(from, fromName string) string {
	name := fromName
	for _, suffix := range []string{" via LinkedIn", " Careers", " Recruiting", " Talent", " Hiring", " Jobs", " Notifications", " Team"} {
		name = strings.TrimSuffix(name, suffix)
	}
	name = strings.TrimSpace(name)
	if name != "" && !strings.Contains(name, "@") && !providerDomains[strings.ToLower(name)] {
		if c := cleanCompany(name); c != "" {
			return c
		}
	}

	at := strings.LastIndex(from, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(from[at+1:])
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ""
	}
	label := labels[len(labels)-2]
	if label == "" || providerDomains[label] {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// companyFromSignature scans the last lines of the body for sign-off
// patterns like "The Acme Team".
func companyFromSignature(body string) string {
	lines := strings.Split(body, "\n")
	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < 8; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			tail = append(tail, l)
		}
	}
	block := strings.Join(tail, "\n")
	for _, re := range signatureRes {
		if m := re.FindStringSubmatch(block); m != nil {
			if c := cleanCompany(m[1]); c != "" && !strings.EqualFold(c, "hiring") && !strings.EqualFold(c, "recruiting") {
				return c
			}
		}
	}
	return ""
}

func cleanCompany(s string) string {
	s = pipeline.NormalizeSpace(s)
	s = strings.Trim(s, ".,!?:;\"'")
	if len(s) < 2 || len(s) > 80 {
		return ""
	}
	return s
}

// extractTitle tries subject patterns, posting-link anchor text,
// headings in the HTML body, then keyword-bearing sentences.
func extractTitle(msg Message) string {
	for _, re := range titleSubjectRes {
		if m := re.FindStringSubmatch(msg.Subject); m != nil {
			if t := cleanTitle(m[1]); t != "" {
				return t
			}
		}
	}

	if msg.HTML != "" {
		if t := titleFromHTML(msg.HTML); t != "" {
			return t
		}
	}

	if m := titleSentenceRe.FindStringSubmatch(msg.Text); m != nil {
		if t := cleanTitle(m[1]); t != "" {
			return t
		}
	}
	return ""
}

// titleFromHTML looks at job-posting link anchor text first, then
// heading elements.
func titleFromHTML(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	for _, a := range findElements(doc, "a") {
		href := getAttr(a, "href")
		if href != "" && jobViewURLRe.MatchString(href) {
			if t := cleanTitle(textContent(a)); t != "" {
				return t
			}
		}
	}

	for _, tag := range []string{"h1", "h2", "h3"} {
		for _, h := range findElements(doc, tag) {
			if t := cleanTitle(textContent(h)); t != "" {
				return t
			}
		}
	}
	return ""
}

func cleanTitle(s string) string {
	s = pipeline.NormalizeSpace(s)
	s = strings.Trim(s, ".,!?:;\"'")
	if len(s) < 3 || len(s) > 120 {
		return ""
	}
	// Anchor text that is a bare URL or call to action is not a title.
	l := strings.ToLower(s)
	for _, junk := range []string{"http", "view job", "view application", "see all", "unsubscribe", "apply now"} {
		if strings.Contains(l, junk) {
			return ""
		}
	}
	return s
}

// extractPostingURL returns the first link matching a job-view URL
// pattern, preferring the HTML body's hrefs over raw text. The link is
// returned as found; cleanPostingURL strips the tracking noise.
func extractPostingURL(msg Message) string {
	if msg.HTML != "" {
		doc, err := html.Parse(strings.NewReader(msg.HTML))
		if err == nil {
			for _, a := range findElements(doc, "a") {
				href := getAttr(a, "href")
				if href != "" && jobViewURLRe.MatchString(href) {
					return href
				}
			}
		}
	}
	return jobViewURLRe.FindString(msg.Text)
}

// Query parameters that only track the click. Id-bearing parameters
// like jobId or jk must survive cleaning or distinct postings collapse
// into one URL.
var trackingParams = map[string]bool{
	"trk": true, "trkemail": true, "trackingid": true, "refid": true,
	"ref": true, "src": true, "source": true, "from": true, "ebp": true,
	"lipi": true, "midtoken": true, "midsig": true, "otptoken": true,
}

func isTrackingParam(name string) bool {
	l := strings.ToLower(name)
	return trackingParams[l] || strings.HasPrefix(l, "utm_")
}

// cleanPostingURL drops tracking parameters and the fragment from a
// posting link, keeping the rest of the query intact.
func cleanPostingURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for name := range q {
		if isTrackingParam(name) {
			q.Del(name)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// --- HTML tree helpers ---

// getAttr returns the value of an attribute on a node, or "".
func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent recursively extracts all text from a node.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// findElements finds all descendant elements with the given tag name.
func findElements(n *html.Node, tag string) []*html.Node {
	var results []*html.Node
	if n.Type == html.ElementNode && n.Data == tag {
		results = append(results, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		results = append(results, findElements(c, tag)...)
	}
	return results
}
