package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// Selector lists follow the class patterns common job boards expose.
// LinkedIn classes first (the dominant source), generic patterns after.

var titleStrategies = []strategy{
	selectorText("linkedin-topcard", ".top-card-layout__title"),
	selectorText("linkedin-unified", ".jobs-unified-top-card__job-title"),
	selectorText("generic-class", ".job-title, .jobtitle, [data-testid=jobTitle]"),
	selectorText("h1", "h1"),
	metaContent("og-title", "meta[property='og:title']"),
	{name: "page-title", fn: func(doc *goquery.Document) (string, bool) {
		t := pageTitlePart(doc, 0)
		return t, t != ""
	}},
}

var companyStrategies = []strategy{
	selectorText("linkedin-org-link", ".topcard__org-name-link"),
	selectorText("linkedin-subline", ".top-card-layout__second-subline a"),
	selectorText("generic-class", ".company-name, .companyName, [data-testid=companyName], [data-company]"),
	metaContent("og-site", "meta[property='og:site_name']"),
	{name: "page-title-at", fn: func(doc *goquery.Document) (string, bool) {
		// "Senior Engineer at Acme Corp | LinkedIn" style titles
		t := doc.Find("title").First().Text()
		if idx := strings.Index(t, " at "); idx >= 0 {
			rest := t[idx+4:]
			if cut := strings.IndexAny(rest, "|-–"); cut > 0 {
				rest = rest[:cut]
			}
			return rest, strings.TrimSpace(rest) != ""
		}
		return "", false
	}},
}

var locationStrategies = []strategy{
	selectorText("linkedin-flavor", ".topcard__flavor--bullet"),
	selectorText("linkedin-unified", ".jobs-unified-top-card__bullet"),
	selectorText("generic-class", ".job-location, .location, [data-testid=jobLocation]"),
	metaContent("og-locality", "meta[property='og:locality']"),
}

// pageTitlePart splits the document title on common separators and
// returns the indexed part.
func pageTitlePart(doc *goquery.Document, idx int) string {
	t := doc.Find("title").First().Text()
	for _, sep := range []string{" | ", " - ", " – "} {
		if strings.Contains(t, sep) {
			parts := strings.Split(t, sep)
			if idx < len(parts) {
				return parts[idx]
			}
			return ""
		}
	}
	if idx == 0 {
		return t
	}
	return ""
}

// Title extracts the job title from a posting page.
func Title(doc *goquery.Document) (string, bool) {
	return run(doc, 200, titleStrategies)
}

// Company extracts the hiring company name.
func Company(doc *goquery.Document) (string, bool) {
	return run(doc, 120, companyStrategies)
}

// Location extracts the position's location string.
func Location(doc *goquery.Document) (string, bool) {
	return run(doc, 120, locationStrategies)
}

// LocationType classifies the workplace arrangement, first from the
// job-criteria blocks, then from keyword cues anywhere in the body.
func LocationType(doc *goquery.Document) (store.LocationType, bool) {
	if v, ok := run(doc, 60, []strategy{
		selectorText("criteria", ".description__job-criteria-text--criteria"),
		selectorText("workplace-type", ".jobs-unified-top-card__workplace-type"),
	}); ok {
		if lt, ok := classifyLocationType(strings.ToLower(v)); ok {
			return lt, true
		}
	}
	if lt, ok := classifyLocationType(bodyText(doc)); ok {
		return lt, true
	}
	return "", false
}

func classifyLocationType(text string) (store.LocationType, bool) {
	switch {
	case strings.Contains(text, "hybrid"):
		return store.LocationHybrid, true
	case strings.Contains(text, "remote"):
		return store.LocationRemote, true
	case strings.Contains(text, "on-site"), strings.Contains(text, "onsite"), strings.Contains(text, "in office"), strings.Contains(text, "in-office"):
		return store.LocationOnSite, true
	}
	return "", false
}

// EmploymentType classifies the engagement model from the criteria
// blocks, falling back to body keyword cues.
func EmploymentType(doc *goquery.Document) (store.EmploymentType, bool) {
	if v, ok := run(doc, 60, []strategy{
		selectorText("criteria", ".description__job-criteria-text"),
		selectorText("generic-class", ".employment-type, .job-type, [data-testid=employmentType]"),
	}); ok {
		if et, ok := classifyEmploymentType(strings.ToLower(v)); ok {
			return et, true
		}
	}
	if et, ok := classifyEmploymentType(bodyText(doc)); ok {
		return et, true
	}
	return "", false
}

func classifyEmploymentType(text string) (store.EmploymentType, bool) {
	switch {
	case strings.Contains(text, "full-time"), strings.Contains(text, "full time"):
		return store.EmploymentFullTime, true
	case strings.Contains(text, "part-time"), strings.Contains(text, "part time"):
		return store.EmploymentPartTime, true
	case strings.Contains(text, "internship"), strings.Contains(text, "intern "):
		return store.EmploymentInternship, true
	case strings.Contains(text, "contract"):
		return store.EmploymentContract, true
	case strings.Contains(text, "freelance"):
		return store.EmploymentFreelance, true
	}
	return "", false
}

// Recruiter extracts the recruiter or hiring-contact name when the page
// exposes one.
func Recruiter(doc *goquery.Document) (string, bool) {
	return run(doc, 80, []strategy{
		selectorText("linkedin-hirer", ".hirer-card__hirer-information .base-main-card__title"),
		selectorText("message-recruiter", ".message-the-recruiter .base-main-card__title"),
		selectorText("generic-class", ".recruiter-name, [data-testid=recruiterName]"),
	})
}

// PageData is everything the extractors could mine from one posting page.
type PageData struct {
	Title          string
	Company        string
	Location       string
	LocationType   store.LocationType
	EmploymentType store.EmploymentType
	Description    string
	Salary         *Salary
	ExternalJobID  string
	Recruiter      string
}

// Page runs every field extractor over a fetched posting body.
// Individual misses leave the corresponding field empty.
func Page(pageURL string, body []byte) (*PageData, error) {
	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}

	var d PageData
	d.Title, _ = Title(doc)
	d.Company, _ = Company(doc)
	d.Location, _ = Location(doc)
	d.LocationType, _ = LocationType(doc)
	d.EmploymentType, _ = EmploymentType(doc)
	d.Description, _ = Description(doc)
	d.Recruiter, _ = Recruiter(doc)
	d.Salary = PageSalary(doc, d.Description)
	d.ExternalJobID = ExternalJobID(pageURL, doc)

	if d.Description != "" && pipeline.Cfg.MaxContentChars > 0 {
		d.Description = pipeline.TruncateRunes(d.Description, pipeline.Cfg.MaxContentChars, "...")
	}
	return &d, nil
}
