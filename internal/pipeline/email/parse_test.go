package email

import (
	"testing"

	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

func TestCompanyFromSender(t *testing.T) {
	cases := []struct {
		from, fromName, want string
	}{
		{"jobs-noreply@linkedin.com", "Acme Corp via LinkedIn", "Acme Corp"},
		{"jobs-noreply@linkedin.com", "Initech Careers", "Initech"},
		{"jobs-noreply@linkedin.com", "LinkedIn", ""},   // provider name is not a company
		{"careers@initech.com", "", "Initech"},          // domain label fallback
		{"no-reply@mail.greenhouse.io", "", ""},         // provider domain
		{"recruiter@acme.co.uk", "", "Co"},              // imperfect but stable for ccTLDs
	}
	for _, tc := range cases {
		if got := companyFromSender(tc.from, tc.fromName); got != tc.want {
			t.Errorf("companyFromSender(%q, %q) = %q, want %q", tc.from, tc.fromName, got, tc.want)
		}
	}
}

func TestCompanyFromSignature(t *testing.T) {
	body := "Thank you for your application.\n\nBest regards,\nThe Globex Recruiting Team\n"
	if got := companyFromSignature(body); got != "Globex" {
		t.Errorf("companyFromSignature = %q, want Globex", got)
	}
}

func TestClassifyOutcome(t *testing.T) {
	cases := []struct {
		body string
		want store.Response
	}{
		{"Unfortunately we went with other candidates.", store.ResponseRejected},
		{"Welcome aboard! We can't wait to get started.", store.ResponseHired},
		{"We are pleased to offer you the position.", store.ResponseOffer},
		{"Let's set up a quick phone screen this week.", store.ResponsePhoneScreen},
		{"We'd like to schedule an interview.", store.ResponseInterview},
		{"Just confirming we received everything.", store.ResponseOther},
	}
	for _, tc := range cases {
		if got := classifyOutcome(tc.body, store.ResponseOther); got != tc.want {
			t.Errorf("classifyOutcome(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}

func TestExtractTitle_SubjectPatterns(t *testing.T) {
	cases := []struct {
		subject, want string
	}{
		{"Your application for Senior Go Developer position at Acme", "Senior Go Developer"},
		{"Application for: Data Engineer — Acme Corp", "Data Engineer"},
		{`Thanks for applying to "Platform Engineer"`, "Platform Engineer"},
	}
	for _, tc := range cases {
		got := extractTitle(Message{Subject: tc.subject})
		if got != tc.want {
			t.Errorf("extractTitle(%q) = %q, want %q", tc.subject, got, tc.want)
		}
	}
}

func TestExtractTitle_BodySentence(t *testing.T) {
	msg := Message{
		Subject: "Application received",
		Text:    "Thank you for applying to the Backend Engineer opening at our company.",
	}
	if got := extractTitle(msg); got != "Backend Engineer opening at our company" && got != "Backend Engineer" {
		t.Errorf("extractTitle body = %q", got)
	}
}

func TestExtractTitle_RejectsJunkAnchors(t *testing.T) {
	msg := Message{
		Subject: "Application received",
		HTML:    `<a href="https://example.com/jobs/view/123">View job</a>`,
	}
	if got := extractTitle(msg); got != "" {
		t.Errorf("extractTitle = %q, want empty for call-to-action anchor", got)
	}
}

func TestExtractPostingURL_TextFallback(t *testing.T) {
	msg := Message{
		Text: "See the posting: https://www.indeed.com/viewjob?jk=abc123&from=email for details.",
	}
	got := extractPostingURL(msg)
	if got != "https://www.indeed.com/viewjob?jk=abc123&from=email" {
		t.Errorf("posting URL = %q, want the raw indeed URL", got)
	}
}

func TestExtractPostingURL_PrefersHTML(t *testing.T) {
	msg := Message{
		Text: "https://example.com/jobs/view/111",
		HTML: `<a href="https://example.com/jobs/view/222?src=mail">posting</a>`,
	}
	if got := extractPostingURL(msg); got != "https://example.com/jobs/view/222?src=mail" {
		t.Errorf("posting URL = %q, want the HTML href", got)
	}
}

func TestCleanPostingURL(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		// Tracking params go, id-bearing params stay.
		{"https://www.indeed.com/viewjob?jk=abc123&from=email", "https://www.indeed.com/viewjob?jk=abc123"},
		{"https://careers.example.com/viewjob?jobId=111&utm_source=mail&trk=x", "https://careers.example.com/viewjob?jobId=111"},
		{"https://www.linkedin.com/jobs/view/4335742219?trk=eml#top", "https://www.linkedin.com/jobs/view/4335742219"},
		{"https://example.com/jobs/view/222", "https://example.com/jobs/view/222"},
		{"://not a url", "://not a url"},
	}
	for _, tc := range cases {
		if got := cleanPostingURL(tc.raw); got != tc.want {
			t.Errorf("cleanPostingURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

// Two postings on the same board must never collapse into one external
// id just because the id lives in the query string.
func TestFillCommon_QueryIDsStayDistinct(t *testing.T) {
	items := make([]Item, 2)
	for i, href := range []string{
		"https://careers.example.com/viewjob?jobId=111&utm_source=mail",
		"https://careers.example.com/viewjob?jobId=222&utm_source=mail",
	} {
		msg := Message{
			Subject: "Your application was sent to Acme Corp",
			HTML:    `<a href="` + href + `">Senior Go Developer</a>`,
		}
		fillCommon(&items[i], msg)
	}

	if items[0].ExternalJobID != "111" || items[1].ExternalJobID != "222" {
		t.Fatalf("external ids = %q, %q, want 111, 222",
			items[0].ExternalJobID, items[1].ExternalJobID)
	}
	if items[0].PostingURL == items[1].PostingURL {
		t.Errorf("posting URLs collapsed to %q", items[0].PostingURL)
	}
	if items[0].PostingURL != "https://careers.example.com/viewjob?jobId=111" {
		t.Errorf("posting URL = %q, want cleaned URL keeping jobId", items[0].PostingURL)
	}
}

func TestFillCommon_PlaceholderTitle(t *testing.T) {
	item := Item{}
	fillCommon(&item, Message{
		From:    "careers@initech.com",
		Subject: "We received your application",
	})
	if item.Company != "Initech" {
		t.Fatalf("company = %q, want Initech", item.Company)
	}
	if item.JobTitle != "Position at Initech" {
		t.Errorf("title = %q, want placeholder", item.JobTitle)
	}
}
