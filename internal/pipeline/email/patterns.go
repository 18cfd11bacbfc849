package email

import "regexp"

// Known job-notification senders. Matching any of these against the
// From address routes the message to the source-specific parsers.
var knownSenderRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)jobs-noreply@linkedin\.com`),
	regexp.MustCompile(`(?i)jobs-listings@linkedin\.com`),
	regexp.MustCompile(`(?i)@linkedin\.com$`),
	regexp.MustCompile(`(?i)@indeed\.com$`),
	regexp.MustCompile(`(?i)@glassdoor\.com$`),
	regexp.MustCompile(`(?i)no-?reply@.*greenhouse`),
	regexp.MustCompile(`(?i)@(?:hire\.)?lever\.co$`),
	regexp.MustCompile(`(?i)@myworkday(?:jobs)?\.com$`),
}

// Subject patterns per classification rule, first match wins.
var (
	applicationSentRe = regexp.MustCompile(`(?i)(?:your application was sent|application sent to|you(?:'ve| have) applied|applied to .+)`)
	viewedRe          = regexp.MustCompile(`(?i)(?:was viewed|viewed by|in review|being (?:considered|reviewed)|reviewing your application)`)
	responseSubjectRe = regexp.MustCompile(`(?i)(?:update on your application|your update from|response to your application|update from .+)`)

	genericConfirmRe = regexp.MustCompile(`(?i)(?:application (?:was )?received|thank ?you for applying|thanks for applying|we(?:'ve| have) received your application|successfully submitted)`)
	genericStatusRe  = regexp.MustCompile(`(?i)(?:your (?:recent )?application|your candidacy|regarding your interest|hiring decision)`)
)

// Company extraction from subject lines, tried in order.
var companySubjectRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)application was sent to (.+?)\s*[.!]?$`),
	regexp.MustCompile(`(?i)your application to (.+?)(?:\s+(?:was|has|is)\b|\s*[—–|:-]|$)`),
	regexp.MustCompile(`(?i)your update from (.+?)\s*[.!]?$`),
	regexp.MustCompile(`(?i)update from (.+?)\s*[.!]?$`),
	regexp.MustCompile(`(?i)\bat ([A-Z][\w&． .'-]{1,60}?)\s*[.!]?$`),
}

// Title extraction from subject lines, tried in order.
var titleSubjectRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)for (?:the )?(.{3,80}?) (?:position|role|opening)`),
	regexp.MustCompile(`(?i)application for[:\s]+(.{3,80}?)(?:\s+at\b|\s*[—–|-]|$)`),
	regexp.MustCompile(`["“]([^"”]{3,80})["”]`),
}

// Title cues inside body text.
var titleSentenceRe = regexp.MustCompile(`(?i)(?:position of|role of|for the position of|for the role of|applying (?:for|to) the)\s+([A-Za-z][^.,\n]{2,60})`)

// Posting URLs worth following for enrichment.
var jobViewURLRe = regexp.MustCompile(`https?://[^\s"'<>]*(?:/jobs/view/|/jobs/\d|jobId=|job_id=|/viewjob|/job/)[^\s"'<>]*`)

// Signature block company cues, scanned over the tail of the body.
var signatureRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)the (.{2,40}?) (?:talent |recruiting |hiring )?team`),
	regexp.MustCompile(`(?i)(.{2,40}?) (?:recruiting|talent acquisition|hr) team`),
}

// Outcome keyword families for response classification. Rejection cues
// are checked before interview/offer cues; an email that mentions both
// reads as a rejection.
var (
	rejectionCues = []string{
		"unfortunately",
		"not moving forward",
		"regret to inform",
		"not to move forward",
		"will not be moving",
		"other candidates",
		"not been selected",
		"no longer under consideration",
		"decided to pursue",
		"position has been filled",
	}
	hiredCues = []string{
		"welcome aboard",
		"welcome to the team",
	}
	offerCues = []string{
		"pleased to offer",
		"offer of employment",
		"extend an offer",
		"job offer",
	}
	phoneScreenCues = []string{
		"phone screen",
		"phone call",
		"screening call",
	}
	interviewCues = []string{
		"interview",
		"meet the team",
		"next round",
	}
)

// Generic provider domains that never identify the hiring company.
var providerDomains = map[string]bool{
	"linkedin":   true,
	"indeed":     true,
	"glassdoor":  true,
	"greenhouse": true,
	"lever":      true,
	"workday":    true,
	"myworkday":  true,
	"gmail":      true,
	"outlook":    true,
	"yahoo":      true,
	"hotmail":    true,
	"smartrecruiters": true,
}
