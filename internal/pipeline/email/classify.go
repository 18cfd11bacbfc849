// Package email classifies fetched mail messages into job-application
// events and extracts their structured fields. Classification is a pure
// function of message content: the same message always produces the
// same item.
package email

import (
	"strings"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// Kind is the terminal classification of a message.
type Kind string

const (
	KindApplication  Kind = "application"
	KindStatusUpdate Kind = "statusUpdate"
	KindResponse     Kind = "response"
	KindIgnored      Kind = "ignored"
)

// Message is a fetched email, already decoded.
type Message struct {
	From     string // address part, e.g. jobs-noreply@linkedin.com
	FromName string // display name
	Subject  string
	Date     time.Time
	Text     string // plain-text body
	HTML     string // HTML body, may be empty
}

// Item is the structured fact extracted from one message.
type Item struct {
	Kind          Kind           `json:"kind"`
	Company       string         `json:"company"`
	JobTitle      string         `json:"job_title"`
	PostingURL    string         `json:"posting_url,omitempty"`
	ExternalJobID string         `json:"external_job_id,omitempty"`
	Outcome       store.Response `json:"outcome,omitempty"` // response items only
	Date          time.Time      `json:"date"`
	Note          string         `json:"note,omitempty"`
	Subject       string         `json:"subject"`
}

// isKnownSender reports whether the From address matches a known
// job-notification sender.
func isKnownSender(from string) bool {
	for _, re := range knownSenderRes {
		if re.MatchString(from) {
			return true
		}
	}
	return false
}

// containsAnyCue reports whether lowercase text contains any cue and
// returns the first one hit.
func containsAnyCue(text string, cues []string) (string, bool) {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return cue, true
		}
	}
	return "", false
}

// Classify runs the ordered classification rules over a message and
// dispatches to the matching parser. A message that fits no rule comes
// back as an ignored item.
func Classify(msg Message) Item {
	subject := msg.Subject

	if isKnownSender(msg.From) {
		switch {
		case applicationSentRe.MatchString(subject):
			return parseApplication(msg)
		case viewedRe.MatchString(subject):
			return parseStatusUpdate(msg)
		case responseSubjectRe.MatchString(subject):
			return parseResponse(msg, store.ResponseOther)
		}
	}

	if genericConfirmRe.MatchString(subject) {
		return parseApplication(msg)
	}

	if genericStatusRe.MatchString(subject) {
		body := strings.ToLower(msg.Text)
		if _, ok := containsAnyCue(body, rejectionCues); ok {
			return parseResponse(msg, store.ResponseRejected)
		}
	}

	return Item{Kind: KindIgnored, Date: msg.Date, Subject: subject}
}
