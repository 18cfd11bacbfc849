package match

import (
	"strings"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
	"github.com/anatolykoptev/go_apply/internal/pipeline/extract"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// EnrichmentMarker is appended to a record's notes exactly once, the
// first time page data is merged in.
const EnrichmentMarker = "Enriched with job posting data"

// NewRecord builds a JobRecord from an application item.
func NewRecord(item email.Item) *store.JobRecord {
	applied := item.Date
	if applied.IsZero() {
		applied = time.Now()
	}
	return &store.JobRecord{
		ExternalJobID:      item.ExternalJobID,
		Company:            item.Company,
		JobTitle:           item.JobTitle,
		Website:            item.PostingURL,
		Applied:            applied,
		Response:           store.ResponseNone,
		Source:             "Email",
		ApplicationThrough: item.Subject,
	}
}

// ApplyStatusUpdate appends an interim signal to the record's status log.
func ApplyStatusUpdate(rec *store.JobRecord, item email.Item) {
	rec.AppendStatusCheck(item.Date, item.Note)
}

// ApplyResponse merges a response item into the record. The status log
// entry is always appended; the response field is only overwritten when
// the new outcome ranks strictly higher, or the current response is
// still "No Response".
func ApplyResponse(rec *store.JobRecord, item email.Item) (overwrote bool) {
	note := item.Note
	if note == "" {
		note = string(item.Outcome)
	}
	rec.AppendStatusCheck(item.Date, note)

	if item.Outcome.Priority() > rec.Response.Priority() || rec.Response == store.ResponseNone {
		rec.Response = item.Outcome
		date := item.Date
		if date.IsZero() {
			date = time.Now()
		}
		rec.Responded = &date
		return true
	}
	return false
}

// MergeEnrichment merges page-extracted data into a record.
//
// The email-derived title is authoritative and never overwritten.
// Company, location, location type, employment type, and external id
// only fill currently empty fields. Description and salary always
// refresh when the page provides them. Recruiter info and the
// enrichment marker append to notes, deduplicated by substring check.
func MergeEnrichment(rec *store.JobRecord, page *extract.PageData) {
	if rec.JobTitle == "" && page.Title != "" {
		rec.JobTitle = page.Title
	}
	if rec.Company == "" && page.Company != "" {
		rec.Company = page.Company
	}
	if rec.CompanyLocation == "" && page.Location != "" {
		rec.CompanyLocation = page.Location
	}
	if rec.LocationType == "" && page.LocationType != "" {
		rec.LocationType = page.LocationType
	}
	if rec.EmploymentType == "" && page.EmploymentType != "" {
		rec.EmploymentType = page.EmploymentType
	}
	if rec.ExternalJobID == "" && page.ExternalJobID != "" {
		rec.ExternalJobID = page.ExternalJobID
	}

	if page.Description != "" {
		rec.Description = page.Description
	}
	if page.Salary != nil {
		rec.WagesMin = page.Salary.Min
		rec.WagesMax = page.Salary.Max
		rec.WageType = page.Salary.Type
	}

	appendNote(rec, EnrichmentMarker)
	if page.Recruiter != "" {
		appendNote(rec, "Recruiter: "+page.Recruiter)
	}
}

// appendNote appends a line to the record's notes unless it already
// appears there.
func appendNote(rec *store.JobRecord, note string) {
	if strings.Contains(rec.Notes, note) {
		return
	}
	if rec.Notes == "" {
		rec.Notes = note
		return
	}
	rec.Notes += "\n" + note
}
