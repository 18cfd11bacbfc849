package store

import "time"

// LocationType describes where the work happens.
type LocationType string

const (
	LocationRemote LocationType = "Remote"
	LocationOnSite LocationType = "On-site"
	LocationHybrid LocationType = "Hybrid"
	LocationOther  LocationType = "Other"
)

// EmploymentType describes the engagement model.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "Full-time"
	EmploymentPartTime   EmploymentType = "Part-time"
	EmploymentContract   EmploymentType = "Contract"
	EmploymentInternship EmploymentType = "Internship"
	EmploymentFreelance  EmploymentType = "Freelance"
	EmploymentOther      EmploymentType = "Other"
)

// WageType describes the unit of the wages range.
type WageType string

const (
	WageHourly  WageType = "Hourly"
	WageWeekly  WageType = "Weekly"
	WageMonthly WageType = "Monthly"
	WageYearly  WageType = "Yearly"
	WageProject WageType = "Project"
	WageOther   WageType = "Other"
)

// Response is the outcome recorded for an application.
type Response string

const (
	ResponseNone        Response = "No Response"
	ResponseRejected    Response = "Rejected"
	ResponsePhoneScreen Response = "Phone Screen"
	ResponseInterview   Response = "Interview"
	ResponseOffer       Response = "Offer"
	ResponseHired       Response = "Hired"
	ResponseOther       Response = "Other"
)

// responsePriority orders outcomes: a new response only overwrites the
// stored one if its priority is strictly greater, or the stored response
// is still "No Response". Unknown values rank at zero.
var responsePriority = map[Response]int{
	ResponseNone:        0,
	ResponseRejected:    1,
	ResponsePhoneScreen: 2,
	ResponseInterview:   3,
	ResponseOffer:       4,
	ResponseHired:       5,
}

// Priority returns the ordering rank of a response.
func (r Response) Priority() int {
	return responsePriority[r]
}

// StatusCheck is one entry in a record's append-only status log.
// Insertion order is meaningful and never reordered.
type StatusCheck struct {
	Date time.Time `json:"date"`
	Note string    `json:"note"`
}

// JobRecord is the canonical tracked application.
type JobRecord struct {
	ID            int64  `json:"id"`
	ExternalJobID string `json:"external_job_id,omitempty"`

	Company         string         `json:"company"`
	JobTitle        string         `json:"job_title"`
	CompanyLocation string         `json:"company_location,omitempty"`
	LocationType    LocationType   `json:"location_type,omitempty"`
	EmploymentType  EmploymentType `json:"employment_type,omitempty"`
	Description     string         `json:"description,omitempty"`
	Website         string         `json:"website,omitempty"`

	WagesMin float64  `json:"wages_min,omitempty"`
	WagesMax float64  `json:"wages_max,omitempty"`
	WageType WageType `json:"wage_type,omitempty"`

	Applied      time.Time     `json:"applied"`
	StatusChecks []StatusCheck `json:"status_checks,omitempty"`
	Responded    *time.Time    `json:"responded,omitempty"`
	Response     Response      `json:"response"`
	Notes        string        `json:"notes,omitempty"`

	Source             string `json:"source,omitempty"`
	ApplicationThrough string `json:"application_through,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendStatusCheck appends to the status log, preserving order.
func (r *JobRecord) AppendStatusCheck(date time.Time, note string) {
	r.StatusChecks = append(r.StatusChecks, StatusCheck{Date: date, Note: note})
}
