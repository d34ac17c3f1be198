// Package store contains the database layer for hirelane.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is the marketplace role of an authenticated user.
type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// Location is a postal address. Only City and State are used for matching.
type Location struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code,omitempty"`
}

// User is the identity record consumed read-only by the workflow.
type User struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	Email       string         `json:"email,omitempty"`
	Role        Role           `json:"role"`
	CompanyName string         `json:"company_name,omitempty"`
	Location    Location       `json:"location"`
	Skills      []string       `json:"skills"`
	Experience  ExperienceTier `json:"experience"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// JobCategory is the closed set of trades a job can be posted under.
type JobCategory string

const (
	CategoryConstruction JobCategory = "construction"
	CategoryPlumbing     JobCategory = "plumbing"
	CategoryElectrical   JobCategory = "electrical"
	CategoryCarpentry    JobCategory = "carpentry"
	CategoryPainting     JobCategory = "painting"
	CategoryCleaning     JobCategory = "cleaning"
	CategoryDelivery     JobCategory = "delivery"
	CategoryHousekeeping JobCategory = "housekeeping"
	CategorySecurity     JobCategory = "security"
	CategoryGardening    JobCategory = "gardening"
	CategoryRepair       JobCategory = "repair"
	CategoryMaintenance  JobCategory = "maintenance"
	CategoryOther        JobCategory = "other"
)

// JobCategories lists every recognized category.
var JobCategories = []JobCategory{
	CategoryConstruction, CategoryPlumbing, CategoryElectrical, CategoryCarpentry,
	CategoryPainting, CategoryCleaning, CategoryDelivery, CategoryHousekeeping,
	CategorySecurity, CategoryGardening, CategoryRepair, CategoryMaintenance, CategoryOther,
}

// JobType is the engagement type of a job.
type JobType string

const (
	JobTypeFullTime  JobType = "full-time"
	JobTypePartTime  JobType = "part-time"
	JobTypeContract  JobType = "contract"
	JobTypeTemporary JobType = "temporary"
	JobTypeHourly    JobType = "hourly"
)

var JobTypes = []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeTemporary, JobTypeHourly}

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusClosed    JobStatus = "closed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusCompleted JobStatus = "completed"
)

var JobStatuses = []JobStatus{
	JobStatusDraft, JobStatusActive, JobStatusPaused,
	JobStatusClosed, JobStatusCancelled, JobStatusCompleted,
}

// SalaryPeriod is the unit a compensation amount is quoted in.
type SalaryPeriod string

const (
	PeriodHourly  SalaryPeriod = "hourly"
	PeriodDaily   SalaryPeriod = "daily"
	PeriodWeekly  SalaryPeriod = "weekly"
	PeriodMonthly SalaryPeriod = "monthly"
	PeriodFixed   SalaryPeriod = "fixed"
)

var SalaryPeriods = []SalaryPeriod{PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodFixed}

// ExperienceTier is the experience bracket of a worker or a job requirement.
type ExperienceTier string

const (
	ExperienceFresher ExperienceTier = "fresher"
	Experience1to2    ExperienceTier = "1-2 years"
	Experience3to5    ExperienceTier = "3-5 years"
	Experience5Plus   ExperienceTier = "5+ years"
)

var ExperienceTiers = []ExperienceTier{ExperienceFresher, Experience1to2, Experience3to5, Experience5Plus}

// EducationTier is the minimum education a job asks for.
type EducationTier string

const (
	EducationNone            EducationTier = "none"
	EducationPrimary         EducationTier = "primary"
	EducationSecondary       EducationTier = "secondary"
	EducationHigherSecondary EducationTier = "higher-secondary"
	EducationGraduate        EducationTier = "graduate"
	EducationAny             EducationTier = "any"
)

var EducationTiers = []EducationTier{
	EducationNone, EducationPrimary, EducationSecondary,
	EducationHigherSecondary, EducationGraduate, EducationAny,
}

// Compensation is the pay range offered for a job.
type Compensation struct {
	Min        float64      `json:"min"`
	Max        *float64     `json:"max,omitempty"`
	Period     SalaryPeriod `json:"period"`
	Currency   string       `json:"currency"`
	Negotiable bool         `json:"negotiable"`
}

// Requirements describes what an employer expects from applicants.
type Requirements struct {
	Experience ExperienceTier `json:"experience"`
	Skills     []string       `json:"skills"`
	Education  EducationTier  `json:"education,omitempty"`
}

// JobAnalytics is the analytics sub-record of a job. Applications is incremented
// alongside Job.CurrentApplications but is never corrected.
type JobAnalytics struct {
	Impressions  int64 `json:"impressions"`
	Applications int64 `json:"applications"`
}

// Job is a posted work opportunity.
type Job struct {
	ID                  uuid.UUID    `json:"id"`
	EmployerID          uuid.UUID    `json:"employer_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Category            JobCategory  `json:"category"`
	Location            Location     `json:"location"`
	Compensation        Compensation `json:"salary"`
	Type                JobType      `json:"type"`
	Requirements        Requirements `json:"requirements"`
	ApplicationDeadline *time.Time   `json:"application_deadline,omitempty"`
	MaxApplications     *int         `json:"max_applications,omitempty"`
	CurrentApplications int          `json:"current_applications"`
	Status              JobStatus    `json:"status"`
	Views               int64        `json:"views"`
	Analytics           JobAnalytics `json:"analytics"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// ApplicationStatus is a state of the application workflow.
type ApplicationStatus string

const (
	ApplicationPending            ApplicationStatus = "pending"
	ApplicationShortlisted        ApplicationStatus = "shortlisted"
	ApplicationInterviewScheduled ApplicationStatus = "interview-scheduled"
	ApplicationAccepted           ApplicationStatus = "accepted"
	ApplicationRejected           ApplicationStatus = "rejected"
	ApplicationWithdrawn          ApplicationStatus = "withdrawn"
)

var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending, ApplicationShortlisted, ApplicationInterviewScheduled,
	ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn,
}

// IsTerminal reports whether no further transition may leave s.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// ProposedCompensation is what the applicant asks for.
type ProposedCompensation struct {
	Amount float64      `json:"amount"`
	Period SalaryPeriod `json:"period"`
}

// Availability is the window in which the applicant can work.
type Availability struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Flexible  bool       `json:"flexible"`
}

// InterviewMedium is how an interview is conducted.
type InterviewMedium string

const (
	InterviewInPerson InterviewMedium = "in-person"
	InterviewPhone    InterviewMedium = "phone"
	InterviewVideo    InterviewMedium = "video"
)

var InterviewMediums = []InterviewMedium{InterviewInPerson, InterviewPhone, InterviewVideo}

// Interview holds the scheduled interview details of an application.
type Interview struct {
	ScheduledAt time.Time       `json:"scheduled_at"`
	Location    string          `json:"location,omitempty"`
	Medium      InterviewMedium `json:"medium"`
	Notes       string          `json:"notes,omitempty"`
}

// StatusChange is one entry of an application's status history.
// ChangedBy is nil for the entry seeded at submission.
type StatusChange struct {
	Status    ApplicationStatus `json:"status"`
	ChangedBy *uuid.UUID        `json:"changed_by,omitempty"`
	ChangedAt time.Time         `json:"changed_at"`
	Note      string            `json:"note,omitempty"`
}

// JobSummary is the slice of a job shown next to an application.
type JobSummary struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Category     JobCategory  `json:"category"`
	Location     Location     `json:"location"`
	Compensation Compensation `json:"salary"`
	Status       JobStatus    `json:"status"`
}

// UserSummary is the slice of a user shown next to an application.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name,omitempty"`
}

// Application is a worker's submission against a job.
type Application struct {
	ID                   uuid.UUID             `json:"id"`
	JobID                uuid.UUID             `json:"job_id"`
	ApplicantID          uuid.UUID             `json:"applicant_id"`
	EmployerID           uuid.UUID             `json:"employer_id"`
	CoverLetter          string                `json:"cover_letter,omitempty"`
	ProposedCompensation *ProposedCompensation `json:"proposed_salary,omitempty"`
	Availability         Availability          `json:"availability"`
	Status               ApplicationStatus     `json:"status"`
	StatusHistory        []StatusChange        `json:"status_history"`
	Interview            *Interview            `json:"interview,omitempty"`
	ViewedByEmployer     bool                  `json:"viewed_by_employer"`
	ViewedAt             *time.Time            `json:"viewed_at,omitempty"`
	AppliedAt            time.Time             `json:"applied_at"`
	UpdatedAt            time.Time             `json:"updated_at"`

	// Display fields, populated on reads.
	Job       *JobSummary  `json:"job,omitempty"`
	Employer  *UserSummary `json:"employer,omitempty"`
	Applicant *UserSummary `json:"applicant,omitempty"`
}

// Event is an advisory notification waiting in the outbox.
type Event struct {
	ID        int64
	Topic     string
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// OTPRecord is a one-time login code awaiting verification.
type OTPRecord struct {
	Phone     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}
