// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import (
	"encoding/json"
	"time"

	"hirelane/internal/store"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope of every successful response.
type Response struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *store.Page `json:"pagination,omitempty"`
}

// RawResponse is Response as read by clients that decode Data later.
type RawResponse struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Pagination *store.Page     `json:"pagination,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Code      int               `json:"code"`
	Reason    string            `json:"reason,omitempty"`
	Retryable bool              `json:"retryable"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// OTPRequest asks for a login code.
type OTPRequest struct {
	Phone string `json:"phone"`
}

// OTPResponse tells the caller how long the code is valid, in seconds.
type OTPResponse struct {
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expires_in"`
}

// VerifyRequest exchanges a login code for a token. Role and Name are used
// when the phone registers for the first time.
type VerifyRequest struct {
	Phone string     `json:"phone"`
	OTP   string     `json:"otp"`
	Role  store.Role `json:"role,omitempty"`
	Name  string     `json:"name,omitempty"`
}

// JobRequest is the body of a job creation.
type JobRequest struct {
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	Category            store.JobCategory  `json:"category"`
	Location            store.Location     `json:"location"`
	Salary              store.Compensation `json:"salary"`
	Type                store.JobType      `json:"type"`
	Requirements        store.Requirements `json:"requirements"`
	ApplicationDeadline *time.Time         `json:"application_deadline,omitempty"`
	MaxApplications     *int               `json:"max_applications,omitempty"`
	Status              store.JobStatus    `json:"status,omitempty"`
}

// Job converts the request to an unsaved job.
func (r JobRequest) Job() *store.Job {
	return &store.Job{
		Title:               r.Title,
		Description:         r.Description,
		Category:            r.Category,
		Location:            r.Location,
		Compensation:        r.Salary,
		Type:                r.Type,
		Requirements:        r.Requirements,
		ApplicationDeadline: r.ApplicationDeadline,
		MaxApplications:     r.MaxApplications,
		Status:              r.Status,
	}
}

// DeleteJobResponse reports whether the job was removed or only cancelled
// because it had applications.
type DeleteJobResponse struct {
	Result string `json:"result"`
}

// ApplyRequest is the body of a job application.
type ApplyRequest struct {
	CoverLetter    string                      `json:"cover_letter"`
	ProposedSalary *store.ProposedCompensation `json:"proposed_salary,omitempty"`
	Availability   store.Availability          `json:"availability"`
}

// StatusRequest moves an application.
type StatusRequest struct {
	Status store.ApplicationStatus `json:"status"`
	Note   string                  `json:"note,omitempty"`
}

// InterviewRequest schedules an interview.
type InterviewRequest struct {
	ScheduledAt time.Time             `json:"scheduled_at"`
	Location    string                `json:"location,omitempty"`
	Medium      store.InterviewMedium `json:"medium"`
	Notes       string                `json:"notes,omitempty"`
}

// ReconcileResponse carries the corrected application counter.
type ReconcileResponse struct {
	JobID               string `json:"job_id"`
	CurrentApplications int    `json:"current_applications"`
}
