// Package validation holds the context-free field rules for jobs, applications
// and identities. Stateful guards such as capacity and uniqueness live elsewhere.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"hirelane/internal/apperr"
	"hirelane/internal/store"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 2000
	MaxCoverLetterLength = 1000
	MaxNoteLength        = 500
	MaxNameLength        = 50
)

var (
	phonePattern      = regexp.MustCompile(`^[6-9]\d{9}$`)
	postalCodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// Errors collects every violated rule before reporting.
type Errors map[string]string

func (e Errors) Add(field, format string, args ...interface{}) {
	if _, exists := e[field]; !exists {
		e[field] = fmt.Sprintf(format, args...)
	}
}

// Err returns nil when no rule was violated.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperr.Validation(e)
}

func oneOf[T ~string](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func list[T ~string](allowed []T) string {
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}

func checkEnum[T ~string](errs Errors, field string, v T, allowed []T) {
	if !oneOf(v, allowed) {
		errs.Add(field, "must be one of: %s", list(allowed))
	}
}

func checkLength(errs Errors, field, v string, limit int) {
	if utf8.RuneCountInString(v) > limit {
		errs.Add(field, "must be at most %d characters", limit)
	}
}

// Job checks a complete job definition.
func Job(job *store.Job) error {
	errs := Errors{}

	title := strings.TrimSpace(job.Title)
	if title == "" {
		errs.Add("title", "is required")
	}
	checkLength(errs, "title", title, MaxTitleLength)

	if strings.TrimSpace(job.Description) == "" {
		errs.Add("description", "is required")
	}
	checkLength(errs, "description", job.Description, MaxDescriptionLength)

	checkEnum(errs, "category", job.Category, store.JobCategories)
	checkEnum(errs, "type", job.Type, store.JobTypes)
	checkEnum(errs, "status", job.Status, store.JobStatuses)

	if strings.TrimSpace(job.Location.City) == "" {
		errs.Add("location.city", "is required")
	}
	if strings.TrimSpace(job.Location.State) == "" {
		errs.Add("location.state", "is required")
	}
	if job.Location.PostalCode != "" && !postalCodePattern.MatchString(job.Location.PostalCode) {
		errs.Add("location.postal_code", "must be a valid 6-digit pincode")
	}

	compensation(errs, job.Compensation)

	if job.Requirements.Experience != "" {
		checkEnum(errs, "requirements.experience", job.Requirements.Experience, store.ExperienceTiers)
	}
	if job.Requirements.Education != "" {
		checkEnum(errs, "requirements.education", job.Requirements.Education, store.EducationTiers)
	}
	for i, skill := range job.Requirements.Skills {
		if strings.TrimSpace(skill) == "" {
			errs.Add(fmt.Sprintf("requirements.skills[%d]", i), "must not be empty")
		}
	}

	if job.MaxApplications != nil {
		switch {
		case *job.MaxApplications < 1:
			errs.Add("max_applications", "must be at least 1")
		case *job.MaxApplications < job.CurrentApplications:
			errs.Add("max_applications", "must not be below the %d applications already received", job.CurrentApplications)
		}
	}

	return errs.Err()
}

func compensation(errs Errors, c store.Compensation) {
	if c.Min < 0 {
		errs.Add("salary.min", "must not be negative")
	}
	if c.Max != nil {
		if *c.Max < 0 {
			errs.Add("salary.max", "must not be negative")
		} else if c.Min > *c.Max {
			errs.Add("salary.max", "must be greater than or equal to salary.min")
		}
	}
	checkEnum(errs, "salary.period", c.Period, store.SalaryPeriods)
}

// ApplicationInput checks the applicant-supplied fields of an application.
func ApplicationInput(coverLetter string, proposed *store.ProposedCompensation, availability store.Availability) error {
	errs := Errors{}

	checkLength(errs, "cover_letter", coverLetter, MaxCoverLetterLength)

	if proposed != nil {
		if proposed.Amount <= 0 {
			errs.Add("proposed_salary.amount", "must be positive")
		}
		checkEnum(errs, "proposed_salary.period", proposed.Period, store.SalaryPeriods)
	}

	if availability.StartDate != nil && availability.EndDate != nil &&
		availability.EndDate.Before(*availability.StartDate) {
		errs.Add("availability.end_date", "must not be before start_date")
	}

	return errs.Err()
}

// StatusUpdate checks an employer-requested application status.
func StatusUpdate(status store.ApplicationStatus, note string) error {
	errs := Errors{}

	employerStatuses := []store.ApplicationStatus{
		store.ApplicationPending,
		store.ApplicationShortlisted,
		store.ApplicationInterviewScheduled,
		store.ApplicationAccepted,
		store.ApplicationRejected,
	}
	checkEnum(errs, "status", status, employerStatuses)
	checkLength(errs, "note", note, MaxNoteLength)

	return errs.Err()
}

// Interview checks interview details against the current time.
func Interview(iv store.Interview, now time.Time) error {
	errs := Errors{}

	if iv.ScheduledAt.IsZero() {
		errs.Add("scheduled_at", "is required")
	} else if iv.ScheduledAt.Before(now) {
		errs.Add("scheduled_at", "must be in the future")
	}
	checkEnum(errs, "medium", iv.Medium, store.InterviewMediums)
	if iv.Medium == store.InterviewInPerson && strings.TrimSpace(iv.Location) == "" {
		errs.Add("location", "is required for in-person interviews")
	}
	checkLength(errs, "notes", iv.Notes, MaxNoteLength)

	return errs.Err()
}

// Phone reports whether phone is a 10-digit Indian mobile number.
func Phone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Registration checks the profile supplied on first login.
func Registration(name string, role store.Role) error {
	errs := Errors{}

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "is required")
	}
	checkLength(errs, "name", name, MaxNameLength)

	if role != store.RoleWorker && role != store.RoleEmployer {
		errs.Add("role", "must be one of: worker, employer")
	}

	return errs.Err()
}
