package workflow

import (
	"time"

	"hirelane/internal/store"

	"github.com/google/uuid"
)

// Outbox topics. The relay publishes each event with its topic as routing key.
const (
	TopicApplicationCreated       = "application.created"
	TopicApplicationStatusChanged = "application.status_changed"
)

// CreatedEvent tells the employer a new application arrived.
type CreatedEvent struct {
	JobID         uuid.UUID         `json:"job_id"`
	JobTitle      string            `json:"job_title"`
	ApplicationID uuid.UUID         `json:"application_id"`
	EmployerID    uuid.UUID         `json:"employer_id"`
	ApplicantName string            `json:"applicant_name"`
	AppliedAt     time.Time         `json:"applied_at"`
	Trace         map[string]string `json:"trace,omitempty"`
}

// StatusChangedEvent tells both parties an application moved.
type StatusChangedEvent struct {
	ApplicationID  uuid.UUID               `json:"application_id"`
	JobID          uuid.UUID               `json:"job_id"`
	ApplicantID    uuid.UUID               `json:"applicant_id"`
	EmployerID     uuid.UUID               `json:"employer_id"`
	Status         store.ApplicationStatus `json:"status"`
	PreviousStatus store.ApplicationStatus `json:"previous_status"`
	ChangedBy      uuid.UUID               `json:"changed_by"`
	ChangedAt      time.Time               `json:"changed_at"`
	Trace          map[string]string       `json:"trace,omitempty"`
}
