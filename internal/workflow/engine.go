// Package workflow runs the application lifecycle: applying to a job, moving an
// application through its statuses, interviews, and the employer's view flag.
//
// Every guard that must hold under concurrency is enforced by the store in the
// same transaction as the write: the job counter increment is conditional on
// capacity, the (job, applicant) pair is a unique key, and status writes are
// compare-and-set on the previous status.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/auth"
	"hirelane/internal/jobs"
	"hirelane/internal/logger"
	"hirelane/internal/observability"
	"hirelane/internal/store"
	"hirelane/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const withdrawNote = "Application withdrawn by applicant"

// Store is the persistence the engine needs.
type Store interface {
	store.Transactor
	store.ApplicationStore
	GetJobByID(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Job, error)
	IncrementApplicationCount(ctx context.Context, tx store.DBTransaction, id uuid.UUID, now time.Time) (int, error)
	AddEvent(ctx context.Context, tx store.DBTransaction, topic string, payload json.RawMessage) (int64, error)
}

// Config tunes the engine.
type Config struct {
	// StrictTransitions limits employer moves to forward steps of the
	// pending, shortlisted, interview-scheduled, accepted/rejected chain.
	StrictTransitions bool
	DefaultPageSize   int
	MaxPageSize       int
}

// Engine executes workflow operations.
type Engine struct {
	store   Store
	config  Config
	metrics *observability.WorkflowMetrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates an engine. metrics may be nil.
func New(s Store, config Config, metrics *observability.WorkflowMetrics, log *slog.Logger) *Engine {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 20
	}
	if config.MaxPageSize < config.DefaultPageSize {
		config.MaxPageSize = config.DefaultPageSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:   s,
		config:  config,
		metrics: metrics,
		logger:  log,
		tracer:  observability.Tracer("workflow"),
		now:     time.Now,
	}
}

// ApplyInput is what a worker submits with an application.
type ApplyInput struct {
	CoverLetter          string                      `json:"cover_letter"`
	ProposedCompensation *store.ProposedCompensation `json:"proposed_salary,omitempty"`
	Availability         store.Availability          `json:"availability"`
}

// fault records an unexpected failure and hides its detail from the caller.
func (e *Engine) fault(ctx context.Context, span trace.Span, err error, msg string, attrs ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logger.FromContext(ctx, e.logger).Error(msg, append(attrs, "error", err)...)
	return apperr.Internal(err, msg)
}

// reject logs a refused apply and counts it by reason.
func (e *Engine) reject(ctx context.Context, span trace.Span, err error, jobID, applicantID uuid.UUID) error {
	ae := apperr.As(err)
	span.SetAttributes(attribute.String("apply.rejected", string(ae.Reason)))
	e.metrics.Rejected(ctx, string(ae.Reason))
	logger.FromContext(ctx, e.logger).Info("application rejected",
		"job_id", jobID, "applicant_id", applicantID, "reason", ae.Reason)
	return err
}

// Apply submits an application from the calling worker. Preconditions are
// checked in order: the job exists, it accepts applications, and the worker
// has not applied before. The counter increment, the application, its first
// history entry and the notification event commit together or not at all.
func (e *Engine) Apply(ctx context.Context, p *auth.Principal, jobID uuid.UUID, in ApplyInput) (*store.Application, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.apply", trace.WithAttributes(attribute.String("job.id", jobID.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleWorker); err != nil {
		return nil, err
	}
	if err := validation.ApplicationInput(in.CoverLetter, in.ProposedCompensation, in.Availability); err != nil {
		return nil, err
	}

	now := e.now().UTC()

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	job, err := e.store.GetJobByID(ctx, tx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to load job", "job_id", jobID)
	}

	if err := jobs.CanAcceptApplication(job, now); err != nil {
		return nil, e.reject(ctx, span, err, jobID, p.ID)
	}

	// The increment re-checks every guard at write time and holds the job
	// row until commit.
	if _, err := e.store.IncrementApplicationCount(ctx, tx, jobID, now); err != nil {
		if !errors.Is(err, store.ErrJobNotAccepting) {
			return nil, e.fault(ctx, span, err, "failed to count application", "job_id", jobID)
		}
		current, rerr := e.store.GetJobByID(ctx, nil, jobID)
		if errors.Is(rerr, store.ErrNotFound) {
			return nil, apperr.NotFound("job %s not found", jobID)
		}
		if rerr != nil {
			return nil, e.fault(ctx, span, rerr, "failed to reload job", "job_id", jobID)
		}
		return nil, e.reject(ctx, span, jobs.RejectionReason(current, now), jobID, p.ID)
	}

	app := &store.Application{
		ID:                   uuid.New(),
		JobID:                job.ID,
		ApplicantID:          p.ID,
		EmployerID:           job.EmployerID,
		CoverLetter:          in.CoverLetter,
		ProposedCompensation: in.ProposedCompensation,
		Availability:         in.Availability,
		Status:               store.ApplicationPending,
		AppliedAt:            now,
		UpdatedAt:            now,
	}
	if err := e.store.CreateApplication(ctx, tx, app); err != nil {
		if errors.Is(err, store.ErrDuplicateApplication) {
			return nil, e.reject(ctx, span,
				apperr.Conflict(apperr.ReasonDuplicateApplication, "you have already applied to job %s", jobID),
				jobID, p.ID)
		}
		return nil, e.fault(ctx, span, err, "failed to create application", "job_id", jobID)
	}

	seed := store.StatusChange{Status: store.ApplicationPending, ChangedAt: now}
	if err := e.store.AppendStatusChange(ctx, tx, app.ID, seed); err != nil {
		return nil, e.fault(ctx, span, err, "failed to record application history", "application_id", app.ID)
	}

	payload, err := json.Marshal(CreatedEvent{
		JobID:         job.ID,
		JobTitle:      job.Title,
		ApplicationID: app.ID,
		EmployerID:    job.EmployerID,
		ApplicantName: p.Name,
		AppliedAt:     now,
		Trace:         observability.InjectTrace(ctx),
	})
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to encode application event")
	}
	if _, err := e.store.AddEvent(ctx, tx, TopicApplicationCreated, payload); err != nil {
		return nil, e.fault(ctx, span, err, "failed to queue application event", "application_id", app.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.fault(ctx, span, err, "failed to commit application", "application_id", app.ID)
	}

	span.SetAttributes(attribute.String("application.id", app.ID.String()))
	e.metrics.Submitted(ctx)
	logger.FromContext(ctx, e.logger).Info("application submitted",
		"application_id", app.ID, "job_id", job.ID, "applicant_id", p.ID)

	app.StatusHistory = []store.StatusChange{seed}
	app.Job = &store.JobSummary{
		ID:           job.ID,
		Title:        job.Title,
		Category:     job.Category,
		Location:     job.Location,
		Compensation: job.Compensation,
		Status:       job.Status,
	}
	if full, err := e.store.GetApplicationByID(ctx, nil, app.ID); err == nil {
		app = full
	} else {
		logger.FromContext(ctx, e.logger).Warn("failed to reload submitted application",
			"application_id", app.ID, "error", err)
	}
	return app, nil
}

const interviewScheduledNote = "Interview scheduled"

// actor says who drives a transition.
type actor int

const (
	byEmployer actor = iota
	byApplicant
)

// strictNext is the forward graph used when StrictTransitions is on.
var strictNext = map[store.ApplicationStatus][]store.ApplicationStatus{
	store.ApplicationPending: {
		store.ApplicationShortlisted, store.ApplicationInterviewScheduled,
		store.ApplicationAccepted, store.ApplicationRejected,
	},
	store.ApplicationShortlisted: {
		store.ApplicationInterviewScheduled, store.ApplicationAccepted, store.ApplicationRejected,
	},
	store.ApplicationInterviewScheduled: {
		store.ApplicationInterviewScheduled, store.ApplicationAccepted, store.ApplicationRejected,
	},
}

// allowed decides whether from may move to to. Terminal statuses never move.
// Employers may otherwise pick any status; applicants may only withdraw.
func (e *Engine) allowed(from, to store.ApplicationStatus, who actor) error {
	if from.IsTerminal() {
		return apperr.Conflict(apperr.ReasonInvalidStateTransition,
			"application is already %s and cannot become %s", from, to)
	}
	if who == byApplicant {
		if to != store.ApplicationWithdrawn {
			return apperr.Forbidden("applicants may only withdraw")
		}
		return nil
	}
	if to == store.ApplicationWithdrawn {
		return apperr.Forbidden("only the applicant may withdraw an application")
	}
	if !e.config.StrictTransitions {
		return nil
	}
	for _, next := range strictNext[from] {
		if next == to {
			return nil
		}
	}
	return apperr.Conflict(apperr.ReasonInvalidStateTransition,
		"application cannot move from %s to %s", from, to)
}

type transition struct {
	id        uuid.UUID
	to        store.ApplicationStatus
	note      string
	interview *store.Interview
	who       actor
}

// apply runs one transition: authorize, check the move, compare-and-set the
// status, append the history entry and queue the event, in one transaction.
func (e *Engine) apply(ctx context.Context, span trace.Span, p *auth.Principal, t transition) (*store.Application, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	app, err := e.store.GetApplicationByID(ctx, tx, t.id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("application %s not found", t.id)
	}
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to load application", "application_id", t.id)
	}

	switch t.who {
	case byEmployer:
		if app.EmployerID != p.ID {
			return nil, apperr.Forbidden("application %s belongs to another employer", t.id)
		}
	case byApplicant:
		if app.ApplicantID != p.ID {
			return nil, apperr.Forbidden("you can only withdraw your own applications")
		}
	}

	from := app.Status
	if err := e.allowed(from, t.to, t.who); err != nil {
		logger.FromContext(ctx, e.logger).Info("transition refused",
			"application_id", t.id, "from", from, "to", t.to, "error", err)
		return nil, err
	}

	now := e.now().UTC()
	err = e.store.TransitionStatus(ctx, tx, t.id, from, t.to, t.interview, now)
	if errors.Is(err, store.ErrStaleStatus) {
		logger.FromContext(ctx, e.logger).Info("concurrent transition detected",
			"application_id", t.id, "from", from, "to", t.to)
		return nil, apperr.Conflict(apperr.ReasonConcurrentUpdate,
			"application %s was changed by another request", t.id)
	}
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to update application status", "application_id", t.id)
	}

	actorID := p.ID
	change := store.StatusChange{Status: t.to, ChangedBy: &actorID, ChangedAt: now, Note: t.note}
	if err := e.store.AppendStatusChange(ctx, tx, t.id, change); err != nil {
		return nil, e.fault(ctx, span, err, "failed to record application history", "application_id", t.id)
	}

	payload, err := json.Marshal(StatusChangedEvent{
		ApplicationID:  app.ID,
		JobID:          app.JobID,
		ApplicantID:    app.ApplicantID,
		EmployerID:     app.EmployerID,
		Status:         t.to,
		PreviousStatus: from,
		ChangedBy:      p.ID,
		ChangedAt:      now,
		Trace:          observability.InjectTrace(ctx),
	})
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to encode status event")
	}
	if _, err := e.store.AddEvent(ctx, tx, TopicApplicationStatusChanged, payload); err != nil {
		return nil, e.fault(ctx, span, err, "failed to queue status event", "application_id", t.id)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.fault(ctx, span, err, "failed to commit status change", "application_id", t.id)
	}

	e.metrics.Transition(ctx, string(t.to))
	logger.FromContext(ctx, e.logger).Info("application status changed",
		"application_id", t.id, "from", from, "to", t.to, "actor_id", p.ID)

	app.Status = t.to
	app.UpdatedAt = now
	app.StatusHistory = append(app.StatusHistory, change)
	if t.interview != nil {
		iv := *t.interview
		app.Interview = &iv
	}
	return app, nil
}

// UpdateStatus moves an application on behalf of its employer.
func (e *Engine) UpdateStatus(ctx context.Context, p *auth.Principal, id uuid.UUID, status store.ApplicationStatus, note string) (*store.Application, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.update_status", trace.WithAttributes(
		attribute.String("application.id", id.String()),
		attribute.String("application.status", string(status)),
	))
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}
	if err := validation.StatusUpdate(status, note); err != nil {
		return nil, err
	}
	return e.apply(ctx, span, p, transition{id: id, to: status, note: note, who: byEmployer})
}

// Withdraw moves an application to withdrawn on behalf of its applicant.
func (e *Engine) Withdraw(ctx context.Context, p *auth.Principal, id uuid.UUID) (*store.Application, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.withdraw", trace.WithAttributes(attribute.String("application.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleWorker); err != nil {
		return nil, err
	}
	return e.apply(ctx, span, p, transition{id: id, to: store.ApplicationWithdrawn, note: withdrawNote, who: byApplicant})
}

// ScheduleInterview records the interview and moves the application to
// interview-scheduled in the same write. A refused move leaves the previous
// interview untouched.
func (e *Engine) ScheduleInterview(ctx context.Context, p *auth.Principal, id uuid.UUID, iv store.Interview) (*store.Application, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.schedule_interview", trace.WithAttributes(attribute.String("application.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}
	if err := validation.Interview(iv, e.now()); err != nil {
		return nil, err
	}
	iv.ScheduledAt = iv.ScheduledAt.UTC()
	return e.apply(ctx, span, p, transition{
		id:        id,
		to:        store.ApplicationInterviewScheduled,
		note:      interviewScheduledNote,
		interview: &iv,
		who:       byEmployer,
	})
}
