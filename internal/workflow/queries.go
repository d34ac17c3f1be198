package workflow

import (
	"context"
	"errors"

	"hirelane/internal/apperr"
	"hirelane/internal/auth"
	"hirelane/internal/logger"
	"hirelane/internal/store"
	"hirelane/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GetApplication returns an application to its applicant or its employer.
// The employer's first read sets the viewed flag.
func (e *Engine) GetApplication(ctx context.Context, p *auth.Principal, id uuid.UUID) (*store.Application, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.get_application", trace.WithAttributes(attribute.String("application.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleWorker, store.RoleEmployer, store.RoleAdmin); err != nil {
		return nil, err
	}

	app, err := e.store.GetApplicationByID(ctx, nil, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("application %s not found", id)
	}
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to load application", "application_id", id)
	}

	isEmployer := app.EmployerID == p.ID
	if !isEmployer && app.ApplicantID != p.ID && p.Role != store.RoleAdmin {
		return nil, apperr.Forbidden("you do not have permission to view application %s", id)
	}
	if !isEmployer || app.ViewedByEmployer {
		return app, nil
	}

	return e.markViewed(ctx, span, app)
}

// markViewed flips the viewed flag of app once. When another request flipped
// it first, the stored timestamp is returned instead of a new one.
func (e *Engine) markViewed(ctx context.Context, span trace.Span, app *store.Application) (*store.Application, error) {
	at := e.now().UTC()
	flipped, err := e.store.MarkViewed(ctx, app.ID, at)
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to mark application viewed", "application_id", app.ID)
	}
	if flipped {
		app.ViewedByEmployer = true
		app.ViewedAt = &at
		return app, nil
	}

	current, err := e.store.GetApplicationByID(ctx, nil, app.ID)
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to reload application", "application_id", app.ID)
	}
	return current, nil
}

// MarkViewed sets the viewed flag on behalf of the owning employer. Repeated
// calls keep the first timestamp.
func (e *Engine) MarkViewed(ctx context.Context, p *auth.Principal, id uuid.UUID) (*store.Application, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.mark_viewed", trace.WithAttributes(attribute.String("application.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}

	app, err := e.store.GetApplicationByID(ctx, nil, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("application %s not found", id)
	}
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to load application", "application_id", id)
	}
	if app.EmployerID != p.ID {
		return nil, apperr.Forbidden("application %s belongs to another employer", id)
	}
	if app.ViewedByEmployer {
		return app, nil
	}
	return e.markViewed(ctx, span, app)
}

func (e *Engine) pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = e.config.DefaultPageSize
	}
	if limit > e.config.MaxPageSize {
		limit = e.config.MaxPageSize
	}
	return page, limit
}

func checkStatusFilter(status store.ApplicationStatus) error {
	if status == "" {
		return nil
	}
	for _, s := range store.ApplicationStatuses {
		if s == status {
			return nil
		}
	}
	errs := validation.Errors{}
	errs.Add("status", "unknown application status %q", status)
	return errs.Err()
}

// list runs one page of an application listing.
func (e *Engine) list(ctx context.Context, span trace.Span, filter store.ApplicationFilter, page, limit int) ([]store.Application, store.Page, error) {
	if err := checkStatusFilter(filter.Status); err != nil {
		return nil, store.Page{}, err
	}
	page, limit = e.pageBounds(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	apps, total, err := e.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, store.Page{}, e.fault(ctx, span, err, "failed to list applications")
	}
	if apps == nil {
		apps = []store.Application{}
	}
	return apps, store.NewPage(page, limit, total), nil
}

// ListWorkerApplications lists the caller's own applications, newest first.
func (e *Engine) ListWorkerApplications(ctx context.Context, p *auth.Principal, status store.ApplicationStatus, page, limit int) ([]store.Application, store.Page, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.list_worker_applications")
	defer span.End()

	if err := auth.Require(p, store.RoleWorker); err != nil {
		return nil, store.Page{}, err
	}
	return e.list(ctx, span, store.ApplicationFilter{ApplicantID: &p.ID, Status: status}, page, limit)
}

// ListJobApplications lists the applications to one of the caller's jobs and
// then marks every unviewed application of that job viewed.
func (e *Engine) ListJobApplications(ctx context.Context, p *auth.Principal, jobID uuid.UUID, status store.ApplicationStatus, page, limit int) ([]store.Application, store.Page, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.list_job_applications", trace.WithAttributes(attribute.String("job.id", jobID.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, store.Page{}, err
	}

	job, err := e.store.GetJobByID(ctx, nil, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.Page{}, apperr.NotFound("job %s not found", jobID)
	}
	if err != nil {
		return nil, store.Page{}, e.fault(ctx, span, err, "failed to load job", "job_id", jobID)
	}
	if job.EmployerID != p.ID {
		return nil, store.Page{}, apperr.Forbidden("job %s belongs to another employer", jobID)
	}

	apps, pg, err := e.list(ctx, span, store.ApplicationFilter{JobID: &jobID, Status: status}, page, limit)
	if err != nil {
		return nil, store.Page{}, err
	}

	n, err := e.store.MarkJobApplicationsViewed(ctx, jobID, e.now().UTC())
	if err != nil {
		return nil, store.Page{}, e.fault(ctx, span, err, "failed to mark applications viewed", "job_id", jobID)
	}
	if n > 0 {
		logger.FromContext(ctx, e.logger).Debug("applications marked viewed", "job_id", jobID, "count", n)
	}
	return apps, pg, nil
}

// Stats aggregates the applications an employer received, at request time.
func (e *Engine) Stats(ctx context.Context, p *auth.Principal) (*store.ApplicationStats, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.stats")
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}
	stats, err := e.store.ApplicationStatsByEmployer(ctx, p.ID)
	if err != nil {
		return nil, e.fault(ctx, span, err, "failed to aggregate applications", "employer_id", p.ID)
	}
	return stats, nil
}
