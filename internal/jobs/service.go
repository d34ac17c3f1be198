package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/auth"
	"hirelane/internal/logger"
	"hirelane/internal/observability"
	"hirelane/internal/store"
	"hirelane/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	recommendLimit     = 20
	recentApplications = 5
	defaultCurrency    = "INR"
)

// Store is the persistence the job service needs.
type Store interface {
	store.Transactor
	store.JobStore
	HasApplied(ctx context.Context, jobID, applicantID uuid.UUID) (bool, error)
	CountApplicationsForJob(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error)
	RecentApplicationsForEmployer(ctx context.Context, employerID uuid.UUID, limit int) ([]store.Application, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)
}

// Config bounds listing page sizes.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service implements job postings on top of a Store.
type Service struct {
	store   Store
	config  Config
	metrics *observability.WorkflowMetrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a job service. metrics may be nil.
func NewService(s Store, config Config, metrics *observability.WorkflowMetrics, log *slog.Logger) *Service {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 20
	}
	if config.MaxPageSize < config.DefaultPageSize {
		config.MaxPageSize = config.DefaultPageSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   s,
		config:  config,
		metrics: metrics,
		logger:  log,
		tracer:  observability.Tracer("jobs"),
		now:     time.Now,
	}
}

// Detail is a job as shown on its own page.
type Detail struct {
	store.Job
	HasApplied bool `json:"has_applied"`
}

// EmployerJob is a job in its owner's listing, with the live application count.
type EmployerJob struct {
	store.Job
	ApplicationCount int64 `json:"application_count"`
}

// Stats summarizes an employer's postings.
type Stats struct {
	TotalJobs          int64                  `json:"total_jobs"`
	ActiveJobs         int64                  `json:"active_jobs"`
	ByStatus           []store.JobStatusStats `json:"stats"`
	RecentApplications []store.Application    `json:"recent_applications"`
}

// Deletion is the outcome of a delete request.
type Deletion string

const (
	Deleted   Deletion = "deleted"
	Cancelled Deletion = "cancelled"
)

// Patch holds the fields of a partial job update. Nil fields are left unchanged.
type Patch struct {
	Title               *string             `json:"title,omitempty"`
	Description         *string             `json:"description,omitempty"`
	Category            *store.JobCategory  `json:"category,omitempty"`
	Location            *store.Location     `json:"location,omitempty"`
	Compensation        *store.Compensation `json:"salary,omitempty"`
	Type                *store.JobType      `json:"type,omitempty"`
	Requirements        *store.Requirements `json:"requirements,omitempty"`
	ApplicationDeadline *time.Time          `json:"application_deadline,omitempty"`
	MaxApplications     *int                `json:"max_applications,omitempty"`
	Status              *store.JobStatus    `json:"status,omitempty"`
}

func (p Patch) apply(job *store.Job) {
	if p.Title != nil {
		job.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		job.Description = *p.Description
	}
	if p.Category != nil {
		job.Category = *p.Category
	}
	if p.Location != nil {
		job.Location = *p.Location
	}
	if p.Compensation != nil {
		job.Compensation = *p.Compensation
		if job.Compensation.Currency == "" {
			job.Compensation.Currency = defaultCurrency
		}
	}
	if p.Type != nil {
		job.Type = *p.Type
	}
	if p.Requirements != nil {
		job.Requirements = *p.Requirements
	}
	if p.ApplicationDeadline != nil {
		job.ApplicationDeadline = p.ApplicationDeadline
	}
	if p.MaxApplications != nil {
		job.MaxApplications = p.MaxApplications
	}
	if p.Status != nil {
		job.Status = *p.Status
	}
}

// fault records an unexpected failure on the span and in the log, and hides
// its detail from the caller.
func (s *Service) fault(ctx context.Context, span trace.Span, err error, msg string, attrs ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logger.FromContext(ctx, s.logger).Error(msg, append(attrs, "error", err)...)
	return apperr.Internal(err, msg)
}

// Create posts a new job owned by the calling employer.
func (s *Service) Create(ctx context.Context, p *auth.Principal, job *store.Job) (*store.Job, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.create")
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	job.ID = uuid.New()
	job.EmployerID = p.ID
	job.Title = strings.TrimSpace(job.Title)
	if job.Status == "" {
		job.Status = store.JobStatusActive
	}
	if job.Compensation.Currency == "" {
		job.Compensation.Currency = defaultCurrency
	}
	if job.Requirements.Experience == "" {
		job.Requirements.Experience = store.ExperienceFresher
	}
	job.CurrentApplications = 0
	job.Views = 0
	job.Analytics = store.JobAnalytics{}
	job.CreatedAt = now
	job.UpdatedAt = now

	if err := validation.Job(job); err != nil {
		return nil, err
	}

	if err := s.store.CreateJob(ctx, nil, job); err != nil {
		return nil, s.fault(ctx, span, err, "failed to create job", "employer_id", p.ID)
	}

	span.SetAttributes(attribute.String("job.id", job.ID.String()))
	logger.FromContext(ctx, s.logger).Info("job created", "job_id", job.ID, "employer_id", p.ID)
	return job, nil
}

// Update applies patch to a job owned by the calling employer.
func (s *Service) Update(ctx context.Context, p *auth.Principal, id uuid.UUID, patch Patch) (*store.Job, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.update", trace.WithAttributes(attribute.String("job.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	job, err := s.store.LockJob(ctx, tx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("job %s not found", id)
	}
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to load job", "job_id", id)
	}
	if job.EmployerID != p.ID {
		return nil, apperr.Forbidden("job %s belongs to another employer", id)
	}

	patch.apply(job)
	job.UpdatedAt = s.now().UTC()

	if err := validation.Job(job); err != nil {
		return nil, err
	}
	if err := s.store.UpdateJob(ctx, tx, job); err != nil {
		return nil, s.fault(ctx, span, err, "failed to update job", "job_id", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.fault(ctx, span, err, "failed to commit job update", "job_id", id)
	}
	return job, nil
}

// Get returns a job and counts the view. p may be nil for anonymous readers.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id uuid.UUID) (*Detail, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.get", trace.WithAttributes(attribute.String("job.id", id.String())))
	defer span.End()

	job, err := s.store.GetJobByID(ctx, nil, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("job %s not found", id)
	}
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to load job", "job_id", id)
	}

	// View counting is best effort.
	if err := s.store.IncrementViews(ctx, id); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to count job view", "job_id", id, "error", err)
	} else {
		job.Views++
		job.Analytics.Impressions++
		s.metrics.Viewed(ctx)
	}

	detail := &Detail{Job: *job}
	if p.Is(store.RoleWorker) {
		applied, err := s.store.HasApplied(ctx, id, p.ID)
		if err != nil {
			return nil, s.fault(ctx, span, err, "failed to check application", "job_id", id)
		}
		detail.HasApplied = applied
	}
	return detail, nil
}

// Delete removes a job, or cancels it when applications reference it. The
// job row stays locked between the count and the write so an apply cannot
// slip in between.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id uuid.UUID) (Deletion, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.delete", trace.WithAttributes(attribute.String("job.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer, store.RoleAdmin); err != nil {
		return "", err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return "", s.fault(ctx, span, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	job, err := s.store.LockJob(ctx, tx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.NotFound("job %s not found", id)
	}
	if err != nil {
		return "", s.fault(ctx, span, err, "failed to lock job", "job_id", id)
	}
	if p.Role != store.RoleAdmin && job.EmployerID != p.ID {
		return "", apperr.Forbidden("job %s belongs to another employer", id)
	}

	count, err := s.store.CountApplicationsForJob(ctx, tx, id)
	if err != nil {
		return "", s.fault(ctx, span, err, "failed to count applications", "job_id", id)
	}

	outcome := Deleted
	if count > 0 {
		outcome = Cancelled
		err = s.store.SetJobStatus(ctx, tx, id, store.JobStatusCancelled, s.now().UTC())
	} else {
		err = s.store.DeleteJob(ctx, tx, id)
	}
	if err != nil {
		return "", s.fault(ctx, span, err, "failed to delete job", "job_id", id)
	}
	if err := tx.Commit(); err != nil {
		return "", s.fault(ctx, span, err, "failed to commit job deletion", "job_id", id)
	}

	span.SetAttributes(attribute.String("job.deletion", string(outcome)))
	logger.FromContext(ctx, s.logger).Info("job deleted",
		"job_id", id, "outcome", outcome, "applications", count)
	return outcome, nil
}

// pageBounds clamps a 1-based page and a limit to the configured bounds.
func (s *Service) pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}
	return page, limit
}

func checkFilter(f store.JobFilter) error {
	errs := validation.Errors{}
	if f.Status != "" && !contains(store.JobStatuses, f.Status) {
		errs.Add("status", "unknown job status %q", f.Status)
	}
	if f.Category != "" && !contains(store.JobCategories, f.Category) {
		errs.Add("category", "unknown category %q", f.Category)
	}
	if f.Type != "" && !contains(store.JobTypes, f.Type) {
		errs.Add("type", "unknown job type %q", f.Type)
	}
	if f.Experience != "" && !contains(store.ExperienceTiers, f.Experience) {
		errs.Add("experience", "unknown experience tier %q", f.Experience)
	}
	if f.Sort != "" && !contains(store.JobSorts, f.Sort) {
		errs.Add("sort", "unknown sort %q", f.Sort)
	}
	if f.SalaryMin != nil && f.SalaryMax != nil && *f.SalaryMin > *f.SalaryMax {
		errs.Add("salary_max", "must be greater than or equal to salary_min")
	}
	return errs.Err()
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Search lists jobs matching filter. An empty status means active jobs only.
func (s *Service) Search(ctx context.Context, filter store.JobFilter, page, limit int) ([]store.Job, store.Page, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.search")
	defer span.End()

	if err := checkFilter(filter); err != nil {
		return nil, store.Page{}, err
	}
	if filter.Status == "" {
		filter.Status = store.JobStatusActive
	}
	page, limit = s.pageBounds(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	jobs, total, err := s.store.SearchJobs(ctx, filter)
	if err != nil {
		return nil, store.Page{}, s.fault(ctx, span, err, "failed to search jobs")
	}
	span.SetAttributes(attribute.Int64("jobs.total", total))
	return jobs, store.NewPage(page, limit, total), nil
}

// ListForEmployer lists the caller's own jobs, newest first. An empty status
// lists every status.
func (s *Service) ListForEmployer(ctx context.Context, p *auth.Principal, status store.JobStatus, page, limit int) ([]EmployerJob, store.Page, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.list_for_employer")
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, store.Page{}, err
	}
	filter := store.JobFilter{EmployerID: &p.ID, Status: status, Sort: store.SortDate}
	if err := checkFilter(filter); err != nil {
		return nil, store.Page{}, err
	}
	page, limit = s.pageBounds(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	jobs, total, err := s.store.SearchJobs(ctx, filter)
	if err != nil {
		return nil, store.Page{}, s.fault(ctx, span, err, "failed to list employer jobs", "employer_id", p.ID)
	}

	out := make([]EmployerJob, 0, len(jobs))
	for _, j := range jobs {
		count, err := s.store.CountApplicationsForJob(ctx, nil, j.ID)
		if err != nil {
			return nil, store.Page{}, s.fault(ctx, span, err, "failed to count applications", "job_id", j.ID)
		}
		out = append(out, EmployerJob{Job: j, ApplicationCount: count})
	}
	return out, store.NewPage(page, limit, total), nil
}

// Recommend matches active jobs to the calling worker's skills, city and experience.
func (s *Service) Recommend(ctx context.Context, p *auth.Principal) ([]store.Job, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.recommend")
	defer span.End()

	if err := auth.Require(p, store.RoleWorker); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user %s not found", p.ID)
	}
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to load worker profile", "user_id", p.ID)
	}

	filter := store.RecommendFilter{
		Skills: user.Skills,
		City:   user.Location.City,
		Limit:  recommendLimit,
	}
	if user.Experience != "" {
		filter.Experiences = []store.ExperienceTier{store.ExperienceFresher}
		if user.Experience != store.ExperienceFresher {
			filter.Experiences = append(filter.Experiences, user.Experience)
		}
	}

	jobs, err := s.store.RecommendJobs(ctx, filter)
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to recommend jobs", "user_id", p.ID)
	}
	return jobs, nil
}

// Stats aggregates the caller's jobs by status at request time.
func (s *Service) Stats(ctx context.Context, p *auth.Principal) (*Stats, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.stats")
	defer span.End()

	if err := auth.Require(p, store.RoleEmployer); err != nil {
		return nil, err
	}

	byStatus, err := s.store.JobStatsByEmployer(ctx, p.ID)
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to aggregate jobs", "employer_id", p.ID)
	}
	recent, err := s.store.RecentApplicationsForEmployer(ctx, p.ID, recentApplications)
	if err != nil {
		return nil, s.fault(ctx, span, err, "failed to load recent applications", "employer_id", p.ID)
	}

	stats := &Stats{ByStatus: byStatus, RecentApplications: recent}
	if stats.ByStatus == nil {
		stats.ByStatus = []store.JobStatusStats{}
	}
	if stats.RecentApplications == nil {
		stats.RecentApplications = []store.Application{}
	}
	for _, st := range byStatus {
		stats.TotalJobs += st.Count
		if st.Status == store.JobStatusActive {
			stats.ActiveJobs = st.Count
		}
	}
	return stats, nil
}

// Reconcile resets a job's application counter to the number of stored
// applications. It is the only path that may lower the counter.
func (s *Service) Reconcile(ctx context.Context, p *auth.Principal, id uuid.UUID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "jobs.reconcile", trace.WithAttributes(attribute.String("job.id", id.String())))
	defer span.End()

	if err := auth.Require(p, store.RoleAdmin); err != nil {
		return 0, err
	}

	count, err := s.store.ReconcileApplicationCount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.NotFound("job %s not found", id)
	}
	if err != nil {
		return 0, s.fault(ctx, span, err, "failed to reconcile application count", "job_id", id)
	}
	logger.FromContext(ctx, s.logger).Info("application count reconciled",
		"job_id", id, "current_applications", count, "admin_id", p.ID)
	return count, nil
}
