package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hirelane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const jobColumns = `id, employer_id, title, description, category,
	address, city, state, postal_code,
	salary_min, salary_max, salary_period, currency, negotiable,
	job_type, experience, skills, education,
	application_deadline, max_applications, current_applications,
	status, views, analytics_impressions, analytics_applications,
	created_at, updated_at`

func scanJob(row rowScanner, extra ...interface{}) (*store.Job, error) {
	var (
		j           store.Job
		address     sql.NullString
		postalCode  sql.NullString
		salaryMax   sql.NullFloat64
		education   sql.NullString
		deadline    sql.NullTime
		maxApps     sql.NullInt64
		skills      []string
		destination []interface{}
	)

	destination = append(destination,
		&j.ID, &j.EmployerID, &j.Title, &j.Description, &j.Category,
		&address, &j.Location.City, &j.Location.State, &postalCode,
		&j.Compensation.Min, &salaryMax, &j.Compensation.Period, &j.Compensation.Currency, &j.Compensation.Negotiable,
		&j.Type, &j.Requirements.Experience, pq.Array(&skills), &education,
		&deadline, &maxApps, &j.CurrentApplications,
		&j.Status, &j.Views, &j.Analytics.Impressions, &j.Analytics.Applications,
		&j.CreatedAt, &j.UpdatedAt,
	)
	destination = append(destination, extra...)

	if err := row.Scan(destination...); err != nil {
		return nil, err
	}

	j.Location.Address = address.String
	j.Location.PostalCode = postalCode.String
	if salaryMax.Valid {
		v := salaryMax.Float64
		j.Compensation.Max = &v
	}
	j.Requirements.Skills = skills
	if j.Requirements.Skills == nil {
		j.Requirements.Skills = []string{}
	}
	j.Requirements.Education = store.EducationTier(education.String)
	j.ApplicationDeadline = timePtr(deadline)
	if maxApps.Valid {
		v := int(maxApps.Int64)
		j.MaxApplications = &v
	}
	return &j, nil
}

func jobArgs(job *store.Job) []interface{} {
	var salaryMax sql.NullFloat64
	if job.Compensation.Max != nil {
		salaryMax = sql.NullFloat64{Float64: *job.Compensation.Max, Valid: true}
	}
	var maxApps sql.NullInt64
	if job.MaxApplications != nil {
		maxApps = sql.NullInt64{Int64: int64(*job.MaxApplications), Valid: true}
	}
	skills := job.Requirements.Skills
	if skills == nil {
		skills = []string{}
	}

	return []interface{}{
		job.Title, job.Description, job.Category,
		nullString(job.Location.Address), job.Location.City, job.Location.State, nullString(job.Location.PostalCode),
		job.Compensation.Min, salaryMax, job.Compensation.Period, job.Compensation.Currency, job.Compensation.Negotiable,
		job.Type, job.Requirements.Experience, pq.Array(skills), nullString(string(job.Requirements.Education)),
		nullTime(job.ApplicationDeadline), maxApps, job.Status,
	}
}

// CreateJob inserts a new job row. Counters start at zero.
func (s *Store) CreateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	query := `
		INSERT INTO jobs (
			title, description, category,
			address, city, state, postal_code,
			salary_min, salary_max, salary_period, currency, negotiable,
			job_type, experience, skills, education,
			application_deadline, max_applications, status,
			id, employer_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	args := append(jobArgs(job), job.ID, job.EmployerID, job.CreatedAt, job.UpdatedAt)
	if _, err := s.getExecutor(tx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	return nil
}

// GetJobByID returns a job by its ID.
func (s *Store) GetJobByID(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE id = $1"

	job, err := scanJob(s.getExecutor(tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

// LockJob reads the job with FOR UPDATE so concurrent writers queue behind tx.
func (s *Store) LockJob(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE id = $1 FOR UPDATE"

	job, err := scanJob(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

// UpdateJob rewrites the editable columns. Counters and ownership are untouched.
func (s *Store) UpdateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	query := `
		UPDATE jobs SET
			title = $1, description = $2, category = $3,
			address = $4, city = $5, state = $6, postal_code = $7,
			salary_min = $8, salary_max = $9, salary_period = $10, currency = $11, negotiable = $12,
			job_type = $13, experience = $14, skills = $15, education = $16,
			application_deadline = $17, max_applications = $18, status = $19,
			updated_at = $20
		WHERE id = $21
	`

	args := append(jobArgs(job), job.UpdatedAt, job.ID)
	res, err := s.getExecutor(tx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return expectOneRow(res)
}

// DeleteJob removes a job row. Callers must first check it has no applications.
func (s *Store) DeleteJob(ctx context.Context, tx store.DBTransaction, id uuid.UUID) error {
	res, err := s.getExecutor(tx).ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return expectOneRow(res)
}

func (s *Store) SetJobStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.JobStatus, now time.Time) error {
	res, err := s.getExecutor(tx).ExecContext(ctx,
		"UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3",
		status, now, id)
	if err != nil {
		return fmt.Errorf("failed to set job %s status: %w", id, err)
	}
	return expectOneRow(res)
}

// IncrementApplicationCount applies the capacity guard and both counter
// increments in a single statement, so two applicants racing for the last
// slot cannot both pass.
func (s *Store) IncrementApplicationCount(ctx context.Context, tx store.DBTransaction, id uuid.UUID, now time.Time) (int, error) {
	query := `
		UPDATE jobs
		SET current_applications = current_applications + 1,
			analytics_applications = analytics_applications + 1,
			updated_at = $2
		WHERE id = $1
			AND status = 'active'
			AND (max_applications IS NULL OR current_applications < max_applications)
			AND (application_deadline IS NULL OR application_deadline >= $2)
		RETURNING current_applications
	`

	var current int
	err := s.getExecutor(tx).QueryRowContext(ctx, query, id, now).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrJobNotAccepting
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment applications for job %s: %w", id, err)
	}
	return current, nil
}

// IncrementViews is a plain increment; no invariant depends on it.
func (s *Store) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET views = views + 1, analytics_impressions = analytics_impressions + 1
		WHERE id = $1
	`, id)
	return err
}

func (s *Store) ReconcileApplicationCount(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE jobs
		SET current_applications = (SELECT COUNT(*) FROM applications WHERE job_id = $1),
			updated_at = NOW()
		WHERE id = $1
		RETURNING current_applications
	`

	var current int
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&current); err != nil {
		return 0, notFound(err)
	}
	return current, nil
}

// SearchJobs runs a filtered, sorted, paginated listing and returns the
// unpaginated total alongside the page.
func (s *Store) SearchJobs(ctx context.Context, filter store.JobFilter) ([]store.Job, int64, error) {
	var (
		args  []interface{}
		where []string
	)
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+bind(filter.Status))
	}
	if filter.EmployerID != nil {
		where = append(where, "employer_id = "+bind(*filter.EmployerID))
	}
	if filter.Category != "" {
		where = append(where, "category = "+bind(filter.Category))
	}
	if filter.City != "" {
		where = append(where, "city ILIKE '%' || "+bind(escapeLike(filter.City))+" || '%'")
	}
	if filter.State != "" {
		where = append(where, "state ILIKE '%' || "+bind(escapeLike(filter.State))+" || '%'")
	}
	if filter.Type != "" {
		where = append(where, "job_type = "+bind(filter.Type))
	}
	if filter.Experience != "" {
		where = append(where, "experience = "+bind(filter.Experience))
	}
	if len(filter.Skills) > 0 {
		where = append(where, "skills && "+bind(pq.Array(filter.Skills)))
	}
	if filter.SalaryMin != nil {
		where = append(where, "salary_min >= "+bind(*filter.SalaryMin))
	}
	if filter.SalaryMax != nil {
		where = append(where, "salary_max <= "+bind(*filter.SalaryMax))
	}

	var queryParam string
	if filter.Query != "" {
		queryParam = bind(filter.Query)
		where = append(where, "search @@ plainto_tsquery('english', "+queryParam+")")
	}

	order := "created_at DESC, id DESC"
	switch filter.Sort {
	case store.SortDateAsc:
		order = "created_at ASC, id ASC"
	case store.SortSalaryAsc:
		order = "salary_min ASC, created_at DESC, id DESC"
	case store.SortSalaryDesc:
		order = "salary_min DESC, created_at DESC, id DESC"
	case store.SortRelevance:
		if queryParam != "" {
			order = "ts_rank(search, plainto_tsquery('english', " + queryParam + ")) DESC, created_at DESC, id DESC"
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM jobs
		%s
		ORDER BY %s
		LIMIT %s OFFSET %s
	`, jobColumns, whereClause, order, bind(limit), bind(filter.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("job search query failed: %w", err)
	}
	defer rows.Close()

	var (
		jobs  []store.Job
		total int64
	)
	for rows.Next() {
		job, err := scanJob(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("job search scan failed: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("job search rows error: %w", err)
	}

	// A page past the end has no rows to carry the window count.
	if len(jobs) == 0 && filter.Offset > 0 {
		countQuery := "SELECT COUNT(*) FROM jobs " + whereClause
		if err := s.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("job count query failed: %w", err)
		}
	}

	return jobs, total, nil
}

// RecommendJobs lists active jobs matching any of the worker's skills, their
// city and an experience tier they qualify for, newest first.
func (s *Store) RecommendJobs(ctx context.Context, filter store.RecommendFilter) ([]store.Job, error) {
	args := []interface{}{store.JobStatusActive}
	where := []string{"status = $1"}

	if len(filter.Skills) > 0 {
		args = append(args, pq.Array(filter.Skills))
		where = append(where, fmt.Sprintf("skills && $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, escapeLike(filter.City))
		where = append(where, fmt.Sprintf("city ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if len(filter.Experiences) > 0 {
		tiers := make([]string, len(filter.Experiences))
		for i, e := range filter.Experiences {
			tiers[i] = string(e)
		}
		args = append(args, pq.Array(tiers))
		where = append(where, fmt.Sprintf("experience = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, jobColumns, strings.Join(where, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recommendation query failed: %w", err)
	}
	defer rows.Close()

	var jobs []store.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("recommendation scan failed: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *Store) JobStatsByEmployer(ctx context.Context, employerID uuid.UUID) ([]store.JobStatusStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(views), 0), COALESCE(SUM(current_applications), 0)
		FROM jobs
		WHERE employer_id = $1
		GROUP BY status
		ORDER BY status
	`, employerID)
	if err != nil {
		return nil, fmt.Errorf("job stats query failed: %w", err)
	}
	defer rows.Close()

	var stats []store.JobStatusStats
	for rows.Next() {
		var st store.JobStatusStats
		if err := rows.Scan(&st.Status, &st.Count, &st.TotalViews, &st.TotalApplications); err != nil {
			return nil, fmt.Errorf("job stats scan failed: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// CountActiveJobs feeds the active jobs gauge.
func (s *Store) CountActiveJobs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE status = 'active'").Scan(&count)
	return count, err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
