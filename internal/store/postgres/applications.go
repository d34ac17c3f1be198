package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"hirelane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const applicationsJobApplicantKey = "applications_job_applicant_key"

const applicationColumns = `a.id, a.job_id, a.applicant_id, a.employer_id, a.cover_letter,
		a.proposed_amount, a.proposed_period, a.available_from, a.available_until, a.flexible,
		a.status, a.interview_at, a.interview_location, a.interview_medium, a.interview_notes,
		a.viewed_by_employer, a.viewed_at, a.applied_at, a.updated_at,
		j.title, j.category, j.city, j.state, j.salary_min, j.salary_max, j.salary_period, j.currency, j.status,
		e.name, e.company_name, u.name`

const applicationFrom = `
	FROM applications a
	JOIN jobs j ON j.id = a.job_id
	JOIN users e ON e.id = a.employer_id
	JOIN users u ON u.id = a.applicant_id
`

func scanApplication(row rowScanner, extra ...interface{}) (*store.Application, error) {
	var (
		a              store.Application
		coverLetter    sql.NullString
		proposedAmount sql.NullFloat64
		proposedPeriod sql.NullString
		availableFrom  sql.NullTime
		availableUntil sql.NullTime
		interviewAt    sql.NullTime
		interviewLoc   sql.NullString
		interviewMed   sql.NullString
		interviewNotes sql.NullString
		viewedAt       sql.NullTime
		job            store.JobSummary
		salaryMax      sql.NullFloat64
		employerName   string
		companyName    sql.NullString
		applicantName  string
	)

	dest := []interface{}{
		&a.ID, &a.JobID, &a.ApplicantID, &a.EmployerID, &coverLetter,
		&proposedAmount, &proposedPeriod, &availableFrom, &availableUntil, &a.Availability.Flexible,
		&a.Status, &interviewAt, &interviewLoc, &interviewMed, &interviewNotes,
		&a.ViewedByEmployer, &viewedAt, &a.AppliedAt, &a.UpdatedAt,
		&job.Title, &job.Category, &job.Location.City, &job.Location.State,
		&job.Compensation.Min, &salaryMax, &job.Compensation.Period, &job.Compensation.Currency, &job.Status,
		&employerName, &companyName, &applicantName,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	a.CoverLetter = coverLetter.String
	if proposedAmount.Valid {
		a.ProposedCompensation = &store.ProposedCompensation{
			Amount: proposedAmount.Float64,
			Period: store.SalaryPeriod(proposedPeriod.String),
		}
	}
	a.Availability.StartDate = timePtr(availableFrom)
	a.Availability.EndDate = timePtr(availableUntil)
	if interviewAt.Valid {
		a.Interview = &store.Interview{
			ScheduledAt: interviewAt.Time,
			Location:    interviewLoc.String,
			Medium:      store.InterviewMedium(interviewMed.String),
			Notes:       interviewNotes.String,
		}
	}
	a.ViewedAt = timePtr(viewedAt)

	job.ID = a.JobID
	if salaryMax.Valid {
		v := salaryMax.Float64
		job.Compensation.Max = &v
	}
	a.Job = &job
	a.Employer = &store.UserSummary{ID: a.EmployerID, Name: employerName, CompanyName: companyName.String}
	a.Applicant = &store.UserSummary{ID: a.ApplicantID, Name: applicantName}
	a.StatusHistory = []store.StatusChange{}
	return &a, nil
}

// CreateApplication inserts the application row. The unique key on
// (job_id, applicant_id) is the only duplicate check.
func (s *Store) CreateApplication(ctx context.Context, tx store.DBTransaction, app *store.Application) error {
	query := `
		INSERT INTO applications (
			id, job_id, applicant_id, employer_id, cover_letter,
			proposed_amount, proposed_period, available_from, available_until, flexible,
			status, applied_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var (
		amount sql.NullFloat64
		period sql.NullString
	)
	if app.ProposedCompensation != nil {
		amount = sql.NullFloat64{Float64: app.ProposedCompensation.Amount, Valid: true}
		period = nullString(string(app.ProposedCompensation.Period))
	}

	_, err := s.getExecutor(tx).ExecContext(ctx, query,
		app.ID,
		app.JobID,
		app.ApplicantID,
		app.EmployerID,
		nullString(app.CoverLetter),
		amount,
		period,
		nullTime(app.Availability.StartDate),
		nullTime(app.Availability.EndDate),
		app.Availability.Flexible,
		app.Status,
		app.AppliedAt,
		app.UpdatedAt,
	)
	if isUniqueViolation(err, applicationsJobApplicantKey) {
		return store.ErrDuplicateApplication
	}
	if err != nil {
		return fmt.Errorf("failed to create application %s: %w", app.ID, err)
	}
	return nil
}

func (s *Store) AppendStatusChange(ctx context.Context, tx store.DBTransaction, appID uuid.UUID, change store.StatusChange) error {
	var changedBy uuid.NullUUID
	if change.ChangedBy != nil {
		changedBy = uuid.NullUUID{UUID: *change.ChangedBy, Valid: true}
	}

	_, err := s.getExecutor(tx).ExecContext(ctx, `
		INSERT INTO application_status_history (application_id, status, changed_by, note, changed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, appID, change.Status, changedBy, nullString(change.Note), change.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to append history for application %s: %w", appID, err)
	}
	return nil
}

// GetApplicationByID returns the application with its full history.
func (s *Store) GetApplicationByID(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Application, error) {
	executor := s.getExecutor(tx)

	app, err := scanApplication(executor.QueryRowContext(ctx, "SELECT "+applicationColumns+applicationFrom+"WHERE a.id = $1", id))
	if err != nil {
		return nil, notFound(err)
	}

	history, err := s.loadHistory(ctx, executor, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if h, ok := history[id]; ok {
		app.StatusHistory = h
	}
	return app, nil
}

func (s *Store) HasApplied(ctx context.Context, jobID, applicantID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND applicant_id = $2)",
		jobID, applicantID).Scan(&exists)
	return exists, err
}

func (s *Store) CountApplicationsForJob(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	var count int64
	err := s.getExecutor(tx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications WHERE job_id = $1", jobID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications for job %s: %w", jobID, err)
	}
	return count, nil
}

// TransitionStatus is a compare-and-set on the status column.
func (s *Store) TransitionStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, from, to store.ApplicationStatus, interview *store.Interview, now time.Time) error {
	executor := s.getExecutor(tx)

	var (
		res sql.Result
		err error
	)
	if interview == nil {
		res, err = executor.ExecContext(ctx, `
			UPDATE applications
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
		`, to, now, id, from)
	} else {
		res, err = executor.ExecContext(ctx, `
			UPDATE applications
			SET status = $1, updated_at = $2,
				interview_at = $3, interview_location = $4, interview_medium = $5, interview_notes = $6
			WHERE id = $7 AND status = $8
		`, to, now, interview.ScheduledAt, nullString(interview.Location), interview.Medium, nullString(interview.Notes), id, from)
	}
	if err != nil {
		return fmt.Errorf("failed to transition application %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStaleStatus
	}
	return nil
}

// MarkViewed only matches rows whose flag is still false, so viewed_at is set once.
func (s *Store) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET viewed_by_employer = TRUE, viewed_at = $2
		WHERE id = $1 AND viewed_by_employer = FALSE
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark application %s viewed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) MarkJobApplicationsViewed(ctx context.Context, jobID uuid.UUID, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET viewed_by_employer = TRUE, viewed_at = $2
		WHERE job_id = $1 AND viewed_by_employer = FALSE
	`, jobID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark applications of job %s viewed: %w", jobID, err)
	}
	return res.RowsAffected()
}

// ListApplications returns one page of applications, newest first, with history.
func (s *Store) ListApplications(ctx context.Context, filter store.ApplicationFilter) ([]store.Application, int64, error) {
	var (
		args  []interface{}
		where []string
	)
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ApplicantID != nil {
		where = append(where, "a.applicant_id = "+bind(*filter.ApplicantID))
	}
	if filter.EmployerID != nil {
		where = append(where, "a.employer_id = "+bind(*filter.EmployerID))
	}
	if filter.JobID != nil {
		where = append(where, "a.job_id = "+bind(*filter.JobID))
	}
	if filter.Status != "" {
		where = append(where, "a.status = "+bind(filter.Status))
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
		%s
		%s
		ORDER BY a.applied_at DESC, a.id DESC
		LIMIT %s OFFSET %s
	`, applicationColumns, applicationFrom, whereClause, bind(limit), bind(filter.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("application list query failed: %w", err)
	}
	defer rows.Close()

	var (
		apps  []store.Application
		ids   []uuid.UUID
		total int64
	)
	for rows.Next() {
		app, err := scanApplication(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("application list scan failed: %w", err)
		}
		apps = append(apps, *app)
		ids = append(ids, app.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("application list rows error: %w", err)
	}
	if len(apps) == 0 {
		// A page past the end has no rows to carry the window count.
		if filter.Offset > 0 {
			countQuery := "SELECT COUNT(*) FROM applications a " + whereClause
			if err := s.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
				return nil, 0, fmt.Errorf("application count query failed: %w", err)
			}
		}
		return nil, total, nil
	}

	history, err := s.loadHistory(ctx, s.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range apps {
		if h, ok := history[apps[i].ID]; ok {
			apps[i].StatusHistory = h
		}
	}
	return apps, total, nil
}

func (s *Store) ApplicationStatsByEmployer(ctx context.Context, employerID uuid.UUID) (*store.ApplicationStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COUNT(*) FILTER (WHERE NOT viewed_by_employer)
		FROM applications
		WHERE employer_id = $1
		GROUP BY status
	`, employerID)
	if err != nil {
		return nil, fmt.Errorf("application stats query failed: %w", err)
	}
	defer rows.Close()

	stats := &store.ApplicationStats{ByStatus: make(map[store.ApplicationStatus]int64)}
	for rows.Next() {
		var (
			status   store.ApplicationStatus
			count    int64
			unviewed int64
		)
		if err := rows.Scan(&status, &count, &unviewed); err != nil {
			return nil, fmt.Errorf("application stats scan failed: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
		stats.Unviewed += unviewed
	}
	return stats, rows.Err()
}

func (s *Store) RecentApplicationsForEmployer(ctx context.Context, employerID uuid.UUID, limit int) ([]store.Application, error) {
	apps, _, err := s.ListApplications(ctx, store.ApplicationFilter{EmployerID: &employerID, Limit: limit})
	return apps, err
}

func (s *Store) loadHistory(ctx context.Context, executor store.DBTransaction, ids []uuid.UUID) (map[uuid.UUID][]store.StatusChange, error) {
	rows, err := executor.QueryContext(ctx, `
		SELECT application_id, status, changed_by, note, changed_at
		FROM application_status_history
		WHERE application_id = ANY($1)
		ORDER BY id ASC
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	defer rows.Close()

	history := make(map[uuid.UUID][]store.StatusChange, len(ids))
	for rows.Next() {
		var (
			appID     uuid.UUID
			change    store.StatusChange
			changedBy uuid.NullUUID
			note      sql.NullString
		)
		if err := rows.Scan(&appID, &change.Status, &changedBy, &note, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("history scan failed: %w", err)
		}
		if changedBy.Valid {
			id := changedBy.UUID
			change.ChangedBy = &id
		}
		change.Note = note.String
		history[appID] = append(history[appID], change)
	}
	return history, rows.Err()
}
