package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"hirelane/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var jobRowColumns = []string{
	"id", "employer_id", "title", "description", "category",
	"address", "city", "state", "postal_code",
	"salary_min", "salary_max", "salary_period", "currency", "negotiable",
	"job_type", "experience", "skills", "education",
	"application_deadline", "max_applications", "current_applications",
	"status", "views", "analytics_impressions", "analytics_applications",
	"created_at", "updated_at",
}

func addJobRow(rows *sqlmock.Rows, id, employerID uuid.UUID, createdAt time.Time, extra ...interface{}) *sqlmock.Rows {
	values := []interface{}{
		id, employerID, "Plumber needed", "Fix leaking pipes in a 2BHK flat", "plumbing",
		nil, "Pune", "Maharashtra", "411001",
		500.0, 800.0, "daily", "INR", true,
		"temporary", "1-2 years", "{plumbing,repair}", nil,
		nil, int64(5), 2,
		"active", int64(10), int64(12), int64(2),
		createdAt, createdAt,
	}
	return rows.AddRow(append(values, extra...)...)
}

func TestGetJobByID_Success(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	id := uuid.New()
	employerID := uuid.New()
	createdAt := time.Now().Truncate(time.Second)

	mock.ExpectQuery(`SELECT id, employer_id, title, .* FROM jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(addJobRow(sqlmock.NewRows(jobRowColumns), id, employerID, createdAt))

	job, err := store.GetJobByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("GetJobByID failed: %v", err)
	}
	if job.ID != id || job.EmployerID != employerID {
		t.Errorf("unexpected ids: %v %v", job.ID, job.EmployerID)
	}
	if job.Compensation.Max == nil || *job.Compensation.Max != 800 {
		t.Errorf("expected salary max 800, got %v", job.Compensation.Max)
	}
	if job.MaxApplications == nil || *job.MaxApplications != 5 {
		t.Errorf("expected max applications 5, got %v", job.MaxApplications)
	}
	if len(job.Requirements.Skills) != 2 || job.Requirements.Skills[1] != "repair" {
		t.Errorf("unexpected skills: %v", job.Requirements.Skills)
	}
	if job.ApplicationDeadline != nil {
		t.Errorf("expected no deadline, got %v", job.ApplicationDeadline)
	}
	if job.Location.Address != "" {
		t.Errorf("expected empty address, got %q", job.Location.Address)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetJobByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	job, err := s.GetJobByID(context.Background(), nil, id)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if job != nil {
		t.Error("expected nil job")
	}
}

func TestLockJob_UsesRowLock(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM jobs WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(addJobRow(sqlmock.NewRows(jobRowColumns), id, uuid.New(), time.Now()))
	mock.ExpectRollback()

	tx, err := store.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer tx.Rollback()

	if _, err := store.LockJob(context.Background(), tx, id); err != nil {
		t.Fatalf("LockJob failed: %v", err)
	}
}

func TestIncrementApplicationCount_Success(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE jobs SET current_applications = current_applications \+ 1, analytics_applications = analytics_applications \+ 1,.* WHERE id = \$1 AND status = 'active' AND \(max_applications IS NULL OR current_applications < max_applications\) AND \(application_deadline IS NULL OR application_deadline >= \$2\) RETURNING current_applications`).
		WithArgs(id, now).
		WillReturnRows(sqlmock.NewRows([]string{"current_applications"}).AddRow(3))

	current, err := store.IncrementApplicationCount(context.Background(), nil, id, now)
	if err != nil {
		t.Fatalf("IncrementApplicationCount failed: %v", err)
	}
	if current != 3 {
		t.Errorf("got %d, want 3", current)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestIncrementApplicationCount_NotAccepting(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`UPDATE jobs SET current_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"current_applications"}))

	_, err := s.IncrementApplicationCount(context.Background(), nil, uuid.New(), time.Now())
	if !errors.Is(err, store.ErrJobNotAccepting) {
		t.Errorf("expected ErrJobNotAccepting, got %v", err)
	}
}

func TestIncrementApplicationCount_DatabaseError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`UPDATE jobs SET current_applications`).
		WillReturnError(errors.New("connection refused"))

	_, err := s.IncrementApplicationCount(context.Background(), nil, uuid.New(), time.Now())
	if err == nil || errors.Is(err, store.ErrJobNotAccepting) {
		t.Errorf("expected wrapped driver error, got %v", err)
	}
}

func TestIncrementViews(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE jobs SET views = views \+ 1, analytics_impressions = analytics_impressions \+ 1 WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.IncrementViews(context.Background(), id); err != nil {
		t.Fatalf("IncrementViews failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeleteJob_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`DELETE FROM jobs WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteJob(context.Background(), nil, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetJobStatus(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectExec(`UPDATE jobs SET status = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(store.JobStatusCancelled, now, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetJobStatus(context.Background(), nil, id, store.JobStatusCancelled, now); err != nil {
		t.Fatalf("SetJobStatus failed: %v", err)
	}
}

func TestReconcileApplicationCount(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`UPDATE jobs SET current_applications = \(SELECT COUNT\(\*\) FROM applications WHERE job_id = \$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"current_applications"}).AddRow(4))

	current, err := store.ReconcileApplicationCount(context.Background(), id)
	if err != nil {
		t.Fatalf("ReconcileApplicationCount failed: %v", err)
	}
	if current != 4 {
		t.Errorf("got %d, want 4", current)
	}
}

func TestSearchJobs_CombinesFilters(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	salaryMin := 300.0
	id := uuid.New()
	createdAt := time.Now()

	mock.ExpectQuery(`FROM jobs WHERE status = \$1 AND category = \$2 AND city ILIKE '%' \|\| \$3 \|\| '%' AND skills && \$4 AND salary_min >= \$5 AND search @@ plainto_tsquery\('english', \$6\) ORDER BY ts_rank\(search, plainto_tsquery\('english', \$6\)\) DESC, created_at DESC, id DESC LIMIT \$7 OFFSET \$8`).
		WithArgs(store.JobStatusActive, store.CategoryPlumbing, "pune", sqlmock.AnyArg(), salaryMin, "leak", 10, 20).
		WillReturnRows(addJobRow(sqlmock.NewRows(append(jobRowColumns, "total")), id, uuid.New(), createdAt, int64(21)))

	jobs, total, err := s.SearchJobs(context.Background(), store.JobFilter{
		Query:     "leak",
		Status:    store.JobStatusActive,
		Category:  store.CategoryPlumbing,
		City:      "pune",
		Skills:    []string{"plumbing"},
		SalaryMin: &salaryMin,
		Sort:      store.SortRelevance,
		Limit:     10,
		Offset:    20,
	})
	if err != nil {
		t.Fatalf("SearchJobs failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != id {
		t.Errorf("unexpected jobs: %+v", jobs)
	}
	if total != 21 {
		t.Errorf("got total %d, want 21", total)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSearchJobs_RelevanceWithoutQueryFallsBackToDate(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`FROM jobs ORDER BY created_at DESC, id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(append(jobRowColumns, "total")))

	jobs, total, err := s.SearchJobs(context.Background(), store.JobFilter{Sort: store.SortRelevance})
	if err != nil {
		t.Fatalf("SearchJobs failed: %v", err)
	}
	if len(jobs) != 0 || total != 0 {
		t.Errorf("expected empty result, got %d jobs total %d", len(jobs), total)
	}
}

func TestSearchJobs_PagePastEndCountsSeparately(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`FROM jobs WHERE status = \$1 ORDER BY salary_min ASC, created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(store.JobStatusActive, 20, 100).
		WillReturnRows(sqlmock.NewRows(append(jobRowColumns, "total")))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs WHERE status = \$1`).
		WithArgs(store.JobStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	_, total, err := s.SearchJobs(context.Background(), store.JobFilter{
		Status: store.JobStatusActive,
		Sort:   store.SortSalaryAsc,
		Offset: 100,
	})
	if err != nil {
		t.Fatalf("SearchJobs failed: %v", err)
	}
	if total != 7 {
		t.Errorf("got total %d, want 7", total)
	}
}

func TestRecommendJobs(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`FROM jobs WHERE status = \$1 AND skills && \$2 AND city ILIKE '%' \|\| \$3 \|\| '%' AND experience = ANY\(\$4\) ORDER BY created_at DESC, id DESC LIMIT \$5`).
		WithArgs(store.JobStatusActive, sqlmock.AnyArg(), "Pune", sqlmock.AnyArg(), 20).
		WillReturnRows(addJobRow(sqlmock.NewRows(jobRowColumns), uuid.New(), uuid.New(), time.Now()))

	jobs, err := s.RecommendJobs(context.Background(), store.RecommendFilter{
		Skills:      []string{"plumbing"},
		City:        "Pune",
		Experiences: []store.ExperienceTier{store.ExperienceFresher, store.Experience1to2},
	})
	if err != nil {
		t.Fatalf("RecommendJobs failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(jobs))
	}
}

func TestJobStatsByEmployer(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	employerID := uuid.New()
	mock.ExpectQuery(`FROM jobs WHERE employer_id = \$1 GROUP BY status`).
		WithArgs(employerID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "views", "applications"}).
			AddRow("active", int64(3), int64(40), int64(7)).
			AddRow("cancelled", int64(1), int64(5), int64(2)))

	stats, err := s.JobStatsByEmployer(context.Background(), employerID)
	if err != nil {
		t.Fatalf("JobStatsByEmployer failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[0].Status != store.JobStatusActive || stats[0].TotalViews != 40 || stats[0].TotalApplications != 7 {
		t.Errorf("unexpected stats row: %+v", stats[0])
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("got %q", got)
	}
}
