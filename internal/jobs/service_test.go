package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/auth"
	"hirelane/internal/store"
	"hirelane/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	svc := NewService(st, Config{DefaultPageSize: 2, MaxPageSize: 3}, nil, nil)
	svc.now = func() time.Time { return testNow }
	return svc, st
}

func employer() *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Role: store.RoleEmployer, Name: "Acme Builders"}
}

func worker() *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Role: store.RoleWorker, Name: "Ravi"}
}

func validJob() *store.Job {
	return &store.Job{
		Title:       "  Mason for residential site  ",
		Description: "Brickwork and plastering for a two storey house.",
		Category:    store.CategoryConstruction,
		Location:    store.Location{City: "Pune", State: "Maharashtra", PostalCode: "411001"},
		Compensation: store.Compensation{
			Min:    800,
			Period: store.PeriodDaily,
		},
		Type:         store.JobTypeContract,
		Requirements: store.Requirements{Skills: []string{"masonry"}},
	}
}

func seedJob(st *storetest.Store, owner uuid.UUID, mutate func(*store.Job)) *store.Job {
	j := validJob()
	j.ID = uuid.New()
	j.EmployerID = owner
	j.Status = store.JobStatusActive
	j.CreatedAt = testNow
	if mutate != nil {
		mutate(j)
	}
	st.PutJob(j)
	return j
}

func seedApplication(st *storetest.Store, job *store.Job) *store.Application {
	app := &store.Application{
		ID:          uuid.New(),
		JobID:       job.ID,
		ApplicantID: uuid.New(),
		EmployerID:  job.EmployerID,
		Status:      store.ApplicationPending,
		AppliedAt:   testNow,
	}
	st.PutApplication(app, store.StatusChange{Status: store.ApplicationPending, ChangedAt: testNow})
	return app
}

func TestCreate_AppliesDefaults(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()

	job, err := svc.Create(context.Background(), p, validJob())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, p.ID, job.EmployerID)
	assert.Equal(t, "Mason for residential site", job.Title)
	assert.Equal(t, store.JobStatusActive, job.Status)
	assert.Equal(t, "INR", job.Compensation.Currency)
	assert.Equal(t, store.ExperienceFresher, job.Requirements.Experience)
	assert.Equal(t, 0, job.CurrentApplications)
	assert.Equal(t, testNow, job.CreatedAt)

	stored := st.Job(job.ID)
	require.NotNil(t, stored)
	assert.Equal(t, job.Title, stored.Title)
}

func TestCreate_IgnoresClientCounters(t *testing.T) {
	svc, _ := newTestService(t)
	in := validJob()
	in.CurrentApplications = 40
	in.Views = 1000

	job, err := svc.Create(context.Background(), employer(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, job.CurrentApplications)
	assert.Zero(t, job.Views)
}

func TestCreate_AggregatesValidationErrors(t *testing.T) {
	svc, _ := newTestService(t)
	in := validJob()
	in.Title = ""
	in.Category = "astronaut"
	salaryMax := 100.0
	in.Compensation.Min = 500
	in.Compensation.Max = &salaryMax

	_, err := svc.Create(context.Background(), employer(), in)
	require.ErrorIs(t, err, apperr.ErrValidation)

	fields := apperr.As(err).Fields
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "salary.max")
	assert.Empty(t, mustSearch(t, svc, store.JobFilter{}))
}

func TestCreate_RequiresEmployer(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), worker(), validJob())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(context.Background(), nil, validJob())
	assert.Equal(t, apperr.KindUnauthorized, apperr.As(err).Kind)
}

func TestUpdate(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()
	job := seedJob(st, p.ID, func(j *store.Job) { j.CurrentApplications = 3 })

	title := "Senior mason"
	paused := store.JobStatusPaused
	updated, err := svc.Update(context.Background(), p, job.ID, Patch{Title: &title, Status: &paused})
	require.NoError(t, err)

	assert.Equal(t, "Senior mason", updated.Title)
	assert.Equal(t, store.JobStatusPaused, updated.Status)

	stored := st.Job(job.ID)
	assert.Equal(t, "Senior mason", stored.Title)
	assert.Equal(t, 3, stored.CurrentApplications)
	assert.Equal(t, job.Description, stored.Description)
}

func TestUpdate_Errors(t *testing.T) {
	svc, st := newTestService(t)
	owner := employer()
	job := seedJob(st, owner.ID, nil)

	title := "x"
	_, err := svc.Update(context.Background(), employer(), job.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Update(context.Background(), owner, uuid.New(), Patch{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	bad := store.JobStatus("archived")
	_, err = svc.Update(context.Background(), owner, job.ID, Patch{Status: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, store.JobStatusActive, st.Job(job.ID).Status)

	capacity := 5
	busy := seedJob(st, owner.ID, func(j *store.Job) {
		j.MaxApplications = &capacity
		j.CurrentApplications = 3
	})
	shrunk := 1
	_, err = svc.Update(context.Background(), owner, busy.ID, Patch{MaxApplications: &shrunk})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.As(err).Fields, "max_applications")
	assert.Equal(t, 5, *st.Job(busy.ID).MaxApplications)

	full := 3
	updated, err := svc.Update(context.Background(), owner, busy.ID, Patch{MaxApplications: &full})
	require.NoError(t, err)
	assert.Equal(t, 3, *updated.MaxApplications)
}

func TestGet_CountsViewsAndReportsHasApplied(t *testing.T) {
	svc, st := newTestService(t)
	job := seedJob(st, uuid.New(), nil)
	app := seedApplication(st, job)

	detail, err := svc.Get(context.Background(), nil, job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, detail.Views)
	assert.False(t, detail.HasApplied)

	applicant := &auth.Principal{ID: app.ApplicantID, Role: store.RoleWorker}
	detail, err = svc.Get(context.Background(), applicant, job.ID)
	require.NoError(t, err)
	assert.True(t, detail.HasApplied)

	stored := st.Job(job.ID)
	assert.EqualValues(t, 2, stored.Views)
	assert.EqualValues(t, 2, stored.Analytics.Impressions)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), nil, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_WithoutApplicationsRemovesJob(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()
	job := seedJob(st, p.ID, nil)

	outcome, err := svc.Delete(context.Background(), p, job.ID)
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.Nil(t, st.Job(job.ID))
}

func TestDelete_WithApplicationsCancelsJob(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()
	job := seedJob(st, p.ID, nil)
	seedApplication(st, job)

	outcome, err := svc.Delete(context.Background(), p, job.ID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome)

	stored := st.Job(job.ID)
	require.NotNil(t, stored)
	assert.Equal(t, store.JobStatusCancelled, stored.Status)
}

func TestDelete_OwnershipAndAdmin(t *testing.T) {
	svc, st := newTestService(t)
	job := seedJob(st, uuid.New(), nil)

	_, err := svc.Delete(context.Background(), employer(), job.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NotNil(t, st.Job(job.ID))

	admin := &auth.Principal{ID: uuid.New(), Role: store.RoleAdmin}
	outcome, err := svc.Delete(context.Background(), admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
}

func TestDelete_ConcurrentRequestsAgree(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()
	job := seedJob(st, p.ID, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		deleted  int
		notFound int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.Delete(context.Background(), p, job.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && outcome == Deleted:
				deleted++
			case apperr.As(err).Kind == apperr.KindNotFound:
				notFound++
			default:
				t.Errorf("unexpected result %q, %v", outcome, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, deleted)
	assert.Equal(t, 3, notFound)
}

func mustSearch(t *testing.T, svc *Service, f store.JobFilter) []store.Job {
	t.Helper()
	jobs, _, err := svc.Search(context.Background(), f, 1, 3)
	require.NoError(t, err)
	return jobs
}

func TestSearch_DefaultsToActiveAndPaginates(t *testing.T) {
	svc, st := newTestService(t)
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		i := i
		seedJob(st, owner, func(j *store.Job) { j.CreatedAt = testNow.Add(time.Duration(i) * time.Minute) })
	}
	seedJob(st, owner, func(j *store.Job) { j.Status = store.JobStatusClosed })

	jobs, page, err := svc.Search(context.Background(), store.JobFilter{}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, store.Page{Page: 1, Limit: 2, Total: 3, Pages: 2, HasNext: true}, page)
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))

	jobs, page, err = svc.Search(context.Background(), store.JobFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.False(t, page.HasNext)

	_, page, err = svc.Search(context.Background(), store.JobFilter{}, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.Limit)
}

func TestSearch_RejectsUnknownFilters(t *testing.T) {
	svc, _ := newTestService(t)
	lo, hi := 900.0, 100.0

	_, _, err := svc.Search(context.Background(), store.JobFilter{
		Category:  "astronaut",
		Sort:      "random",
		SalaryMin: &lo,
		SalaryMax: &hi,
	}, 1, 10)
	require.ErrorIs(t, err, apperr.ErrValidation)
	fields := apperr.As(err).Fields
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "sort")
	assert.Contains(t, fields, "salary_max")
}

func TestListForEmployer_IncludesLiveApplicationCount(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()
	job := seedJob(st, p.ID, nil)
	seedJob(st, uuid.New(), nil)
	seedApplication(st, job)
	seedApplication(st, job)

	jobs, page, err := svc.ListForEmployer(context.Background(), p, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.EqualValues(t, 2, jobs[0].ApplicationCount)
}

func TestRecommend(t *testing.T) {
	svc, st := newTestService(t)
	w := worker()
	st.AddUser(&store.User{
		ID:         w.ID,
		Role:       store.RoleWorker,
		Skills:     []string{"masonry"},
		Location:   store.Location{City: "pune"},
		Experience: store.Experience3to5,
	})

	owner := uuid.New()
	match := seedJob(st, owner, func(j *store.Job) { j.Requirements.Experience = store.Experience3to5 })
	fresher := seedJob(st, owner, func(j *store.Job) { j.Requirements.Experience = store.ExperienceFresher })
	seedJob(st, owner, func(j *store.Job) { j.Requirements.Experience = store.Experience5Plus })
	seedJob(st, owner, func(j *store.Job) { j.Requirements.Skills = []string{"welding"} })
	seedJob(st, owner, func(j *store.Job) { j.Location.City = "Mumbai" })

	jobs, err := svc.Recommend(context.Background(), w)
	require.NoError(t, err)

	ids := map[uuid.UUID]bool{}
	for _, j := range jobs {
		ids[j.ID] = true
	}
	assert.Len(t, jobs, 2)
	assert.True(t, ids[match.ID])
	assert.True(t, ids[fresher.ID])

	_, err = svc.Recommend(context.Background(), employer())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestStats(t *testing.T) {
	svc, st := newTestService(t)
	p := employer()
	a := seedJob(st, p.ID, func(j *store.Job) { j.Views = 10; j.CurrentApplications = 2 })
	seedJob(st, p.ID, func(j *store.Job) { j.Views = 5 })
	seedJob(st, p.ID, func(j *store.Job) { j.Status = store.JobStatusClosed; j.Views = 1 })
	seedApplication(st, a)

	stats, err := svc.Stats(context.Background(), p)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalJobs)
	assert.EqualValues(t, 2, stats.ActiveJobs)
	require.Len(t, stats.ByStatus, 2)
	assert.Equal(t, store.JobStatusActive, stats.ByStatus[0].Status)
	assert.EqualValues(t, 15, stats.ByStatus[0].TotalViews)
	assert.EqualValues(t, 2, stats.ByStatus[0].TotalApplications)
	assert.Len(t, stats.RecentApplications, 1)
}

func TestReconcile(t *testing.T) {
	svc, st := newTestService(t)
	job := seedJob(st, uuid.New(), func(j *store.Job) { j.CurrentApplications = 9 })
	seedApplication(st, job)

	admin := &auth.Principal{ID: uuid.New(), Role: store.RoleAdmin}
	count, err := svc.Reconcile(context.Background(), admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, st.Job(job.ID).CurrentApplications)

	_, err = svc.Reconcile(context.Background(), employer(), job.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
