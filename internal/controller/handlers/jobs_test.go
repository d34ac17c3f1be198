package handlers

import (
	"net/http"
	"strings"
	"testing"

	"hirelane/internal/jobs"
	"hirelane/internal/store"
	"hirelane/pkg/api"
)

func TestCreateJob(t *testing.T) {
	maxPay := 1000.0
	validReq := api.JobRequest{
		Title:       "Mason",
		Description: "Brick work for a two-storey house",
		Category:    store.CategoryConstruction,
		Location:    store.Location{City: "Jaipur", State: "Rajasthan", PostalCode: "302001"},
		Salary:      store.Compensation{Min: 800, Max: &maxPay, Period: store.PeriodDaily},
		Type:        store.JobTypeContract,
	}

	tests := []struct {
		name           string
		body           any
		role           store.Role
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Success",
			body:           validReq,
			role:           store.RoleEmployer,
			expectedStatus: http.StatusCreated,
			expectedInBody: `"title":"Mason"`,
		},
		{
			name:           "Invalid JSON",
			body:           `{invalid-json}`,
			role:           store.RoleEmployer,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "invalid JSON",
		},
		{
			name:           "Missing Required Fields",
			body:           api.JobRequest{Category: store.CategoryConstruction},
			role:           store.RoleEmployer,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: `"title":"is required"`,
		},
		{
			name:           "Worker Forbidden",
			body:           validReq,
			role:           store.RoleWorker,
			expectedStatus: http.StatusForbidden,
			expectedInBody: "forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := newHarness(t)
			p := hs.user(tt.role, "Meera")

			rr := call(hs.h.CreateJob, http.MethodPost, "/jobs", tt.body, p, "")

			expectStatus(t, rr, tt.expectedStatus)
			if tt.expectedStatus != http.StatusForbidden && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v", rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestCreateJob_AppliesDefaults(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")

	rr := call(hs.h.CreateJob, http.MethodPost, "/jobs", api.JobRequest{
		Title:       "Painter",
		Description: "Interior walls",
		Category:    store.CategoryPainting,
		Location:    store.Location{City: "Kochi", State: "Kerala"},
		Salary:      store.Compensation{Min: 600, Period: store.PeriodDaily},
		Type:        store.JobTypeTemporary,
	}, emp, "")
	expectStatus(t, rr, http.StatusCreated)

	var job store.Job
	decodeOK(t, rr, &job)
	if job.Status != store.JobStatusActive || job.Compensation.Currency != "INR" || job.EmployerID != emp.ID {
		t.Errorf("unexpected defaults: %+v", job)
	}
}

func TestGetJob(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	job := hs.job(emp.ID, nil)

	t.Run("invalid id", func(t *testing.T) {
		rr := call(hs.h.GetJob, http.MethodGet, "/jobs/nope", nil, nil, "nope")
		expectStatus(t, rr, http.StatusBadRequest)
		if body := decodeErr(t, rr); body.Fields["id"] == "" {
			t.Errorf("expected id field error, got %+v", body)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rr := call(hs.h.GetJob, http.MethodGet, "/jobs/x", nil, nil, emp.ID.String())
		expectStatus(t, rr, http.StatusNotFound)
	})

	t.Run("anonymous read counts a view", func(t *testing.T) {
		rr := call(hs.h.GetJob, http.MethodGet, "/jobs/x", nil, nil, job.ID.String())
		expectStatus(t, rr, http.StatusOK)
		var detail jobs.Detail
		decodeOK(t, rr, &detail)
		if detail.Views != 1 || detail.HasApplied {
			t.Errorf("unexpected detail: views=%d has_applied=%v", detail.Views, detail.HasApplied)
		}
	})

	t.Run("worker sees has_applied", func(t *testing.T) {
		expectStatus(t, call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, job.ID.String()), http.StatusCreated)

		rr := call(hs.h.GetJob, http.MethodGet, "/jobs/x", nil, worker, job.ID.String())
		expectStatus(t, rr, http.StatusOK)
		var detail jobs.Detail
		decodeOK(t, rr, &detail)
		if !detail.HasApplied {
			t.Error("expected has_applied for the applicant")
		}
	})
}

func TestUpdateJob(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	job := hs.job(emp.ID, nil)

	rr := call(hs.h.UpdateJob, http.MethodPut, "/jobs/x", `{"title":"Senior Plumber","status":"paused"}`, emp, job.ID.String())
	expectStatus(t, rr, http.StatusOK)
	stored := hs.st.Job(job.ID)
	if stored.Title != "Senior Plumber" || stored.Status != store.JobStatusPaused {
		t.Errorf("job not updated: %+v", stored)
	}

	rr = call(hs.h.UpdateJob, http.MethodPut, "/jobs/x", `{"title":"Stolen"}`, hs.user(store.RoleEmployer, "Other"), job.ID.String())
	expectStatus(t, rr, http.StatusForbidden)
}

func TestDeleteJob(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	empty := hs.job(emp.ID, nil)
	applied := hs.job(emp.ID, nil)
	expectStatus(t, call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, applied.ID.String()), http.StatusCreated)

	tests := []struct {
		name   string
		id     string
		result string
	}{
		{"without applications", empty.ID.String(), string(jobs.Deleted)},
		{"with applications", applied.ID.String(), string(jobs.Cancelled)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := call(hs.h.DeleteJob, http.MethodDelete, "/jobs/x", nil, emp, tt.id)
			expectStatus(t, rr, http.StatusOK)
			var resp api.DeleteJobResponse
			decodeOK(t, rr, &resp)
			if resp.Result != tt.result {
				t.Errorf("result = %q, want %q", resp.Result, tt.result)
			}
		})
	}

	if hs.st.Job(empty.ID) != nil {
		t.Error("job without applications still stored")
	}
	if got := hs.st.Job(applied.ID); got == nil || got.Status != store.JobStatusCancelled {
		t.Errorf("job with applications = %+v, want cancelled", got)
	}
}

func TestSearchJobs(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	for i := 0; i < 3; i++ {
		hs.job(emp.ID, nil)
	}
	hs.job(emp.ID, func(j *store.Job) { j.Category = store.CategoryCleaning })
	hs.job(emp.ID, func(j *store.Job) { j.Status = store.JobStatusClosed })

	t.Run("pagination", func(t *testing.T) {
		rr := call(hs.h.SearchJobs, http.MethodGet, "/jobs?limit=2&page=1", nil, nil, "")
		expectStatus(t, rr, http.StatusOK)
		var found []store.Job
		resp := decodeOK(t, rr, &found)
		if len(found) != 2 {
			t.Fatalf("got %d jobs, want 2", len(found))
		}
		if resp.Pagination == nil || resp.Pagination.Total != 4 || !resp.Pagination.HasNext {
			t.Errorf("unexpected pagination: %+v", resp.Pagination)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		rr := call(hs.h.SearchJobs, http.MethodGet, "/jobs/search?category=cleaning", nil, nil, "")
		expectStatus(t, rr, http.StatusOK)
		var found []store.Job
		decodeOK(t, rr, &found)
		if len(found) != 1 || found[0].Category != store.CategoryCleaning {
			t.Errorf("unexpected result: %+v", found)
		}
	})

	t.Run("malformed parameters", func(t *testing.T) {
		rr := call(hs.h.SearchJobs, http.MethodGet, "/jobs?salary_min=abc&page=x", nil, nil, "")
		expectStatus(t, rr, http.StatusBadRequest)
		body := decodeErr(t, rr)
		if body.Fields["salary_min"] == "" || body.Fields["page"] == "" {
			t.Errorf("expected salary_min and page errors, got %v", body.Fields)
		}
	})

	t.Run("unknown sort", func(t *testing.T) {
		rr := call(hs.h.SearchJobs, http.MethodGet, "/jobs?sort=random", nil, nil, "")
		expectStatus(t, rr, http.StatusBadRequest)
	})
}

func TestEmployerJobsAndStats(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	job := hs.job(emp.ID, nil)
	hs.job(hs.user(store.RoleEmployer, "Other").ID, nil)
	expectStatus(t, call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, job.ID.String()), http.StatusCreated)

	rr := call(hs.h.ListEmployerJobs, http.MethodGet, "/employer/jobs", nil, emp, "")
	expectStatus(t, rr, http.StatusOK)
	var list []jobs.EmployerJob
	decodeOK(t, rr, &list)
	if len(list) != 1 || list[0].ApplicationCount != 1 {
		t.Errorf("unexpected employer jobs: %+v", list)
	}

	rr = call(hs.h.JobStats, http.MethodGet, "/employer/jobs/stats", nil, emp, "")
	expectStatus(t, rr, http.StatusOK)
	var stats jobs.Stats
	decodeOK(t, rr, &stats)
	if stats.TotalJobs != 1 || stats.ActiveJobs != 1 || len(stats.RecentApplications) != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestReconcileJob(t *testing.T) {
	hs := newHarness(t)
	admin := hs.user(store.RoleAdmin, "ops")
	job := hs.job(hs.user(store.RoleEmployer, "Meera").ID, func(j *store.Job) { j.CurrentApplications = 4 })

	rr := call(hs.h.ReconcileJob, http.MethodPost, "/admin/jobs/x/reconcile", nil, admin, job.ID.String())
	expectStatus(t, rr, http.StatusOK)
	var resp api.ReconcileResponse
	decodeOK(t, rr, &resp)
	if resp.CurrentApplications != 0 || hs.st.Job(job.ID).CurrentApplications != 0 {
		t.Errorf("counter not reconciled: %+v", resp)
	}
}
