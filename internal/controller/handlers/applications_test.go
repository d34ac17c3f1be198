package handlers

import (
	"net/http"
	"testing"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/store"
	"hirelane/pkg/api"
)

func TestApply(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	arjun := hs.user(store.RoleWorker, "Arjun")
	ravi := hs.user(store.RoleWorker, "Ravi")
	open := hs.job(emp.ID, nil)
	single := hs.job(emp.ID, func(j *store.Job) {
		one := 1
		j.MaxApplications = &one
	})
	expired := hs.job(emp.ID, func(j *store.Job) {
		past := time.Now().Add(-time.Hour)
		j.ApplicationDeadline = &past
	})

	t.Run("submitted", func(t *testing.T) {
		rr := call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{CoverLetter: "Ten years of pipe work"}, arjun, open.ID.String())
		expectStatus(t, rr, http.StatusCreated)

		var app store.Application
		resp := decodeOK(t, rr, &app)
		if resp.Message != "Application submitted successfully" {
			t.Errorf("message = %q", resp.Message)
		}
		if app.Status != store.ApplicationPending || app.ApplicantID != arjun.ID || len(app.StatusHistory) != 1 {
			t.Errorf("unexpected application: %+v", app)
		}
		if got := hs.st.Job(open.ID).CurrentApplications; got != 1 {
			t.Errorf("current_applications = %d, want 1", got)
		}
	})

	tests := []struct {
		name   string
		worker string
		jobID  string
		reason apperr.Reason
	}{
		{"duplicate", "arjun", open.ID.String(), apperr.ReasonDuplicateApplication},
		{"deadline passed", "arjun", expired.ID.String(), apperr.ReasonDeadlinePassed},
		{"full", "ravi", single.ID.String(), apperr.ReasonJobFull},
	}

	expectStatus(t, call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, arjun, single.ID.String()), http.StatusCreated)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := arjun
			if tt.worker == "ravi" {
				worker = ravi
			}
			rr := call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, tt.jobID)
			expectStatus(t, rr, http.StatusConflict)
			body := decodeErr(t, rr)
			if body.Reason != string(tt.reason) || body.Retryable {
				t.Errorf("unexpected error envelope: %+v", body)
			}
		})
	}

	if got := hs.st.ApplicationCount(); got != 2 {
		t.Errorf("stored applications = %d, want 2", got)
	}
	if got := hs.st.Job(single.ID).CurrentApplications; got != 1 {
		t.Errorf("full job counter = %d, want 1", got)
	}
}

func TestApply_RequestErrors(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	job := hs.job(emp.ID, nil)

	tests := []struct {
		name           string
		id             string
		body           any
		expectedStatus int
	}{
		{"bad job id", "42", api.ApplyRequest{}, http.StatusBadRequest},
		{"unknown job", emp.ID.String(), api.ApplyRequest{}, http.StatusNotFound},
		{"invalid JSON", job.ID.String(), `{"cover_letter":`, http.StatusBadRequest},
		{"bad proposed salary", job.ID.String(), `{"proposed_salary":{"amount":-5,"period":"daily"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := call(hs.h.Apply, http.MethodPost, "/", tt.body, worker, tt.id)
			expectStatus(t, rr, tt.expectedStatus)
			decodeErr(t, rr)
		})
	}

	t.Run("employer cannot apply", func(t *testing.T) {
		rr := call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, emp, job.ID.String())
		expectStatus(t, rr, http.StatusForbidden)
	})
}

func TestApplicationLifecycle(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	job := hs.job(emp.ID, nil)

	rr := call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, job.ID.String())
	expectStatus(t, rr, http.StatusCreated)
	var app store.Application
	decodeOK(t, rr, &app)
	id := app.ID.String()

	rr = call(hs.h.UpdateApplicationStatus, http.MethodPut, "/", api.StatusRequest{Status: store.ApplicationShortlisted, Note: "good fit"}, emp, id)
	expectStatus(t, rr, http.StatusOK)
	decodeOK(t, rr, &app)
	if app.Status != store.ApplicationShortlisted || len(app.StatusHistory) != 2 {
		t.Fatalf("unexpected application after shortlist: %+v", app)
	}

	rr = call(hs.h.UpdateApplicationStatus, http.MethodPut, "/", api.StatusRequest{Status: "hired"}, emp, id)
	expectStatus(t, rr, http.StatusBadRequest)
	if body := decodeErr(t, rr); body.Fields["status"] == "" {
		t.Errorf("expected status field error, got %+v", body)
	}

	when := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	rr = call(hs.h.ScheduleInterview, http.MethodPost, "/", api.InterviewRequest{ScheduledAt: when, Location: "Site office, Baner"}, emp, id)
	expectStatus(t, rr, http.StatusOK)
	decodeOK(t, rr, &app)
	if app.Status != store.ApplicationInterviewScheduled || app.Interview == nil {
		t.Fatalf("interview not recorded: %+v", app)
	}
	if app.Interview.Medium != store.InterviewInPerson || !app.Interview.ScheduledAt.Equal(when) {
		t.Errorf("unexpected interview: %+v", app.Interview)
	}

	rr = call(hs.h.ScheduleInterview, http.MethodPost, "/", api.InterviewRequest{ScheduledAt: when}, emp, id)
	expectStatus(t, rr, http.StatusBadRequest)
	if body := decodeErr(t, rr); body.Fields["location"] == "" {
		t.Errorf("expected location field error, got %+v", body)
	}

	rr = call(hs.h.UpdateApplicationStatus, http.MethodPut, "/", api.StatusRequest{Status: store.ApplicationAccepted}, emp, id)
	expectStatus(t, rr, http.StatusOK)

	rr = call(hs.h.Withdraw, http.MethodPost, "/", nil, worker, id)
	expectStatus(t, rr, http.StatusConflict)
	body := decodeErr(t, rr)
	if body.Reason != string(apperr.ReasonInvalidStateTransition) || body.Retryable {
		t.Errorf("unexpected error envelope: %+v", body)
	}

	rr = call(hs.h.GetApplication, http.MethodGet, "/", nil, worker, id)
	expectStatus(t, rr, http.StatusOK)
	decodeOK(t, rr, &app)
	if app.Status != store.ApplicationAccepted || len(app.StatusHistory) != 4 {
		t.Errorf("unexpected final application: status=%s history=%d", app.Status, len(app.StatusHistory))
	}
}

func TestWithdraw(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	other := hs.user(store.RoleWorker, "Ravi")
	job := hs.job(emp.ID, nil)

	rr := call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, job.ID.String())
	expectStatus(t, rr, http.StatusCreated)
	var app store.Application
	decodeOK(t, rr, &app)

	expectStatus(t, call(hs.h.Withdraw, http.MethodPost, "/", nil, other, app.ID.String()), http.StatusForbidden)

	rr = call(hs.h.Withdraw, http.MethodPost, "/", nil, worker, app.ID.String())
	expectStatus(t, rr, http.StatusOK)
	resp := decodeOK(t, rr, &app)
	if app.Status != store.ApplicationWithdrawn || resp.Message != "Application withdrawn successfully" {
		t.Errorf("unexpected withdraw response: %s %+v", resp.Message, app)
	}
	if got := hs.st.Job(job.ID).CurrentApplications; got != 1 {
		t.Errorf("withdrawal changed the counter to %d", got)
	}
}

func TestListApplications(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	job := hs.job(emp.ID, nil)
	otherJob := hs.job(emp.ID, nil)
	workers := []string{"Arjun", "Ravi", "Sana"}
	for _, name := range workers {
		w := hs.user(store.RoleWorker, name)
		expectStatus(t, call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, w, job.ID.String()), http.StatusCreated)
	}
	last := hs.user(store.RoleWorker, "Kiran")
	expectStatus(t, call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, last, otherJob.ID.String()), http.StatusCreated)

	t.Run("job applications are marked viewed", func(t *testing.T) {
		rr := call(hs.h.ListJobApplications, http.MethodGet, "/?limit=2", nil, emp, job.ID.String())
		expectStatus(t, rr, http.StatusOK)
		var apps []store.Application
		resp := decodeOK(t, rr, &apps)
		if len(apps) != 2 || resp.Pagination == nil || resp.Pagination.Total != 3 {
			t.Fatalf("unexpected listing: %d apps, pagination %+v", len(apps), resp.Pagination)
		}

		rr = call(hs.h.ApplicationStats, http.MethodGet, "/", nil, emp, "")
		expectStatus(t, rr, http.StatusOK)
		var stats store.ApplicationStats
		decodeOK(t, rr, &stats)
		if stats.Total != 4 || stats.Unviewed != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("other employer", func(t *testing.T) {
		stranger := hs.user(store.RoleEmployer, "Other")
		rr := call(hs.h.ListJobApplications, http.MethodGet, "/", nil, stranger, job.ID.String())
		expectStatus(t, rr, http.StatusForbidden)
	})

	t.Run("worker's own applications", func(t *testing.T) {
		rr := call(hs.h.ListMyApplications, http.MethodGet, "/me/applications", nil, last, "")
		expectStatus(t, rr, http.StatusOK)
		var apps []store.Application
		decodeOK(t, rr, &apps)
		if len(apps) != 1 || apps[0].JobID != otherJob.ID {
			t.Errorf("unexpected applications: %+v", apps)
		}
	})

	t.Run("bad status filter", func(t *testing.T) {
		rr := call(hs.h.ListMyApplications, http.MethodGet, "/me/applications?status=lost", nil, last, "")
		expectStatus(t, rr, http.StatusBadRequest)
	})
}

func TestMarkViewed(t *testing.T) {
	hs := newHarness(t)
	emp := hs.user(store.RoleEmployer, "Meera")
	worker := hs.user(store.RoleWorker, "Arjun")
	job := hs.job(emp.ID, nil)

	rr := call(hs.h.Apply, http.MethodPost, "/", api.ApplyRequest{}, worker, job.ID.String())
	expectStatus(t, rr, http.StatusCreated)
	var app store.Application
	decodeOK(t, rr, &app)

	rr = call(hs.h.MarkViewed, http.MethodPost, "/", nil, emp, app.ID.String())
	expectStatus(t, rr, http.StatusOK)
	decodeOK(t, rr, &app)
	if !app.ViewedByEmployer || app.ViewedAt == nil {
		t.Fatalf("application not viewed: %+v", app)
	}
	first := *app.ViewedAt

	rr = call(hs.h.MarkViewed, http.MethodPost, "/", nil, emp, app.ID.String())
	expectStatus(t, rr, http.StatusOK)
	decodeOK(t, rr, &app)
	if !app.ViewedAt.Equal(first) {
		t.Errorf("viewed_at moved from %v to %v", first, app.ViewedAt)
	}
}
