package handlers

import (
	"net/http"
	"strings"

	"hirelane/internal/jobs"
	"hirelane/internal/store"
	"hirelane/pkg/api"
)

// CreateJob handles POST /jobs.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.JobRequest
	if !h.decode(w, r, &req) {
		return
	}

	job, err := h.jobs.Create(r.Context(), principal(r), req.Job())
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, created("job", job.ID), job)
}

// UpdateJob handles PUT /jobs/{id}. Only the fields present are changed.
func (h *Handlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var patch jobs.Patch
	if !h.decode(w, r, &patch) {
		return
	}

	job, err := h.jobs.Update(r.Context(), principal(r), id, patch)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "job updated", job)
}

// GetJob handles GET /jobs/{id}. Every read counts as a view.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.jobs.Get(r.Context(), principal(r), id)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", detail)
}

// DeleteJob handles DELETE /jobs/{id}. A job with applications is cancelled
// instead of removed.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	result, err := h.jobs.Delete(r.Context(), principal(r), id)
	if err != nil {
		h.httpError(w, err)
		return
	}
	msg := "job deleted"
	if result == jobs.Cancelled {
		msg = "job has applications and was cancelled"
	}
	h.respond(w, http.StatusOK, msg, api.DeleteJobResponse{Result: string(result)})
}

// jobFilter reads the search parameters of a job listing.
func jobFilter(q *query) store.JobFilter {
	f := store.JobFilter{
		Query:      strings.TrimSpace(q.str("q")),
		Status:     store.JobStatus(q.str("status")),
		Category:   store.JobCategory(q.str("category")),
		City:       q.str("city"),
		State:      q.str("state"),
		Type:       store.JobType(q.str("type")),
		Experience: store.ExperienceTier(q.str("experience")),
		SalaryMin:  q.number("salary_min"),
		SalaryMax:  q.number("salary_max"),
		Sort:       store.JobSort(q.str("sort")),
	}
	for _, skill := range strings.Split(q.str("skills"), ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			f.Skills = append(f.Skills, skill)
		}
	}
	return f
}

// SearchJobs handles GET /jobs and GET /jobs/search.
func (h *Handlers) SearchJobs(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := jobFilter(q)
	page, limit := q.page()
	if err := q.err(); err != nil {
		h.httpError(w, err)
		return
	}

	found, pg, err := h.jobs.Search(r.Context(), filter, page, limit)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respondPage(w, found, pg)
}

// ListEmployerJobs handles GET /employer/jobs.
func (h *Handlers) ListEmployerJobs(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	status := store.JobStatus(q.str("status"))
	page, limit := q.page()
	if err := q.err(); err != nil {
		h.httpError(w, err)
		return
	}

	list, pg, err := h.jobs.ListForEmployer(r.Context(), principal(r), status, page, limit)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respondPage(w, list, pg)
}

// RecommendJobs handles GET /jobs/recommendations.
func (h *Handlers) RecommendJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobs.Recommend(r.Context(), principal(r))
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", list)
}

// JobStats handles GET /employer/jobs/stats.
func (h *Handlers) JobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context(), principal(r))
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", stats)
}

// ReconcileJob handles POST /admin/jobs/{id}/reconcile.
func (h *Handlers) ReconcileJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	n, err := h.jobs.Reconcile(r.Context(), principal(r), id)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "application count reconciled", api.ReconcileResponse{
		JobID:               id.String(),
		CurrentApplications: n,
	})
}
