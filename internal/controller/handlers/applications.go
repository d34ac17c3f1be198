package handlers

import (
	"net/http"

	"hirelane/internal/store"
	"hirelane/internal/workflow"
	"hirelane/pkg/api"
)

// Apply handles POST /jobs/{id}/applications.
func (h *Handlers) Apply(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req api.ApplyRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.workflow.Apply(r.Context(), principal(r), jobID, workflow.ApplyInput{
		CoverLetter:          req.CoverLetter,
		ProposedCompensation: req.ProposedSalary,
		Availability:         req.Availability,
	})
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, "Application submitted successfully", app)
}

// GetApplication handles GET /applications/{id}.
func (h *Handlers) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	app, err := h.workflow.GetApplication(r.Context(), principal(r), id)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", app)
}

// MarkViewed handles POST /applications/{id}/view.
func (h *Handlers) MarkViewed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	app, err := h.workflow.MarkViewed(r.Context(), principal(r), id)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", app)
}

// Withdraw handles POST /applications/{id}/withdraw.
func (h *Handlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	app, err := h.workflow.Withdraw(r.Context(), principal(r), id)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "Application withdrawn successfully", app)
}

// UpdateApplicationStatus handles PUT /applications/{id}/status.
func (h *Handlers) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req api.StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.workflow.UpdateStatus(r.Context(), principal(r), id, req.Status, req.Note)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "Application status updated", app)
}

// ScheduleInterview handles POST /applications/{id}/interview.
func (h *Handlers) ScheduleInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req api.InterviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Medium == "" {
		req.Medium = store.InterviewInPerson
	}

	app, err := h.workflow.ScheduleInterview(r.Context(), principal(r), id, store.Interview{
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Medium:      req.Medium,
		Notes:       req.Notes,
	})
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "Interview scheduled", app)
}

// ListMyApplications handles GET /me/applications.
func (h *Handlers) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	status := store.ApplicationStatus(q.str("status"))
	page, limit := q.page()
	if err := q.err(); err != nil {
		h.httpError(w, err)
		return
	}

	apps, pg, err := h.workflow.ListWorkerApplications(r.Context(), principal(r), status, page, limit)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respondPage(w, apps, pg)
}

// ListJobApplications handles GET /jobs/{id}/applications. Listing marks the
// job's applications viewed.
func (h *Handlers) ListJobApplications(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	q := newQuery(r)
	status := store.ApplicationStatus(q.str("status"))
	page, limit := q.page()
	if err := q.err(); err != nil {
		h.httpError(w, err)
		return
	}

	apps, pg, err := h.workflow.ListJobApplications(r.Context(), principal(r), jobID, status, page, limit)
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respondPage(w, apps, pg)
}

// ApplicationStats handles GET /employer/applications/stats.
func (h *Handlers) ApplicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.workflow.Stats(r.Context(), principal(r))
	if err != nil {
		h.httpError(w, err)
		return
	}
	h.respond(w, http.StatusOK, "", stats)
}
