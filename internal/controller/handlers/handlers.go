// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"hirelane/internal/apperr"
	"hirelane/internal/auth"
	"hirelane/internal/controller/middleware"
	"hirelane/internal/jobs"
	"hirelane/internal/store"
	"hirelane/internal/workflow"
	"hirelane/pkg/api"

	"github.com/google/uuid"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	db       Pinger
	auth     *auth.Service
	jobs     *jobs.Service
	workflow *workflow.Engine
	logger   *slog.Logger
}

// New creates a new Handlers instance.
func New(db Pinger, authSvc *auth.Service, jobSvc *jobs.Service, engine *workflow.Engine, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{db: db, auth: authSvc, jobs: jobSvc, workflow: engine, logger: log}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	middleware.WriteJSON(w, status, payload)
}

// respond wraps data in the success envelope.
func (h *Handlers) respond(w http.ResponseWriter, status int, message string, data any) {
	h.respondJson(w, status, api.Response{Status: api.StatusSuccess, Message: message, Data: data})
}

// respondPage wraps one page of a listing in the success envelope.
func (h *Handlers) respondPage(w http.ResponseWriter, data any, page store.Page) {
	h.respondJson(w, http.StatusOK, api.Response{Status: api.StatusSuccess, Data: data, Pagination: &page})
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.httpError(w, apperr.Validation(map[string]string{"body": "invalid JSON: " + err.Error()}))
		return false
	}
	return true
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, apperr.Validation(map[string]string{"id": "must be a UUID"}))
		return uuid.Nil, false
	}
	return id, true
}

// principal returns the caller attached by the auth middleware, if any.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// query parses typed query parameters and collects every malformed one.
type query struct {
	r      *http.Request
	fields map[string]string
}

func newQuery(r *http.Request) *query {
	return &query{r: r, fields: map[string]string{}}
}

func (q *query) str(name string) string {
	return q.r.URL.Query().Get(name)
}

func (q *query) integer(name string) int {
	raw := q.str(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fields[name] = "must be an integer"
	}
	return v
}

func (q *query) number(name string) *float64 {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fields[name] = "must be a number"
		return nil
	}
	return &v
}

func (q *query) err() error {
	if len(q.fields) == 0 {
		return nil
	}
	return apperr.Validation(q.fields)
}

func (q *query) page() (int, int) {
	return q.integer("page"), q.integer("limit")
}

func created(kind string, id uuid.UUID) string {
	return fmt.Sprintf("%s %s created", kind, id)
}
