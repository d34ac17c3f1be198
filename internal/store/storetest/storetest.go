// Package storetest provides an in-memory store for tests of the services and
// handlers. Each call is atomic; writes made through a transaction are undone
// on rollback; job writes inside a transaction hold the job's row lock until
// the transaction ends, like UPDATE and SELECT ... FOR UPDATE do in Postgres.
package storetest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hirelane/internal/store"

	"github.com/google/uuid"
)

var errNoSQL = errors.New("storetest: raw SQL is not supported")

// Store implements every store interface in memory.
type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*store.User
	jobs         map[uuid.UUID]*store.Job
	applications map[uuid.UUID]*store.Application
	history      map[uuid.UUID][]store.StatusChange
	events       map[int64]*event
	otps         map[string]*store.OTPRecord
	apiKeys      map[uuid.UUID]string
	nextEventID  int64

	rowLocks sync.Map // job id -> *sync.Mutex

	// Now is the clock used for event visibility.
	Now func() time.Time

	// Hooks let tests inject failures. A non-nil return aborts the call.
	FailCreateApplication func(app *store.Application) error
	FailAddEvent          func(topic string) error
	FailPing              error
}

type event struct {
	store.Event
	visibleAfter time.Time
}

var (
	_ store.UserStore        = (*Store)(nil)
	_ store.JobStore         = (*Store)(nil)
	_ store.ApplicationStore = (*Store)(nil)
	_ store.Outbox           = (*Store)(nil)
	_ store.OTPStore         = (*Store)(nil)
	_ store.Transactor       = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*store.User),
		jobs:         make(map[uuid.UUID]*store.Job),
		applications: make(map[uuid.UUID]*store.Application),
		history:      make(map[uuid.UUID][]store.StatusChange),
		events:       make(map[int64]*event),
		otps:         make(map[string]*store.OTPRecord),
		apiKeys:      make(map[uuid.UUID]string),
		Now:          time.Now,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.FailPing
}

// Tx is an in-memory transaction.
type Tx struct {
	s     *Store
	mu    sync.Mutex
	undo  []func()
	locks map[uuid.UUID]*sync.Mutex
	done  bool
}

func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	return &Tx{s: s, locks: make(map[uuid.UUID]*sync.Mutex)}, nil
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.undo = nil
	t.release()
	return nil
}

func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return sql.ErrTxDone
	}
	t.done = true
	undo := t.undo
	t.undo = nil
	t.mu.Unlock()

	t.s.mu.Lock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	t.s.mu.Unlock()

	t.mu.Lock()
	t.release()
	t.mu.Unlock()
	return nil
}

func (t *Tx) release() {
	for id, l := range t.locks {
		l.Unlock()
		delete(t.locks, id)
	}
}

// lockRow takes the job's row lock for the rest of the transaction. It must be
// called without s.mu held.
func (s *Store) lockRow(tx store.DBTransaction, id uuid.UUID) {
	t, ok := tx.(*Tx)
	if !ok {
		return
	}
	t.mu.Lock()
	_, held := t.locks[id]
	t.mu.Unlock()
	if held {
		return
	}
	v, _ := s.rowLocks.LoadOrStore(id, &sync.Mutex{})
	l := v.(*sync.Mutex)
	l.Lock()
	t.mu.Lock()
	t.locks[id] = l
	t.mu.Unlock()
}

// onRollback records an undo step. Called with s.mu held.
func onRollback(tx store.DBTransaction, fn func()) {
	if t, ok := tx.(*Tx); ok {
		t.mu.Lock()
		t.undo = append(t.undo, fn)
		t.mu.Unlock()
	}
}

func cloneJob(j *store.Job) *store.Job {
	c := *j
	c.Requirements.Skills = append([]string(nil), j.Requirements.Skills...)
	return &c
}

func cloneUser(u *store.User) *store.User {
	c := *u
	c.Skills = append([]string(nil), u.Skills...)
	return &c
}

// Users.

func (s *Store) CreateUser(ctx context.Context, tx store.DBTransaction, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == user.Phone {
			return fmt.Errorf("storetest: phone %s already registered", user.Phone)
		}
	}
	c := cloneUser(user)
	if c.Experience == "" {
		c.Experience = store.ExperienceFresher
	}
	s.users[user.ID] = c
	onRollback(tx, func() { delete(s.users, user.ID) })
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByAPIKeyHash(ctx context.Context, hash string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hash == "" {
		return nil, store.ErrNotFound
	}
	for _, u := range s.users {
		if u.IsActive && s.apiKeys[u.ID] == hash {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	if hash == "" {
		delete(s.apiKeys, id)
		return nil
	}
	s.apiKeys[id] = hash
	return nil
}

// Jobs.

func (s *Store) CreateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("storetest: job %s already exists", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	onRollback(tx, func() { delete(s.jobs, job.ID) })
	return nil
}

func (s *Store) GetJobByID(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneJob(j), nil
}

func (s *Store) LockJob(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Job, error) {
	s.lockRow(tx, id)
	return s.GetJobByID(ctx, tx, id)
}

// restore puts back a previous version of a job. Called with s.mu held.
func (s *Store) restore(tx store.DBTransaction, prev *store.Job) {
	onRollback(tx, func() { s.jobs[prev.ID] = prev })
}

func (s *Store) UpdateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	s.lockRow(tx, job.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[job.ID]
	if !ok {
		return store.ErrNotFound
	}
	next := cloneJob(job)
	next.EmployerID = cur.EmployerID
	next.CurrentApplications = cur.CurrentApplications
	next.Views = cur.Views
	next.Analytics = cur.Analytics
	next.CreatedAt = cur.CreatedAt
	s.jobs[job.ID] = next
	s.restore(tx, cur)
	return nil
}

func (s *Store) DeleteJob(ctx context.Context, tx store.DBTransaction, id uuid.UUID) error {
	s.lockRow(tx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.jobs, id)
	s.restore(tx, cur)
	return nil
}

func (s *Store) SetJobStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.JobStatus, now time.Time) error {
	s.lockRow(tx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	next := cloneJob(cur)
	next.Status = status
	next.UpdatedAt = now
	s.jobs[id] = next
	s.restore(tx, cur)
	return nil
}

func (s *Store) IncrementApplicationCount(ctx context.Context, tx store.DBTransaction, id uuid.UUID, now time.Time) (int, error) {
	s.lockRow(tx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[id]
	if !ok ||
		cur.Status != store.JobStatusActive ||
		(cur.MaxApplications != nil && cur.CurrentApplications >= *cur.MaxApplications) ||
		(cur.ApplicationDeadline != nil && cur.ApplicationDeadline.Before(now)) {
		return 0, store.ErrJobNotAccepting
	}
	next := cloneJob(cur)
	next.CurrentApplications++
	next.Analytics.Applications++
	next.UpdatedAt = now
	s.jobs[id] = next
	s.restore(tx, cur)
	return next.CurrentApplications, nil
}

func (s *Store) IncrementViews(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	next := cloneJob(cur)
	next.Views++
	next.Analytics.Impressions++
	s.jobs[id] = next
	return nil
}

func (s *Store) ReconcileApplicationCount(ctx context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	n := 0
	for _, a := range s.applications {
		if a.JobID == id {
			n++
		}
	}
	next := cloneJob(cur)
	next.CurrentApplications = n
	s.jobs[id] = next
	return n, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func matchJob(j *store.Job, f store.JobFilter) bool {
	switch {
	case f.EmployerID != nil && j.EmployerID != *f.EmployerID,
		f.Status != "" && j.Status != f.Status,
		f.Category != "" && j.Category != f.Category,
		f.City != "" && !containsFold(j.Location.City, f.City),
		f.State != "" && !containsFold(j.Location.State, f.State),
		f.Type != "" && j.Type != f.Type,
		f.Experience != "" && j.Requirements.Experience != f.Experience,
		len(f.Skills) > 0 && !overlaps(j.Requirements.Skills, f.Skills),
		f.SalaryMin != nil && j.Compensation.Min < *f.SalaryMin,
		f.SalaryMax != nil && (j.Compensation.Max == nil || *j.Compensation.Max > *f.SalaryMax):
		return false
	}
	if f.Query != "" {
		for _, word := range strings.Fields(f.Query) {
			if !containsFold(j.Title, word) && !containsFold(j.Description, word) {
				return false
			}
		}
	}
	return true
}

// newestFirst orders by created_at DESC, id DESC.
func newestFirst(a, b *store.Job) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func (s *Store) SearchJobs(ctx context.Context, f store.JobFilter) ([]store.Job, int64, error) {
	s.mu.Lock()
	var matched []*store.Job
	for _, j := range s.jobs {
		if matchJob(j, f) {
			matched = append(matched, cloneJob(j))
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, k int) bool {
		a, b := matched[i], matched[k]
		switch f.Sort {
		case store.SortDateAsc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		case store.SortSalaryAsc:
			if a.Compensation.Min != b.Compensation.Min {
				return a.Compensation.Min < b.Compensation.Min
			}
		case store.SortSalaryDesc:
			if a.Compensation.Min != b.Compensation.Min {
				return a.Compensation.Min > b.Compensation.Min
			}
		}
		return newestFirst(a, b)
	})

	total := int64(len(matched))
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	end := f.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]store.Job, 0, end-f.Offset)
	for _, j := range matched[f.Offset:end] {
		out = append(out, *j)
	}
	return out, total, nil
}

func (s *Store) RecommendJobs(ctx context.Context, f store.RecommendFilter) ([]store.Job, error) {
	s.mu.Lock()
	var matched []*store.Job
	for _, j := range s.jobs {
		if j.Status != store.JobStatusActive {
			continue
		}
		if len(f.Skills) > 0 && !overlaps(j.Requirements.Skills, f.Skills) {
			continue
		}
		if f.City != "" && !containsFold(j.Location.City, f.City) {
			continue
		}
		if len(f.Experiences) > 0 {
			ok := false
			for _, e := range f.Experiences {
				ok = ok || j.Requirements.Experience == e
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, cloneJob(j))
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, k int) bool { return newestFirst(matched[i], matched[k]) })
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]store.Job, len(matched))
	for i, j := range matched {
		out[i] = *j
	}
	return out, nil
}

func (s *Store) JobStatsByEmployer(ctx context.Context, employerID uuid.UUID) ([]store.JobStatusStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStatus := map[store.JobStatus]*store.JobStatusStats{}
	for _, j := range s.jobs {
		if j.EmployerID != employerID {
			continue
		}
		st, ok := byStatus[j.Status]
		if !ok {
			st = &store.JobStatusStats{Status: j.Status}
			byStatus[j.Status] = st
		}
		st.Count++
		st.TotalViews += j.Views
		st.TotalApplications += int64(j.CurrentApplications)
	}
	out := make([]store.JobStatusStats, 0, len(byStatus))
	for _, st := range byStatus {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Status < out[k].Status })
	return out, nil
}

func (s *Store) CountActiveJobs(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.Status == store.JobStatusActive {
			n++
		}
	}
	return n, nil
}

// Applications.

func (s *Store) CreateApplication(ctx context.Context, tx store.DBTransaction, app *store.Application) error {
	if s.FailCreateApplication != nil {
		if err := s.FailCreateApplication(app); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.JobID == app.JobID && a.ApplicantID == app.ApplicantID {
			return store.ErrDuplicateApplication
		}
	}
	c := *app
	c.StatusHistory = nil
	c.Job, c.Employer, c.Applicant = nil, nil, nil
	s.applications[app.ID] = &c
	onRollback(tx, func() { delete(s.applications, app.ID) })
	return nil
}

func (s *Store) AppendStatusChange(ctx context.Context, tx store.DBTransaction, appID uuid.UUID, change store.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[appID]; !ok {
		return fmt.Errorf("storetest: application %s does not exist", appID)
	}
	n := len(s.history[appID])
	s.history[appID] = append(s.history[appID][:n:n], change)
	onRollback(tx, func() { s.history[appID] = s.history[appID][:n] })
	return nil
}

// view builds the read projection of an application. Called with s.mu held.
func (s *Store) view(a *store.Application) store.Application {
	c := *a
	c.StatusHistory = append([]store.StatusChange{}, s.history[a.ID]...)
	if j, ok := s.jobs[a.JobID]; ok {
		c.Job = &store.JobSummary{
			ID: j.ID, Title: j.Title, Category: j.Category,
			Location: j.Location, Compensation: j.Compensation, Status: j.Status,
		}
	}
	if u, ok := s.users[a.EmployerID]; ok {
		c.Employer = &store.UserSummary{ID: u.ID, Name: u.Name, CompanyName: u.CompanyName}
	}
	if u, ok := s.users[a.ApplicantID]; ok {
		c.Applicant = &store.UserSummary{ID: u.ID, Name: u.Name}
	}
	return c
}

func (s *Store) GetApplicationByID(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*store.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := s.view(a)
	return &v, nil
}

func (s *Store) HasApplied(ctx context.Context, jobID, applicantID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.JobID == jobID && a.ApplicantID == applicantID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountApplicationsForJob(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.applications {
		if a.JobID == jobID {
			n++
		}
	}
	return n, nil
}

func (s *Store) TransitionStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, from, to store.ApplicationStatus, interview *store.Interview, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.applications[id]
	if !ok || cur.Status != from {
		return store.ErrStaleStatus
	}
	next := *cur
	next.Status = to
	next.UpdatedAt = now
	if interview != nil {
		iv := *interview
		next.Interview = &iv
	}
	s.applications[id] = &next
	onRollback(tx, func() { s.applications[id] = cur })
	return nil
}

func (s *Store) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.applications[id]
	if !ok || cur.ViewedByEmployer {
		return false, nil
	}
	next := *cur
	next.ViewedByEmployer = true
	next.ViewedAt = &at
	s.applications[id] = &next
	return true, nil
}

func (s *Store) MarkJobApplicationsViewed(ctx context.Context, jobID uuid.UUID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, cur := range s.applications {
		if cur.JobID != jobID || cur.ViewedByEmployer {
			continue
		}
		next := *cur
		next.ViewedByEmployer = true
		next.ViewedAt = &at
		s.applications[id] = &next
		n++
	}
	return n, nil
}

func (s *Store) ListApplications(ctx context.Context, f store.ApplicationFilter) ([]store.Application, int64, error) {
	s.mu.Lock()
	var matched []store.Application
	for _, a := range s.applications {
		switch {
		case f.ApplicantID != nil && a.ApplicantID != *f.ApplicantID,
			f.EmployerID != nil && a.EmployerID != *f.EmployerID,
			f.JobID != nil && a.JobID != *f.JobID,
			f.Status != "" && a.Status != f.Status:
			continue
		}
		matched = append(matched, s.view(a))
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, k int) bool {
		a, b := matched[i], matched[k]
		if !a.AppliedAt.Equal(b.AppliedAt) {
			return a.AppliedAt.After(b.AppliedAt)
		}
		return a.ID.String() > b.ID.String()
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	end := f.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

func (s *Store) ApplicationStatsByEmployer(ctx context.Context, employerID uuid.UUID) (*store.ApplicationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &store.ApplicationStats{ByStatus: make(map[store.ApplicationStatus]int64)}
	for _, a := range s.applications {
		if a.EmployerID != employerID {
			continue
		}
		stats.Total++
		stats.ByStatus[a.Status]++
		if !a.ViewedByEmployer {
			stats.Unviewed++
		}
	}
	return stats, nil
}

func (s *Store) RecentApplicationsForEmployer(ctx context.Context, employerID uuid.UUID, limit int) ([]store.Application, error) {
	apps, _, err := s.ListApplications(ctx, store.ApplicationFilter{EmployerID: &employerID, Limit: limit})
	return apps, err
}

// Outbox.

func (s *Store) AddEvent(ctx context.Context, tx store.DBTransaction, topic string, payload json.RawMessage) (int64, error) {
	if s.FailAddEvent != nil {
		if err := s.FailAddEvent(topic); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	id := s.nextEventID
	s.events[id] = &event{Event: store.Event{
		ID:        id,
		Topic:     topic,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: s.Now(),
	}}
	onRollback(tx, func() { delete(s.events, id) })
	return id, nil
}

func (s *Store) ClaimEvents(ctx context.Context, limit int, visibility time.Duration) ([]store.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	var visible []*event
	for _, e := range s.events {
		if !e.visibleAfter.After(now) {
			visible = append(visible, e)
		}
	}
	sort.Slice(visible, func(i, k int) bool { return visible[i].ID < visible[k].ID })
	if len(visible) > limit {
		visible = visible[:limit]
	}
	var out []store.Event
	for _, e := range visible {
		e.visibleAfter = now.Add(visibility)
		out = append(out, e.Event)
	}
	return out, nil
}

func (s *Store) AckEvent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
	return nil
}

func (s *Store) NackEvent(ctx context.Context, id int64, retryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Attempts++
	e.visibleAfter = retryAt
	return nil
}

func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.events)), nil
}

// Events returns the queued events in insertion order.
func (s *Store) Events() []store.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Event)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// OTP codes.

func (s *Store) SaveOTP(ctx context.Context, rec store.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := rec
	r.Attempts = 0
	s.otps[rec.Phone] = &r
	return nil
}

func (s *Store) GetOTP(ctx context.Context, phone string) (*store.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.otps[phone]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) IncrementOTPAttempts(ctx context.Context, phone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.otps[phone]
	if !ok {
		return 0, store.ErrNotFound
	}
	r.Attempts++
	return r.Attempts, nil
}

func (s *Store) DeleteOTP(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.otps, phone)
	return nil
}

// Seeding helpers.

// AddUser stores u as-is.
func (s *Store) AddUser(u *store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

// PutJob stores j as-is, counters included.
func (s *Store) PutJob(j *store.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = cloneJob(j)
}

// PutApplication stores app as-is with the given history.
func (s *Store) PutApplication(app *store.Application, history ...store.StatusChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *app
	c.StatusHistory = nil
	s.applications[app.ID] = &c
	s.history[app.ID] = append([]store.StatusChange(nil), history...)
}

// Job returns the stored job or nil.
func (s *Store) Job(id uuid.UUID) *store.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		return cloneJob(j)
	}
	return nil
}

// ApplicationCount returns the number of stored applications.
func (s *Store) ApplicationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applications)
}
