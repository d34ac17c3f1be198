package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hirelane/internal/auth"
	"hirelane/internal/jobs"
	"hirelane/internal/store"
	"hirelane/internal/store/storetest"
	"hirelane/internal/workflow"
	"hirelane/pkg/api"

	"github.com/google/uuid"
)

// harness wires the real services over the in-memory store.
type harness struct {
	st *storetest.Store
	h  *Handlers
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := storetest.New()
	otp := auth.NewOTPService(st, auth.LogSender{Logger: discard}, auth.OTPConfig{FixedCode: "123456"}, discard)
	return &harness{
		st: st,
		h: New(st,
			auth.NewService(st, otp, discard),
			jobs.NewService(st, jobs.Config{}, nil, discard),
			workflow.New(st, workflow.Config{}, nil, discard),
			discard,
		),
	}
}

func (hs *harness) user(role store.Role, name string) *auth.Principal {
	u := &store.User{ID: uuid.New(), Name: name, Role: role, IsActive: true, Experience: store.ExperienceFresher}
	hs.st.AddUser(u)
	return auth.PrincipalOf(u)
}

func (hs *harness) job(owner uuid.UUID, mutate func(*store.Job)) *store.Job {
	deadline := time.Now().Add(72 * time.Hour)
	capacity := 5
	j := &store.Job{
		ID:                  uuid.New(),
		EmployerID:          owner,
		Title:               "Plumber",
		Description:         "Fix leaking pipes",
		Category:            store.CategoryPlumbing,
		Location:            store.Location{City: "Pune", State: "Maharashtra"},
		Compensation:        store.Compensation{Min: 700, Period: store.PeriodDaily, Currency: "INR"},
		Type:                store.JobTypeFullTime,
		ApplicationDeadline: &deadline,
		MaxApplications:     &capacity,
		Status:              store.JobStatusActive,
		CreatedAt:           time.Now().UTC(),
	}
	if mutate != nil {
		mutate(j)
	}
	hs.st.PutJob(j)
	return j
}

// call invokes handler directly, the way the router would after the auth
// middleware attached p.
func call(handler http.HandlerFunc, method, target string, body any, p *auth.Principal, id string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if id != "" {
		req.SetPathValue("id", id)
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(context.Background(), p))
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeOK(t *testing.T, rr *httptest.ResponseRecorder, data any) api.RawResponse {
	t.Helper()
	var resp api.RawResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", rr.Body.String(), err)
	}
	if resp.Status != api.StatusSuccess {
		t.Fatalf("status = %q, body %s", resp.Status, rr.Body.String())
	}
	if data != nil {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("invalid data %s: %v", resp.Data, err)
		}
	}
	return resp
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body %q: %v", rr.Body.String(), err)
	}
	if resp.Status != api.StatusError || resp.Code != rr.Code {
		t.Fatalf("unexpected error envelope %+v for status %d", resp, rr.Code)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, want, rr.Body.String())
	}
}
