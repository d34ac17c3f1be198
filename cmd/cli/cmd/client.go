package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"hirelane/internal/jobs"
	"hirelane/internal/store"
	"hirelane/pkg/api"
)

// Client handles API calls to the hirelane server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client with the given base URL and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	if e.Reason != "" {
		msg += " [" + e.Reason + "]"
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + e.Fields[k]
		}
		msg += "\n  " + strings.Join(parts, "\n  ")
	}
	return msg
}

// do sends a request and decodes the data of a success envelope into out.
func (c *Client) do(method, path string, query url.Values, body, out any) (*store.Page, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	httpReq, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Message == "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message, Reason: apiErr.Reason, Fields: apiErr.Fields}
	}

	var envelope api.RawResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return nil, fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return envelope.Pagination, nil
}

// SearchJobs sends GET /jobs/search with the given filters.
func (c *Client) SearchJobs(query url.Values) ([]store.Job, *store.Page, error) {
	var result []store.Job
	page, err := c.do(http.MethodGet, "/jobs/search", query, nil, &result)
	return result, page, err
}

// EmployerJobs sends GET /employer/jobs.
func (c *Client) EmployerJobs(query url.Values) ([]jobs.EmployerJob, *store.Page, error) {
	var result []jobs.EmployerJob
	page, err := c.do(http.MethodGet, "/employer/jobs", query, nil, &result)
	return result, page, err
}

// GetJob sends GET /jobs/{id}.
func (c *Client) GetJob(jobID string) (*jobs.Detail, error) {
	var result jobs.Detail
	if _, err := c.do(http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Apply sends POST /jobs/{id}/applications.
func (c *Client) Apply(jobID string, req api.ApplyRequest) (*store.Application, error) {
	var result store.Application
	if _, err := c.do(http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/applications", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Withdraw sends POST /applications/{id}/withdraw.
func (c *Client) Withdraw(applicationID string) (*store.Application, error) {
	var result store.Application
	if _, err := c.do(http.MethodPost, "/applications/"+url.PathEscape(applicationID)+"/withdraw", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MyApplications sends GET /me/applications.
func (c *Client) MyApplications(query url.Values) ([]store.Application, *store.Page, error) {
	var result []store.Application
	page, err := c.do(http.MethodGet, "/me/applications", query, nil, &result)
	return result, page, err
}

// JobApplications sends GET /jobs/{id}/applications.
func (c *Client) JobApplications(jobID string, query url.Values) ([]store.Application, *store.Page, error) {
	var result []store.Application
	page, err := c.do(http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/applications", query, nil, &result)
	return result, page, err
}

// SetStatus sends PUT /applications/{id}/status.
func (c *Client) SetStatus(applicationID string, req api.StatusRequest) (*store.Application, error) {
	var result store.Application
	if _, err := c.do(http.MethodPut, "/applications/"+url.PathEscape(applicationID)+"/status", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScheduleInterview sends POST /applications/{id}/interview.
func (c *Client) ScheduleInterview(applicationID string, req api.InterviewRequest) (*store.Application, error) {
	var result store.Application
	if _, err := c.do(http.MethodPost, "/applications/"+url.PathEscape(applicationID)+"/interview", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JobStats sends GET /employer/jobs/stats.
func (c *Client) JobStats() (*jobs.Stats, error) {
	var result jobs.Stats
	if _, err := c.do(http.MethodGet, "/employer/jobs/stats", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplicationStats sends GET /employer/applications/stats.
func (c *Client) ApplicationStats() (*store.ApplicationStats, error) {
	var result store.ApplicationStats
	if _, err := c.do(http.MethodGet, "/employer/applications/stats", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
