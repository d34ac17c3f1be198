package store

import "github.com/google/uuid"

// JobSort selects the ordering of a job listing.
type JobSort string

const (
	SortDate       JobSort = "date"
	SortDateAsc    JobSort = "date_asc"
	SortSalaryAsc  JobSort = "salary_asc"
	SortSalaryDesc JobSort = "salary_desc"
	SortRelevance  JobSort = "relevance"
)

var JobSorts = []JobSort{SortDate, SortDateAsc, SortSalaryAsc, SortSalaryDesc, SortRelevance}

// JobFilter holds the combinable criteria of a job listing. Zero values are ignored.
type JobFilter struct {
	Query      string
	EmployerID *uuid.UUID
	Status     JobStatus
	Category   JobCategory
	City       string
	State      string
	Type       JobType
	Experience ExperienceTier
	Skills     []string
	SalaryMin  *float64
	SalaryMax  *float64
	Sort       JobSort
	Limit      int
	Offset     int
}

// RecommendFilter matches active jobs to a worker profile.
type RecommendFilter struct {
	Skills      []string
	City        string
	Experiences []ExperienceTier
	Limit       int
}

// ApplicationFilter selects applications for a listing. At least one of
// ApplicantID, EmployerID or JobID is expected.
type ApplicationFilter struct {
	ApplicantID *uuid.UUID
	EmployerID  *uuid.UUID
	JobID       *uuid.UUID
	Status      ApplicationStatus
	Limit       int
	Offset      int
}

// JobStatusStats aggregates an employer's jobs in one status.
type JobStatusStats struct {
	Status            JobStatus `json:"status"`
	Count             int64     `json:"count"`
	TotalViews        int64     `json:"total_views"`
	TotalApplications int64     `json:"total_applications"`
}

// ApplicationStats aggregates an employer's received applications.
type ApplicationStats struct {
	Total    int64                       `json:"total"`
	Unviewed int64                       `json:"new"`
	ByStatus map[ApplicationStatus]int64 `json:"by_status"`
}

// Page is the pagination envelope of a listing.
type Page struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
}

// NewPage computes the pagination envelope for a 1-based page.
func NewPage(page, limit int, total int64) Page {
	p := Page{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.Pages = int((total + int64(limit) - 1) / int64(limit))
	}
	p.HasNext = page < p.Pages
	return p
}
