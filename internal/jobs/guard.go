// Package jobs implements job postings: the capacity guard, the posting
// lifecycle, search and per-employer statistics.
package jobs

import (
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/store"
)

// CanAcceptApplication decides whether job may take one more application at now.
// Checks run in a fixed order and the first failure wins: deadline, capacity, status.
func CanAcceptApplication(job *store.Job, now time.Time) error {
	if job.ApplicationDeadline != nil && now.After(*job.ApplicationDeadline) {
		return apperr.Conflict(apperr.ReasonDeadlinePassed,
			"application deadline for job %s has passed", job.ID)
	}
	if job.MaxApplications != nil && job.CurrentApplications >= *job.MaxApplications {
		return apperr.Conflict(apperr.ReasonJobFull,
			"job %s has reached its maximum of %d applications", job.ID, *job.MaxApplications)
	}
	if job.Status != store.JobStatusActive {
		return apperr.Conflict(apperr.ReasonJobNotActive,
			"job %s is %s and not accepting applications", job.ID, job.Status)
	}
	return nil
}

// RejectionReason explains why a conditional increment matched no row, given
// the job as re-read after the failed write. A job that still looks acceptable
// reports JobFull.
func RejectionReason(job *store.Job, now time.Time) error {
	if err := CanAcceptApplication(job, now); err != nil {
		return err
	}
	return apperr.Conflict(apperr.ReasonJobFull, "job %s is no longer accepting applications", job.ID)
}
