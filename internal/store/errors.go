package store

import "errors"

var (
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateApplication is returned when the (job, applicant) key already exists.
	ErrDuplicateApplication = errors.New("store: duplicate application")

	// ErrJobNotAccepting is returned when the conditional counter increment matched no row.
	ErrJobNotAccepting = errors.New("store: job not accepting applications")

	// ErrStaleStatus is returned when a compare-and-set status write lost a race.
	ErrStaleStatus = errors.New("store: application status changed concurrently")
)
