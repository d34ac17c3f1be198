package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// Transactor starts transactions that span several repository calls.
type Transactor interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// UserStore handles identity records and their API tokens.
type UserStore interface {
	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, tx DBTransaction, user *User) error

	// GetUserByID returns ErrNotFound when no user has the id.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetUserByPhone returns ErrNotFound when no user has the phone number.
	GetUserByPhone(ctx context.Context, phone string) (*User, error)

	// GetUserByAPIKeyHash resolves an API token hash to its active owner.
	GetUserByAPIKeyHash(ctx context.Context, hash string) (*User, error)

	// SetAPIKeyHash replaces the stored token hash. An empty hash revokes the token.
	SetAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error
}

// JobStore handles the persistence of job postings and their counters.
type JobStore interface {
	CreateJob(ctx context.Context, tx DBTransaction, job *Job) error

	// GetJobByID returns ErrNotFound when the job does not exist.
	GetJobByID(ctx context.Context, tx DBTransaction, id uuid.UUID) (*Job, error)

	// LockJob reads the job and holds its row lock until tx ends.
	LockJob(ctx context.Context, tx DBTransaction, id uuid.UUID) (*Job, error)

	// UpdateJob writes the editable fields and status of a job.
	UpdateJob(ctx context.Context, tx DBTransaction, job *Job) error

	DeleteJob(ctx context.Context, tx DBTransaction, id uuid.UUID) error

	SetJobStatus(ctx context.Context, tx DBTransaction, id uuid.UUID, status JobStatus, now time.Time) error

	// IncrementApplicationCount bumps current_applications and the analytics
	// counter in one conditional statement. It returns ErrJobNotAccepting when
	// the job is inactive, full or past its deadline at write time.
	IncrementApplicationCount(ctx context.Context, tx DBTransaction, id uuid.UUID, now time.Time) (int, error)

	// IncrementViews bumps the view and impression counters.
	IncrementViews(ctx context.Context, id uuid.UUID) error

	// ReconcileApplicationCount resets current_applications to the number of
	// application rows and returns the new value.
	ReconcileApplicationCount(ctx context.Context, id uuid.UUID) (int, error)

	SearchJobs(ctx context.Context, filter JobFilter) ([]Job, int64, error)

	RecommendJobs(ctx context.Context, filter RecommendFilter) ([]Job, error)

	JobStatsByEmployer(ctx context.Context, employerID uuid.UUID) ([]JobStatusStats, error)

	CountActiveJobs(ctx context.Context) (int64, error)
}

// ApplicationStore handles applications and their status history.
type ApplicationStore interface {
	// CreateApplication returns ErrDuplicateApplication when the applicant
	// already applied to the job.
	CreateApplication(ctx context.Context, tx DBTransaction, app *Application) error

	// AppendStatusChange adds one history row.
	AppendStatusChange(ctx context.Context, tx DBTransaction, appID uuid.UUID, change StatusChange) error

	// GetApplicationByID returns the application with history and display summaries.
	GetApplicationByID(ctx context.Context, tx DBTransaction, id uuid.UUID) (*Application, error)

	HasApplied(ctx context.Context, jobID, applicantID uuid.UUID) (bool, error)

	CountApplicationsForJob(ctx context.Context, tx DBTransaction, jobID uuid.UUID) (int64, error)

	// TransitionStatus moves the application from one status to another only if
	// it is still in from. A nil interview leaves the interview fields as they are.
	// It returns ErrStaleStatus when another writer moved it first.
	TransitionStatus(ctx context.Context, tx DBTransaction, id uuid.UUID, from, to ApplicationStatus, interview *Interview, now time.Time) error

	// MarkViewed sets the viewed flag once. It reports whether this call flipped it.
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// MarkJobApplicationsViewed flags every unviewed application of a job.
	MarkJobApplicationsViewed(ctx context.Context, jobID uuid.UUID, at time.Time) (int64, error)

	ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, int64, error)

	ApplicationStatsByEmployer(ctx context.Context, employerID uuid.UUID) (*ApplicationStats, error)

	RecentApplicationsForEmployer(ctx context.Context, employerID uuid.UUID, limit int) ([]Application, error)
}

// Outbox stores advisory events until the relay publishes them.
// Implementations must use SELECT ... FOR UPDATE SKIP LOCKED semantics when claiming.
type Outbox interface {
	AddEvent(ctx context.Context, tx DBTransaction, topic string, payload json.RawMessage) (int64, error)

	// ClaimEvents hides up to limit visible events for the visibility window and
	// returns them. Returns nil slice if the outbox is empty.
	ClaimEvents(ctx context.Context, limit int, visibility time.Duration) ([]Event, error)

	// AckEvent removes a published event.
	AckEvent(ctx context.Context, id int64) error

	// NackEvent records a failed attempt and hides the event until retryAt.
	NackEvent(ctx context.Context, id int64, retryAt time.Time) error

	CountEvents(ctx context.Context) (int64, error)
}

// OTPStore is an expiring keyed store for login codes.
type OTPStore interface {
	SaveOTP(ctx context.Context, rec OTPRecord) error

	// GetOTP returns ErrNotFound when no code is pending for the phone.
	GetOTP(ctx context.Context, phone string) (*OTPRecord, error)

	// IncrementOTPAttempts returns the attempt count after the increment.
	IncrementOTPAttempts(ctx context.Context, phone string) (int, error)

	DeleteOTP(ctx context.Context, phone string) error
}
