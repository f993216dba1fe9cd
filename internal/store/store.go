package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/trackmate/internal/model"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// JobFilter controls filtering, sorting, and pagination for job queries.
type JobFilter struct {
	Status   *model.JobStatus
	Query    string // search company, position, location and notes
	SortBy   string // "company_name", "position_title", "status", "application_date", "created_at", "updated_at"
	SortDesc bool
	Limit    int
	Offset   int
}

// EmailQuery controls which stored emails are returned.
type EmailQuery struct {
	UnreadOnly bool
	Label      string
	Since      time.Time
	Limit      int
}

// Store defines the persistence interface for users, job applications and
// synced emails. Job and email operations are always scoped to one user.
type Store interface {
	// === Users ===

	UpsertUser(ctx context.Context, user model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUsersWithTokens(ctx context.Context) ([]model.User, error)
	UpdateUserToken(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error

	// === Job applications ===

	CreateJob(ctx context.Context, job model.JobApplication) (*model.JobApplication, error)
	GetJobs(ctx context.Context, userID string, filter JobFilter) ([]model.JobApplication, error)
	GetJobByID(ctx context.Context, userID, id string) (*model.JobApplication, error)
	UpdateJob(ctx context.Context, userID, id string, update model.UpdateJobRequest) (*model.JobApplication, error)
	DeleteJob(ctx context.Context, userID, id string) error

	// === Emails ===

	UpsertEmails(ctx context.Context, userID string, emails []model.Email) (int, error)
	GetEmails(ctx context.Context, userID string, query EmailQuery) ([]model.Email, error)
	GetEmailByID(ctx context.Context, userID, id string) (*model.Email, error)
}
