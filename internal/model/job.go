package model

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the stage a job application has reached.
type JobStatus string

const (
	JobStatusApplied   JobStatus = "applied"
	JobStatusScreening JobStatus = "screening"
	JobStatusInterview JobStatus = "interview"
	JobStatusOffer     JobStatus = "offer"
	JobStatusAccepted  JobStatus = "accepted"
	JobStatusRejected  JobStatus = "rejected"
	JobStatusWithdrawn JobStatus = "withdrawn"
)

// JobStatuses lists every status in pipeline order.
var JobStatuses = []JobStatus{
	JobStatusApplied,
	JobStatusScreening,
	JobStatusInterview,
	JobStatusOffer,
	JobStatusAccepted,
	JobStatusRejected,
	JobStatusWithdrawn,
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	for _, known := range JobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseJobStatus normalizes and validates a status string.
func ParseJobStatus(s string) (JobStatus, error) {
	status := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown job status %q", s)
	}
	return status, nil
}

// DateLayout is the wire and storage format of ApplicationDate.
const DateLayout = "2006-01-02"

// JobApplication is a single tracked application.
type JobApplication struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"userId" db:"user_id"`
	CompanyName     string    `json:"companyName" db:"company_name"`
	PositionTitle   string    `json:"positionTitle" db:"position_title"`
	Status          JobStatus `json:"status" db:"status"`
	ApplicationDate string    `json:"applicationDate" db:"application_date"`
	SalaryRange     *string   `json:"salaryRange,omitempty" db:"salary_range"`
	Location        *string   `json:"location,omitempty" db:"location"`
	Notes           *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// CreateJobRequest is the payload for creating an application.
type CreateJobRequest struct {
	CompanyName     string    `json:"companyName"`
	PositionTitle   string    `json:"positionTitle"`
	Status          JobStatus `json:"status"`
	ApplicationDate string    `json:"applicationDate"`
	SalaryRange     *string   `json:"salaryRange,omitempty"`
	Location        *string   `json:"location,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

// Validate checks required fields, defaults Status to applied and
// ApplicationDate to today.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return fmt.Errorf("companyName must not be empty")
	}
	if strings.TrimSpace(r.PositionTitle) == "" {
		return fmt.Errorf("positionTitle must not be empty")
	}
	if r.Status == "" {
		r.Status = JobStatusApplied
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown job status %q", r.Status)
	}
	if r.ApplicationDate == "" {
		r.ApplicationDate = time.Now().Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, r.ApplicationDate); err != nil {
		return fmt.Errorf("applicationDate must be YYYY-MM-DD: %w", err)
	}
	return nil
}

// UpdateJobRequest carries a partial update; nil fields are left unchanged.
type UpdateJobRequest struct {
	CompanyName   *string    `json:"companyName,omitempty"`
	PositionTitle *string    `json:"positionTitle,omitempty"`
	Status        *JobStatus `json:"status,omitempty"`
	SalaryRange   *string    `json:"salaryRange,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// Empty reports whether the update touches no field.
func (r UpdateJobRequest) Empty() bool {
	return r.CompanyName == nil && r.PositionTitle == nil && r.Status == nil &&
		r.SalaryRange == nil && r.Location == nil && r.Notes == nil
}

// Validate rejects empty updates and invalid values.
func (r UpdateJobRequest) Validate() error {
	if r.Empty() {
		return fmt.Errorf("no fields to update")
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("unknown job status %q", *r.Status)
	}
	if r.CompanyName != nil && strings.TrimSpace(*r.CompanyName) == "" {
		return fmt.Errorf("companyName must not be empty")
	}
	if r.PositionTitle != nil && strings.TrimSpace(*r.PositionTitle) == "" {
		return fmt.Errorf("positionTitle must not be empty")
	}
	return nil
}
