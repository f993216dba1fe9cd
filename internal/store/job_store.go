package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/trackmate/internal/model"
)

// CreateJob inserts a new job application. Generates a UUID if ID is empty
// and stamps both timestamps.
func (s *SQLiteStore) CreateJob(
	ctx context.Context,
	job model.JobApplication,
) (*model.JobApplication, error) {
	if job.UserID == "" {
		return nil, fmt.Errorf("job application must belong to a user")
	}
	if strings.TrimSpace(job.CompanyName) == "" || strings.TrimSpace(job.PositionTitle) == "" {
		return nil, fmt.Errorf("company name and position title must not be empty")
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = model.JobStatusApplied
	}
	now := time.Now().UTC()
	if job.ApplicationDate == "" {
		job.ApplicationDate = now.Format(model.DateLayout)
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_applications (
			id, user_id, company_name, position_title, status,
			application_date, salary_range, location, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.CompanyName, job.PositionTitle, string(job.Status),
		job.ApplicationDate, job.SalaryRange, job.Location, job.Notes,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating job application: %w", err)
	}
	return &job, nil
}

// GetJobs retrieves the user's job applications matching the filter,
// newest first unless another sort is requested.
func (s *SQLiteStore) GetJobs(
	ctx context.Context,
	userID string,
	filter JobFilter,
) ([]model.JobApplication, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Query != "" {
		conditions = append(conditions,
			"(company_name LIKE ? OR position_title LIKE ? OR COALESCE(location, '') LIKE ? OR COALESCE(notes, '') LIKE ?)")
		q := "%" + filter.Query + "%"
		args = append(args, q, q, q, q)
	}

	query := "SELECT * FROM job_applications WHERE " + strings.Join(conditions, " AND ")

	sortBy := "created_at"
	direction := "DESC"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"company_name":     true,
			"position_title":   true,
			"status":           true,
			"application_date": true,
			"created_at":       true,
			"updated_at":       true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
			direction = "ASC"
			if filter.SortDesc {
				direction = "DESC"
			}
		}
	}
	query += fmt.Sprintf(" ORDER BY %s %s, rowid %s", sortBy, direction, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var jobs []model.JobApplication
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("querying job applications: %w", err)
	}
	return jobs, nil
}

// GetJobByID retrieves a single job application owned by userID.
func (s *SQLiteStore) GetJobByID(
	ctx context.Context,
	userID, id string,
) (*model.JobApplication, error) {
	var job model.JobApplication
	err := s.db.GetContext(ctx, &job,
		"SELECT * FROM job_applications WHERE id = ? AND user_id = ?", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job application %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting job application %s: %w", id, err)
	}
	return &job, nil
}

// UpdateJob applies the non-nil fields of update to a job owned by userID
// and returns the updated row.
func (s *SQLiteStore) UpdateJob(
	ctx context.Context,
	userID, id string,
	update model.UpdateJobRequest,
) (*model.JobApplication, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.CompanyName != nil {
		add("company_name", *update.CompanyName)
	}
	if update.PositionTitle != nil {
		add("position_title", *update.PositionTitle)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.SalaryRange != nil {
		add("salary_range", *update.SalaryRange)
	}
	if update.Location != nil {
		add("location", *update.Location)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id, userID)

	result, err := s.db.ExecContext(ctx,
		"UPDATE job_applications SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating job application %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("job application %s: %w", id, ErrNotFound)
	}
	return s.GetJobByID(ctx, userID, id)
}

// DeleteJob removes a job application owned by userID.
func (s *SQLiteStore) DeleteJob(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM job_applications WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting job application %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job application %s: %w", id, ErrNotFound)
	}
	return nil
}
