package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/trackmate/internal/model"
)

const emailColumns = `
	id, thread_id, source, subject, sender, date, snippet,
	labels, is_unread, has_attachments, body`

// UpsertEmails stores a batch of synced emails for userID and returns how
// many of them were not stored before. Existing rows are refreshed; a stored
// body is kept when the incoming one is empty.
func (s *SQLiteStore) UpsertEmails(
	ctx context.Context,
	userID string,
	emails []model.Email,
) (int, error) {
	if len(emails) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	insert, err := tx.PreparexContext(ctx, `
		INSERT INTO emails (
			id, user_id, thread_id, source, subject, sender, date, snippet,
			labels, is_unread, has_attachments, body, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer insert.Close()

	update, err := tx.PreparexContext(ctx, `
		UPDATE emails SET
			thread_id = ?, source = ?, subject = ?, sender = ?, date = ?,
			snippet = ?, labels = ?, is_unread = ?, has_attachments = ?,
			body = CASE WHEN ? = '' THEN body ELSE ? END,
			fetched_at = ?
		WHERE user_id = ? AND id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing update statement: %w", err)
	}
	defer update.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, e := range emails {
		labels, err := json.Marshal(nonNilLabels(e.Labels))
		if err != nil {
			return 0, fmt.Errorf("marshaling labels for email %s: %w", e.ID, err)
		}
		source := e.Source
		if source == "" {
			source = model.SourceTypeGmail
		}

		result, err := insert.ExecContext(ctx,
			e.ID, userID, e.ThreadID, string(source), e.Subject, e.Sender, e.Date.UTC(), e.Snippet,
			string(labels), boolToInt(e.IsUnread), boolToInt(e.HasAttachments), e.Body, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting email %s: %w", e.ID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
			continue
		}

		_, err = update.ExecContext(ctx,
			e.ThreadID, string(source), e.Subject, e.Sender, e.Date.UTC(),
			e.Snippet, string(labels), boolToInt(e.IsUnread), boolToInt(e.HasAttachments),
			e.Body, e.Body,
			now,
			userID, e.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("updating email %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing emails: %w", err)
	}
	return inserted, nil
}

// GetEmails retrieves the user's stored emails, newest first.
func (s *SQLiteStore) GetEmails(
	ctx context.Context,
	userID string,
	q EmailQuery,
) ([]model.Email, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if q.UnreadOnly {
		conditions = append(conditions, "is_unread = 1")
	}
	if q.Label != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(emails.labels) WHERE json_each.value = ?)")
		args = append(args, q.Label)
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, q.Since.UTC())
	}

	query := "SELECT" + emailColumns + " FROM emails WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY date DESC, rowid DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying emails: %w", err)
	}
	defer rows.Close()

	var emails []model.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}

	return emails, rows.Err()
}

// GetEmailByID retrieves a single stored email.
func (s *SQLiteStore) GetEmailByID(
	ctx context.Context,
	userID, id string,
) (*model.Email, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT"+emailColumns+" FROM emails WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting email %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting email %s: %w", id, err)
		}
		return nil, fmt.Errorf("email %s: %w", id, ErrNotFound)
	}

	e, err := scanEmail(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// scanEmail scans an email row from a sqlx.Rows result set.
func scanEmail(rows *sqlx.Rows) (model.Email, error) {
	var (
		e              model.Email
		source         string
		labels         string
		isUnread       int
		hasAttachments int
		date           time.Time
	)

	err := rows.Scan(
		&e.ID, &e.ThreadID, &source, &e.Subject, &e.Sender, &date, &e.Snippet,
		&labels, &isUnread, &hasAttachments, &e.Body,
	)
	if err != nil {
		return model.Email{}, fmt.Errorf("scanning email row: %w", err)
	}

	e.Source = model.SourceType(source)
	e.Date = date
	e.IsUnread = isUnread != 0
	e.HasAttachments = hasAttachments != 0

	if labels != "" {
		if err := json.Unmarshal([]byte(labels), &e.Labels); err != nil {
			return model.Email{}, fmt.Errorf("unmarshaling labels: %w", err)
		}
	}

	return e, nil
}

func nonNilLabels(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

