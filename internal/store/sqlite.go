package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/trackmate/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every pooled connection to ":memory:" would see its own empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// dsn adds connection pragmas to dbPath. Pragmas given in the DSN run on
// every connection the pool opens.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)"
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const userColumns = `
	id, COALESCE(google_id, '') AS google_id, email, name, picture_url,
	access_token, refresh_token, token_expiry, created_at, updated_at`

// UpsertUser creates or refreshes the account for a Google identity. An
// existing row is matched by google_id first, then by email; otherwise a new
// UUID is assigned. An empty refresh token never overwrites a stored one,
// since Google only returns it on first consent.
func (s *SQLiteStore) UpsertUser(
	ctx context.Context,
	user model.User,
) (*model.User, error) {
	if user.Email == "" {
		return nil, fmt.Errorf("user email must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	if user.GoogleID != "" {
		err = tx.GetContext(ctx, &existingID, "SELECT id FROM users WHERE google_id = ?", user.GoogleID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("looking up user by google id: %w", err)
		}
	}
	if existingID == "" {
		err = tx.GetContext(ctx, &existingID, "SELECT id FROM users WHERE email = ?", user.Email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("looking up user by email: %w", err)
		}
	}

	now := time.Now().UTC()
	if existingID == "" {
		user.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (
				id, google_id, email, name, picture_url,
				access_token, refresh_token, token_expiry,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID, nullString(user.GoogleID), user.Email, user.Name, user.PictureURL,
			user.AccessToken, user.RefreshToken, utcPtr(user.TokenExpiry),
			now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("creating user %s: %w", user.Email, err)
		}
	} else {
		user.ID = existingID
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET
				google_id = COALESCE(?, google_id),
				email = ?, name = ?, picture_url = ?,
				access_token = CASE WHEN ? = '' THEN access_token ELSE ? END,
				refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
				token_expiry = COALESCE(?, token_expiry),
				updated_at = ?
			WHERE id = ?`,
			nullString(user.GoogleID),
			user.Email, user.Name, user.PictureURL,
			user.AccessToken, user.AccessToken,
			user.RefreshToken, user.RefreshToken,
			utcPtr(user.TokenExpiry),
			now, user.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating user %s: %w", user.ID, err)
		}
	}

	var stored model.User
	if err := tx.GetContext(ctx, &stored, "SELECT"+userColumns+" FROM users WHERE id = ?", user.ID); err != nil {
		return nil, fmt.Errorf("reloading user %s: %w", user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user %s: %w", user.ID, err)
	}
	return &stored, nil
}

// GetUserByID retrieves a single user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, "SELECT"+userColumns+" FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a single user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, "SELECT"+userColumns+" FROM users WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", email, err)
	}
	return &user, nil
}

// GetUsersWithTokens lists every user with stored provider credentials,
// which is the set background sync can act for.
func (s *SQLiteStore) GetUsersWithTokens(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT"+userColumns+" FROM users WHERE access_token != '' OR refresh_token != '' ORDER BY created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("querying users with tokens: %w", err)
	}
	return users, nil
}

// UpdateUserToken stores refreshed provider credentials. An empty refresh
// token keeps the stored one.
func (s *SQLiteStore) UpdateUserToken(
	ctx context.Context,
	userID, accessToken, refreshToken string,
	expiry *time.Time,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			token_expiry = ?,
			updated_at = ?
		WHERE id = ?`,
		accessToken, refreshToken, refreshToken, utcPtr(expiry), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("updating token for user %s: %w", userID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString maps "" to SQL NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
