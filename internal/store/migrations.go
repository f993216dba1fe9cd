package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	google_id     TEXT,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	picture_url   TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry  DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_google_id
	ON users(google_id) WHERE google_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS job_applications (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	company_name     TEXT NOT NULL,
	position_title   TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'applied',
	application_date TEXT NOT NULL,
	salary_range     TEXT,
	location         TEXT,
	notes            TEXT,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON job_applications(user_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON job_applications(status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS emails (
	id              TEXT NOT NULL,
	user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	thread_id       TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT 'gmail',
	subject         TEXT NOT NULL DEFAULT '',
	sender          TEXT NOT NULL DEFAULT '',
	date            DATETIME NOT NULL,
	snippet         TEXT NOT NULL DEFAULT '',
	labels          TEXT NOT NULL DEFAULT '[]',
	is_unread       INTEGER NOT NULL DEFAULT 0,
	has_attachments INTEGER NOT NULL DEFAULT 0,
	body            TEXT NOT NULL DEFAULT '',
	fetched_at      DATETIME NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_emails_user_date ON emails(user_id, date);
CREATE INDEX IF NOT EXISTS idx_emails_unread ON emails(user_id, is_unread);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
