package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// sqliteMigrations is the ordered list of schema migrations for SQLite.
// Each migration's version must be sequential starting from 1.
var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL,
	phone       TEXT,
	full_name   TEXT NOT NULL,
	role        TEXT NOT NULL DEFAULT 'user'
		CHECK(role IN ('admin', 'manager', 'team_lead', 'user')),
	department  TEXT,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS compliance_tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL
		CHECK(type IN ('statutory', 'payment', 'task', 'escalation')),
	due_date    DATETIME NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'in_progress', 'completed', 'overdue')),
	priority    TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'critical')),
	amount      INTEGER,
	assigned_to TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_by  TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id          TEXT REFERENCES compliance_tasks(id) ON DELETE SET NULL,
	title            TEXT NOT NULL,
	message          TEXT NOT NULL,
	type             TEXT NOT NULL
		CHECK(type IN ('statutory', 'payment', 'task', 'escalation')),
	status           TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'sent', 'delivered', 'read', 'actioned', 'dismissed')),
	priority         TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'critical')),
	channels         TEXT NOT NULL DEFAULT '["dashboard"]',
	scheduled_at     DATETIME NOT NULL,
	sent_at          DATETIME,
	read_at          DATETIME,
	actioned_at      DATETIME,
	escalation_level INTEGER NOT NULL DEFAULT 0,
	escalated_to     TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_logs (
	id              TEXT PRIMARY KEY,
	notification_id TEXT NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	status          TEXT NOT NULL
		CHECK(status IN ('pending', 'sent', 'delivered', 'read', 'actioned', 'dismissed')),
	channel         TEXT NOT NULL,
	metadata        TEXT,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_settings (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	notification_type TEXT NOT NULL
		CHECK(notification_type IN ('statutory', 'payment', 'task', 'escalation')),
	email_enabled     INTEGER NOT NULL DEFAULT 1 CHECK(email_enabled IN (0, 1)),
	sms_enabled       INTEGER NOT NULL DEFAULT 0 CHECK(sms_enabled IN (0, 1)),
	push_enabled      INTEGER NOT NULL DEFAULT 1 CHECK(push_enabled IN (0, 1)),
	whatsapp_enabled  INTEGER NOT NULL DEFAULT 0 CHECK(whatsapp_enabled IN (0, 1)),
	reminder_days     INTEGER NOT NULL DEFAULT 7,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, notification_type)
);

CREATE TABLE IF NOT EXISTS escalation_levels (
	id                     TEXT PRIMARY KEY,
	level                  INTEGER NOT NULL CHECK(level >= 1),
	user_id                TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	notification_type      TEXT NOT NULL
		CHECK(notification_type IN ('statutory', 'payment', 'task', 'escalation')),
	days_before_escalation INTEGER NOT NULL CHECK(days_before_escalation >= 0),
	email_enabled          INTEGER NOT NULL DEFAULT 1 CHECK(email_enabled IN (0, 1)),
	sms_enabled            INTEGER NOT NULL DEFAULT 1 CHECK(sms_enabled IN (0, 1)),
	push_enabled           INTEGER NOT NULL DEFAULT 1 CHECK(push_enabled IN (0, 1)),
	whatsapp_enabled       INTEGER NOT NULL DEFAULT 0 CHECK(whatsapp_enabled IN (0, 1)),
	requires_action        INTEGER NOT NULL DEFAULT 1 CHECK(requires_action IN (0, 1)),
	created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status_due ON compliance_tasks(status, due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON compliance_tasks(assigned_to);
CREATE INDEX IF NOT EXISTS idx_notifications_task_id ON notifications(task_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notification_logs_notification_id ON notification_logs(notification_id);
CREATE INDEX IF NOT EXISTS idx_escalation_levels_type ON escalation_levels(notification_type);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS message_templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL CHECK(length(name) <= 100),
	type       TEXT NOT NULL
		CHECK(type IN ('statutory', 'payment', 'task', 'escalation')),
	template   TEXT NOT NULL,
	created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_message_templates_type ON message_templates(type);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// postgresMigrations mirrors sqliteMigrations with native Postgres types.
var postgresMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL,
	phone       TEXT,
	full_name   TEXT NOT NULL,
	role        TEXT NOT NULL DEFAULT 'user'
		CHECK(role IN ('admin', 'manager', 'team_lead', 'user')),
	department  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS compliance_tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL
		CHECK(type IN ('statutory', 'payment', 'task', 'escalation')),
	due_date    TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'in_progress', 'completed', 'overdue')),
	priority    TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'critical')),
	amount      BIGINT,
	assigned_to TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_by  TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id          TEXT REFERENCES compliance_tasks(id) ON DELETE SET NULL,
	title            TEXT NOT NULL,
	message          TEXT NOT NULL,
	type             TEXT NOT NULL
		CHECK(type IN ('statutory', 'payment', 'task', 'escalation')),
	status           TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'sent', 'delivered', 'read', 'actioned', 'dismissed')),
	priority         TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'critical')),
	channels         TEXT NOT NULL DEFAULT '["dashboard"]',
	scheduled_at     TIMESTAMPTZ NOT NULL,
	sent_at          TIMESTAMPTZ,
	read_at          TIMESTAMPTZ,
	actioned_at      TIMESTAMPTZ,
	escalation_level SMALLINT NOT NULL DEFAULT 0,
	escalated_to     TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notification_logs (
	id              TEXT PRIMARY KEY,
	notification_id TEXT NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	status          TEXT NOT NULL
		CHECK(status IN ('pending', 'sent', 'delivered', 'read', 'actioned', 'dismissed')),
	channel         TEXT NOT NULL,
	metadata        TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notification_settings (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	notification_type TEXT NOT NULL
		CHECK(notification_type IN ('statutory', 'payment', 'task', 'escalation')),
	email_enabled     BOOLEAN NOT NULL DEFAULT TRUE,
	sms_enabled       BOOLEAN NOT NULL DEFAULT FALSE,
	push_enabled      BOOLEAN NOT NULL DEFAULT TRUE,
	whatsapp_enabled  BOOLEAN NOT NULL DEFAULT FALSE,
	reminder_days     SMALLINT NOT NULL DEFAULT 7,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(user_id, notification_type)
);

CREATE TABLE IF NOT EXISTS escalation_levels (
	id                     TEXT PRIMARY KEY,
	level                  SMALLINT NOT NULL CHECK(level >= 1),
	user_id                TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	notification_type      TEXT NOT NULL
		CHECK(notification_type IN ('statutory', 'payment', 'task', 'escalation')),
	days_before_escalation SMALLINT NOT NULL CHECK(days_before_escalation >= 0),
	email_enabled          BOOLEAN NOT NULL DEFAULT TRUE,
	sms_enabled            BOOLEAN NOT NULL DEFAULT TRUE,
	push_enabled           BOOLEAN NOT NULL DEFAULT TRUE,
	whatsapp_enabled       BOOLEAN NOT NULL DEFAULT FALSE,
	requires_action        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_status_due ON compliance_tasks(status, due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON compliance_tasks(assigned_to);
CREATE INDEX IF NOT EXISTS idx_notifications_task_id ON notifications(task_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notification_logs_notification_id ON notification_logs(notification_id);
CREATE INDEX IF NOT EXISTS idx_escalation_levels_type ON escalation_levels(notification_type);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS message_templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL CHECK(char_length(name) <= 100),
	type       TEXT NOT NULL
		CHECK(type IN ('statutory', 'payment', 'task', 'escalation')),
	template   TEXT NOT NULL,
	created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_message_templates_type ON message_templates(type);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
