package repository

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id   TEXT    NOT NULL,
	handle       TEXT    NOT NULL,
	category     TEXT    NOT NULL,
	collected_at INTEGER NOT NULL,
	metrics      TEXT    NOT NULL,
	UNIQUE (subject_id, collected_at)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_subject
	ON snapshots (subject_id, collected_at DESC);

CREATE INDEX IF NOT EXISTS idx_snapshots_category
	ON snapshots (category);

CREATE TABLE IF NOT EXISTS epoch_history (
	epoch         INTEGER PRIMARY KEY,
	category      TEXT    NOT NULL,
	published_at  INTEGER NOT NULL,
	subject_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_epoch_history_category
	ON epoch_history (category, epoch DESC);
`
