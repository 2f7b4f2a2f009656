package store

// schemaVersionV1 is the initial schema.
const schemaVersionV1 = 1

const schemaV1 = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_path  TEXT NOT NULL,
	response      TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	replicates    INTEGER NOT NULL,
	threshold     REAL NOT NULL,
	log_response  INTEGER NOT NULL DEFAULT 0,
	boxcox_low    REAL NOT NULL,
	boxcox_high   REAL NOT NULL,
	lambda_min    REAL NOT NULL,
	lambda_med    REAL NOT NULL,
	lambda_max    REAL NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE term_frequencies (
	run_id    INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	term      TEXT NOT NULL,
	frequency REAL NOT NULL,
	selected  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, term)
);

CREATE TABLE metrics (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX idx_freq_run ON term_frequencies(run_id);
CREATE INDEX idx_metrics_run ON metrics(run_id);
`
