package store

// Schema DDL keyed by driver, one statement per entry because the pgx
// driver rejects multi-statement Execs. The postgres flavor is the
// production schema; the sqlite flavor keeps the same shape for local
// runs and tests. Every statement is idempotent so the store can apply
// them on every open.

var postgresSchema = []string{
	`DO $$ BEGIN
		CREATE TYPE gender AS ENUM ('male', 'female');
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`CREATE TABLE IF NOT EXISTS sample (
		id                   BIGSERIAL PRIMARY KEY,
		repository_id        TEXT NOT NULL,
		repository_sample_id TEXT NOT NULL,
		repository_series_id TEXT,
		platform_id          TEXT,
		gender               gender,
		age                  TEXT,
		tissue               TEXT,
		disease              TEXT,
		extraction_protocol  TEXT,
		extras               JSONB,
		UNIQUE (repository_id, repository_sample_id)
	)`,
	`CREATE TABLE IF NOT EXISTS idat_file (
		id           BIGSERIAL PRIMARY KEY,
		sample_id    BIGINT NOT NULL REFERENCES sample(id),
		source_url   TEXT NOT NULL,
		s3_key       TEXT,
		channel      TEXT,
		uploaded_at  TIMESTAMPTZ,
		processed_at TIMESTAMPTZ,
		deleted_at   TIMESTAMPTZ,
		UNIQUE (sample_id, source_url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_idat_file_sample ON idat_file(sample_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sample (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		repository_id        TEXT NOT NULL,
		repository_sample_id TEXT NOT NULL,
		repository_series_id TEXT,
		platform_id          TEXT,
		gender               TEXT CHECK (gender IN ('male', 'female')),
		age                  TEXT,
		tissue               TEXT,
		disease              TEXT,
		extraction_protocol  TEXT,
		extras               TEXT,
		UNIQUE (repository_id, repository_sample_id)
	)`,
	`CREATE TABLE IF NOT EXISTS idat_file (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_id    INTEGER NOT NULL REFERENCES sample(id),
		source_url   TEXT NOT NULL,
		s3_key       TEXT,
		channel      TEXT,
		uploaded_at  TIMESTAMP,
		processed_at TIMESTAMP,
		deleted_at   TIMESTAMP,
		UNIQUE (sample_id, source_url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_idat_file_sample ON idat_file(sample_id)`,
}

func schemaStatements(driver string) []string {
	if driver == DriverSQLite {
		return sqliteSchema
	}
	return postgresSchema
}
