// Package store persists sample metadata and data-file rows. It is the
// relational half of the ingestion sinks: one long-lived auto-committing
// connection, every statement its own transaction, so partial progress
// stays visible and a re-run of the crawl can resume safely.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/pinealan/dna-microarray-db/internal/errors"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps the SQL connection used for the whole crawl.
type DB struct {
	db     *sqlx.DB
	driver string
}

// Sample is the relational row for one repository sample. ID is
// assigned by the store.
type Sample struct {
	ID                 int64          `db:"id"`
	RepositoryID       string         `db:"repository_id"`
	RepositorySampleID string         `db:"repository_sample_id"`
	RepositorySeriesID sql.NullString `db:"repository_series_id"`
	PlatformID         sql.NullString `db:"platform_id"`
	Gender             sql.NullString `db:"gender"`
	Age                sql.NullString `db:"age"`
	Tissue             sql.NullString `db:"tissue"`
	Disease            sql.NullString `db:"disease"`
	ExtractionProtocol sql.NullString `db:"extraction_protocol"`
	Extras             []byte         `db:"extras"`
}

// IDATFile is the relational row for one data file of a sample. A row
// starts pending (no s3 key) and moves monotonically through uploaded,
// then optionally processed or deleted.
type IDATFile struct {
	ID          int64          `db:"id"`
	SampleID    int64          `db:"sample_id"`
	SourceURL   string         `db:"source_url"`
	S3Key       sql.NullString `db:"s3_key"`
	Channel     sql.NullString `db:"channel"`
	UploadedAt  sql.NullTime   `db:"uploaded_at"`
	ProcessedAt sql.NullTime   `db:"processed_at"`
	DeletedAt   sql.NullTime   `db:"deleted_at"`
}

// Open connects using the given database/sql driver, verifies the
// connection and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	const op = errors.Op("store.Open")

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.E(op, errors.KindDatabase, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.E(op, errors.KindDatabase, err)
	}
	for _, stmt := range schemaStatements(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errors.WrapMsg(op, "apply schema", err)
		}
	}
	return &DB{db: db, driver: driver}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// NullString maps "" to SQL NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MarshalExtras serializes an extras bag for the jsonb column, or nil
// when the bag is absent so the column stores NULL.
func MarshalExtras(extras map[string]any) ([]byte, error) {
	if len(extras) == 0 {
		return nil, nil
	}
	return json.Marshal(extras)
}

// UpsertSample inserts the sample row, ignoring conflicts on
// (repository_id, repository_sample_id), and returns the row id whether
// new or pre-existing. Calling it twice with the same key is a no-op
// that returns the same id.
func (d *DB) UpsertSample(ctx context.Context, s *Sample) (int64, error) {
	const op = errors.Op("store.UpsertSample")

	query := d.db.Rebind(`
		INSERT INTO sample (
			repository_id, repository_sample_id, repository_series_id,
			platform_id, gender, age, tissue, disease,
			extraction_protocol, extras
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, repository_sample_id) DO NOTHING
		RETURNING id`)

	var id int64
	err := d.db.QueryRowxContext(ctx, query,
		s.RepositoryID, s.RepositorySampleID, s.RepositorySeriesID,
		s.PlatformID, s.Gender, s.Age, s.Tissue, s.Disease,
		s.ExtractionProtocol, s.Extras,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.E(op, errors.KindDatabase, err)
	}

	// Conflict: the row already exists, fetch its id.
	query = d.db.Rebind(
		`SELECT id FROM sample WHERE repository_id = ? AND repository_sample_id = ?`)
	if err := d.db.GetContext(ctx, &id, query, s.RepositoryID, s.RepositorySampleID); err != nil {
		return 0, errors.E(op, errors.KindDatabase, err,
			"row expected to exist after conflict")
	}
	return id, nil
}

// GetSample fetches a sample row by its repository key.
func (d *DB) GetSample(ctx context.Context, repositoryID, sampleID string) (*Sample, error) {
	const op = errors.Op("store.GetSample")

	var s Sample
	query := d.db.Rebind(
		`SELECT * FROM sample WHERE repository_id = ? AND repository_sample_id = ?`)
	if err := d.db.GetContext(ctx, &s, query, repositoryID, sampleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.E(op, errors.KindNotFound, repositoryID+"/"+sampleID)
		}
		return nil, errors.E(op, errors.KindDatabase, err)
	}
	return &s, nil
}

// InsertIDATFile registers a pending data-file row and returns its id.
// Rows are keyed by (sample_id, source_url); re-registering the same
// file on a retried sample returns the existing row untouched.
func (d *DB) InsertIDATFile(ctx context.Context, f *IDATFile) (int64, error) {
	const op = errors.Op("store.InsertIDATFile")

	query := d.db.Rebind(`
		INSERT INTO idat_file (sample_id, source_url, s3_key, channel)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sample_id, source_url) DO NOTHING
		RETURNING id`)

	var id int64
	err := d.db.QueryRowxContext(ctx, query,
		f.SampleID, f.SourceURL, f.S3Key, f.Channel,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.E(op, errors.KindDatabase, err)
	}

	query = d.db.Rebind(
		`SELECT id FROM idat_file WHERE sample_id = ? AND source_url = ?`)
	if err := d.db.GetContext(ctx, &id, query, f.SampleID, f.SourceURL); err != nil {
		return 0, errors.E(op, errors.KindDatabase, err,
			"row expected to exist after conflict")
	}
	return id, nil
}

// MarkUploaded records the blob key and upload time for a file row.
func (d *DB) MarkUploaded(ctx context.Context, fileID int64, s3Key string) error {
	const op = errors.Op("store.MarkUploaded")
	query := d.db.Rebind(`UPDATE idat_file SET s3_key = ?, uploaded_at = ? WHERE id = ?`)
	_, err := d.db.ExecContext(ctx, query, s3Key, time.Now().UTC(), fileID)
	return errors.Wrap(op, err)
}

// MarkProcessed stamps a file row as processed.
func (d *DB) MarkProcessed(ctx context.Context, fileID int64) error {
	const op = errors.Op("store.MarkProcessed")
	query := d.db.Rebind(`UPDATE idat_file SET processed_at = ? WHERE id = ?`)
	_, err := d.db.ExecContext(ctx, query, time.Now().UTC(), fileID)
	return errors.Wrap(op, err)
}

// MarkDeleted stamps a file row as deleted.
func (d *DB) MarkDeleted(ctx context.Context, fileID int64) error {
	const op = errors.Op("store.MarkDeleted")
	query := d.db.Rebind(`UPDATE idat_file SET deleted_at = ? WHERE id = ?`)
	_, err := d.db.ExecContext(ctx, query, time.Now().UTC(), fileID)
	return errors.Wrap(op, err)
}

// ListFiles returns the data-file rows of a sample in insertion order.
func (d *DB) ListFiles(ctx context.Context, sampleID int64) ([]IDATFile, error) {
	const op = errors.Op("store.ListFiles")

	var files []IDATFile
	query := d.db.Rebind(`SELECT * FROM idat_file WHERE sample_id = ? ORDER BY id`)
	if err := d.db.SelectContext(ctx, &files, query, sampleID); err != nil {
		return nil, errors.E(op, errors.KindDatabase, err)
	}
	return files, nil
}

// CountSamples reports the number of sample rows for one repository.
func (d *DB) CountSamples(ctx context.Context, repositoryID string) (int, error) {
	const op = errors.Op("store.CountSamples")

	var n int
	query := d.db.Rebind(`SELECT count(*) FROM sample WHERE repository_id = ?`)
	if err := d.db.GetContext(ctx, &n, query, repositoryID); err != nil {
		return 0, errors.E(op, errors.KindDatabase, err)
	}
	return n, nil
}
