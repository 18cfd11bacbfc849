// Package store persists job-application records in a local SQLite
// database. The connection is capped at a single writer, which also
// serializes the mailbox-sync and enrichment update paths.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the record database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		external_job_id     TEXT,
		company             TEXT NOT NULL,
		job_title           TEXT NOT NULL,
		company_location    TEXT,
		location_type       TEXT,
		employment_type     TEXT,
		description         TEXT,
		website             TEXT,
		wages_min           REAL,
		wages_max           REAL,
		wage_type           TEXT,
		applied             TEXT NOT NULL,
		status_checks       TEXT NOT NULL DEFAULT '[]',
		responded           TEXT,
		response            TEXT NOT NULL DEFAULT 'No Response',
		notes               TEXT,
		source              TEXT,
		application_through TEXT,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS import_state (
		account     TEXT PRIMARY KEY,
		last_import TEXT NOT NULL
	)`)
	return err
}

const recordCols = `id, external_job_id, company, job_title, company_location,
	location_type, employment_type, description, website,
	wages_min, wages_max, wage_type,
	applied, status_checks, responded, response, notes,
	source, application_through, created_at, updated_at`

// Save inserts the record when ID is zero, otherwise updates it in place.
// A record without company and title is not persisted.
func (s *Store) Save(ctx context.Context, r *JobRecord) error {
	if r.Company == "" || r.JobTitle == "" {
		return errors.New("store: company and job title are required")
	}
	if r.WagesMin > r.WagesMax && r.WagesMax != 0 {
		r.WagesMin, r.WagesMax = r.WagesMax, r.WagesMin
	}
	if r.Response == "" {
		r.Response = ResponseNone
	}

	now := time.Now().UTC()
	if r.Applied.IsZero() {
		r.Applied = now
	}
	r.UpdatedAt = now

	checks, err := json.Marshal(r.StatusChecks)
	if err != nil {
		return fmt.Errorf("store: marshal status checks: %w", err)
	}

	var responded any
	if r.Responded != nil {
		responded = r.Responded.UTC().Format(time.RFC3339)
	}

	if r.ID == 0 {
		r.CreatedAt = now
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO records (external_job_id, company, job_title, company_location,
				location_type, employment_type, description, website,
				wages_min, wages_max, wage_type,
				applied, status_checks, responded, response, notes,
				source, application_through, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullable(r.ExternalJobID), r.Company, r.JobTitle, nullable(r.CompanyLocation),
			nullable(string(r.LocationType)), nullable(string(r.EmploymentType)),
			nullable(r.Description), nullable(r.Website),
			r.WagesMin, r.WagesMax, nullable(string(r.WageType)),
			r.Applied.UTC().Format(time.RFC3339), string(checks), responded, string(r.Response),
			nullable(r.Notes), nullable(r.Source), nullable(r.ApplicationThrough),
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("store: insert: %w", err)
		}
		r.ID, _ = res.LastInsertId()
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE records SET external_job_id=?, company=?, job_title=?, company_location=?,
			location_type=?, employment_type=?, description=?, website=?,
			wages_min=?, wages_max=?, wage_type=?,
			applied=?, status_checks=?, responded=?, response=?, notes=?,
			source=?, application_through=?, updated_at=?
		 WHERE id=?`,
		nullable(r.ExternalJobID), r.Company, r.JobTitle, nullable(r.CompanyLocation),
		nullable(string(r.LocationType)), nullable(string(r.EmploymentType)),
		nullable(r.Description), nullable(r.Website),
		r.WagesMin, r.WagesMax, nullable(string(r.WageType)),
		r.Applied.UTC().Format(time.RFC3339), string(checks), responded, string(r.Response),
		nullable(r.Notes), nullable(r.Source), nullable(r.ApplicationThrough),
		now.Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update #%d: %w", r.ID, err)
	}
	return nil
}

// ByID returns a record by internal id, or nil when absent.
func (s *Store) ByID(ctx context.Context, id int64) (*JobRecord, error) {
	return s.queryOne(ctx, `SELECT `+recordCols+` FROM records WHERE id = ?`, id)
}

// ByExternalID returns a record by its source-specific posting id, or nil.
func (s *Store) ByExternalID(ctx context.Context, externalID string) (*JobRecord, error) {
	if externalID == "" {
		return nil, nil
	}
	return s.queryOne(ctx, `SELECT `+recordCols+` FROM records WHERE external_job_id = ?`, externalID)
}

// ByCompanyTitle returns a record matching company and title,
// case-insensitively, or nil.
func (s *Store) ByCompanyTitle(ctx context.Context, company, title string) (*JobRecord, error) {
	if company == "" || title == "" {
		return nil, nil
	}
	return s.queryOne(ctx,
		`SELECT `+recordCols+` FROM records
		 WHERE LOWER(company) = LOWER(?) AND LOWER(job_title) = LOWER(?)
		 ORDER BY applied DESC LIMIT 1`, company, title)
}

// LatestByCompany returns the most recently applied record for a company,
// case-insensitively, or nil.
func (s *Store) LatestByCompany(ctx context.Context, company string) (*JobRecord, error) {
	if company == "" {
		return nil, nil
	}
	return s.queryOne(ctx,
		`SELECT `+recordCols+` FROM records
		 WHERE LOWER(company) = LOWER(?)
		 ORDER BY applied DESC LIMIT 1`, company)
}

// List returns records sorted by most recently updated.
func (s *Store) List(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordCols+` FROM records ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			continue
		}
		records = append(records, *r)
	}
	if records == nil {
		records = []JobRecord{}
	}
	return records, rows.Err()
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete #%d: %w", id, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// LastImport returns the recorded last-import timestamp for an account,
// or the zero time when the account has never been imported.
func (s *Store) LastImport(ctx context.Context, account string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_import FROM import_state WHERE account = ?`, account).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: last import: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: last import parse: %w", err)
	}
	return t, nil
}

// SetLastImport records the last-import timestamp for an account.
func (s *Store) SetLastImport(ctx context.Context, account string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_state (account, last_import) VALUES (?, ?)
		 ON CONFLICT(account) DO UPDATE SET last_import = excluded.last_import`,
		account, t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: set last import: %w", err)
	}
	return nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRecord(rows)
}

func scanRecord(rows *sql.Rows) (*JobRecord, error) {
	var r JobRecord
	var externalID, companyLoc, locType, empType, desc, website sql.NullString
	var wageType, notes, source, through, responded sql.NullString
	var applied, checks, created, updated string
	var response string

	err := rows.Scan(&r.ID, &externalID, &r.Company, &r.JobTitle, &companyLoc,
		&locType, &empType, &desc, &website,
		&r.WagesMin, &r.WagesMax, &wageType,
		&applied, &checks, &responded, &response, &notes,
		&source, &through, &created, &updated)
	if err != nil {
		return nil, err
	}

	r.ExternalJobID = externalID.String
	r.CompanyLocation = companyLoc.String
	r.LocationType = LocationType(locType.String)
	r.EmploymentType = EmploymentType(empType.String)
	r.Description = desc.String
	r.Website = website.String
	r.WageType = WageType(wageType.String)
	r.Notes = notes.String
	r.Source = source.String
	r.ApplicationThrough = through.String
	r.Response = Response(response)

	r.Applied, _ = time.Parse(time.RFC3339, applied)
	r.CreatedAt, _ = time.Parse(time.RFC3339, created)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	if responded.Valid {
		if t, err := time.Parse(time.RFC3339, responded.String); err == nil {
			r.Responded = &t
		}
	}
	if err := json.Unmarshal([]byte(checks), &r.StatusChecks); err != nil {
		r.StatusChecks = nil
	}
	return &r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
