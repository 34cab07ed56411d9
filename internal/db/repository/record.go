package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"certsync/internal/models"
)

// RecordRepository handles certificate record data access
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new certificate record repository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Upsert inserts or replaces a record. A conflict on either id or hostname
// replaces the existing row. The created_at of an existing row with the
// same id is preserved; updated_at is refreshed on every write. Both
// timestamps are written back onto rec.
func (r *RecordRepository) Upsert(rec *models.Record) error {
	now := time.Now().UTC()

	createdAt := now
	var existing time.Time
	err := r.db.QueryRow(`SELECT created_at FROM certificates WHERE id = ?`, rec.ID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first insert for this id
	case err != nil:
		return fmt.Errorf("failed to read existing record: %w", err)
	default:
		createdAt = existing
	}

	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO certificates (id, hostname, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Hostname, rec.Status, createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	rec.CreatedAt = createdAt
	rec.UpdatedAt = now

	return nil
}

// GetByHostname retrieves a record by hostname, or nil if absent
func (r *RecordRepository) GetByHostname(hostname string) (*models.Record, error) {
	return r.get(`
		SELECT id, hostname, status, created_at, updated_at
		FROM certificates
		WHERE hostname = ?
	`, hostname)
}

// GetByID retrieves a record by id, or nil if absent
func (r *RecordRepository) GetByID(id string) (*models.Record, error) {
	return r.get(`
		SELECT id, hostname, status, created_at, updated_at
		FROM certificates
		WHERE id = ?
	`, id)
}

func (r *RecordRepository) get(query string, arg string) (*models.Record, error) {
	rec := &models.Record{}

	err := r.db.QueryRow(query, arg).Scan(
		&rec.ID,
		&rec.Hostname,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// DeleteByID removes a record. Deleting an absent id is not an error.
func (r *RecordRepository) DeleteByID(id string) error {
	if _, err := r.db.Exec(`DELETE FROM certificates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// List returns all records, most recently created first
func (r *RecordRepository) List() ([]*models.Record, error) {
	rows, err := r.db.Query(`
		SELECT id, hostname, status, created_at, updated_at
		FROM certificates
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record

	for rows.Next() {
		rec := &models.Record{}
		err := rows.Scan(
			&rec.ID,
			&rec.Hostname,
			&rec.Status,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}
