package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_failure_store.go -package=mocks comet-support/internal/storage FailureStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comet-support/internal/record"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CodeCount is one ranked entry of a grouped count query.
type CodeCount struct {
	Code  string
	Count int
}

// MaterialCount is one ranked material aggregate from the database.
type MaterialCount struct {
	Code        string
	Description string
	PartClass   string
	Count       int
}

// PartStats holds the exact database statistics for a single part number.
// Unlike the semantic-search aggregates these cover the whole corpus, not a
// retrieved subset.
type PartStats struct {
	PartNumber       string
	Total            int
	FailureCodes     []CodeCount
	Materials        []MaterialCount
	RecurringSerials []CodeCount
}

// FailureStore defines the interface for failure-record persistence.
type FailureStore interface {
	// ReplaceAll replaces the failures table contents with the given corpus.
	ReplaceAll(ctx context.Context, records []record.Record) error
	// Count returns the total number of stored failure records.
	Count(ctx context.Context) (int, error)
	// PartStats computes exact whole-corpus statistics for one part number.
	PartStats(ctx context.Context, partNumber string) (*PartStats, error)
}

// FailureRepo provides methods for failure-record operations.
// It implements the FailureStore interface.
type FailureRepo struct {
	db *sql.DB
}

// NewFailureRepo creates a new FailureRepo.
func NewFailureRepo(db *sql.DB) *FailureRepo {
	return &FailureRepo{db: db}
}

// DB exposes the underlying handle for ad hoc queries in stats helpers.
func (r *FailureRepo) DB() *sql.DB {
	return r.db
}

// ReplaceAll replaces the failures table contents with the given corpus.
// The corpus is a startup snapshot; the table is rewritten in one
// transaction so readers never observe a partial load.
func (r *FailureRepo) ReplaceAll(ctx context.Context, records []record.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM failures"); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO failures (
		date, part_number, serial_number, type_name, station_number,
		station_description, failure_code, failure_description, defect,
		failure_details, action_code, material_code, material_description, part_class
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, rec := range records {
		var date any
		if rec.Date != nil {
			date = rec.Date.Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx, date,
			rec.PartNumber, rec.SerialNumber, rec.TypeName, rec.StationNumber,
			rec.StationDescription, rec.FailureCode, rec.FailureDescription,
			rec.Defect, rec.FailureDetails, rec.ActionCode, rec.MaterialCode,
			rec.MaterialDescription, rec.PartClass,
		); err != nil {
			return fmt.Errorf("failed to insert failure record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failures load: %w", err)
	}
	return nil
}

// Count returns the total number of stored failure records.
func (r *FailureRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM failures").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

// presentFilter excludes sentinel-absent values from grouped counts, the SQL
// twin of record.Present.
const presentFilter = "TRIM(%[1]s) != '' AND LOWER(TRIM(%[1]s)) != 'nan'"

// PartStats computes exact whole-corpus statistics for one part number.
// The part matches as a substring, mirroring the retrieval filter.
func (r *FailureRepo) PartStats(ctx context.Context, partNumber string) (*PartStats, error) {
	stats := &PartStats{PartNumber: partNumber}
	pattern := "%" + partNumber + "%"

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM failures WHERE part_number LIKE ?", pattern,
	).Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count part records: %w", err)
	}

	failureCodes, err := r.groupedCounts(ctx, "failure_code", pattern, 1, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to query failure codes: %w", err)
	}
	stats.FailureCodes = failureCodes

	recurring, err := r.groupedCounts(ctx, "serial_number", pattern, 2, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring serials: %w", err)
	}
	stats.RecurringSerials = recurring

	materials, err := r.materialCounts(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	stats.Materials = materials

	return stats, nil
}

// groupedCounts ranks present values of one column for a part, keeping only
// groups with at least minCount occurrences.
func (r *FailureRepo) groupedCounts(ctx context.Context, column, pattern string, minCount, limit int) ([]CodeCount, error) {
	query := fmt.Sprintf(`SELECT %[1]s, COUNT(*) AS n FROM failures
		WHERE part_number LIKE ? AND `+presentFilter+`
		GROUP BY %[1]s HAVING n >= ? ORDER BY n DESC, MIN(id) ASC LIMIT ?`, column)

	rows, err := r.db.QueryContext(ctx, query, pattern, minCount, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var counts []CodeCount
	for rows.Next() {
		var c CodeCount
		if err := rows.Scan(&c.Code, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *FailureRepo) materialCounts(ctx context.Context, pattern string) ([]MaterialCount, error) {
	// MIN(id) pins the bare description/class columns to the first-seen row
	// of each group (SQLite bare-column rule for min/max aggregates).
	query := fmt.Sprintf(`SELECT material_code,
		CASE WHEN LOWER(TRIM(material_description)) IN ('', 'nan') THEN 'N/A' ELSE TRIM(material_description) END,
		CASE WHEN LOWER(TRIM(part_class)) IN ('', 'nan') THEN 'N/A' ELSE TRIM(part_class) END,
		COUNT(*) AS n,
		MIN(id) AS first_id
		FROM failures
		WHERE part_number LIKE ? AND `+presentFilter+`
		GROUP BY material_code ORDER BY n DESC, first_id ASC LIMIT 5`, "material_code")

	rows, err := r.db.QueryContext(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var materials []MaterialCount
	for rows.Next() {
		var m MaterialCount
		var firstID int
		if err := rows.Scan(&m.Code, &m.Description, &m.PartClass, &m.Count, &firstID); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}
