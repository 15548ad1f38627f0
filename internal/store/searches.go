package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SearchEntry is one audit log row.
type SearchEntry struct {
	ID          string
	Fingerprint string
	TypeName    string

	// Search is the wire JSON as received.
	Search string

	ResultType string

	// Status is "ok" or the lower-cased error code.
	Status string
	Error  string
	Rows   int

	Duration time.Duration
}

// RecordSearch appends an audit entry. A UUIDv7 ID is assigned when the
// entry has none; the ID is returned.
func (s *Store) RecordSearch(ctx context.Context, e SearchEntry) (string, error) {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("record search: generate id: %w", err)
		}
		e.ID = id.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searches
		(id, fingerprint, type_name, search, result_type, status, error, row_count, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Fingerprint,
		e.TypeName,
		e.Search,
		e.ResultType,
		e.Status,
		e.Error,
		e.Rows,
		e.Duration.Microseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("record search: %w", err)
	}
	s.logger.Debug("search recorded", "id", e.ID, "status", e.Status)
	return e.ID, nil
}

// ReadSearches returns the most recent audit entries, newest first. A
// limit of zero or less returns all of them.
func (s *Store) ReadSearches(ctx context.Context, limit int) ([]SearchEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, type_name, search, result_type, status, error, row_count, duration_us
		FROM searches
		ORDER BY id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	entries := []SearchEntry{}
	for rows.Next() {
		var e SearchEntry
		var micros int64
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.TypeName, &e.Search, &e.ResultType,
			&e.Status, &e.Error, &e.Rows, &micros); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		e.Duration = time.Duration(micros) * time.Microsecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate searches: %w", err)
	}
	return entries, nil
}

// SearchesByFingerprint returns audit entries for one search, oldest first.
func (s *Store) SearchesByFingerprint(ctx context.Context, fingerprint string) ([]SearchEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, row_count
		FROM searches
		WHERE fingerprint = ?
		ORDER BY id COLLATE BINARY ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	entries := []SearchEntry{}
	for rows.Next() {
		e := SearchEntry{Fingerprint: fingerprint}
		if err := rows.Scan(&e.ID, &e.Status, &e.Rows); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate searches: %w", err)
	}
	return entries, nil
}
