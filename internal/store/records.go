package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/pipeline"
	"github.com/roach88/linql/internal/sequence"
)

// TypeKey is the storage key of an object type: its qualified name.
func TypeKey(t *catalog.Type) string {
	if t.Namespace() == "" {
		return t.Name()
	}
	return t.Namespace() + "." + t.Name()
}

// InsertRecords appends records of type t in one transaction and returns
// the number written.
func (s *Store) InsertRecords(ctx context.Context, t *catalog.Type, records []*catalog.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert records: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (type_name, body) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("insert records: prepare: %w", err)
	}
	defer stmt.Close()

	key := TypeKey(t)
	for i, rec := range records {
		if rec == nil || rec.Type() != t {
			return 0, fmt.Errorf("insert records: record %d is not a %s", i, t)
		}
		body, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("insert records: marshal record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(body)); err != nil {
			return 0, fmt.Errorf("insert records: record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert records: commit: %w", err)
	}
	s.logger.Debug("records inserted", "type", key, "count", len(records))
	return len(records), nil
}

// ImportJSON converts a JSON array of objects to records of type t and
// inserts them. Nothing is written if any element fails to convert.
func (s *Store) ImportJSON(ctx context.Context, t *catalog.Type, data []byte) (int, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", t, err)
	}
	items, ok := raw.([]any)
	if !ok {
		return 0, fmt.Errorf("import %s: expected a JSON array", t)
	}

	records := make([]*catalog.Record, 0, len(items))
	for i, item := range items {
		rec, err := toRecord(t, item)
		if err != nil {
			return 0, fmt.Errorf("import %s: element %d: %w", t, i, err)
		}
		records = append(records, rec)
	}
	return s.InsertRecords(ctx, t, records)
}

// CountRecords returns the number of stored records of type t.
func (s *Store) CountRecords(ctx context.Context, t *catalog.Type) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE type_name = ?`, TypeKey(t)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// DeleteRecords removes every record of type t.
func (s *Store) DeleteRecords(ctx context.Context, t *catalog.Type) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE type_name = ?`, TypeKey(t))
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return int(n), nil
}

// ReadRecords returns every stored record of type t in insertion order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadRecords(ctx context.Context, t *catalog.Type) ([]any, error) {
	out := []any{}
	for rec, err := range s.scan(ctx, t) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Source returns a queryable over the records of type t. The table is
// read when the queryable is enumerated, once per enumeration.
func (s *Store) Source(ctx context.Context, t *catalog.Type) pipeline.Queryable {
	return sequence.From(s.scan(ctx, t))
}

func (s *Store) scan(ctx context.Context, t *catalog.Type) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT seq, body FROM records
			WHERE type_name = ?
			ORDER BY seq ASC
		`, TypeKey(t))
		if err != nil {
			yield(nil, fmt.Errorf("query records: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var seq int64
			var body string
			if err := rows.Scan(&seq, &body); err != nil {
				yield(nil, fmt.Errorf("scan record: %w", err))
				return
			}
			raw, err := decodeJSON([]byte(body))
			if err != nil {
				yield(nil, fmt.Errorf("record %d: %w", seq, err))
				return
			}
			rec, err := toRecord(t, raw)
			if err != nil {
				yield(nil, fmt.Errorf("record %d: %w", seq, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterate records: %w", err))
		}
	}
}

// decodeJSON decodes with json.Number so integers and decimals keep their
// exact text until converted.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return v, nil
}

func toRecord(t *catalog.Type, raw any) (*catalog.Record, error) {
	v, err := catalog.Convert(t, raw)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(*catalog.Record)
	if !ok {
		return nil, fmt.Errorf("null is not a %s record", t)
	}
	return rec, nil
}
