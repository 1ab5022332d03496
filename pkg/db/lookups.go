package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RecordLookup adds increment to the lookup counter of one entry, creating
// the counter on first use.
func RecordLookup(ctx context.Context, db DBExecutor, dictionaryID string, entryID int64, increment int) error {
	if strings.TrimSpace(dictionaryID) == "" {
		return fmt.Errorf("dictionaryID must be non-empty")
	}
	if entryID <= 0 {
		return fmt.Errorf("entryID must be positive")
	}
	if increment < 1 {
		return fmt.Errorf("increment must be positive, got %d", increment)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO lookup_counts (dictionary_id, entry_id, count, last_looked_up)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(dictionary_id, entry_id) DO UPDATE SET
			count = lookup_counts.count + excluded.count,
			last_looked_up = excluded.last_looked_up`,
		dictionaryID, entryID, increment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record lookup: %w", err)
	}
	return nil
}

// RecordLookup bumps the counter of an entry by one.
func (s *SQLiteStore) RecordLookup(ctx context.Context, dictionaryID string, entryID int64) error {
	return RecordLookup(ctx, s.db, dictionaryID, entryID, 1)
}

// LookupCount returns how often an entry was looked up.
func (s *SQLiteStore) LookupCount(ctx context.Context, dictionaryID string, entryID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM lookup_counts WHERE dictionary_id = ? AND entry_id = ?`,
		dictionaryID, entryID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// TopLookups returns the most looked-up entries, optionally limited to
// some dictionaries. Expression and reading are empty for counts whose
// entry was deleted.
func (s *SQLiteStore) TopLookups(ctx context.Context, dictionaryIDs []string, limit int) ([]LookupStat, error) {
	b := sq.Select("lc.dictionary_id", "lc.entry_id", "COALESCE(e.expression, '')", "COALESCE(e.reading, '')", "lc.count", "lc.last_looked_up").
		From("lookup_counts lc").
		LeftJoin("entries e ON e.dictionary_id = lc.dictionary_id AND e.entry_id = lc.entry_id").
		OrderBy("lc.count DESC", "lc.last_looked_up DESC")
	if len(dictionaryIDs) > 0 {
		b = b.Where(sq.Eq{"lc.dictionary_id": dictionaryIDs})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LookupStat
	for rows.Next() {
		var st LookupStat
		var last sql.NullTime
		if err := rows.Scan(&st.DictionaryID, &st.EntryID, &st.Expression, &st.Reading, &st.Count, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			st.LastLookedUp = last.Time
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
