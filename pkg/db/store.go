package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/japaniel/tapdict/pkg/dictionary"
)

// rowsPerInsert bounds the rows of one multi-row INSERT so the statement
// stays under SQLite's bound-variable limit.
const rowsPerInsert = 200

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteStore implements dictionary.Store on SQLite. Readers run on their
// own connections and see the last committed state; writers are
// serialized per dictionary id in process and by SQLite's write lock
// across processes.
type SQLiteStore struct {
	db     *sql.DB
	writes dictionary.KeyedMutex
}

var _ dictionary.Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an initialized connection and discards staging rows
// left behind by an interrupted import.
func NewSQLiteStore(ctx context.Context, conn *sql.DB) (*SQLiteStore, error) {
	if _, err := conn.ExecContext(ctx, `DELETE FROM import_staging`); err != nil {
		return nil, fmt.Errorf("clear staging: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

// DB exposes the underlying connection.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func toRow(e dictionary.Entry) (entryRow, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return entryRow{}, fmt.Errorf("encode entry %d: %w", e.ID, err)
	}
	return entryRow{
		EntryID:    e.ID,
		Expression: dictionary.Normalize(e.Expression),
		Reading:    dictionary.Normalize(e.Reading),
		Frequency:  e.Frequency,
		Payload:    string(payload),
	}, nil
}

func fromPayload(dictionaryID string, entryID int64, payload string) (*dictionary.Entry, error) {
	var e dictionary.Entry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("decode entry %s/%d: %w", dictionaryID, entryID, err)
	}
	e.DictionaryID = dictionaryID
	e.ID = entryID
	return &e, nil
}

// QueryByExpression implements dictionary.Reader.
func (s *SQLiteStore) QueryByExpression(ctx context.Context, term string, dictionaryIDs []string) (*dictionary.Entry, error) {
	return s.query(ctx, dictionary.FieldExpression, term, dictionaryIDs)
}

// QueryByReading implements dictionary.Reader.
func (s *SQLiteStore) QueryByReading(ctx context.Context, term string, dictionaryIDs []string) (*dictionary.Entry, error) {
	return s.query(ctx, dictionary.FieldReading, term, dictionaryIDs)
}

// priorityOrder ranks rows by the position of their dictionary in ids.
func priorityOrder(ids []string) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(ids))
	b.WriteString("CASE dictionary_id")
	for i, id := range ids {
		fmt.Fprintf(&b, " WHEN ? THEN %d", i)
		args = append(args, id)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(ids))
	return b.String(), args
}

// matchQuery selects the rows matching key on field, ranked by dictionary
// priority, then frequency, then entry id.
func matchQuery(field dictionary.Field, key string, dictionaryIDs []string) sq.SelectBuilder {
	order, orderArgs := priorityOrder(dictionaryIDs)
	return sq.Select("dictionary_id", "entry_id", "payload").
		From("entries").
		Where(sq.Eq{string(field): key, "dictionary_id": dictionaryIDs}).
		OrderByClause(order, orderArgs...).
		OrderBy("frequency DESC", "entry_id ASC")
}

func checkField(field dictionary.Field) error {
	switch field {
	case dictionary.FieldExpression, dictionary.FieldReading:
		return nil
	}
	return fmt.Errorf("unknown query field %q", field)
}

func (s *SQLiteStore) query(ctx context.Context, field dictionary.Field, term string, dictionaryIDs []string) (*dictionary.Entry, error) {
	key := dictionary.Normalize(term)
	if key == "" || len(dictionaryIDs) == 0 {
		return nil, nil
	}
	query, args, err := matchQuery(field, key, dictionaryIDs).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	var (
		dictID  string
		entryID int64
		payload string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&dictID, &entryID, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query by %s: %w", field, err)
	}
	return fromPayload(dictID, entryID, payload)
}

// Homographs implements dictionary.Reader.
func (s *SQLiteStore) Homographs(ctx context.Context, field dictionary.Field, term string, dictionaryIDs []string) ([]dictionary.Entry, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	key := dictionary.Normalize(term)
	if key == "" || len(dictionaryIDs) == 0 {
		return nil, nil
	}
	query, args, err := matchQuery(field, key, dictionaryIDs).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query homographs by %s: %w", field, err)
	}
	defer rows.Close()
	var out []dictionary.Entry
	for rows.Next() {
		var (
			dictID  string
			entryID int64
			payload string
		)
		if err := rows.Scan(&dictID, &entryID, &payload); err != nil {
			return nil, err
		}
		e, err := fromPayload(dictID, entryID, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Count implements dictionary.Reader.
func (s *SQLiteStore) Count(ctx context.Context, dictionaryID string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("entries").Where(sq.Eq{"dictionary_id": dictionaryID}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// insertRows upserts rows into table. keyCol/keyVal name the column that
// scopes the rows (dictionary_id for entries, import_id for staging).
func insertRows(ctx context.Context, exec DBExecutor, table, keyCol, keyVal string, rows []entryRow) error {
	for start := 0; start < len(rows); start += rowsPerInsert {
		end := start + rowsPerInsert
		if end > len(rows) {
			end = len(rows)
		}
		ins := sq.Insert(table).Columns(keyCol, "entry_id", "expression", "reading", "frequency", "payload")
		for _, r := range rows[start:end] {
			ins = ins.Values(keyVal, r.EntryID, r.Expression, r.Reading, r.Frequency, r.Payload)
		}
		ins = ins.Suffix(fmt.Sprintf(`ON CONFLICT(%s, entry_id) DO UPDATE SET
			expression = excluded.expression,
			reading = excluded.reading,
			frequency = excluded.frequency,
			payload = excluded.payload`, keyCol))
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func refreshEntryCount(ctx context.Context, exec DBExecutor, dictionaryID string) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE dictionaries SET entry_count = (SELECT COUNT(*) FROM entries WHERE dictionary_id = ?) WHERE id = ?`,
		dictionaryID, dictionaryID)
	return err
}

// InsertAll implements dictionary.Writer. Each dictionary's rows go in one
// transaction; dictionaries seen for the first time get a metadata row
// titled after their id.
func (s *SQLiteStore) InsertAll(ctx context.Context, entries []dictionary.Entry) error {
	groups := make(map[string][]entryRow)
	var order []string
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		row, err := toRow(e)
		if err != nil {
			return err
		}
		if _, ok := groups[e.DictionaryID]; !ok {
			order = append(order, e.DictionaryID)
		}
		groups[e.DictionaryID] = append(groups[e.DictionaryID], row)
	}
	for _, id := range order {
		if err := s.insertGroup(ctx, id, groups[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) insertGroup(ctx context.Context, dictionaryID string, rows []entryRow) error {
	unlock := s.writes.Lock(dictionaryID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	if err := insertRows(ctx, tx, "entries", "dictionary_id", dictionaryID, rows); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dictionaries (id, title, imported_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		dictionaryID, dictionaryID, time.Now().UTC()); err != nil {
		return fmt.Errorf("register dictionary: %w", err)
	}
	if err := refreshEntryCount(ctx, tx, dictionaryID); err != nil {
		return fmt.Errorf("update entry count: %w", err)
	}
	return tx.Commit()
}

// DeleteDictionary implements dictionary.Writer.
func (s *SQLiteStore) DeleteDictionary(ctx context.Context, dictionaryID string) error {
	unlock := s.writes.Lock(dictionaryID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	for _, table := range []struct{ name, col string }{
		{"entries", "dictionary_id"},
		{"lookup_counts", "dictionary_id"},
		{"dictionaries", "id"},
	} {
		query, args, err := sq.Delete(table.name).Where(sq.Eq{table.col: dictionaryID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete from %s: %w", table.name, err)
		}
	}
	return tx.Commit()
}

// Dictionaries implements dictionary.Store.
func (s *SQLiteStore) Dictionaries(ctx context.Context) ([]dictionary.Info, error) {
	query, args, err := sq.Select("id", "title", "revision", "author", "description", "entry_count", "skipped_count", "imported_at").
		From("dictionaries").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}
	defer rows.Close()
	var out []dictionary.Info
	for rows.Next() {
		var info dictionary.Info
		if err := rows.Scan(&info.ID, &info.Title, &info.Revision, &info.Author, &info.Description,
			&info.EntryCount, &info.SkippedCount, &info.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BeginImport implements dictionary.Writer. Entries are staged under a
// fresh import id and only swapped into the entries table on Commit, so
// other writers can interleave with a long import and a failed import
// leaves nothing behind.
func (s *SQLiteStore) BeginImport(ctx context.Context, dictionaryID string) (dictionary.ImportBatch, error) {
	if strings.TrimSpace(dictionaryID) == "" {
		return nil, fmt.Errorf("%w: blank dictionary id", dictionary.ErrInvalidEntry)
	}
	unlock := s.writes.Lock(dictionaryID)
	return &importBatch{
		store:        s,
		dictionaryID: dictionaryID,
		importID:     uuid.NewString(),
		unlock:       unlock,
	}, nil
}

type importBatch struct {
	store        *SQLiteStore
	dictionaryID string
	importID     string
	unlock       func()
	done         bool
}

func (b *importBatch) Add(ctx context.Context, entries ...dictionary.Entry) error {
	if b.done {
		return fmt.Errorf("import batch already finished")
	}
	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		e.DictionaryID = b.dictionaryID
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		row, err := toRow(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	if err := insertRows(ctx, tx, "import_staging", "import_id", b.importID, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *importBatch) Commit(ctx context.Context, info dictionary.Info) error {
	if b.done {
		return fmt.Errorf("import batch already finished")
	}
	b.done = true
	defer b.unlock()
	if err := b.swap(ctx, info); err != nil {
		_ = b.discard()
		return err
	}
	return nil
}

// swap replaces the dictionary's entries with the staged rows and saves
// its metadata in one transaction.
func (b *importBatch) swap(ctx context.Context, info dictionary.Info) error {
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	steps := []struct {
		what  string
		query string
		args  []interface{}
	}{
		{"clear entries", `DELETE FROM entries WHERE dictionary_id = ?`, []interface{}{b.dictionaryID}},
		{"move staged entries", `INSERT INTO entries (dictionary_id, entry_id, expression, reading, frequency, payload)
			SELECT ?, entry_id, expression, reading, frequency, payload FROM import_staging WHERE import_id = ?`,
			[]interface{}{b.dictionaryID, b.importID}},
		{"clear staging", `DELETE FROM import_staging WHERE import_id = ?`, []interface{}{b.importID}},
	}
	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("%s: %w", st.what, err)
		}
	}

	if info.ImportedAt.IsZero() {
		info.ImportedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO dictionaries (id, title, revision, author, description, entry_count, skipped_count, imported_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			revision = excluded.revision,
			author = excluded.author,
			description = excluded.description,
			skipped_count = excluded.skipped_count,
			imported_at = excluded.imported_at`,
		b.dictionaryID, info.Title, info.Revision, info.Author, info.Description, info.SkippedCount, info.ImportedAt.UTC())
	if err != nil {
		return fmt.Errorf("save dictionary metadata: %w", err)
	}
	if err := refreshEntryCount(ctx, tx, b.dictionaryID); err != nil {
		return fmt.Errorf("update entry count: %w", err)
	}
	return tx.Commit()
}

func (b *importBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	defer b.unlock()
	return b.discard()
}

// discard drops the staged rows. It runs on a fresh context so a
// cancelled import still cleans up.
func (b *importBatch) discard() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := b.store.db.ExecContext(ctx, `DELETE FROM import_staging WHERE import_id = ?`, b.importID)
	return err
}
