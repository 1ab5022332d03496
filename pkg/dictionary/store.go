package dictionary

import (
	"context"
	"time"
)

// Info describes an imported dictionary.
type Info struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Revision     string    `json:"revision,omitempty"`
	Author       string    `json:"author,omitempty"`
	Description  string    `json:"description,omitempty"`
	EntryCount   int       `json:"entryCount"`
	SkippedCount int       `json:"skippedCount"`
	ImportedAt   time.Time `json:"importedAt"`
}

// Field names the index a query runs against.
type Field string

const (
	FieldExpression Field = "expression"
	FieldReading    Field = "reading"
)

// Reader answers exact queries. dictionaryIDs is the enabled set in
// priority order: the first id with a hit wins, and within one dictionary
// the entry with the highest frequency (then lowest id) wins. A miss is
// (nil, nil).
type Reader interface {
	QueryByExpression(ctx context.Context, term string, dictionaryIDs []string) (*Entry, error)
	QueryByReading(ctx context.Context, term string, dictionaryIDs []string) (*Entry, error)
	// Homographs returns every entry matching term on field, in the order
	// the single-entry queries rank them. The first element is the entry
	// QueryByExpression or QueryByReading would return.
	Homographs(ctx context.Context, field Field, term string, dictionaryIDs []string) ([]Entry, error)
	Count(ctx context.Context, dictionaryID string) (int, error)
}

// ImportBatch receives the entries of one dictionary import. Nothing added
// to a batch is visible to readers until Commit; Rollback discards it and
// leaves the previous contents of the dictionary in place.
type ImportBatch interface {
	Add(ctx context.Context, entries ...Entry) error
	Commit(ctx context.Context, info Info) error
	Rollback() error
}

// Writer mutates the store. Writes to one dictionary id are exclusive with
// each other but do not block reads or writes on other ids.
type Writer interface {
	// InsertAll upserts entries keyed by (DictionaryID, ID).
	InsertAll(ctx context.Context, entries []Entry) error
	DeleteDictionary(ctx context.Context, dictionaryID string) error
	// BeginImport starts a delete-then-insert replacement of dictionaryID.
	BeginImport(ctx context.Context, dictionaryID string) (ImportBatch, error)
}

// Store is a complete dictionary store.
type Store interface {
	Reader
	Writer
	Dictionaries(ctx context.Context) ([]Info, error)
	Close() error
}
