package db

import "time"

// LookupStat is the lookup counter kept for one entry. It is owned by the
// presentation side: the lookup path never writes it on its own.
type LookupStat struct {
	DictionaryID string    `json:"dictionaryId"`
	EntryID      int64     `json:"entryId"`
	Expression   string    `json:"expression,omitempty"`
	Reading      string    `json:"reading"`
	Count        int       `json:"count"`
	LastLookedUp time.Time `json:"lastLookedUp"`
}

// entryRow is the indexed projection of an entry. Payload holds the full
// entry as JSON.
type entryRow struct {
	EntryID    int64
	Expression string
	Reading    string
	Frequency  int
	Payload    string
}
