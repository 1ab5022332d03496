package dictionary

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps every dictionary in process memory. Each dictionary
// has its own expression and reading index; readers take a read lock only
// long enough to resolve the dictionary pointer.
type MemoryStore struct {
	mu     sync.RWMutex
	dicts  map[string]*memDict
	writes KeyedMutex
}

type memDict struct {
	// Key: normalized expression or reading, Value: entry ids
	info         Info
	entries      map[int64]Entry
	byExpression map[string][]int64
	byReading    map[string][]int64
}

func newMemDict(id string) *memDict {
	return &memDict{
		info:         Info{ID: id},
		entries:      make(map[int64]Entry),
		byExpression: make(map[string][]int64),
		byReading:    make(map[string][]int64),
	}
}

func (d *memDict) put(e Entry) {
	if old, ok := d.entries[e.ID]; ok {
		d.byExpression[Normalize(old.Expression)] = removeID(d.byExpression[Normalize(old.Expression)], e.ID)
		d.byReading[Normalize(old.Reading)] = removeID(d.byReading[Normalize(old.Reading)], e.ID)
	}
	d.entries[e.ID] = e
	if e.HasExpression() {
		k := Normalize(e.Expression)
		d.byExpression[k] = append(d.byExpression[k], e.ID)
	}
	k := Normalize(e.Reading)
	d.byReading[k] = append(d.byReading[k], e.ID)
}

func (d *memDict) clone() *memDict {
	c := newMemDict(d.info.ID)
	c.info = d.info
	for id, e := range d.entries {
		c.entries[id] = e
	}
	for k, ids := range d.byExpression {
		c.byExpression[k] = append([]int64(nil), ids...)
	}
	for k, ids := range d.byReading {
		c.byReading[k] = append([]int64(nil), ids...)
	}
	return c
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dicts: make(map[string]*memDict)}
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) dict(id string) *memDict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dicts[id]
}

// QueryByExpression implements Reader.
func (s *MemoryStore) QueryByExpression(ctx context.Context, term string, dictionaryIDs []string) (*Entry, error) {
	return s.query(ctx, term, dictionaryIDs, func(d *memDict) map[string][]int64 { return d.byExpression })
}

// QueryByReading implements Reader.
func (s *MemoryStore) QueryByReading(ctx context.Context, term string, dictionaryIDs []string) (*Entry, error) {
	return s.query(ctx, term, dictionaryIDs, func(d *memDict) map[string][]int64 { return d.byReading })
}

func (s *MemoryStore) query(ctx context.Context, term string, dictionaryIDs []string, index func(*memDict) map[string][]int64) (*Entry, error) {
	key := Normalize(term)
	if key == "" {
		return nil, nil
	}
	for _, id := range dictionaryIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := s.dict(id)
		if d == nil {
			continue
		}
		ids := index(d)[key]
		if len(ids) == 0 {
			continue
		}
		best := rank(d, ids)[0]
		return &best, nil
	}
	return nil, nil
}

// Homographs implements Reader.
func (s *MemoryStore) Homographs(ctx context.Context, field Field, term string, dictionaryIDs []string) ([]Entry, error) {
	var index func(*memDict) map[string][]int64
	switch field {
	case FieldExpression:
		index = func(d *memDict) map[string][]int64 { return d.byExpression }
	case FieldReading:
		index = func(d *memDict) map[string][]int64 { return d.byReading }
	default:
		return nil, fmt.Errorf("unknown query field %q", field)
	}
	key := Normalize(term)
	if key == "" {
		return nil, nil
	}
	var out []Entry
	for _, id := range dictionaryIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := s.dict(id)
		if d == nil {
			continue
		}
		if ids := index(d)[key]; len(ids) > 0 {
			out = append(out, rank(d, ids)...)
		}
	}
	return out, nil
}

// rank orders homographs: highest frequency first, then lowest id.
func rank(d *memDict, ids []int64) []Entry {
	matches := make([]Entry, 0, len(ids))
	for _, id := range ids {
		matches = append(matches, d.entries[id])
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Frequency != matches[j].Frequency {
			return matches[i].Frequency > matches[j].Frequency
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

// Count implements Reader.
func (s *MemoryStore) Count(ctx context.Context, dictionaryID string) (int, error) {
	d := s.dict(dictionaryID)
	if d == nil {
		return 0, nil
	}
	return len(d.entries), nil
}

// InsertAll implements Writer. Entries are grouped by dictionary and each
// dictionary is swapped in as a whole, so readers never observe a partial
// group.
func (s *MemoryStore) InsertAll(ctx context.Context, entries []Entry) error {
	groups := make(map[string][]Entry)
	var order []string
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if _, ok := groups[e.DictionaryID]; !ok {
			order = append(order, e.DictionaryID)
		}
		groups[e.DictionaryID] = append(groups[e.DictionaryID], e)
	}
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		unlock := s.writes.Lock(id)
		var next *memDict
		if cur := s.dict(id); cur != nil {
			next = cur.clone()
		} else {
			next = newMemDict(id)
			next.info.ImportedAt = time.Now()
		}
		for _, e := range groups[id] {
			next.put(e)
		}
		next.info.EntryCount = len(next.entries)
		s.mu.Lock()
		s.dicts[id] = next
		s.mu.Unlock()
		unlock()
	}
	return nil
}

// DeleteDictionary implements Writer.
func (s *MemoryStore) DeleteDictionary(ctx context.Context, dictionaryID string) error {
	unlock := s.writes.Lock(dictionaryID)
	defer unlock()
	s.mu.Lock()
	delete(s.dicts, dictionaryID)
	s.mu.Unlock()
	return nil
}

// BeginImport implements Writer. The lock on dictionaryID is held until
// the batch is committed or rolled back.
func (s *MemoryStore) BeginImport(ctx context.Context, dictionaryID string) (ImportBatch, error) {
	if dictionaryID == "" {
		return nil, fmt.Errorf("%w: blank dictionary id", ErrInvalidEntry)
	}
	unlock := s.writes.Lock(dictionaryID)
	return &memBatch{store: s, next: newMemDict(dictionaryID), unlock: unlock}, nil
}

// Dictionaries implements Store.
func (s *MemoryStore) Dictionaries(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.dicts))
	for _, d := range s.dicts {
		out = append(out, d.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memBatch struct {
	store  *MemoryStore
	next   *memDict
	unlock func()
	done   bool
}

func (b *memBatch) Add(ctx context.Context, entries ...Entry) error {
	if b.done {
		return fmt.Errorf("import batch already finished")
	}
	for _, e := range entries {
		e.DictionaryID = b.next.info.ID
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		b.next.put(e)
	}
	return nil
}

func (b *memBatch) Commit(ctx context.Context, info Info) error {
	if b.done {
		return fmt.Errorf("import batch already finished")
	}
	b.done = true
	defer b.unlock()
	info.ID = b.next.info.ID
	info.EntryCount = len(b.next.entries)
	if info.ImportedAt.IsZero() {
		info.ImportedAt = time.Now()
	}
	b.next.info = info
	b.store.mu.Lock()
	b.store.dicts[info.ID] = b.next
	b.store.mu.Unlock()
	return nil
}

func (b *memBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	b.unlock()
	return nil
}
