package termbank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/japaniel/tapdict/pkg/dictionary"
	"github.com/rs/zerolog/log"
)

// DefaultStreamThreshold is the input size from which term banks are
// streamed instead of decoded at once.
const DefaultStreamThreshold = 10 << 20

// maxSamples caps how many skipped records are kept for reporting.
const maxSamples = 10

// RecordFunc receives the 0-based index and raw bytes of one record.
type RecordFunc func(index int, raw json.RawMessage) error

// Records calls fn for every element of the top-level array read from r.
// Inputs whose size is known and below threshold are decoded in one go;
// anything else is streamed with a Scanner. Both paths hand fn the same
// elements. An error from fn stops the iteration and is returned as is.
func Records(r io.Reader, size, threshold int64, fn RecordFunc) error {
	if size >= 0 && size < threshold {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return recordsFromBytes(data, fn)
	}
	return streamRecords(r, fn)
}

func recordsFromBytes(data []byte, fn RecordFunc) error {
	if !json.Valid(data) {
		// Let the scanner decide what is salvageable so both paths agree
		// on damaged input.
		return streamRecords(bytes.NewReader(data), fn)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	for i, raw := range elems {
		if err := fn(i, raw); err != nil {
			return err
		}
	}
	return nil
}

func streamRecords(r io.Reader, fn RecordFunc) error {
	sc := NewScanner(r)
	for sc.Scan() {
		if err := fn(sc.Index(), sc.Record()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Skip records one record that could not be converted.
type Skip struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Stats counts the outcome of a parse.
type Stats struct {
	Records  int    `json:"records"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Samples  []Skip `json:"samples,omitempty"`
}

// AddSkip counts a skipped record, keeping the first few as samples.
func (s *Stats) AddSkip(index int, err error) {
	s.Skipped++
	if len(s.Samples) < maxSamples {
		s.Samples = append(s.Samples, Skip{Index: index, Error: err.Error()})
	}
}

// Parse decodes a whole term bank held in r. Entry ids are the 1-based
// record positions. Malformed records are logged, counted and skipped.
func Parse(r io.Reader, dictionaryID string) ([]dictionary.Entry, Stats, error) {
	return parse(r, -1, 0, dictionaryID, true)
}

// ParseStream is Parse over the streaming path.
func ParseStream(r io.Reader, dictionaryID string) ([]dictionary.Entry, Stats, error) {
	return parse(r, -1, 0, dictionaryID, false)
}

// ParseFile parses the term bank at path, streaming it when it is at
// least threshold bytes.
func ParseFile(path, dictionaryID string, threshold int64) ([]dictionary.Entry, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, Stats{}, err
	}
	return parse(f, fi.Size(), threshold, dictionaryID, false)
}

func parse(r io.Reader, size, threshold int64, dictionaryID string, whole bool) ([]dictionary.Entry, Stats, error) {
	var (
		entries []dictionary.Entry
		stats   Stats
	)
	fn := func(i int, raw json.RawMessage) error {
		stats.Records++
		e, err := ConvertRecord(dictionaryID, int64(i)+1, raw)
		if err != nil {
			log.Warn().Str("dictionary", dictionaryID).Int("index", i).Err(err).Msg("skipping term bank record")
			stats.AddSkip(i, err)
			return nil
		}
		stats.Imported++
		entries = append(entries, e)
		return nil
	}
	var err error
	if whole {
		var data []byte
		if data, err = io.ReadAll(r); err == nil {
			err = recordsFromBytes(data, fn)
		}
	} else {
		err = Records(r, size, threshold, fn)
	}
	if err != nil {
		return nil, stats, err
	}
	return entries, stats, nil
}
