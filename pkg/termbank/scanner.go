package termbank

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Scanner streams the elements of a top-level JSON array one at a time,
// tracking bracket depth and string quoting, so memory stays bounded by
// the largest single element. It does not validate element contents;
// that is left to ConvertRecord.
type Scanner struct {
	r       *bufio.Reader
	buf     []byte
	started bool
	done    bool
	record  json.RawMessage
	index   int
	err     error
}

// NewScanner reads a JSON array from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64<<10), index: -1}
}

// Scan advances to the next element. It returns false at the end of the
// array or on error.
func (s *Scanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}
	if !s.started {
		s.started = true
		b, err := s.skipSpace()
		if err != nil {
			s.fail(err, "missing top-level array")
			return false
		}
		if b != '[' {
			s.err = fmt.Errorf("%w: top-level value starts with %q, want '['", ErrCorruptFile, b)
			return false
		}
		b, err = s.skipSpace()
		if err != nil {
			s.fail(err, "unterminated array")
			return false
		}
		if b == ']' {
			s.done = true
			return false
		}
		_ = s.r.UnreadByte()
	} else {
		b, err := s.skipSpace()
		if err != nil {
			s.fail(err, "unterminated array")
			return false
		}
		switch b {
		case ']':
			s.done = true
			return false
		case ',':
		default:
			s.err = fmt.Errorf("%w: unexpected %q between elements", ErrCorruptFile, b)
			return false
		}
	}
	return s.readElement()
}

func (s *Scanner) readElement() bool {
	s.buf = s.buf[:0]
	depth := 0
	inString, escaped := false, false
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			s.fail(err, "unterminated element")
			return false
		}
		if inString {
			s.buf = append(s.buf, b)
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
				if depth == 0 {
					return s.emit()
				}
			}
			continue
		}
		switch b {
		case '"':
			inString = true
			s.buf = append(s.buf, b)
		case '[', '{':
			depth++
			s.buf = append(s.buf, b)
		case ']', '}':
			if depth == 0 {
				_ = s.r.UnreadByte()
				return s.emit()
			}
			depth--
			s.buf = append(s.buf, b)
			if depth == 0 {
				return s.emit()
			}
		case ',':
			if depth == 0 {
				_ = s.r.UnreadByte()
				return s.emit()
			}
			s.buf = append(s.buf, b)
		case ' ', '\t', '\n', '\r':
			if depth == 0 {
				if len(s.buf) > 0 {
					return s.emit()
				}
				continue
			}
			s.buf = append(s.buf, b)
		default:
			s.buf = append(s.buf, b)
		}
	}
}

func (s *Scanner) emit() bool {
	if len(s.buf) == 0 {
		s.err = fmt.Errorf("%w: empty array element", ErrCorruptFile)
		return false
	}
	s.record = append(json.RawMessage(nil), s.buf...)
	s.index++
	return true
}

func (s *Scanner) fail(err error, what string) {
	if errors.Is(err, io.EOF) {
		s.err = fmt.Errorf("%w: %s", ErrCorruptFile, what)
		return
	}
	s.err = err
}

func (s *Scanner) skipSpace() (byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case 0xEF:
			// UTF-8 byte order mark
			if next, err := s.r.Peek(2); err == nil && next[0] == 0xBB && next[1] == 0xBF {
				_, _ = s.r.Discard(2)
				continue
			}
		}
		return b, nil
	}
}

// Record returns the raw bytes of the current element.
func (s *Scanner) Record() json.RawMessage { return s.record }

// Index returns the 0-based position of the current element.
func (s *Scanner) Index() int { return s.index }

// Err returns the first error met, if any. Structural problems wrap
// ErrCorruptFile.
func (s *Scanner) Err() error { return s.err }
