package termbank

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var bankPattern = regexp.MustCompile(`^term_bank_(\d+)\.json$`)

// Index is the index.json metadata of a dictionary archive.
type Index struct {
	Title       string `json:"title"`
	Format      int    `json:"format"`
	Version     int    `json:"version"`
	Revision    string `json:"revision"`
	Sequenced   bool   `json:"sequenced"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Attribution string `json:"attribution"`
}

// Bank is one term-bank file inside a source.
type Bank struct {
	Name string
	Size int64
	open func() (io.ReadCloser, error)
}

// Open returns a reader over the bank contents.
func (b Bank) Open() (io.ReadCloser, error) { return b.open() }

// Source is a dictionary ready to be read: an archive with its index, or a
// single loose term-bank file.
type Source struct {
	Index  Index
	Banks  []Bank
	closer io.Closer
}

// Open opens a .zip archive or a single .json term bank. A loose file is
// titled after its base name.
func Open(p string) (*Source, error) {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		zr, err := zip.OpenReader(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
		src, err := fromZip(&zr.Reader)
		if err != nil {
			zr.Close()
			return nil, err
		}
		src.closer = zr
		return src, nil
	}
	fi, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	return &Source{
		Index: Index{Title: title},
		Banks: []Bank{{
			Name: filepath.Base(p),
			Size: fi.Size(),
			open: func() (io.ReadCloser, error) { return os.Open(p) },
		}},
	}, nil
}

// OpenArchive reads a zip archive from r.
func OpenArchive(r io.ReaderAt, size int64) (*Source, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return fromZip(zr)
}

func fromZip(zr *zip.Reader) (*Source, error) {
	src := &Source{}
	type numbered struct {
		n int
		f *zip.File
	}
	var banks []numbered
	foundIndex := false
	for _, f := range zr.File {
		base := path.Base(f.Name)
		if base == "index.json" {
			if err := readIndex(f, &src.Index); err != nil {
				return nil, err
			}
			foundIndex = true
			continue
		}
		if m := bankPattern.FindStringSubmatch(base); m != nil {
			n, _ := strconv.Atoi(m[1])
			banks = append(banks, numbered{n: n, f: f})
		}
	}
	if !foundIndex {
		return nil, fmt.Errorf("%w: archive has no index.json", ErrCorruptFile)
	}
	if len(banks) == 0 {
		return nil, fmt.Errorf("%w: archive has no term banks", ErrCorruptFile)
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].n < banks[j].n })
	for _, b := range banks {
		f := b.f
		src.Banks = append(src.Banks, Bank{
			Name: f.Name,
			Size: int64(f.UncompressedSize64),
			open: f.Open,
		})
	}
	if src.Index.Format == 0 {
		src.Index.Format = src.Index.Version
	}
	return src, nil
}

func readIndex(f *zip.File, idx *Index) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: index.json: %v", ErrCorruptFile, err)
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(idx); err != nil {
		return fmt.Errorf("%w: index.json: %v", ErrCorruptFile, err)
	}
	return nil
}

// Each calls fn for every record of every bank in order. Indexes run on
// across banks, so the first record of the second bank follows the last
// record of the first.
func (s *Source) Each(threshold int64, fn RecordFunc) error {
	offset := 0
	for _, b := range s.Banks {
		rc, err := b.Open()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptFile, b.Name, err)
		}
		count := 0
		err = Records(rc, b.Size, threshold, func(i int, raw json.RawMessage) error {
			count = i + 1
			return fn(offset+i, raw)
		})
		rc.Close()
		if err != nil {
			if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
				return fmt.Errorf("%w: %s: %v", ErrCorruptFile, b.Name, err)
			}
			return fmt.Errorf("%s: %w", b.Name, err)
		}
		offset += count
	}
	return nil
}

// Close releases the underlying archive, if any.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
