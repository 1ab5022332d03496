package termbank

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Fetch makes sure a dictionary file exists at dest, downloading it from
// url when it does not. Tarballs (.tgz, .tar.gz) are unpacked and their
// first .zip or .json member is kept.
func Fetch(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	log.Info().Str("url", url).Str("dest", dest).Msg("dictionary not found locally, downloading")

	client := &http.Client{Timeout: 10 * time.Minute}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "tapdict")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if strings.HasSuffix(url, ".tgz") || strings.HasSuffix(url, ".tar.gz") {
		member, err := tarMember(resp.Body)
		if err != nil {
			return err
		}
		body = member
	}
	return writeAtomic(dest, body)
}

func tarMember(r io.Reader) (io.Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no dictionary file found in downloaded archive")
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if strings.HasSuffix(header.Name, ".zip") || strings.HasSuffix(header.Name, ".json") {
			return tr, nil
		}
	}
}

// writeAtomic copies r into a temp file next to dest and renames it, so a
// failed download never leaves a truncated dictionary behind.
func writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
