package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/go-shiori/go-readability"
)

// MaxBodySize limits how much of a fetched page is read.
const MaxBodySize = 10 * 1024 * 1024

// Article is the readable text of a web page.
type Article struct {
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	SiteName string `json:"siteName,omitempty"`
	Text     string `json:"text"`
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Readability keeps furigana otherwise, so "漢字" would
// come out as "漢字かんじ" and break longest-match lookups.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// ExtractArticle runs readability over an HTML document after stripping
// ruby annotations. pageURL resolves relative links and may be empty.
func ExtractArticle(r io.Reader, pageURL string) (*Article, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("html exceeds %d bytes", MaxBodySize)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	art, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), u)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	return &Article{
		Title:    art.Title,
		Byline:   art.Byline,
		SiteName: art.SiteName,
		Text:     art.TextContent,
	}, nil
}

// FetchArticle downloads pageURL and extracts its article. A nil client
// uses one with a 30 second timeout.
func FetchArticle(ctx context.Context, client *http.Client, pageURL string) (*Article, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Some news sites refuse requests without browser headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("fetch %s: content length %d exceeds %d bytes", pageURL, resp.ContentLength, MaxBodySize)
	}
	return ExtractArticle(resp.Body, pageURL)
}
