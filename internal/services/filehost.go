package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultContentType = "application/octet-stream"

// FileUpload is a binary handed to the external file host. Inline uploads carry Data;
// fetched files are spooled to a temp file that Close removes.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte

	spool     *os.File
	spoolSize int64
}

// Size is the recorded byte size of the upload.
func (u FileUpload) Size() int64 {
	if u.spool != nil {
		return u.spoolSize
	}
	return int64(len(u.Data))
}

// Reader returns a fresh reader over the content. Each call starts at the first byte.
func (u FileUpload) Reader() io.Reader {
	if u.spool != nil {
		return io.NewSectionReader(u.spool, 0, u.spoolSize)
	}
	return bytes.NewReader(u.Data)
}

// Close releases the spool file, if any.
func (u FileUpload) Close() error {
	if u.spool == nil {
		return nil
	}
	closeErr := u.spool.Close()
	if err := os.Remove(u.spool.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}

// FileHost stores binaries and returns a retrieval URL.
type FileHost interface {
	Upload(ctx context.Context, file FileUpload) (string, error)
}

// Fetcher downloads an arbitrary http(s) URL for re-hosting.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, maxBytes int64) (*FileUpload, error)
}

// errFetchTooLarge is returned when the remote body exceeds maxBytes.
var errFetchTooLarge = errors.New("remote file exceeds byte limit")

// URLFetcher fetches files server-side for the URL upload path. Bodies are streamed
// to a temp file, never held in memory.
type URLFetcher struct {
	client *http.Client
	dir    string // temp dir for spool files; "" uses os.TempDir
}

func NewURLFetcher(timeout time.Duration) *URLFetcher {
	return &URLFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch copies at most maxBytes of the body to a spool file and stops reading at
// maxBytes+1. Name comes from the last path segment, content type from the response.
// The caller must Close the returned upload.
func (f *URLFetcher) Fetch(ctx context.Context, rawURL string, maxBytes int64) (*FileUpload, error) {
	u, err := parseHTTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, invalid("url", "Please provide a valid http(s) URL.")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", errFetchFailed, resp.StatusCode)
	}

	if resp.ContentLength > maxBytes {
		return nil, errFetchTooLarge
	}

	spool, err := os.CreateTemp(f.dir, "url-upload-*")
	if err != nil {
		return nil, err
	}
	upload := &FileUpload{
		Name:        fileNameFromURL(u),
		ContentType: contentTypeOf(resp.Header.Get("Content-Type")),
		spool:       spool,
	}

	n, err := io.Copy(spool, io.LimitReader(resp.Body, maxBytes+1))
	upload.spoolSize = n
	switch {
	case err != nil:
		_ = upload.Close()
		return nil, fmt.Errorf("%w: %w", errFetchFailed, err)
	case n > maxBytes:
		_ = upload.Close()
		return nil, errFetchTooLarge
	}
	return upload, nil
}

var errFetchFailed = fail(ErrFetchFailed, "Failed to fetch the file from the provided URL.")

func parseHTTPURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalid("url", "Please provide a valid http(s) URL.")
	}
	return u, nil
}

func fileNameFromURL(u *url.URL) string {
	p := u.Path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "untitled"
	}
	return p
}

func contentTypeOf(header string) string {
	if header == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return defaultContentType
	}
	return mediaType
}
