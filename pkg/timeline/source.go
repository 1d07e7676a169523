package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// TimelineContentType identifies a storage timeline payload on the wire.
const TimelineContentType = "application/storage-timeline"

// Request describes one retrieval.
type Request struct {
	// Location is a URL, a filesystem path or a Redis key depending on the Fetcher.
	Location string

	// ContentType, when set, is sent with network requests to identify the payload.
	ContentType string
}

// Fetcher retrieves raw bytes for a location. Every call returns a fresh
// buffer owned by the caller. Failures are reported as *AssetFetchError.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// SourceKind names a Fetcher variant.
type SourceKind string

const (
	SourceHTTP  SourceKind = "http"
	SourceFile  SourceKind = "file"
	SourceRedis SourceKind = "redis"
)

// DetectSource picks a source kind from the location's scheme.
// Intended for host applications choosing a Fetcher once at startup.
func DetectSource(location string) SourceKind {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceHTTP
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return SourceRedis
	default:
		return SourceFile
	}
}

// HTTPFetcher retrieves bytes with GET requests.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch performs a GET for req.Location and reads the whole response body.
// Any non-2xx status is an AssetFetchError carrying that status.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Location, nil)
	if err != nil {
		return nil, &AssetFetchError{Location: req.Location, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &AssetFetchError{Location: req.Location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AssetFetchError{
			Location:   req.Location,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AssetFetchError{
			Location:   req.Location,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return data, nil
}

// FileFetcher reads bytes from the local filesystem.
// Relative locations are resolved against Root when it is set.
type FileFetcher struct {
	Root string
}

// NewFileFetcher returns a fetcher resolving relative paths against root.
// An empty root means the process working directory.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{Root: root}
}

// Fetch reads the file named by req.Location. ContentType is ignored.
func (f *FileFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AssetFetchError{Location: req.Location, Err: err}
	}

	path := strings.TrimPrefix(req.Location, "file://")
	if f.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		status := "read failed"
		if errors.Is(err, fs.ErrNotExist) {
			status = "not found"
		}
		return nil, &AssetFetchError{Location: req.Location, Status: status, Err: err}
	}

	return data, nil
}
