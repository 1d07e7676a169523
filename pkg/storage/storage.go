// Package storage is a client for the storage timeline HTTP service.
//
// A Storage holds named schemas, a schema holds named timelines, and a
// timeline holds time-stamped numbers, strings or JSON documents. Two API
// generations are supported: the path based v1 API and the query based v2 API
// served from Cloud Functions (selected automatically from the URI).
//
// In binary mode reads ask the service for the compact storage timeline
// encoding and hand those payloads to the parser module via a Parser,
// normally a *timeline.Loader.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

// v2Marker identifies v2 (Cloud Functions) service URIs.
const v2Marker = "cloudfunctions.net"

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Parser turns a binary timeline payload into a result.
// *timeline.Loader implements it.
type Parser interface {
	Parse(ctx context.Context, data []byte) (timeline.Result, error)
}

// Storage is the entry point to one storage timeline service.
// It is safe for concurrent use.
type Storage struct {
	uri    string
	client *http.Client
	parser Parser
}

// Option customizes a Storage.
type Option func(*Storage)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Storage) {
		s.client = client
	}
}

// WithParser enables binary mode: reads request the storage timeline encoding
// and binary responses are parsed with p.
func WithParser(p Parser) Option {
	return func(s *Storage) {
		s.parser = p
	}
}

// New creates a client for the service at uri.
func New(uri string, opts ...Option) (*Storage, error) {
	if uri == "" {
		return nil, &timeline.InvalidArgumentError{Argument: "uri", Reason: "must not be empty"}
	}
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &timeline.InvalidArgumentError{Argument: "uri", Reason: fmt.Sprintf("'%s' is not an absolute URL", uri)}
	}

	s := &Storage{
		uri:    strings.TrimRight(uri, "/"),
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URI returns the service URI without a trailing slash.
func (s *Storage) URI() string {
	return s.uri
}

// IsV2 reports whether the service speaks the v2 (Cloud Functions) API.
func (s *Storage) IsV2() bool {
	return strings.Contains(s.uri, v2Marker)
}

// Binary reports whether binary mode is enabled.
func (s *Storage) Binary() bool {
	return s.parser != nil
}

// List returns the service's schemas. Listing always uses JSON regardless of
// binary mode.
func (s *Storage) List(ctx context.Context) (timeline.Result, error) {
	endpoint := s.uri + "/storage/list"
	if s.IsV2() {
		endpoint = s.uri + "?action=storage-list"
	}

	req, err := s.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return s.do(req, false)
}

// Schema returns a handle for the named schema. No request is made.
func (s *Storage) Schema(name string) *Schema {
	return &Schema{storage: s, name: name}
}

// Schema groups timelines.
type Schema struct {
	storage *Storage
	name    string
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// List returns the schema's timelines as reported by the service.
// Listing always uses JSON regardless of binary mode.
func (s *Schema) List(ctx context.Context) (timeline.Result, error) {
	q := url.Values{}
	var endpoint string
	if s.storage.IsV2() {
		q.Set("action", "schema-list")
		q.Set("schema", s.name)
		endpoint = s.storage.uri
	} else {
		q.Set("schema", s.name)
		endpoint = s.storage.uri + "/schema/list"
	}

	req, err := s.storage.newRequest(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return s.storage.do(req, false)
}

// Timeline returns a handle for the named timeline. No request is made.
func (s *Schema) Timeline(name string) *Timeline {
	return &Timeline{schema: s, name: name}
}

// Timeline is a time series within a schema.
type Timeline struct {
	schema *Schema
	name   string
}

// Name returns the timeline name.
func (t *Timeline) Name() string {
	return t.name
}

// AllNumbers returns every numeric value of the timeline.
func (t *Timeline) AllNumbers(ctx context.Context) (timeline.Result, error) {
	return t.read(ctx, "number", "/timeline/all/numbers")
}

// AllStrings returns every string value of the timeline.
func (t *Timeline) AllStrings(ctx context.Context) (timeline.Result, error) {
	return t.read(ctx, "string", "/timeline/all/strings")
}

// AllDocuments returns every value of the timeline with its "value" field
// decoded as JSON. Values that are not valid JSON documents become nil.
func (t *Timeline) AllDocuments(ctx context.Context) ([]map[string]any, error) {
	result, err := t.read(ctx, "string", "/timeline/all/strings")
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := result.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	for _, item := range items {
		raw, ok := item["value"].(string)
		if !ok {
			item["value"] = nil
			continue
		}
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			item["value"] = nil
			continue
		}
		item["value"] = doc
	}
	return items, nil
}

// AddNumber appends a numeric value. at is an optional timestamp; when nil
// the service assigns one.
func (t *Timeline) AddNumber(ctx context.Context, value float64, at *int64) (timeline.Result, error) {
	return t.add(ctx, "number", "/timeline/add/number", strconv.FormatFloat(value, 'f', -1, 64), at)
}

// AddString appends a string value. at is an optional timestamp; when nil
// the service assigns one.
func (t *Timeline) AddString(ctx context.Context, value string, at *int64) (timeline.Result, error) {
	return t.add(ctx, "string", "/timeline/add/string", value, at)
}

func (t *Timeline) read(ctx context.Context, format, path string) (timeline.Result, error) {
	s := t.schema.storage

	q := url.Values{}
	q.Set("schema", t.schema.name)
	q.Set("timeLine", t.name)
	endpoint := s.uri + path
	if s.IsV2() {
		q.Set("format", format)
		endpoint = s.uri
	}

	req, err := s.newRequest(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if s.Binary() {
		req.Header.Set("Content-Type", timeline.TimelineContentType)
	}
	return s.do(req, s.Binary())
}

func (t *Timeline) add(ctx context.Context, format, path, value string, at *int64) (timeline.Result, error) {
	s := t.schema.storage

	form := url.Values{}
	form.Set("schema", t.schema.name)
	form.Set("timeLine", t.name)
	form.Set("value", value)
	if at != nil {
		form.Set("time", strconv.FormatInt(*at, 10))
	}
	endpoint := s.uri + path
	if s.IsV2() {
		form.Set("format", format)
		endpoint = s.uri
	}

	req, err := s.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, s.Binary())
}

func (s *Storage) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// do executes req. Binary payloads go through the parser when allowBinary is
// set; everything else must be JSON and is returned as is.
func (s *Storage) do(req *http.Request, allowBinary bool) (timeline.Result, error) {
	location := req.URL.String()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &timeline.AssetFetchError{Location: location, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &timeline.AssetFetchError{
			Location:   location,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &timeline.AssetFetchError{
			Location:   location,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	if allowBinary && strings.Contains(resp.Header.Get("Content-Type"), timeline.TimelineContentType) {
		return s.parser.Parse(req.Context(), data)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("response from '%s' is not valid JSON", location)
	}
	return timeline.Result(data), nil
}
