package timeline

import (
	"context"
	"errors"
	"fmt"
)

// ParseEntryPoint is the name of the module entry point the bridge calls.
const ParseEntryPoint = "parse"

// Loader fetches timeline payloads and hands them to the parser module.
// It never initializes the module itself. Loader is safe for concurrent use.
type Loader struct {
	modules *ModuleLoader
	fetcher Fetcher
}

// NewLoader creates a loader bound to an initialized (or soon to be
// initialized) ModuleLoader and the fetcher used for timeline data.
func NewLoader(modules *ModuleLoader, fetcher Fetcher) *Loader {
	return &Loader{
		modules: modules,
		fetcher: fetcher,
	}
}

// Load retrieves the payload at location and returns the module's parse
// result verbatim.
//
// The module must be initialized (*NotInitializedError otherwise, checked
// first) and location must be non-empty (*InvalidArgumentError). Neither
// check performs I/O. Retrieval failures are *AssetFetchError and are not
// retried. A missing entry point is *BridgeContractViolationError.
func (l *Loader) Load(ctx context.Context, location string) (Result, error) {
	parse, err := l.entryPoint()
	if err != nil {
		return nil, err
	}

	if location == "" {
		return nil, &InvalidArgumentError{Argument: "location", Reason: "must not be empty"}
	}

	if l.fetcher == nil {
		return nil, &MissingRuntimeSupportError{Capability: "timeline data fetcher"}
	}

	data, err := l.fetcher.Fetch(ctx, Request{Location: location, ContentType: TimelineContentType})
	if err != nil {
		var fetchErr *AssetFetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &AssetFetchError{Location: location, Err: err}
	}

	return l.call(ctx, parse, data)
}

// Parse hands data that the caller already holds to the module's parse entry
// point. The same initialization and contract rules as Load apply.
func (l *Loader) Parse(ctx context.Context, data []byte) (Result, error) {
	parse, err := l.entryPoint()
	if err != nil {
		return nil, err
	}
	return l.call(ctx, parse, data)
}

func (l *Loader) entryPoint() (ParseFunc, error) {
	if l.modules == nil {
		return nil, &NotInitializedError{}
	}

	parse, ready := l.modules.entryPoint()
	if !ready {
		return nil, &NotInitializedError{}
	}
	if parse == nil {
		return nil, &BridgeContractViolationError{
			EntryPoint: ParseEntryPoint,
			Detail:     "module run-up did not expose it",
		}
	}
	return parse, nil
}

func (l *Loader) call(ctx context.Context, parse ParseFunc, data []byte) (Result, error) {
	result, err := parse(ctx, data)
	if err != nil {
		if IsBridgeContractViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return result, nil
}
