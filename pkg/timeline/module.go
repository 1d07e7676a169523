package timeline

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultModuleLocation is the conventional file name of the compiled parser module.
const DefaultModuleLocation = "storage_timeline.wasm"

// initializeKey is the single-flight key shared by all Initialize calls.
const initializeKey = "initialize"

// ParseFunc is the module's parse entry point. It receives the timeline bytes
// unmodified and returns the module's result.
type ParseFunc func(ctx context.Context, data []byte) (Result, error)

// Engine is the host capability that turns a module binary into a running
// module. Instantiate creates a fresh host object, instantiates the binary
// against it, runs the module's start-up code and returns the parse entry
// point the module exposes. A nil ParseFunc with a nil error means the module
// ran but did not expose the entry point.
type Engine interface {
	Instantiate(ctx context.Context, binary []byte) (ParseFunc, error)
}

// ModuleLoader owns the lifecycle of one parser module: it is either not yet
// ready, or ready with a fully run module. State only moves forward.
// ModuleLoader is safe for concurrent use.
type ModuleLoader struct {
	engine  Engine
	fetcher Fetcher

	group singleflight.Group

	mu       sync.RWMutex
	ready    bool
	parse    ParseFunc
	location string
}

// NewModuleLoader creates a loader that fetches the module binary with
// fetcher and instantiates it with engine. Either may be nil; Initialize then
// fails with MissingRuntimeSupportError.
func NewModuleLoader(engine Engine, fetcher Fetcher) *ModuleLoader {
	return &ModuleLoader{
		engine:  engine,
		fetcher: fetcher,
	}
}

// Initialize brings the module to a ready state. An empty location means
// DefaultModuleLocation.
//
// Once ready, further calls return nil without side effects. Calls that
// arrive while an initialization is in flight wait for that same operation
// and share its outcome, including its location. A ctx that has already ended
// returns ctx.Err() without starting any work. If ctx ends while waiting the
// caller stops waiting with ctx.Err(); the shared operation itself carries on.
//
// Errors: *MissingRuntimeSupportError (before any I/O), *AssetFetchError,
// *InstantiationError. On error the loader stays uninitialized and the next
// call starts from scratch.
func (m *ModuleLoader) Initialize(ctx context.Context, location string) error {
	if m.engine == nil {
		return &MissingRuntimeSupportError{Capability: "module engine"}
	}
	if m.fetcher == nil {
		return &MissingRuntimeSupportError{Capability: "module asset fetcher"}
	}

	if m.Ready() {
		return nil
	}

	if location == "" {
		location = DefaultModuleLocation
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ch := m.group.DoChan(initializeKey, func() (any, error) {
		return nil, m.initialize(context.WithoutCancel(ctx), location)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ModuleLoader) initialize(ctx context.Context, location string) error {
	// A previous flight may have finished between the Ready check and this one starting.
	if m.Ready() {
		return nil
	}

	binary, err := m.fetcher.Fetch(ctx, Request{Location: location})
	if err != nil {
		var fetchErr *AssetFetchError
		if errors.As(err, &fetchErr) {
			return err
		}
		return &AssetFetchError{Location: location, Err: err}
	}

	parse, err := m.engine.Instantiate(ctx, binary)
	if err != nil {
		return &InstantiationError{Location: location, Err: err}
	}

	m.mu.Lock()
	m.parse = parse
	m.location = location
	m.ready = true
	m.mu.Unlock()

	return nil
}

// Ready reports whether Initialize has completed successfully.
func (m *ModuleLoader) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Location returns the location the module was loaded from, or "" before
// initialization.
func (m *ModuleLoader) Location() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.location
}

// entryPoint returns the parse entry point and whether the module is ready.
func (m *ModuleLoader) entryPoint() (ParseFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parse, m.ready
}
