package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Guest exports the wazero engine relies on.
const (
	exportMemory     = "memory"
	exportAlloc      = "alloc"
	exportFree       = "free"
	exportInitialize = "_initialize"
)

// WazeroEngine runs parser modules with the wazero runtime.
//
// The guest must export:
//
//	memory                       linear memory
//	alloc(size i32) i32          reserve size bytes for the input
//	parse(ptr i32, len i32) i64  parse input, return ptr<<32 | len of a JSON document
//	free(ptr i32)                optional, release a pointer from alloc or parse
//
// If the guest exports _initialize (a wasip1 reactor, e.g. Go built with
// -buildmode=c-shared) it is run before the entry point is handed out. WASI
// preview1 host functions are available to the guest.
//
// Guest calls are not interrupted when their context ends. The default
// runtime configuration leaves close-on-context-done off because it would
// close the instance shared by every later call.
type WazeroEngine struct {
	config wazero.RuntimeConfig
	stdout io.Writer
	stderr io.Writer

	mu       sync.Mutex
	runtimes []wazero.Runtime
}

// WazeroOption customizes a WazeroEngine.
type WazeroOption func(*WazeroEngine)

// WithModuleOutput routes the guest's stdout and stderr.
func WithModuleOutput(stdout, stderr io.Writer) WazeroOption {
	return func(e *WazeroEngine) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithRuntimeConfig replaces the default wazero runtime configuration.
func WithRuntimeConfig(config wazero.RuntimeConfig) WazeroOption {
	return func(e *WazeroEngine) {
		e.config = config
	}
}

// NewWazeroEngine creates an engine. Guest output is discarded unless
// WithModuleOutput is given.
func NewWazeroEngine(opts ...WazeroOption) *WazeroEngine {
	e := &WazeroEngine{
		config: wazero.NewRuntimeConfig(),
		stdout: io.Discard,
		stderr: io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Instantiate compiles binary in a fresh runtime, instantiates it, runs its
// start-up code and returns its parse entry point. A module without a parse
// export yields a nil ParseFunc.
func (e *WazeroEngine) Instantiate(ctx context.Context, binary []byte) (ParseFunc, error) {
	r := wazero.NewRuntimeWithConfig(ctx, e.config)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to provide WASI host functions: %w", err)
	}

	compiled, err := r.CompileModule(ctx, binary)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	var start []string
	if _, ok := compiled.ExportedFunctions()[exportInitialize]; ok {
		start = append(start, exportInitialize)
	}

	cfg := wazero.NewModuleConfig().
		WithStartFunctions(start...).
		WithStdout(e.stdout).
		WithStderr(e.stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("failed to run module: %w", err)
	}

	parse := mod.ExportedFunction(ParseEntryPoint)
	if parse == nil {
		e.track(r)
		return nil, nil
	}

	alloc := mod.ExportedFunction(exportAlloc)
	if alloc == nil {
		r.Close(ctx)
		return nil, &BridgeContractViolationError{EntryPoint: exportAlloc, Detail: "required by parse but not exported"}
	}
	if mod.Memory() == nil {
		r.Close(ctx)
		return nil, &BridgeContractViolationError{EntryPoint: exportMemory, Detail: "required by parse but not exported"}
	}

	e.track(r)

	b := &wasmBridge{
		mod:   mod,
		alloc: alloc,
		parse: parse,
		free:  mod.ExportedFunction(exportFree),
	}
	return b.call, nil
}

// Close releases every runtime the engine created. Entry points handed out
// earlier stop working.
func (e *WazeroEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	runtimes := e.runtimes
	e.runtimes = nil
	e.mu.Unlock()

	var errs []error
	for _, r := range runtimes {
		if err := r.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *WazeroEngine) track(r wazero.Runtime) {
	e.mu.Lock()
	e.runtimes = append(e.runtimes, r)
	e.mu.Unlock()
}

// wasmBridge marshals bytes in and out of guest memory. Guest allocators are
// not reentrant, so calls into one instance are serialized.
type wasmBridge struct {
	mu    sync.Mutex
	mod   api.Module
	alloc api.Function
	parse api.Function
	free  api.Function
}

func (b *wasmBridge) call(ctx context.Context, data []byte) (result Result, err error) {
	size := uint64(len(data))
	if err := checkInputSize(size); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.alloc.Call(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("alloc(%d) failed: %w", len(data), err)
	}
	if len(res) != 1 {
		return nil, &BridgeContractViolationError{EntryPoint: exportAlloc, Detail: fmt.Sprintf("returned %d values, expected 1", len(res))}
	}
	inPtr := uint32(res[0])

	if b.free != nil {
		defer func() {
			if _, freeErr := b.free.Call(ctx, uint64(inPtr)); freeErr != nil && err == nil {
				result, err = nil, fmt.Errorf("free(input) failed: %w", freeErr)
			}
		}()
	}

	if len(data) > 0 && !b.mod.Memory().Write(inPtr, data) {
		return nil, &BridgeContractViolationError{EntryPoint: exportAlloc, Detail: fmt.Sprintf("pointer %d with size %d is out of range", inPtr, len(data))}
	}

	out, err := b.parse.Call(ctx, uint64(inPtr), size)
	if err != nil {
		return nil, fmt.Errorf("parse failed in module: %w", err)
	}
	if len(out) != 1 {
		return nil, &BridgeContractViolationError{EntryPoint: ParseEntryPoint, Detail: fmt.Sprintf("returned %d values, expected 1", len(out))}
	}

	outPtr := uint32(out[0] >> 32)
	outLen := uint32(out[0])

	view, ok := b.mod.Memory().Read(outPtr, outLen)
	if !ok {
		return nil, &BridgeContractViolationError{EntryPoint: ParseEntryPoint, Detail: fmt.Sprintf("result %d+%d is out of range", outPtr, outLen)}
	}
	// view aliases guest memory; the result must outlive the next call.
	result = make(Result, len(view))
	copy(result, view)

	if b.free != nil && outPtr != 0 {
		if _, err := b.free.Call(ctx, uint64(outPtr)); err != nil {
			return nil, fmt.Errorf("free(result) failed: %w", err)
		}
	}

	return result, nil
}

// checkInputSize rejects inputs an i32 guest pointer cannot address.
func checkInputSize(size uint64) error {
	if size > math.MaxUint32 {
		return &InvalidArgumentError{Argument: "data", Reason: fmt.Sprintf("%d bytes exceed the 32-bit guest address space", size)}
	}
	return nil
}
