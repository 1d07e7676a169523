// Package timeline bridges Go callers to a compiled WebAssembly module that
// parses the storage timeline binary format.
//
// # Overview
//
// Two components are composed linearly. A ModuleLoader brings exactly one
// instance of the parser module to a runnable state and remembers that it did.
// A Loader acquires timeline bytes from a location and forwards them to the
// module's parse entry point, returning whatever the module produced.
//
//	modules := timeline.NewModuleLoader(timeline.NewWazeroEngine(), timeline.NewFileFetcher(""))
//	if err := modules.Initialize(ctx, timeline.DefaultModuleLocation); err != nil {
//		log.Fatal(err)
//	}
//
//	loader := timeline.NewLoader(modules, timeline.NewHTTPFetcher(nil))
//	result, err := loader.Load(ctx, "https://host/sample.ts-data")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Sources
//
// Bytes are acquired through a Fetcher chosen once by the host application:
// HTTPFetcher for network locations, FileFetcher for local paths and
// RedisFetcher for payloads stored under Redis keys. The loaders never inspect
// the environment themselves.
//
// # Lifecycle
//
// Initialize is idempotent. Once it has succeeded every further call returns
// immediately. Concurrent calls made while the first one is still in flight
// share that single operation instead of instantiating the module twice. A
// failed initialization leaves the loader uninitialized and the next call
// starts over. There is no teardown: the module lives as long as the
// ModuleLoader does.
//
// # Bridge Contract
//
// The Engine's run-up step hands back the module's parse entry point as a
// ParseFunc. The wazero engine expects the guest to export memory, alloc and
// parse (see WazeroEngine). If the entry point is missing, Load reports a
// BridgeContractViolationError; that is an integration bug, not a data error.
//
// # Concurrency
//
// ModuleLoader and Loader are safe for concurrent use. Each Load owns its own
// byte buffer. Whether the parse entry point tolerates concurrent calls is up
// to the Engine; WazeroEngine serializes calls into a module instance.
//
// Fetches stop when their context ends. A parse call already running inside
// the module is not interrupted by its context.
//
// # Errors
//
// Failures are reported as typed errors carrying the location, status or
// missing capability involved. Use the IsX helpers (IsNotInitialized,
// IsAssetFetch, ...) to classify them. Nothing is retried automatically.
package timeline
