package timeline

import (
	"context"
	"sync"
)

// stubEngine records instantiations and hands back a fixed entry point.
type stubEngine struct {
	mu       sync.Mutex
	calls    int
	binaries [][]byte
	parse    ParseFunc
	err      error

	// entered is signalled on every Instantiate call when set.
	entered chan struct{}
	// gate blocks Instantiate until closed when set.
	gate chan struct{}
}

func (e *stubEngine) Instantiate(ctx context.Context, binary []byte) (ParseFunc, error) {
	e.mu.Lock()
	e.calls++
	e.binaries = append(e.binaries, binary)
	parse, err := e.parse, e.err
	e.mu.Unlock()

	if e.entered != nil {
		e.entered <- struct{}{}
	}
	if e.gate != nil {
		<-e.gate
	}
	return parse, err
}

func (e *stubEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *stubEngine) SetErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// spyFetcher serves canned payloads and records every request.
type spyFetcher struct {
	mu       sync.Mutex
	requests []Request
	payloads map[string][]byte
	err      error
}

func newSpyFetcher(payloads map[string][]byte) *spyFetcher {
	if payloads == nil {
		payloads = map[string][]byte{}
	}
	return &spyFetcher{payloads: payloads}
}

func (f *spyFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.payloads[req.Location]
	if !ok {
		return nil, &AssetFetchError{Location: req.Location, Status: "not found"}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *spyFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *spyFetcher) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *spyFetcher) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// eventsParser mimics a module whose run-up registers parse(bytes) -> {events: []}.
func eventsParser(seen *[][]byte) ParseFunc {
	var mu sync.Mutex
	return func(ctx context.Context, data []byte) (Result, error) {
		if seen != nil {
			mu.Lock()
			*seen = append(*seen, data)
			mu.Unlock()
		}
		return Result(`{"events":[]}`), nil
	}
}

// echoParser returns its input as a JSON string.
func echoParser() ParseFunc {
	return func(ctx context.Context, data []byte) (Result, error) {
		return Result(`"` + string(data) + `"`), nil
	}
}
