package timeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readyLoader returns a Loader whose module is initialized with parse.
func readyLoader(t *testing.T, parse ParseFunc, data Fetcher) (*Loader, *ModuleLoader) {
	t.Helper()
	modules := NewModuleLoader(&stubEngine{parse: parse}, newSpyFetcher(map[string][]byte{DefaultModuleLocation: []byte("wasm")}))
	require.NoError(t, modules.Initialize(context.Background(), ""))
	return NewLoader(modules, data), modules
}

func TestLoad_RequiresInitialization(t *testing.T) {
	fetcher := newSpyFetcher(map[string][]byte{"sample": {0x01}})
	modules := NewModuleLoader(&stubEngine{parse: eventsParser(nil)}, newSpyFetcher(nil))
	loader := NewLoader(modules, fetcher)

	for _, location := range []string{"", "sample", "https://host/sample.ts-data"} {
		t.Run(fmt.Sprintf("location=%q", location), func(t *testing.T) {
			result, err := loader.Load(context.Background(), location)
			require.Error(t, err)
			assert.True(t, IsNotInitialized(err))
			assert.Nil(t, result)
		})
	}
	assert.Equal(t, 0, fetcher.Calls(), "no I/O before initialization")

	t.Run("nil module loader", func(t *testing.T) {
		_, err := NewLoader(nil, fetcher).Load(context.Background(), "sample")
		assert.True(t, IsNotInitialized(err))
	})
}

func TestLoad_RejectsEmptyLocation(t *testing.T) {
	fetcher := newSpyFetcher(nil)
	loader, _ := readyLoader(t, eventsParser(nil), fetcher)

	_, err := loader.Load(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "location")
	assert.Equal(t, 0, fetcher.Calls(), "no fetch for an invalid argument")
}

func TestLoad_EndToEndOverHTTP(t *testing.T) {
	var gotMethod, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sample.ts-data" {
			http.NotFound(w, r)
			return
		}
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte{0x01, 0x02})
	}))
	defer srv.Close()

	var seen [][]byte
	loader, _ := readyLoader(t, eventsParser(&seen), NewHTTPFetcher(srv.Client()))

	result, err := loader.Load(context.Background(), srv.URL+"/sample.ts-data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[]}`, string(result))

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, TimelineContentType, gotContentType)
	require.Len(t, seen, 1)
	assert.Equal(t, []byte{0x01, 0x02}, seen[0], "bytes reach the parser unmodified")
}

func TestLoad_EnvironmentDispatch(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write([]byte("payload " + r.URL.Path))
		}))
		defer srv.Close()

		network := NewHTTPFetcher(srv.Client())
		files := newSpyFetcher(nil)
		engine := &stubEngine{parse: echoParser()}

		modules := NewModuleLoader(engine, network)
		require.NoError(t, modules.Initialize(context.Background(), srv.URL+"/storage_timeline.wasm"))

		result, err := NewLoader(modules, network).Load(context.Background(), srv.URL+"/data.bin")
		require.NoError(t, err)

		assert.Equal(t, int32(2), hits.Load(), "module and data both come from the network")
		assert.Equal(t, 0, files.Calls())
		assert.Equal(t, `"payload /data.bin"`, string(result))
		assert.Equal(t, []byte("payload /storage_timeline.wasm"), engine.binaries[0])
	})

	t.Run("filesystem", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultModuleLocation), []byte("module"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), []byte("local"), 0644))

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		files := NewFileFetcher(dir)
		engine := &stubEngine{parse: echoParser()}

		modules := NewModuleLoader(engine, files)
		require.NoError(t, modules.Initialize(context.Background(), ""))

		result, err := NewLoader(modules, files).Load(context.Background(), "data.bin")
		require.NoError(t, err)

		assert.Equal(t, int32(0), hits.Load(), "nothing goes over the network")
		assert.Equal(t, `"local"`, string(result))
		assert.Equal(t, []byte("module"), engine.binaries[0])
	})
}

func TestLoad_FetchFailureLeavesModuleReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	loader, modules := readyLoader(t, eventsParser(nil), NewHTTPFetcher(srv.Client()))

	_, err := loader.Load(context.Background(), srv.URL+"/missing.ts-data")
	require.Error(t, err)
	assert.True(t, IsAssetFetch(err))

	var fetchErr *AssetFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Status, "404")

	assert.True(t, modules.Ready(), "a failed load must not touch module state")
}

func TestLoad_WrapsForeignFetchErrors(t *testing.T) {
	fetcher := newSpyFetcher(nil)
	fetcher.SetErr(errors.New("disk on fire"))
	loader, _ := readyLoader(t, eventsParser(nil), fetcher)

	_, err := loader.Load(context.Background(), "sample")
	require.Error(t, err)
	assert.True(t, IsAssetFetch(err))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestLoad_MissingDataFetcher(t *testing.T) {
	loader, _ := readyLoader(t, eventsParser(nil), nil)

	_, err := loader.Load(context.Background(), "sample")
	assert.True(t, IsMissingRuntimeSupport(err))
}

func TestLoad_BridgeContractViolation(t *testing.T) {
	fetcher := newSpyFetcher(map[string][]byte{"sample": {0x01}})
	loader, modules := readyLoader(t, nil, fetcher)
	require.True(t, modules.Ready())

	_, err := loader.Load(context.Background(), "sample")
	require.Error(t, err)
	assert.True(t, IsBridgeContractViolation(err))
	assert.Contains(t, err.Error(), ParseEntryPoint)
	assert.False(t, IsAssetFetch(err))
}

func TestLoad_ParserErrorIsWrapped(t *testing.T) {
	parse := func(ctx context.Context, data []byte) (Result, error) {
		return nil, errors.New("truncated record")
	}
	loader, _ := readyLoader(t, parse, newSpyFetcher(map[string][]byte{"sample": {0x01}}))

	_, err := loader.Load(context.Background(), "sample")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failed")
	assert.Contains(t, err.Error(), "truncated record")
}

func TestLoad_ConcurrentCallsAreIndependent(t *testing.T) {
	payloads := map[string][]byte{}
	for i := 0; i < 20; i++ {
		payloads[fmt.Sprintf("file-%d", i)] = []byte(fmt.Sprintf("data-%d", i))
	}
	loader, _ := readyLoader(t, echoParser(), newSpyFetcher(payloads))

	var wg sync.WaitGroup
	for location, data := range payloads {
		wg.Add(1)
		go func(location string, want []byte) {
			defer wg.Done()
			result, err := loader.Load(context.Background(), location)
			assert.NoError(t, err)
			assert.Equal(t, `"`+string(want)+`"`, string(result))
		}(location, data)
	}
	wg.Wait()
}

func TestParse_UsesEntryPointDirectly(t *testing.T) {
	var seen [][]byte
	loader, _ := readyLoader(t, eventsParser(&seen), nil)

	result, err := loader.Parse(context.Background(), []byte{0x0a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[]}`, string(result))
	assert.Equal(t, [][]byte{{0x0a}}, seen)

	_, err = NewLoader(NewModuleLoader(nil, nil), nil).Parse(context.Background(), []byte{0x0a})
	assert.True(t, IsNotInitialized(err))
}
