// Package install downloads the parser module into a local directory so it
// can be loaded without network access.
package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitche/storage-timeline/pkg/timeline"
)

// DefaultBaseURL is where published parser modules live.
const DefaultBaseURL = "https://raw.githubusercontent.com/vitche/wasm_storage_timeline/main"

// wasmMagic starts every WebAssembly binary.
var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// DefaultDir returns the per-user module directory (<user config dir>/stl).
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user config directory: %w", err)
	}
	return filepath.Join(base, "stl"), nil
}

// ModuleURL returns the download URL of the module under baseURL.
func ModuleURL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + timeline.DefaultModuleLocation
}

// Download fetches the module from baseURL and writes it to dir, returning the
// installed path. The file is replaced atomically so a failed download never
// leaves a truncated module behind.
func Download(ctx context.Context, fetcher timeline.Fetcher, baseURL, dir string) (string, error) {
	if fetcher == nil {
		return "", &timeline.MissingRuntimeSupportError{Capability: "module asset fetcher"}
	}
	if dir == "" {
		return "", &timeline.InvalidArgumentError{Argument: "dir", Reason: "must not be empty"}
	}

	location := ModuleURL(baseURL)
	binary, err := fetcher.Fetch(ctx, timeline.Request{Location: location})
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(binary, wasmMagic) {
		return "", fmt.Errorf("'%s' is not a WebAssembly module", location)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, timeline.DefaultModuleLocation)
	if err := writeAtomic(dir, target, binary); err != nil {
		return "", err
	}
	return target, nil
}

func writeAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".storage_timeline-*.wasm")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install %s: %w", target, err)
	}
	return nil
}

// Resolve returns the location to load the module from. A bare default module
// name that does not exist locally falls back to the copy installed in dir.
// Every other location is returned unchanged.
func Resolve(location, dir string) string {
	if location != timeline.DefaultModuleLocation || dir == "" {
		return location
	}
	if _, err := os.Stat(location); err == nil {
		return location
	}

	installed := filepath.Join(dir, timeline.DefaultModuleLocation)
	if _, err := os.Stat(installed); errors.Is(err, os.ErrNotExist) {
		return location
	}
	return installed
}
