package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vitche/storage-timeline/internal/config"
)

// CheckExisting returns an error if dir already holds an stl.yml
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'stl init --force' to reinitialize (this will overwrite existing configuration)", config.FileName)
	}
	return nil
}
