package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vitche/storage-timeline/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a starter stl.yml into dir.
// If force is true, an existing stl.yml is replaced.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes an existing stl.yml
func handleForce(dir string) error {
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", config.FileName, err)
		}
	}
	return nil
}

func getTemplateFiles(dir string) ([]FileInfo, error) {
	stlYml, err := templatesFS.ReadFile("templates/stl.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", config.FileName, err)
	}

	return []FileInfo{{
		Path:        filepath.Join(dir, config.FileName),
		Content:     stlYml,
		Permissions: 0644,
	}}, nil
}

func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles checks the written stl.yml against the config rules
func validateCreatedFiles(dir string) error {
	path := filepath.Join(dir, config.FileName)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", config.FileName, err)
	}

	cfg := config.Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", config.FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.FileName, err)
	}

	return nil
}
