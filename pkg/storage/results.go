package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResultDir writes solved timetables under one output directory.
type ResultDir struct {
	baseDir string
}

// NewResultDir creates baseDir when missing.
func NewResultDir(baseDir string) (*ResultDir, error) {
	if baseDir == "" {
		baseDir = "."
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &ResultDir{baseDir: baseDir}, nil
}

// Save writes data as name.ext and returns the path written. name must stay inside the directory.
func (d *ResultDir) Save(name, ext string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return "", fmt.Errorf("invalid result name %q", name)
	}
	path := filepath.Join(d.baseDir, name+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result %s: %w", path, err)
	}
	return path, nil
}

// Path returns where name.ext would be written.
func (d *ResultDir) Path(name, ext string) string {
	return filepath.Join(d.baseDir, name+"."+ext)
}
