// Package artifact stores the generated dictionary and configuration files
// and packages them for download.
package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is the artifact contract the pipeline and HTTP layers write through.
type Store interface {
	SaveDictionary(tableName string, data []byte) (string, error)
	SaveConfig(tableName string, data []byte) (string, error)
	Open(name string) (io.ReadCloser, error)
	List() ([]string, error)
	WriteZip(w io.Writer) error
	Clear() error
}

// FSStore keeps artifacts in a flat directory: TABLE.csv for dictionaries
// and table.json for configurations.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact: output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create output directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FSStore) Dir() string { return s.dir }

func (s *FSStore) SaveDictionary(tableName string, data []byte) (string, error) {
	return s.save(strings.ToUpper(tableName)+".csv", data)
}

func (s *FSStore) SaveConfig(tableName string, data []byte) (string, error) {
	return s.save(strings.ToLower(tableName)+".json", data)
}

func (s *FSStore) save(name string, data []byte) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", name, err)
	}
	return path, nil
}

// Open returns the named artifact for reading. Names with path separators or
// parent references are rejected so download handlers cannot be walked out
// of the store directory.
func (s *FSStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open %s: %w", name, err)
	}
	return f, nil
}

func (s *FSStore) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact: invalid name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// List returns the artifact file names, sorted.
func (s *FSStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("artifact: read output directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// WriteZip streams all artifacts into w as a ZIP archive, entries in sorted
// name order so the output is reproducible.
func (s *FSStore) WriteZip(w io.Writer) error {
	names, err := s.List()
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("artifact: read %s for archive: %w", name, err)
		}
		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("artifact: add %s to archive: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("artifact: write %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("artifact: finish archive: %w", err)
	}
	return nil
}

// Clear removes every stored artifact but keeps the directory.
func (s *FSStore) Clear() error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("artifact: remove %s: %w", name, err)
		}
	}
	return nil
}
