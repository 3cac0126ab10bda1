package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Category directory names under the data root.
const (
	ModsDir      = "mods"
	IWADsDir     = "iwads"
	InstancesDir = "instances"
	SavesDir     = "saves"
	DownloadsDir = "downloads"
)

// ErrNoRoot is returned when a relative path has to be resolved but the
// store has no data root.
var ErrNoRoot = errors.New("store root is not set")

// Store is the per-user managed directory tree. Relative asset and save
// paths are always relative to Root.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory is not created until a
// category directory is requested.
func New(dir string) *Store {
	if dir != "" {
		dir = filepath.Clean(dir)
	}
	return &Store{root: dir}
}

// Root returns the absolute data root.
func (s *Store) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// FullDirectory returns the absolute path of a category directory, creating
// it and any missing parents.
func (s *Store) FullDirectory(category string) (string, error) {
	if s.Root() == "" {
		return "", ErrNoRoot
	}
	dir := filepath.Join(s.root, filepath.FromSlash(category))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}
	return dir, nil
}

// Resolve returns p unchanged when it is absolute, otherwise p joined to
// the data root.
func (s *Store) Resolve(p string) (string, error) {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p, nil
	}
	if s.Root() == "" {
		return "", ErrNoRoot
	}
	return filepath.Join(s.root, p), nil
}

// Find lists the regular files directly inside a category directory. A
// missing directory yields an empty listing.
func (s *Store) Find(category string) ([]string, error) {
	if s.Root() == "" {
		return nil, ErrNoRoot
	}
	dir := filepath.Join(s.root, filepath.FromSlash(category))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list '%s': %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// RelativePath builds the store-relative, slash separated path of a file in
// a category directory.
func RelativePath(category, filename string) string {
	return category + "/" + filename
}

// SaveDir is the canonical store-relative save directory of an instance.
func SaveDir(instanceName string) string {
	return RelativePath(SavesDir, instanceName)
}
