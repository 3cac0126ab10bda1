package asset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"brimstone/store"
)

// Relocate copies (keepOriginal) or moves the referenced file into the
// kind's store directory and returns the reference rewritten to its
// store-relative path. On failure the returned reference is r unchanged.
//
// A file of the same name already in the category directory is
// overwritten.
func (k Kind) Relocate(s *store.Store, r Ref, keepOriginal bool) (Ref, error) {
	filename, ok := r.Filename()
	if !ok {
		return r, fmt.Errorf("relocate '%s': %w", r.Path, ErrNoFilename)
	}

	src, err := r.AbsolutePath(s)
	if err != nil {
		return r, fmt.Errorf("relocate '%s': %w", r.Path, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return r, fmt.Errorf("relocate '%s': %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return r, fmt.Errorf("relocate '%s': not a regular file", src)
	}

	destDir, err := s.FullDirectory(k.Dir())
	if err != nil {
		return r, fmt.Errorf("relocate '%s': %w", src, err)
	}
	dest := filepath.Join(destDir, filename)

	if !samePath(src, dest) {
		if keepOriginal {
			err = CopyFile(src, dest)
		} else {
			err = moveFile(src, dest)
		}
		if err != nil {
			return r, fmt.Errorf("relocate '%s' to '%s': %w", src, dest, err)
		}
	}

	return r.WithPath(k.RelativePath(filename)), nil
}

// RelocateAll relocates every reference in refs, stopping at the first
// failure. The returned slice is a new list; refs is not modified.
func (k Kind) RelocateAll(s *store.Store, refs []Ref, keepOriginal bool) ([]Ref, error) {
	out := make([]Ref, len(refs))
	copy(out, refs)
	for i, r := range refs {
		moved, err := k.Relocate(s, r, keepOriginal)
		if err != nil {
			return refs, err
		}
		out[i] = moved
	}
	return out, nil
}

// CopyFile copies src to dest, replacing dest if it exists.
func CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// moveFile renames src to dest, falling back to copy and remove when the
// two paths are on different devices.
func moveFile(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := CopyFile(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ai, bi)
}
