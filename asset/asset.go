package asset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"brimstone/store"
)

// ErrNoFilename is returned for references whose path has no final element.
var ErrNoFilename = errors.New("asset path has no file name")

// Kind is the static category of an asset. It decides the store directory
// a file is relocated into and the command-line prefix used to load it.
type Kind int

const (
	Mod Kind = iota
	IWAD
)

// Kinds lists every asset kind in export order.
var Kinds = []Kind{Mod, IWAD}

// String returns the name used on the command line ("mod", "iwad").
func (k Kind) String() string {
	switch k {
	case Mod:
		return "mod"
	case IWAD:
		return "iwad"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Dir is the category directory name under the store root.
func (k Kind) Dir() string {
	if k == IWAD {
		return store.IWADsDir
	}
	return store.ModsDir
}

// Prefix is the engine argument that loads a file of this kind.
func (k Kind) Prefix() string {
	if k == IWAD {
		return "-iwad"
	}
	return "-file"
}

// RelativePath is the canonical store-relative path for filename.
func (k Kind) RelativePath(filename string) string {
	return store.RelativePath(k.Dir(), filename)
}

// ParseKind accepts the singular or the directory form of a kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "mod", "mods", "file":
		return Mod, nil
	case "iwad", "iwads":
		return IWAD, nil
	default:
		return Mod, fmt.Errorf("unknown asset kind '%s' (want mod or iwad)", s)
	}
}

// Ref is a toggleable reference to a file. Path is either absolute (not
// imported yet) or relative to the store root, prefixed by its category
// directory.
type Ref struct {
	Path    string `toml:"path"`
	Enabled bool   `toml:"enabled"`
}

// New returns an enabled reference to path.
func New(path string) Ref {
	return Ref{Path: path, Enabled: true}
}

// Toggled returns a copy of r with Enabled flipped.
func (r Ref) Toggled() Ref {
	r.Enabled = !r.Enabled
	return r
}

// WithPath returns a copy of r pointing at path.
func (r Ref) WithPath(path string) Ref {
	r.Path = path
	return r
}

// Filename returns the final path element, or false when there is none.
func (r Ref) Filename() (string, bool) {
	p := r.Path
	if p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(filepath.Separator)) {
		return "", false
	}
	name := filepath.Base(filepath.FromSlash(p))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", false
	}
	return name, true
}

// IsRelative reports whether the reference already lives in the store.
func (r Ref) IsRelative() bool {
	return !filepath.IsAbs(filepath.FromSlash(r.Path))
}

// AbsolutePath resolves the reference against the store. It only fails
// for relative paths when the store has no root.
func (r Ref) AbsolutePath(s *store.Store) (string, error) {
	return s.Resolve(r.Path)
}

// Enabled filters refs down to the enabled ones, preserving order.
func Enabled(refs []Ref) []Ref {
	out := make([]Ref, 0, len(refs))
	for _, r := range refs {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}
