// Package packager exports an instance with every file it references into
// a single zip package, and imports such packages back into the store.
//
// Package layout:
//
//	mods/                   always present
//	iwads/                  always present
//	mods/<file>             one entry per referenced mod
//	iwads/<file>            one entry per referenced iwad
//	saves/<name>/<file>     save files, when exported with saves
//	instance.toml           the instance, asset paths store-relative
package packager

import (
	"errors"

	"brimstone/store"

	"go.uber.org/zap"
)

// Extension is the conventional file extension of a package.
const Extension = ".brimpkg"

// ErrInvalidPackage is returned for archives that are not instance
// packages: no instance.toml, an undecodable one, or unsafe entry names.
var ErrInvalidPackage = errors.New("not a valid instance package")

// Packager moves instances in and out of packages, resolving and placing
// files through a Store.
type Packager struct {
	store *store.Store
	log   *zap.SugaredLogger
}

// New returns a Packager for s. A nil logger discards output.
func New(s *store.Store, log *zap.SugaredLogger) *Packager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Packager{store: s, log: log}
}
