package asset

import (
	"strings"

	"brimstone/store"
)

// Argument renders a single reference as `<prefix> "<absolute path>"`.
// Embedded quotes in the path are not escaped.
func (k Kind) Argument(s *store.Store, r Ref) (string, error) {
	p, err := r.AbsolutePath(s)
	if err != nil {
		return "", err
	}
	return k.Prefix() + ` "` + p + `"`, nil
}

// Arguments renders the enabled references, space separated. Disabled
// references contribute nothing.
func (k Kind) Arguments(s *store.Store, refs []Ref) (string, error) {
	args := make([]string, 0, len(refs))
	for _, r := range Enabled(refs) {
		arg, err := k.Argument(s, r)
		if err != nil {
			return "", err
		}
		args = append(args, arg)
	}
	return strings.Join(args, " "), nil
}
