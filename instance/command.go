package instance

import (
	"strings"

	"brimstone/asset"
	"brimstone/store"
)

// Parameters assembles the engine arguments: enabled iwads, enabled mods,
// -savedir, then the additional parameters verbatim.
func (i Instance) Parameters(s *store.Store) (string, error) {
	iwads, err := asset.IWAD.Arguments(s, i.GameData.IWADs)
	if err != nil {
		return "", err
	}
	mods, err := asset.Mod.Arguments(s, i.GameData.Mods)
	if err != nil {
		return "", err
	}
	saveDir, err := i.AbsoluteSaveDir(s)
	if err != nil {
		return "", err
	}

	return joinNonEmpty(
		iwads,
		mods,
		`-savedir "`+saveDir+`"`,
		strings.Join(i.GameData.AdditionalParams, " "),
	), nil
}

// FullCommand prefixes Parameters with the engine executable.
func (i Instance) FullCommand(s *store.Store, executable string) (string, error) {
	params, err := i.Parameters(s)
	if err != nil {
		return "", err
	}
	return joinNonEmpty(executable, params), nil
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
