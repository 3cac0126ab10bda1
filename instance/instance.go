package instance

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"brimstone/asset"
	"brimstone/store"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Filename is the name of the instance definition inside a package.
const Filename = "instance.toml"

// ErrMalformed wraps instance documents that cannot be decoded.
var ErrMalformed = errors.New("malformed instance definition")

var validate = validator.New()

// Metadata describes an instance and its play history.
type Metadata struct {
	Name                string         `toml:"name" validate:"required,excludesall=/\\,ne=.,ne=.."`
	Image               string         `toml:"image,omitempty"`
	Playtime            time.Duration  `toml:"playtime"`
	LastPlayed          *time.Time     `toml:"last_played,omitempty"`
	LastSessionDuration *time.Duration `toml:"last_session_duration,omitempty"`
}

// GameData holds what is passed to the engine: asset lists, the save
// directory and raw extra arguments.
type GameData struct {
	IWADs            []asset.Ref `toml:"iwads"`
	Mods             []asset.Ref `toml:"mods"`
	SaveDir          string      `toml:"savedir" validate:"required"`
	AdditionalParams []string    `toml:"additional_params"`
}

// Instance pairs metadata with game data. Instances own their slices; use
// Clone before handing one to code that rewrites it.
type Instance struct {
	Metadata Metadata `toml:"metadata"`
	GameData GameData `toml:"gamedata"`
}

// New creates an empty instance with its canonical save directory.
func New(name string) Instance {
	return Instance{
		Metadata: Metadata{Name: name},
		GameData: GameData{
			IWADs:            []asset.Ref{},
			Mods:             []asset.Ref{},
			SaveDir:          store.SaveDir(name),
			AdditionalParams: []string{},
		},
	}
}

// Validate checks the struct tags on metadata and game data.
func (i Instance) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("invalid instance '%s': %w", i.Metadata.Name, err)
	}
	return nil
}

// Clone returns a deep copy.
func (i Instance) Clone() Instance {
	c := i
	c.GameData.IWADs = slices.Clone(i.GameData.IWADs)
	c.GameData.Mods = slices.Clone(i.GameData.Mods)
	c.GameData.AdditionalParams = slices.Clone(i.GameData.AdditionalParams)
	if i.Metadata.LastPlayed != nil {
		t := *i.Metadata.LastPlayed
		c.Metadata.LastPlayed = &t
	}
	if i.Metadata.LastSessionDuration != nil {
		d := *i.Metadata.LastSessionDuration
		c.Metadata.LastSessionDuration = &d
	}
	return c
}

// Refs returns the reference list for kind.
func (i Instance) Refs(kind asset.Kind) []asset.Ref {
	if kind == asset.IWAD {
		return i.GameData.IWADs
	}
	return i.GameData.Mods
}

// WithRefs returns a copy of i whose kind list is replaced by refs.
func (i Instance) WithRefs(kind asset.Kind, refs []asset.Ref) Instance {
	c := i.Clone()
	if kind == asset.IWAD {
		c.GameData.IWADs = slices.Clone(refs)
	} else {
		c.GameData.Mods = slices.Clone(refs)
	}
	return c
}

// AddRef appends r to the kind list.
func (i Instance) AddRef(kind asset.Kind, r asset.Ref) Instance {
	return i.WithRefs(kind, append(slices.Clone(i.Refs(kind)), r))
}

// RemoveRef drops the reference at index. The file itself is untouched.
func (i Instance) RemoveRef(kind asset.Kind, index int) (Instance, error) {
	refs := i.Refs(kind)
	if index < 0 || index >= len(refs) {
		return i, fmt.Errorf("%s index %d out of range (have %d)", kind, index, len(refs))
	}
	return i.WithRefs(kind, slices.Delete(slices.Clone(refs), index, index+1)), nil
}

// ToggleRef flips the enabled flag of the reference at index.
func (i Instance) ToggleRef(kind asset.Kind, index int) (Instance, error) {
	refs := slices.Clone(i.Refs(kind))
	if index < 0 || index >= len(refs) {
		return i, fmt.Errorf("%s index %d out of range (have %d)", kind, index, len(refs))
	}
	refs[index] = refs[index].Toggled()
	return i.WithRefs(kind, refs), nil
}

// CanonicalSaveDir returns a copy of i with savedir set to saves/<name>.
func (i Instance) CanonicalSaveDir() Instance {
	c := i.Clone()
	c.GameData.SaveDir = store.SaveDir(i.Metadata.Name)
	return c
}

// AbsoluteSaveDir resolves the save directory against the store.
func (i Instance) AbsoluteSaveDir(s *store.Store) (string, error) {
	return s.Resolve(i.GameData.SaveDir)
}

// CreateSaveDir makes sure the save directory exists.
func (i Instance) CreateSaveDir(s *store.Store) error {
	dir, err := i.AbsoluteSaveDir(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create save directory '%s': %w", dir, err)
	}
	return nil
}

// WithoutPlayHistory returns a copy with playtime zeroed and the last
// session cleared.
func (i Instance) WithoutPlayHistory() Instance {
	c := i.Clone()
	c.Metadata.Playtime = 0
	c.Metadata.LastPlayed = nil
	c.Metadata.LastSessionDuration = nil
	return c
}

// Played reports whether the instance has been launched at least once.
func (i Instance) Played() bool {
	return i.Metadata.LastPlayed != nil
}

// RecordSession accumulates a finished session into the metadata.
func (m *Metadata) RecordSession(started time.Time, d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.LastPlayed = &started
	m.LastSessionDuration = &d
	m.Playtime += d
}

// metadataDocument is Metadata as written to TOML. go-toml encodes a
// *time.Time through MarshalText as a quoted string that it then refuses to
// decode, so LastPlayed is carried as an interface holding the time value,
// which encodes as a native datetime. Unmarshal decodes straight into
// Metadata.
type metadataDocument struct {
	Name                string         `toml:"name"`
	Image               string         `toml:"image,omitempty"`
	Playtime            time.Duration  `toml:"playtime"`
	LastPlayed          any            `toml:"last_played,omitempty"`
	LastSessionDuration *time.Duration `toml:"last_session_duration,omitempty"`
}

type document struct {
	Metadata metadataDocument `toml:"metadata"`
	GameData GameData         `toml:"gamedata"`
}

func (i Instance) document() document {
	doc := document{
		Metadata: metadataDocument{
			Name:                i.Metadata.Name,
			Image:               i.Metadata.Image,
			Playtime:            i.Metadata.Playtime,
			LastSessionDuration: i.Metadata.LastSessionDuration,
		},
		GameData: i.GameData,
	}
	if i.Metadata.LastPlayed != nil {
		doc.Metadata.LastPlayed = *i.Metadata.LastPlayed
	}
	return doc
}

// Marshal encodes the instance as TOML.
func (i Instance) Marshal() ([]byte, error) {
	data, err := toml.Marshal(i.document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode instance '%s': %w", i.Metadata.Name, err)
	}
	return data, nil
}

// Unmarshal decodes a TOML instance definition. Nil lists are replaced by
// empty ones so callers can append freely.
func Unmarshal(data []byte) (Instance, error) {
	var i Instance
	if err := toml.Unmarshal(data, &i); err != nil {
		return Instance{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if i.GameData.IWADs == nil {
		i.GameData.IWADs = []asset.Ref{}
	}
	if i.GameData.Mods == nil {
		i.GameData.Mods = []asset.Ref{}
	}
	if i.GameData.AdditionalParams == nil {
		i.GameData.AdditionalParams = []string{}
	}
	return i, nil
}
