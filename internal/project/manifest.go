package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the per-project configuration file.
const ManifestName = "ember.toml"

// OptConfig is the [opt] section of ember.toml.
type OptConfig struct {
	// Passes run in order; empty means the default pipeline.
	Passes []string `toml:"passes"`
	// Jobs caps parallel function optimization; 0 means all CPUs.
	Jobs int `toml:"jobs"`
	// Cache enables the on-disk result cache.
	Cache bool `toml:"cache"`
	// Verify re-validates each function graph after the pipeline.
	Verify bool `toml:"verify"`
}

// Manifest is the parsed ember.toml.
type Manifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Opt OptConfig `toml:"opt"`
}

// DefaultManifest returns the configuration used when no ember.toml exists.
func DefaultManifest() *Manifest {
	return &Manifest{Opt: OptConfig{Cache: true}}
}

// ErrManifestNotFound indicates no ember.toml was found walking up from the
// start directory.
var ErrManifestNotFound = errors.New("ember.toml not found")

// LoadManifest parses one manifest file.
func LoadManifest(path string) (*Manifest, error) {
	m := DefaultManifest()
	meta, err := toml.DecodeFile(path, m)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %s", path, undecoded[0])
	}
	return m, nil
}

// FindManifest walks from dir toward the filesystem root looking for
// ember.toml and loads the first one found.
func FindManifest(dir string) (*Manifest, string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}
	for {
		path := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(path); err == nil {
			m, err := LoadManifest(path)
			return m, path, err
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", ErrManifestNotFound
		}
		dir = parent
	}
}
