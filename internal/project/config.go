package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the decoded hostgen.toml.
type Config struct {
	Root       string           `toml:"-"`
	Session    SessionConfig    `toml:"session"`
	Modules    ModulesConfig    `toml:"modules"`
	Metadata   MetadataConfig   `toml:"metadata"`
	Interfaces InterfacesConfig `toml:"interfaces"`
	Cache      CacheConfig      `toml:"cache"`
}

type SessionConfig struct {
	Mode           string `toml:"mode"`
	Jobs           int    `toml:"jobs"`
	FatalThreshold int    `toml:"fatal_threshold"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
}

type ModulesConfig struct {
	Roots       []string `toml:"roots"`
	SearchPaths []string `toml:"search_paths"`
	TreeDir     string   `toml:"tree_dir"`
}

type MetadataConfig struct {
	Snapshot string `toml:"snapshot"`
}

type InterfacesConfig struct {
	Prelude []string `toml:"prelude"`
}

type CacheConfig struct {
	Disk bool   `toml:"disk"`
	Dir  string `toml:"dir"`
}

// ErrNoRoots is returned when neither the manifest nor the command line names a root unit.
var ErrNoRoots = errors.New("no root units: set [modules].roots or pass units on the command line")

// DefaultConfig returns the values used for keys the manifest leaves out.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Mode:           "aot",
			FatalThreshold: 100,
			MaxDiagnostics: 1000,
		},
		Modules: ModulesConfig{
			SearchPaths: []string{".", "src", "modules"},
			TreeDir:     ".",
		},
		Interfaces: InterfacesConfig{
			Prelude: []string{"std/prelude/**"},
		},
		Cache: CacheConfig{
			Dir: ".hostgen-cache",
		},
	}
}

// LoadConfig decodes path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	// an explicit empty list in the manifest still means "only the importer directory"
	if meta.IsDefined("modules", "search_paths") && len(cfg.Modules.SearchPaths) == 0 {
		cfg.Modules.SearchPaths = []string{"."}
	}
	cfg.Root = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadNearest finds hostgen.toml above startDir and loads it. Without a manifest
// it returns DefaultConfig rooted at startDir.
func LoadNearest(startDir string) (Config, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return Config{}, false, err
	}
	if !ok {
		cfg := DefaultConfig()
		abs, err := filepath.Abs(startDir)
		if err != nil {
			return Config{}, false, err
		}
		cfg.Root = abs
		return cfg, false, nil
	}
	cfg, err := LoadConfig(path)
	return cfg, true, err
}

// Validate checks value ranges. Mode names are parsed by the session layer.
func (c *Config) Validate() error {
	if c.Session.Jobs < 0 {
		return fmt.Errorf("[session].jobs must not be negative, got %d", c.Session.Jobs)
	}
	if c.Session.FatalThreshold < 0 {
		return fmt.Errorf("[session].fatal_threshold must not be negative, got %d", c.Session.FatalThreshold)
	}
	if c.Session.MaxDiagnostics < 0 {
		return fmt.Errorf("[session].max_diagnostics must not be negative, got %d", c.Session.MaxDiagnostics)
	}
	return nil
}

// Abs resolves p against the project root.
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
