package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultOutputLimit 是 RLIMIT_FSIZE 的默认值，与声明的限制无关。
	DefaultOutputLimit = 100 << 10
	// DefaultOpenFiles 是 RLIMIT_NOFILE 的默认值。
	DefaultOpenFiles = 5

	CoreUnlimited = "unlimited"
	CoreDisabled  = "disabled"
)

// Limits holds the launcher tuning parameters that are not part of a run's arguments.
type Limits struct {
	OutputBytes uint64 `toml:"output_bytes"`
	OpenFiles   uint64 `toml:"open_files"`
	Core        string `toml:"core"`
}

// Config is the content of the optional TOML tuning file.
type Config struct {
	Limits Limits `toml:"limits"`
}

// Default returns the built-in tuning.
func Default() *Config {
	return &Config{
		Limits: Limits{
			OutputBytes: DefaultOutputLimit,
			OpenFiles:   DefaultOpenFiles,
			Core:        CoreUnlimited,
		},
	}
}

// Load reads the TOML file at path. An empty path or a missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	var fileCfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fileCfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	cfg.merge(fileCfg)
	return cfg, cfg.Validate()
}

// zero values keep the defaults
func (c *Config) merge(o Config) {
	if o.Limits.OutputBytes > 0 {
		c.Limits.OutputBytes = o.Limits.OutputBytes
	}
	if o.Limits.OpenFiles > 0 {
		c.Limits.OpenFiles = o.Limits.OpenFiles
	}
	if o.Limits.Core != "" {
		c.Limits.Core = o.Limits.Core
	}
}

func (c *Config) Validate() error {
	switch c.Limits.Core {
	case CoreUnlimited, CoreDisabled:
	default:
		return fmt.Errorf("invalid core policy %q, want %q or %q", c.Limits.Core, CoreUnlimited, CoreDisabled)
	}
	// stdio plus one descriptor for the dynamic loader
	if c.Limits.OpenFiles < 4 {
		return fmt.Errorf("open_files must be at least 4, got %d", c.Limits.OpenFiles)
	}
	return nil
}
