package config

import (
	"crateprune/internal/core/errors"
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads the config file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid config syntax"), errors.CtxPath, path)
	}

	if err := finalize(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOptional behaves like Load but falls back to the defaults when path
// does not exist. found reports whether a file was read.
func LoadOptional(path string) (cfg *Config, found bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	cfg = &Config{}
	if err := finalize(cfg); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

func finalize(cfg *Config) error {
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)
	return Validate(cfg)
}
