package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned when a configuration value cannot be used.
	ErrInvalidConfig = errors.New("server: invalid config")
	// ErrUnknownFormat is returned for configuration files that are neither
	// TOML nor YAML.
	ErrUnknownFormat = errors.New("server: unknown config format")
)

type configFormat int

const (
	formatTOML configFormat = iota
	formatYAML
)

func formatOf(path string) (configFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// LoadConfig reads the UserConfig stored in the file at path. The format is
// chosen by the file extension: .toml, .yaml or .yml. If the file does not
// exist yet, it is created holding DefaultConfig(). Values missing from the
// file keep their defaults.
func LoadConfig(path string) (UserConfig, error) {
	c := DefaultConfig()
	format, err := formatOf(path)
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := WriteConfig(path, c); err != nil {
			return c, fmt.Errorf("create default config: %w", err)
		}
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	switch format {
	case formatTOML:
		err = toml.Unmarshal(data, &c)
	case formatYAML:
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return c, fmt.Errorf("decode config %v: %w", path, err)
	}
	return c, nil
}

// WriteConfig encodes c to the file at path in the format matching its
// extension, creating parent directories as needed.
func WriteConfig(path string, c UserConfig) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case formatTOML:
		data, err = toml.Marshal(c)
	case formatYAML:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
