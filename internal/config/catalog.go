package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the optional game-content file. Kinds listed in it replace
// the same kinds in duck_types; a non-empty levels list replaces the table.
type catalogFile struct {
	DuckTypes map[string]DuckType `yaml:"duck_types"`
	Levels    []Level             `yaml:"levels"`
}

func (c *Config) applyCatalog(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: catalog %s: %w", ErrLoadConfig, path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cat catalogFile
	if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: catalog %s: %w", ErrInvalidConfig, path, err)
	}
	if c.DuckTypes == nil {
		c.DuckTypes = make(map[string]DuckType, len(cat.DuckTypes))
	}
	for name, dt := range cat.DuckTypes {
		c.DuckTypes[name] = dt
	}
	if len(cat.Levels) > 0 {
		c.Levels = cat.Levels
	}
	return nil
}
