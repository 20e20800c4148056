package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Validate checks the shape of the config against the embedded JSON schema
// and then the cross-field rules a schema cannot express.
func (c *Config) Validate() error {
	if err := c.validateShape(); err != nil {
		return err
	}

	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.Spawn.MaxSeconds < c.Spawn.MinSeconds {
		add("spawn.max_seconds %d < spawn.min_seconds %d", c.Spawn.MaxSeconds, c.Spawn.MinSeconds)
	}
	for i, w := range c.Spawn.SleepWindows {
		if w.Start == w.End {
			add("spawn.sleep_windows[%d] is empty", i)
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			add("timezone %q: %v", c.Timezone, err)
		}
	}

	g := c.Gameplay
	if g.MinAccuracy > g.MaxAccuracy {
		add("gameplay.min_accuracy %d > gameplay.max_accuracy %d", g.MinAccuracy, g.MaxAccuracy)
	}
	if g.MinBefriendRate > g.MaxBefriendRate {
		add("gameplay.min_befriend_rate %d > gameplay.max_befriend_rate %d", g.MinBefriendRate, g.MaxBefriendRate)
	}
	if c.Persistence.MaxDelayMS < c.Persistence.BaseDelayMS {
		add("persistence.max_delay_ms %d < persistence.base_delay_ms %d", c.Persistence.MaxDelayMS, c.Persistence.BaseDelayMS)
	}

	var total float64
	for name, dt := range c.DuckTypes {
		total += dt.Chance
		if name == BroodCouple || name == BroodFamily {
			continue
		}
		if dt.MinHP > dt.MaxHP {
			add("duck_types.%s: min_hp %d > max_hp %d", name, dt.MinHP, dt.MaxHP)
		}
		if dt.TimeoutMinSeconds > dt.TimeoutMaxSeconds {
			add("duck_types.%s: timeout_min_seconds %d > timeout_max_seconds %d",
				name, dt.TimeoutMinSeconds, dt.TimeoutMaxSeconds)
		}
		if dt.DropChance > 0 && len(dt.DropItems) == 0 {
			add("duck_types.%s: drop_chance without drop_items", name)
		}
	}
	if normal, ok := c.DuckTypes["normal"]; ok && normal.Chance != 0 {
		add("duck_types.normal.chance must be unset; normal takes the remaining probability")
	}
	if total > 1 {
		add("duck_types chances sum to %.4f, must not exceed 1", total)
	}

	for i, lvl := range c.Levels {
		if i == 0 && lvl.MinDucks != 0 {
			add("levels[0].min_ducks must be 0")
		}
		if i > 0 && lvl.MinDucks <= c.Levels[i-1].MinDucks {
			add("levels[%d].min_ducks must increase", i)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) validateShape() error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("%w: schema: %w", ErrInvalidConfig, err)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
