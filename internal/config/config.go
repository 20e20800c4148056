// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
//   - Every key has a default in New; files and env only override.
//   - Probabilities are fractions in [0,1]; player stats (accuracy, befriend
//     rate, jam chance) are percentages in [0,100].
//   - Durations are plain integer seconds or milliseconds, named accordingly.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" json:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" json:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" json:"addr"`

	// QueueSize bounds each command shard queue.
	QueueSize int `koanf:"queue_size" json:"queue_size"`
	// WorkerCount sets the number of command shards, one worker each.
	WorkerCount int `koanf:"worker_count" json:"worker_count"`
	// DedupeSize bounds the remembered command ids.
	DedupeSize int `koanf:"dedupe_size" json:"dedupe_size"`
	// MaxLeaderboardLimit caps GET .../leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" json:"max_leaderboard_limit"`

	// Channels are joined at startup.
	Channels []string `koanf:"channels" json:"channels"`
	// Admins are nicks or nick!user@host globs allowed to run admin commands.
	Admins []string `koanf:"admins" json:"admins"`

	// CatalogPath optionally points at a YAML file overriding duck_types and levels.
	CatalogPath string `koanf:"catalog_path" json:"catalog_path"`
	// Timezone is the IANA zone used for sleep windows; empty means local.
	Timezone string `koanf:"timezone" json:"timezone"`

	Metrics        Metrics             `koanf:"metrics" json:"metrics"`
	Persistence    Persistence         `koanf:"persistence" json:"persistence"`
	Spawn          Spawn               `koanf:"spawn" json:"spawn"`
	Gameplay       Gameplay            `koanf:"gameplay" json:"gameplay"`
	PlayerDefaults PlayerDefaults      `koanf:"player_defaults" json:"player_defaults"`
	DuckTypes      map[string]DuckType `koanf:"duck_types" json:"duck_types"`
	Levels         []Level             `koanf:"levels" json:"levels"`
}

// Metrics configures the Prometheus collectors served on /metrics.
type Metrics struct {
	Enabled   bool   `koanf:"enabled" json:"enabled"`
	Namespace string `koanf:"namespace" json:"namespace"`
	// RefreshIntervalSeconds paces the queue, duck, player and runtime gauges.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds" json:"refresh_interval_seconds"`
}

// Persistence configures the snapshot backend.
type Persistence struct {
	// Backend is "file" or "sqlite".
	Backend string `koanf:"backend" json:"backend"`
	Path    string `koanf:"path" json:"path"`
	// Compress wraps the file backend in zstd.
	Compress    bool `koanf:"compress" json:"compress"`
	MaxAttempts int  `koanf:"max_attempts" json:"max_attempts"`
	BaseDelayMS int  `koanf:"base_delay_ms" json:"base_delay_ms"`
	MaxDelayMS  int  `koanf:"max_delay_ms" json:"max_delay_ms"`
}

// Spawn configures the per-channel spawn timers.
type Spawn struct {
	MinSeconds         int           `koanf:"min_seconds" json:"min_seconds"`
	MaxSeconds         int           `koanf:"max_seconds" json:"max_seconds"`
	MaxDucksPerChannel int           `koanf:"max_ducks_per_channel" json:"max_ducks_per_channel"`
	SweepSeconds       int           `koanf:"sweep_seconds" json:"sweep_seconds"`
	SleepWindows       []SleepWindow `koanf:"sleep_windows" json:"sleep_windows"`
}

// SleepWindow is a daily "HH:MM" range during which spawn ticks are skipped.
// End before start wraps past midnight.
type SleepWindow struct {
	Start string `koanf:"start" json:"start"`
	End   string `koanf:"end" json:"end"`
}

// Gameplay holds the action resolution tunables.
type Gameplay struct {
	AccuracyGainOnHit      int     `koanf:"accuracy_gain_on_hit" json:"accuracy_gain_on_hit"`
	AccuracyLossOnMiss     int     `koanf:"accuracy_loss_on_miss" json:"accuracy_loss_on_miss"`
	MinAccuracy            int     `koanf:"min_accuracy" json:"min_accuracy"`
	MaxAccuracy            int     `koanf:"max_accuracy" json:"max_accuracy"`
	MissXPPenalty          int     `koanf:"miss_xp_penalty" json:"miss_xp_penalty"`
	WildShotXPPenalty      int     `koanf:"wild_shot_xp_penalty" json:"wild_shot_xp_penalty"`
	TeamkillXPPenalty      int     `koanf:"teamkill_xp_penalty" json:"teamkill_xp_penalty"`
	FriendlyFireEnabled    bool    `koanf:"friendly_fire_enabled" json:"friendly_fire_enabled"`
	FriendlyFireChance     float64 `koanf:"friendly_fire_chance" json:"friendly_fire_chance"`
	BefriendSuccessRate    int     `koanf:"befriend_success_rate" json:"befriend_success_rate"`
	MinBefriendRate        int     `koanf:"min_befriend_rate" json:"min_befriend_rate"`
	MaxBefriendRate        int     `koanf:"max_befriend_rate" json:"max_befriend_rate"`
	BefriendXP             int     `koanf:"befriend_xp" json:"befriend_xp"`
	BefriendFailXPPenalty  int     `koanf:"befriend_fail_xp_penalty" json:"befriend_fail_xp_penalty"`
	ScaredAwayChance       float64 `koanf:"scared_away_chance" json:"scared_away_chance"`
	JamChanceBase          int     `koanf:"jam_chance_base" json:"jam_chance_base"`
	AutoRearm              bool    `koanf:"auto_rearm" json:"auto_rearm"`
	RearmConfiscatedOnKill bool    `koanf:"rearm_confiscated_on_kill" json:"rearm_confiscated_on_kill"`
	// MaxEffectSeconds caps any single status effect.
	MaxEffectSeconds int `koanf:"max_effect_seconds" json:"max_effect_seconds"`
}

// PlayerDefaults seed a lazily created player.
type PlayerDefaults struct {
	Accuracy           int   `koanf:"accuracy" json:"accuracy"`
	Magazines          int   `koanf:"magazines" json:"magazines"`
	BulletsPerMagazine int   `koanf:"bullets_per_magazine" json:"bullets_per_magazine"`
	Coins              int64 `koanf:"coins" json:"coins"`
}

// DuckType tunes one duck kind. The couple and family entries only use Chance.
type DuckType struct {
	Chance            float64  `koanf:"chance" json:"chance" yaml:"chance"`
	MinHP             int      `koanf:"min_hp" json:"min_hp" yaml:"min_hp"`
	MaxHP             int      `koanf:"max_hp" json:"max_hp" yaml:"max_hp"`
	XP                int      `koanf:"xp" json:"xp" yaml:"xp"`
	TimeoutMinSeconds int      `koanf:"timeout_min_seconds" json:"timeout_min_seconds" yaml:"timeout_min_seconds"`
	TimeoutMaxSeconds int      `koanf:"timeout_max_seconds" json:"timeout_max_seconds" yaml:"timeout_max_seconds"`
	EffectSeconds     int      `koanf:"effect_seconds" json:"effect_seconds" yaml:"effect_seconds"`
	DropChance        float64  `koanf:"drop_chance" json:"drop_chance" yaml:"drop_chance"`
	DropItems         []string `koanf:"drop_items" json:"drop_items" yaml:"drop_items"`
}

// Level is one row of the level table, selected by ducks shot plus befriended.
type Level struct {
	Name             string `koanf:"name" json:"name" yaml:"name"`
	MinDucks         int    `koanf:"min_ducks" json:"min_ducks" yaml:"min_ducks"`
	AccuracyModifier int    `koanf:"accuracy_modifier" json:"accuracy_modifier" yaml:"accuracy_modifier"`
	BefriendRate     int    `koanf:"befriend_rate" json:"befriend_rate" yaml:"befriend_rate"`
	Reliability      int    `koanf:"reliability" json:"reliability" yaml:"reliability"`
}

// Brood kinds share the duck_types table with the real kinds.
const (
	BroodCouple = "couple"
	BroodFamily = "family"
)

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		Channels:            []string{},
		Admins:              []string{},
		Metrics: Metrics{
			Enabled:                true,
			Namespace:              "duckhunt",
			RefreshIntervalSeconds: 5,
		},
		Persistence: Persistence{
			Backend:     "file",
			Path:        "duckhunt.json",
			MaxAttempts: 3,
			BaseDelayMS: 500,
			MaxDelayMS:  5000,
		},
		Spawn: Spawn{
			MinSeconds:         300,
			MaxSeconds:         900,
			MaxDucksPerChannel: 3,
			SweepSeconds:       2,
			SleepWindows:       []SleepWindow{},
		},
		Gameplay: Gameplay{
			AccuracyGainOnHit:      1,
			AccuracyLossOnMiss:     2,
			MinAccuracy:            10,
			MaxAccuracy:            100,
			MissXPPenalty:          1,
			WildShotXPPenalty:      2,
			TeamkillXPPenalty:      25,
			FriendlyFireEnabled:    true,
			FriendlyFireChance:     0.15,
			BefriendSuccessRate:    75,
			MinBefriendRate:        5,
			MaxBefriendRate:        95,
			BefriendXP:             5,
			BefriendFailXPPenalty:  1,
			ScaredAwayChance:       0.3,
			JamChanceBase:          5,
			AutoRearm:              false,
			RearmConfiscatedOnKill: true,
			MaxEffectSeconds:       7 * 24 * 3600,
		},
		PlayerDefaults: PlayerDefaults{
			Accuracy:           75,
			Magazines:          3,
			BulletsPerMagazine: 6,
		},
		DuckTypes: DefaultDuckTypes(),
		Levels: []Level{
			{Name: "Duck Novice", MinDucks: 0, AccuracyModifier: 5, BefriendRate: 85},
			{Name: "Duck Hunter", MinDucks: 10, AccuracyModifier: 0, BefriendRate: 75, Reliability: 2},
			{Name: "Duck Marksman", MinDucks: 50, AccuracyModifier: -5, BefriendRate: 65, Reliability: 4},
		},
	}
}

// DefaultDuckTypes returns the built-in duck table.
func DefaultDuckTypes() map[string]DuckType {
	return map[string]DuckType{
		"normal":      {MinHP: 1, MaxHP: 1, XP: 10, TimeoutMinSeconds: 60, TimeoutMaxSeconds: 60},
		"fast":        {Chance: 0.10, MinHP: 1, MaxHP: 1, XP: 12, TimeoutMinSeconds: 30, TimeoutMaxSeconds: 45},
		"golden":      {Chance: 0.05, MinHP: 3, MaxHP: 5, XP: 15, TimeoutMinSeconds: 60, TimeoutMaxSeconds: 90, DropChance: 0.2, DropItems: []string{"golden_feather"}},
		"concrete":    {Chance: 0.02, MinHP: 4, MaxHP: 6, XP: 20, TimeoutMinSeconds: 90, TimeoutMaxSeconds: 120},
		"holy_grail":  {Chance: 0.01, MinHP: 5, MaxHP: 8, XP: 30, TimeoutMinSeconds: 90, TimeoutMaxSeconds: 120, DropChance: 0.5, DropItems: []string{"grail_shard"}},
		"diamond":     {Chance: 0.02, MinHP: 3, MaxHP: 4, XP: 25, TimeoutMinSeconds: 60, TimeoutMaxSeconds: 90, DropChance: 0.3, DropItems: []string{"diamond"}},
		"explosive":   {Chance: 0.03, MinHP: 1, MaxHP: 1, XP: 15, TimeoutMinSeconds: 45, TimeoutMaxSeconds: 60, EffectSeconds: 2 * 3600},
		"poisonous":   {Chance: 0.03, MinHP: 1, MaxHP: 1, XP: 8, TimeoutMinSeconds: 45, TimeoutMaxSeconds: 60, EffectSeconds: 2 * 3600},
		"radioactive": {Chance: 0.01, MinHP: 1, MaxHP: 1, XP: 12, TimeoutMinSeconds: 45, TimeoutMaxSeconds: 60, EffectSeconds: 8 * 3600},
		BroodCouple:   {Chance: 0.04},
		BroodFamily:   {Chance: 0.02},
	}
}
