// Package config loads the process-wide YAML configuration used to size
// every other component, falling back to compiled-in defaults when no
// file is present.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Game holds all configuration for the tile-world game server.
type Game struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Tick / world
	TickRate      int `yaml:"tick_rate_hz"`
	ViewRange     int `yaml:"view_range"`
	MapWidth      int `yaml:"map_width"`
	MapHeight     int `yaml:"map_height"`
	MapSeed       int64 `yaml:"map_seed"`
	CellSize      int `yaml:"cell_size"`

	// Movement
	MoveCooldownMS int `yaml:"move_cooldown_ms"`
	TurnCooldownMS int `yaml:"turn_cooldown_ms"`

	// Connection
	HandshakeTimeoutMS  int `yaml:"handshake_timeout_ms"`
	MaxHeaderViolations int `yaml:"max_header_violations"`
	SendQueueSize       int `yaml:"send_queue_size"`
	ReadTimeoutMS       int `yaml:"read_timeout_ms"`
	WriteTimeoutMS      int `yaml:"write_timeout_ms"`
	PingIntervalTicks   int `yaml:"ping_interval_ticks"`

	// Admission / rate limiting
	RateWindowMS    int `yaml:"rate_window_ms"`
	RateMax         int `yaml:"rate_max"`
	PerIPCap        int `yaml:"per_ip_cap"`
	StrikeThreshold int `yaml:"strike_threshold"`
	BanDurationMS   int `yaml:"ban_duration_ms"`
}

// TickPeriod returns the configured tick rate as a time.Duration.
func (g Game) TickPeriod() time.Duration {
	if g.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(g.TickRate)
}

// MoveCooldown returns the configured move cooldown as a time.Duration.
func (g Game) MoveCooldown() time.Duration {
	return time.Duration(g.MoveCooldownMS) * time.Millisecond
}

// TurnCooldown returns the configured turn cooldown as a time.Duration.
func (g Game) TurnCooldown() time.Duration {
	return time.Duration(g.TurnCooldownMS) * time.Millisecond
}

// HandshakeTimeout returns the configured handshake deadline as a time.Duration.
func (g Game) HandshakeTimeout() time.Duration {
	return time.Duration(g.HandshakeTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the configured per-read deadline as a time.Duration.
func (g Game) ReadTimeout() time.Duration {
	return time.Duration(g.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the configured per-write deadline as a time.Duration.
func (g Game) WriteTimeout() time.Duration {
	return time.Duration(g.WriteTimeoutMS) * time.Millisecond
}

// RateWindow returns the configured admission rate window as a time.Duration.
func (g Game) RateWindow() time.Duration {
	return time.Duration(g.RateWindowMS) * time.Millisecond
}

// BanDuration returns the configured strike-ban duration as a time.Duration.
func (g Game) BanDuration() time.Duration {
	return time.Duration(g.BanDurationMS) * time.Millisecond
}

// Addr returns the listen address in host:port form.
func (g Game) Addr() string {
	return fmt.Sprintf("%s:%d", g.BindAddress, g.Port)
}

// DefaultGame returns a Game config with sensible defaults for a single
// process serving a modest map.
func DefaultGame() Game {
	return Game{
		BindAddress: "0.0.0.0",
		Port:        7777,
		LogLevel:    "info",

		TickRate:  20,
		ViewRange: 10,
		MapWidth:  256,
		MapHeight: 256,
		MapSeed:   1,
		CellSize:  21, // ~ 2*ViewRange+1

		MoveCooldownMS: 330,
		TurnCooldownMS: 200,

		HandshakeTimeoutMS:  5000,
		MaxHeaderViolations: 8,
		SendQueueSize:       256,
		ReadTimeoutMS:       120000,
		WriteTimeoutMS:      5000,
		PingIntervalTicks:   20,

		RateWindowMS:    10000,
		RateMax:         5,
		PerIPCap:        3,
		StrikeThreshold: 5,
		BanDurationMS:   5 * 60 * 1000,
	}
}

// LoadGame loads the game config from a YAML file at path. If the file
// does not exist, compiled-in defaults are returned unmodified.
func LoadGame(path string) (Game, error) {
	cfg := DefaultGame()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
