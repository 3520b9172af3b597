package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	NATSURL   string // STAYPUT_NATS_URL (required; game bridge + event bus)
	HTTPAddr  string // STAYPUT_HTTP_ADDR (optional, empty = no status endpoint)
	FleetFile string // STAYPUT_FLEET_FILE (optional TOML overrides)

	// Connection identity handed to the game-side connector.
	Host     string // STAYPUT_MC_HOST (default "localhost")
	Port     int    // STAYPUT_MC_PORT (default 25565)
	Username string // STAYPUT_USERNAME (default "StayPutBot"; primary session name)
	Auth     string // STAYPUT_AUTH (default "offline")
	Version  string // STAYPUT_MC_VERSION (optional protocol override)
	Password string // STAYPUT_PASSWORD (optional)

	Fleet Fleet
}

// Fleet holds the tunables of the session manager. Defaults match the
// values the fleet was operated with; a TOML fleet file overrides them.
type Fleet struct {
	Slots          []string      // slot-name pool, assigned in order
	CommandPrefix  string        // chat-command prefix
	ReconnectDelay time.Duration // backoff before a reconnect attempt
	SweepInterval  time.Duration // schedule enforcement period
	BreakInterval  time.Duration // auto-break loop period
	AttackInterval time.Duration // auto-attack loop period
	ToolInterval   time.Duration // tool-readiness loop period
}

// fleetFile is the on-disk TOML shape. Interval fields are duration
// strings ("5s", "250ms"); empty or missing fields keep the default.
type fleetFile struct {
	Slots          []string `toml:"slots"`
	CommandPrefix  string   `toml:"command_prefix"`
	ReconnectDelay string   `toml:"reconnect_delay"`
	SweepInterval  string   `toml:"sweep_interval"`
	BreakInterval  string   `toml:"break_interval"`
	AttackInterval string   `toml:"attack_interval"`
	ToolInterval   string   `toml:"tool_interval"`
}

func DefaultFleet() Fleet {
	return Fleet{
		Slots:          []string{"bot1", "bot2", "bot3", "bot4", "bot5"},
		CommandPrefix:  "=",
		ReconnectDelay: 5 * time.Second,
		SweepInterval:  15 * time.Second,
		BreakInterval:  250 * time.Millisecond,
		AttackInterval: 500 * time.Millisecond,
		ToolInterval:   time.Second,
	}
}

func Load() (*Config, error) {
	c := &Config{
		NATSURL:   os.Getenv("STAYPUT_NATS_URL"),
		HTTPAddr:  os.Getenv("STAYPUT_HTTP_ADDR"),
		FleetFile: os.Getenv("STAYPUT_FLEET_FILE"),
		Host:      envOrDefault("STAYPUT_MC_HOST", "localhost"),
		Username:  envOrDefault("STAYPUT_USERNAME", "StayPutBot"),
		Auth:      envOrDefault("STAYPUT_AUTH", "offline"),
		Version:   os.Getenv("STAYPUT_MC_VERSION"),
		Password:  os.Getenv("STAYPUT_PASSWORD"),
		Fleet:     DefaultFleet(),
	}
	if c.NATSURL == "" {
		return nil, fmt.Errorf("STAYPUT_NATS_URL is required")
	}

	portStr := envOrDefault("STAYPUT_MC_PORT", "25565")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("STAYPUT_MC_PORT: %w", err)
	}
	c.Port = port

	if c.FleetFile != "" {
		if err := loadFleetFile(c.FleetFile, &c.Fleet); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func loadFleetFile(path string, fleet *Fleet) error {
	var f fleetFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("fleet file %s: %w", path, err)
	}

	if len(f.Slots) > 0 {
		fleet.Slots = f.Slots
	}
	if f.CommandPrefix != "" {
		fleet.CommandPrefix = f.CommandPrefix
	}

	for _, d := range []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{f.ReconnectDelay, "reconnect_delay", &fleet.ReconnectDelay},
		{f.SweepInterval, "sweep_interval", &fleet.SweepInterval},
		{f.BreakInterval, "break_interval", &fleet.BreakInterval},
		{f.AttackInterval, "attack_interval", &fleet.AttackInterval},
		{f.ToolInterval, "tool_interval", &fleet.ToolInterval},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("fleet file %s: %s: %w", path, d.name, err)
		}
		*d.dst = parsed
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
