package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"pagehunt/server/application"
	"pagehunt/server/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport != TransportDirect || cfg.MaxPlayers != 10 || cfg.TickRate != 60 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HeartbeatInterval != 2*time.Second || cfg.FullStateInterval != 5*time.Second {
		t.Errorf("intervals = %v / %v", cfg.HeartbeatInterval, cfg.FullStateInterval)
	}
	if cfg.IsGuest() {
		t.Error("no room code means host")
	}
	if got := cfg.GameConfig(); got != domain.DefaultGameConfig() {
		t.Errorf("GameConfig() = %+v, want defaults", got)
	}
	if cfg.Input() != application.InputAbsolute {
		t.Error("direct transport defaults to absolute input")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRANSPORT", "relay")
	t.Setenv("RELAY_URL", "ws://relay.example/relay")
	t.Setenv("ROOM_CODE", "abc234")
	t.Setenv("GAME_PAGES_TO_COLLECT", "3")
	t.Setenv("GAME_WIDTH", "1024")
	t.Setenv("RELAY_BURST", "10")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("OTEL_ENDPOINT", "collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.IsGuest() {
		t.Error("room code means guest")
	}
	if cfg.Game.PagesToCollect != 3 || cfg.GameConfig().Width != 1024 {
		t.Errorf("game = %+v", cfg.Game)
	}
	if cfg.Relay.Burst != 10 || cfg.Relay.Addr != "localhost:9091" {
		t.Errorf("relay = %+v", cfg.Relay)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.OTel.Endpoint != "collector:4317" || !cfg.OTel.Insecure {
		t.Errorf("otel = %+v", cfg.OTel)
	}
	if cfg.Input() != application.InputRelative {
		t.Error("relay transport defaults to relative input")
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "many")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("Load() error = %v, want parse env error", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		return Config{
			Transport:  TransportDirect,
			MaxPlayers: 10,
			TickRate:   60,
			Game:       GameConfig{Width: 800, Height: 600, PagesToCollect: 8},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"relay without url", func(c *Config) { c.Transport = TransportRelay }},
		{"guest without host url", func(c *Config) { c.RoomCode = "ABCDEF" }},
		{"bad room code", func(c *Config) { c.RoomCode = "AB"; c.HostURL = "ws://h" }},
		{"unknown input mode", func(c *Config) { c.InputMode = "telepathy" }},
		{"too few players", func(c *Config) { c.MaxPlayers = 1 }},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"empty arena", func(c *Config) { c.Game.Width = 0 }},
		{"nothing to collect", func(c *Config) { c.Game.PagesToCollect = 0 }},
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
