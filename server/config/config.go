package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"pagehunt/server/application"
	"pagehunt/server/domain"
)

const (
	TransportDirect = "direct"
	TransportRelay  = "relay"

	InputAbsolute = "absolute"
	InputRelative = "relative"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config はピアノードとリレーサーバーの設定です。すべて環境変数から読み込みます。
// ROOM_CODE が空ならホストとして新しいルームを作り、指定されていればゲストとして参加します。
type Config struct {
	Addr              string        `env:"ADDR"                envDefault:"localhost:9090"`
	Transport         string        `env:"TRANSPORT"           envDefault:"direct"`
	HostURL           string        `env:"HOST_URL"`
	RelayURL          string        `env:"RELAY_URL"`
	RoomCode          string        `env:"ROOM_CODE"`
	PlayerName        string        `env:"PLAYER_NAME"         envDefault:"Player"`
	MaxPlayers        int           `env:"MAX_PLAYERS"         envDefault:"10"`
	TickRate          int           `env:"TICK_RATE"           envDefault:"60"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"  envDefault:"2s"`
	FullStateInterval time.Duration `env:"FULL_STATE_INTERVAL" envDefault:"5s"`
	DialTimeout       time.Duration `env:"DIAL_TIMEOUT"        envDefault:"10s"`
	InputMode         string        `env:"INPUT_MODE"`
	Autopilot         bool          `env:"AUTOPILOT"`
	Seed              uint64        `env:"SEED"`
	BotCount          int           `env:"BOT_COUNT"           envDefault:"3"`

	Log   LogConfig   `envPrefix:"LOG_"`
	OTel  OTelConfig  `envPrefix:"OTEL_"`
	Game  GameConfig  `envPrefix:"GAME_"`
	Relay RelayConfig `envPrefix:"RELAY_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// OTelConfig は OTLP の送信先です。ENDPOINT が空ならトレースとログのエクスポートは無効です。
type OTelConfig struct {
	Endpoint string `env:"ENDPOINT"`
	Insecure bool   `env:"INSECURE" envDefault:"true"`
}

// GameConfig は fullState で全員に配られるゲーム設定です。ホストの値だけが使われます。
type GameConfig struct {
	Width          float64 `env:"WIDTH"            envDefault:"800"`
	Height         float64 `env:"HEIGHT"           envDefault:"600"`
	TileSize       float64 `env:"TILE_SIZE"        envDefault:"32"`
	PlayerSpeed    float64 `env:"PLAYER_SPEED"     envDefault:"3"`
	PursuerSpeed   float64 `env:"PURSUER_SPEED"    envDefault:"1.5"`
	PagesToCollect int     `env:"PAGES_TO_COLLECT" envDefault:"8"`
	RespawnTime    float64 `env:"RESPAWN_TIME"     envDefault:"10"`
	FOVRadius      float64 `env:"FOV_RADIUS"       envDefault:"250"`
}

type RelayConfig struct {
	Addr  string  `env:"ADDR"  envDefault:"localhost:9091"`
	Rate  float64 `env:"RATE"  envDefault:"120"`
	Burst int     `env:"BURST" envDefault:"240"`
}

// Load は環境変数を読み込んで検証します。
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Transport {
	case TransportDirect:
		if c.IsGuest() && c.HostURL == "" {
			return fmt.Errorf("%w: HOST_URL is required to join over the direct transport", ErrInvalidConfig)
		}
	case TransportRelay:
		if c.RelayURL == "" {
			return fmt.Errorf("%w: RELAY_URL is required for the relay transport", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown TRANSPORT %q", ErrInvalidConfig, c.Transport)
	}
	switch c.InputMode {
	case "", InputAbsolute, InputRelative:
	default:
		return fmt.Errorf("%w: unknown INPUT_MODE %q", ErrInvalidConfig, c.InputMode)
	}
	if c.IsGuest() {
		if _, err := domain.ParseRoomCode(c.RoomCode); err != nil {
			return fmt.Errorf("%w: ROOM_CODE: %v", ErrInvalidConfig, err)
		}
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("%w: MAX_PLAYERS must be at least 2", ErrInvalidConfig)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: TICK_RATE must be positive", ErrInvalidConfig)
	}
	if c.Game.Width <= 0 || c.Game.Height <= 0 {
		return fmt.Errorf("%w: arena size must be positive", ErrInvalidConfig)
	}
	if c.Game.PagesToCollect <= 0 {
		return fmt.Errorf("%w: GAME_PAGES_TO_COLLECT must be positive", ErrInvalidConfig)
	}
	return nil
}

// IsGuest は既存のルームに参加する設定かどうかです。
func (c Config) IsGuest() bool {
	return c.RoomCode != ""
}

// Input はゲストの入力方式です。指定がなければリレーでは相対入力、直接接続では絶対座標を使います。
func (c Config) Input() application.InputMode {
	mode := c.InputMode
	if mode == "" && c.Transport == TransportRelay {
		mode = InputRelative
	}
	if mode == InputRelative {
		return application.InputRelative
	}
	return application.InputAbsolute
}

func (c Config) GameConfig() domain.GameConfig {
	return domain.GameConfig{
		Width:          c.Game.Width,
		Height:         c.Game.Height,
		TileSize:       int(c.Game.TileSize),
		PlayerSpeed:    c.Game.PlayerSpeed,
		PursuerSpeed:   c.Game.PursuerSpeed,
		PagesToCollect: c.Game.PagesToCollect,
		RespawnTime:    c.Game.RespawnTime,
		FOVRadius:      c.Game.FOVRadius,
	}
}
