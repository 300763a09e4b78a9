// Package config provides YAML-based configuration for the chat room server.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Room    RoomConfig    `yaml:"room"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP/websocket listener.
type ServerConfig struct {
	Address        string        `yaml:"address"`
	ReadLimit      int64         `yaml:"read_limit"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	SendBuffer     int           `yaml:"send_buffer"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
}

// RoomConfig controls the room actor.
type RoomConfig struct {
	MaxDepth         int           `yaml:"max_depth"`
	ChallengeTTL     time.Duration `yaml:"challenge_ttl"`
	GameOverGrace    time.Duration `yaml:"game_over_grace"`
	HistoryLimit     int           `yaml:"history_limit"`
	MaxMessageLength int           `yaml:"max_message_length"`
	NotificationCap  int           `yaml:"notification_cap"`
	MailboxSize      int           `yaml:"mailbox_size"`
	PersistQueue     int           `yaml:"persist_queue"`
	PersistTimeout   time.Duration `yaml:"persist_timeout"`
	Timezone         string        `yaml:"timezone"`
}

// StorageConfig locates the SQLite database. An empty path keeps chat in memory.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, logfmt
	Prefix string `yaml:"prefix"`
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.PongWait <= 0 || c.Server.PingPeriod <= 0 || c.Server.WriteWait <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if c.Server.PingPeriod >= c.Server.PongWait {
		errs = append(errs, errors.New("server.ping_period must be shorter than server.pong_wait"))
	}
	if c.Server.RatePerSecond <= 0 || c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("server rate limit must be positive"))
	}
	if c.Room.MaxDepth < 0 || c.Room.MaxDepth > board.HardMaxDepth {
		errs = append(errs, fmt.Errorf("room.max_depth must be between 0 and %d", board.HardMaxDepth))
	}
	if c.Room.ChallengeTTL <= 0 {
		errs = append(errs, errors.New("room.challenge_ttl must be positive"))
	}
	if c.Room.GameOverGrace < 0 {
		errs = append(errs, errors.New("room.game_over_grace must not be negative"))
	}
	if c.Room.NotificationCap < 0 {
		errs = append(errs, errors.New("room.notification_cap must not be negative"))
	}
	switch c.Log.Format {
	case "", "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json, logfmt", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
