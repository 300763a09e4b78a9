package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/adcchat.yaml
var defaultYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:       ":8787",
			ReadLimit:     64 * 1024,
			WriteWait:     10 * time.Second,
			PongWait:      60 * time.Second,
			PingPeriod:    54 * time.Second,
			SendBuffer:    256,
			RatePerSecond: 10,
			RateBurst:     20,
		},
		Room: RoomConfig{
			MaxDepth:         4,
			ChallengeTTL:     10 * time.Minute,
			GameOverGrace:    10 * time.Second,
			HistoryLimit:     100,
			MaxMessageLength: 2000,
			NotificationCap:  100,
			MailboxSize:      256,
			PersistQueue:     1024,
			PersistTimeout:   5 * time.Second,
			Timezone:         "America/Denver",
		},
		Storage: StorageConfig{
			Path: "~/.adcchat/chat.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Prefix: "adcchat",
		},
	}
}

// DefaultYAML returns the embedded default YAML.
func DefaultYAML() []byte {
	return defaultYAML
}
