// adcchat runs the chat room server with nested tic-tac-toe matches.
//
// Usage:
//
//	adcchat serve               - Start the websocket server
//	adcchat matches             - List recent finished matches
//	adcchat matches show <id>   - Draw the final board of a match
//	adcchat history             - Print the stored chat log
//
// Global flags:
//
//	--config <path>     - Config file (default: ~/.adcchat/config.yaml)
//	--log-level <level> - Override log.level from the config
package main

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // Timezone lookups must work in minimal containers

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/phred2026-cyber/adc-chat-2029/internal/config"
	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
	"github.com/phred2026-cyber/adc-chat-2029/internal/server"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adcchat",
	Short: "ADC chat room with nested tic-tac-toe",
	Long: `adcchat is a real-time chat room where users can challenge each
other to recursive tic-tac-toe matches.

Available commands:
  serve     - Start the websocket server
  matches   - Inspect finished matches
  history   - Print the chat log

Examples:
  adcchat serve --addr :8787
  adcchat matches --player 42
  adcchat matches show 1f0c...`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the config and applies global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// newLogger builds the root logger from the log section.
func newLogger(c config.LogConfig) (*log.Logger, error) {
	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          c.Prefix,
	}
	if c.Level != "" {
		level, err := log.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		opts.Level = level
	}
	switch c.Format {
	case "json":
		opts.Formatter = log.JSONFormatter
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
	default:
		opts.Formatter = log.TextFormatter
	}
	return log.NewWithOptions(os.Stderr, opts), nil
}

func roomConfig(c config.RoomConfig) (room.Config, error) {
	loc := time.UTC
	if c.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(c.Timezone); err != nil {
			return room.Config{}, fmt.Errorf("invalid room.timezone %q: %w", c.Timezone, err)
		}
	}
	return room.Config{
		MaxDepth:         c.MaxDepth,
		ChallengeTTL:     c.ChallengeTTL,
		GameOverGrace:    c.GameOverGrace,
		HistoryLimit:     c.HistoryLimit,
		MaxMessageLength: c.MaxMessageLength,
		NotificationCap:  c.NotificationCap,
		MailboxSize:      c.MailboxSize,
		PersistQueue:     c.PersistQueue,
		PersistTimeout:   c.PersistTimeout,
		Location:         loc,
	}, nil
}

func serverConfig(c config.ServerConfig) server.Config {
	return server.Config{
		Address:        c.Address,
		ReadLimit:      c.ReadLimit,
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
		PingPeriod:     c.PingPeriod,
		SendBuffer:     c.SendBuffer,
		AllowedOrigins: c.AllowedOrigins,
		RatePerSecond:  c.RatePerSecond,
		RateBurst:      c.RateBurst,
	}
}
