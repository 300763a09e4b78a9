package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
	"github.com/phred2026-cyber/adc-chat-2029/internal/server"
	"github.com/phred2026-cyber/adc-chat-2029/internal/storage"
)

var (
	flagAddr      string
	flagServeDB   string
	flagNoStorage bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat room server",
	Long: `Start the websocket server that hosts the chat room.

Clients connect to /ws. Identity comes from the X-User-Id, X-Username and
X-Profile-Image headers set by the authenticating proxy in front of the
server. /healthz reports room statistics.

Chat history and finished matches are kept in SQLite unless --memory is
set, in which case the chat log lives only as long as the process.

Examples:
  adcchat serve                   # Listen on the configured address
  adcchat serve --addr :9000      # Override the listen address
  adcchat serve --db ./chat.db    # Use a specific database
  adcchat serve --memory          # Do not persist anything`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides server.address)")
	serveCmd.Flags().StringVar(&flagServeDB, "db", "", "Path to SQLite database (overrides storage.path)")
	serveCmd.Flags().BoolVar(&flagNoStorage, "memory", false, "Keep chat history in memory only")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Address = flagAddr
	}
	if flagServeDB != "" {
		cfg.Storage.Path = flagServeDB
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	roomCfg, err := roomConfig(cfg.Room)
	if err != nil {
		return err
	}

	var opts []room.Option
	if !flagNoStorage && cfg.Storage.Path != "" {
		store, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		opts = append(opts, room.WithChatStore(store), room.WithResultSaver(store))
		logger.Info("using database", "path", cfg.Storage.Path)
	} else {
		logger.Warn("chat history is not persisted")
	}

	rm := room.New(roomCfg, logger.WithPrefix("room"), opts...)
	srv := server.New(serverConfig(cfg.Server), rm, nil, logger.WithPrefix("http"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The room outlives the listener so disconnects are still processed.
	roomCtx, stopRoom := context.WithCancel(context.Background())
	defer stopRoom()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopRoom()
		return rm.Run(roomCtx)
	})
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-rm.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopRoom()
		return err
	})
	return g.Wait()
}
