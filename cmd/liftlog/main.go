package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/counter"
	"github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/resttimer"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	mcpStdio := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(1)
	}

	// In MCP stdio mode stdout carries the protocol, so logs go to stderr.
	logOut := os.Stdout
	if *mcpStdio {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	log.Info("LiftLog starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open the store. Postgres runs migrations first; the SQLite store
	// creates its schema inline on open.
	ctx := context.Background()
	var store storage.Store
	switch cfg.Database.Driver {
	case "postgres":
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
		log.Info("database connected")
	case "sqlite":
		if *migrateOnly {
			log.Info("migrate-only: sqlite schema is created on open, exiting")
			return
		}
		local, err := storage.OpenLocal(cfg.Database.Path)
		if err != nil {
			log.Error("failed to open local database", "error", err)
			os.Exit(1)
		}
		defer local.Close()
		store = local
		log.Info("local database opened", "path", cfg.Database.Path)
	}

	// Build engines
	engine := session.New(store, store, log)
	engine.AddListener(sessionLogger{log})

	counters := counter.New(store, log,
		counter.WithDebounce(time.Duration(cfg.Engine.DebounceMs)*time.Millisecond),
		counter.WithSettleDelay(time.Duration(cfg.Engine.SettleMs)*time.Millisecond),
		counter.WithSyncTimeout(time.Duration(cfg.Engine.SyncTimeoutSec)*time.Second),
	)
	counters.SetErrorHandler(func(id string, err error) {
		log.Error("counter sync failed", "counter_id", id, "error", err)
	})

	timer := resttimer.New(log, resttimer.WithEvents(timerLogger{log}))

	if *mcpStdio {
		s := mcp.New(engine, counters, store, Version, log)
		log.Info("mcp server starting", "transport", "stdio")
		if err := mcpserver.ServeStdio(s); err != nil {
			log.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}

	srv := server.New(engine, counters, timer, store, cfg.Auth.APIKey, cfg.Engine.RestTimerDefaultSec, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	timer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// sessionLogger logs workout session changes.
type sessionLogger struct {
	log *slog.Logger
}

func (l sessionLogger) SessionChanged(s models.WorkoutSession) {
	l.log.Info("session changed",
		"session_id", s.ID,
		"routine", s.RoutineName,
		"exercises", len(s.Exercises),
		"completed_sets", s.CompletedSets,
		"active", s.IsActive,
	)
}

// timerLogger logs rest timer events.
type timerLogger struct {
	log *slog.Logger
}

func (l timerLogger) Tick(remaining int) {}

func (l timerLogger) FinalCountdown(remaining int) {
	l.log.Info("rest timer countdown", "remaining_sec", remaining)
}

func (l timerLogger) Completed(totalSec int) {
	l.log.Info("rest timer completed", "total_sec", totalSec)
}
