package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/leafremote/leafremote/pkg/carwings"
	"github.com/leafremote/leafremote/pkg/credentials"
	"github.com/leafremote/leafremote/pkg/log"
	"github.com/leafremote/leafremote/pkg/server"
	"github.com/leafremote/leafremote/pkg/storage"
)

func main() {
	// init packages
	creds := credentials.Configured()
	cw := carwings.Configured()
	s := storage.Configured()
	srv := server.Configured(s)

	command := lflag.String("command", "status", "Command to run (connect, status, battery, climate-start, climate-stop, serve, save-password)")
	pollInterval := lflag.Duration("poll-interval", defaultPollInterval, "Delay between result polls")
	pollAttempts := lflag.Int("poll-attempts", defaultPollAttempts, "Maximum result polls per operation")

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog(llog.GetLevel())
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	// stdout carries command output
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.With(ctx, logger)
	log.Ctx(ctx).DebugContext(ctx, "logger configured", slog.String("level", level.String()))

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if *command == "save-password" {
		if err := savePassword(ctx, creds); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to save password", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	c, err := creds.Resolve(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to resolve credentials", slog.Any("error", err))
		os.Exit(1)
	}
	session := cw.NewSession(c.Username, c.Password, c.Region)

	if *command == "serve" {
		// Run will block until context is canceled or error happens
		if err := srv.Run(ctx, session); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
		return
	}

	a := &app{
		session:      session,
		storage:      s,
		out:          os.Stdout,
		pollInterval: *pollInterval,
		pollAttempts: *pollAttempts,
	}
	if err := a.run(ctx, *command); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "command failed", slog.String("command", *command), slog.Any("error", err))
		os.Exit(1)
	}
}

func savePassword(ctx context.Context, creds *credentials.Source) error {
	pw := creds.Password()
	if pw == "" {
		var err error
		pw, err = creds.Prompt("Carwings password to store")
		if err != nil {
			return err
		}
	}
	return creds.Store(ctx, pw)
}
