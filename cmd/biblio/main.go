// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

// Command biblio runs the library management core: the embedded store, the
// lending ledgers and the local HTTP facade a frontend connects to.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campuslib/biblio/internal/api"
	"github.com/campuslib/biblio/internal/config"
	"github.com/campuslib/biblio/internal/database"
	"github.com/campuslib/biblio/internal/logging"
)

// reservationSweepInterval is how often pending reservations past their
// expiry are settled while the process runs. A sweep also runs at startup.
const reservationSweepInterval = time.Hour

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Fatal error")
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := database.New(&cfg.Database, cfg.Policy)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Failed to close database")
		}
	}()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	swept, err := db.ExpireStaleReservations(startCtx)
	cancelStart()
	if err != nil {
		return fmt.Errorf("failed to expire stale reservations: %w", err)
	}
	if swept > 0 {
		logging.Info().Int("count", swept).Msg("Expired stale reservations at startup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reservationSweeper(ctx, db)

	handler := api.NewRouter(api.NewServer(db), cfg.Server.Timeout)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// reservationSweeper periodically settles pending reservations past their
// expiry.
func reservationSweeper(ctx context.Context, db *database.DB) {
	ticker := time.NewTicker(reservationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := db.ExpireStaleReservations(sweepCtx)
			cancel()
			if err != nil {
				logging.Error().Err(err).Msg("Reservation sweep failed")
				continue
			}
			if n > 0 {
				logging.Info().Int("count", n).Msg("Expired stale reservations")
			}
		}
	}
}
