package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/blobstore"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/clinical"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/config"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/lookup"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/provisioning"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/server"
	postgres "github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage/postgres"
)

const sessionPurgeInterval = 15 * time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := sessionStore(cfg, store)
	if pg, ok := sessions.(*postgres.SessionStore); ok {
		go purgeSessions(ctx, pg, logger)
	}
	authority := newAuthority(cfg, store, sessions, logger)

	presigner, err := newPresigner(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("init attachment presigner")
		return err
	}

	srv := server.New(cfg, server.Deps{
		Sessions: authority,
		Users:    provisioning.NewService(store, authority, logger.With().Str("component", "provisioning").Logger()),
		Records:  clinical.NewService(store, presigner, cfg.Location(), logger.With().Str("component", "clinical").Logger()),
		Lookup:   lookup.NewService(store, cfg.Location(), logger.With().Str("component", "lookup").Logger()),
		DB:       store,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddress()).
			Str("session_backend", cfg.SessionBackend).
			Msg("CHIMS backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
			return err
		}
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newPresigner(ctx context.Context, cfg config.Config) (blobstore.Presigner, error) {
	if cfg.AttachmentBucket == "" {
		return blobstore.NopPresigner{}, nil
	}
	return blobstore.NewS3Presigner(ctx, cfg.AttachmentBucket, cfg.AttachmentURLTTL())
}

func purgeSessions(ctx context.Context, store *postgres.SessionStore, logger zerolog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("purge expired sessions")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("purged", n).Msg("expired sessions removed")
			}
		}
	}
}
