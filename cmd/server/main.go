package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/auth"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/config"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/logging"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/provisioning"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/seed"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/session"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
	postgres "github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage/postgres"
)

const tokenIssuer = "chims"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chims",
		Short:         "Centralized health information management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())
	return root
}

// bootstrap loads the environment, configuration and logger shared by every
// subcommand.
func bootstrap() (config.Config, zerolog.Logger, error) {
	loadLocalEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogPretty), nil
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("init database")
		return nil, err
	}
	return store, nil
}

// sessionStore picks the configured backend.
func sessionStore(cfg config.Config, store *postgres.Store) storage.SessionStore {
	if cfg.SessionBackend == config.SessionBackendPostgres {
		return postgres.NewSessionStore(store.Pool())
	}
	return session.NewMemoryStore()
}

func newAuthority(cfg config.Config, store *postgres.Store, sessions storage.SessionStore, logger zerolog.Logger) *session.Authority {
	tokens := auth.NewTokenManager(cfg.SessionSecret, tokenIssuer)
	return session.NewAuthority(store, sessions, tokens, cfg.SessionTTL(), logger.With().Str("component", "session").Logger())
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			// NewStore migrates on connect.
			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision users from a YAML fixture file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			fixtures, err := seed.LoadFile(file)
			if err != nil {
				logger.Error().Err(err).Msg("load seed file")
				return err
			}
			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			users := provisioning.NewService(store, nil, logger)
			res, err := seed.Apply(cmd.Context(), users, fixtures, logger)
			if err != nil {
				logger.Error().Err(err).Msg("seed failed")
				return err
			}
			logger.Info().Int("created", res.Created).Int("skipped", res.Skipped).Msg("seed complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "users.yaml", "path to the YAML fixture file")
	return cmd
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found; relying on existing environment")
	}
}
