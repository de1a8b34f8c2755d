package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"filehost-backend/internal/config"
	"filehost-backend/internal/repository"
	"filehost-backend/internal/repository/memory"
	"filehost-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the filehost command line
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// NewRootCommand builds the filehost command tree
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "filehost",
		Short:         "Multi-tenant file and image hosting API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load configuration")
			return nil, err
		}
		setupLogger(cfg.Log.Level, cfg.Log.Format)
		return cfg, nil
	}

	root.AddCommand(
		ServeCommand(load),
		MigrateCommand(load),
		SweepCommand(load),
		ClientCommand(load),
	)
	return root
}

// stores bundles the persistence layer selected by database.driver
type stores struct {
	clients services.ClientStore
	users   services.UserStore
	files   services.FileStore
	albums  services.AlbumStore
	close   func()
}

// openStores connects to the configured database. Postgres is migrated on open.
func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("Using in-memory database, data is lost on exit")
		store := memory.NewStore()
		return &stores{
			clients: store.Clients(),
			users:   store.Users(),
			files:   store.Files(),
			albums:  store.Albums(),
			close:   func() {},
		}, nil
	}

	db, err := connectPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		clients: repository.NewClientRepository(db),
		users:   repository.NewUserRepository(db),
		files:   repository.NewFileRepository(db),
		albums:  repository.NewAlbumRepository(db),
		close:   db.Close,
	}, nil
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("Database connection established")
	return db, nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if strings.ToLower(format) != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
