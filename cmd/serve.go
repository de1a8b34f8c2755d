package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"filehost-backend/internal/config"
	"filehost-backend/internal/handlers"
	"filehost-backend/internal/services"
	"filehost-backend/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// ServeCommand creates the 'serve' command running the HTTP API
func ServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("Storage ready")

	events := services.NewEventHub()
	clientService := services.NewClientService(st.clients, st.users)
	fileService := services.NewFileService(st.files, st.users, store, events, services.FileServiceConfig{
		MaxBytes:          cfg.Upload.MaxBytes(),
		AllowedImageTypes: cfg.Upload.AllowedImageTypes,
		AllowedFileTypes:  cfg.Upload.AllowedFileTypes,
	})
	userService := services.NewUserService(st.users, fileService)
	albumService := services.NewAlbumService(st.albums, st.users, fileService, events, cfg.Auth.ShareSecret)

	if cfg.Cleanup.Enabled {
		sweeper, err := services.NewSweeper(st.albums, cfg.Cleanup.At, cfg.Cleanup.CleanupLocation())
		if err != nil {
			return err
		}
		go sweeper.Start(ctx)
	}

	if cfg.Auth.AdminKey == "" {
		log.Warn().Msg("No admin key configured, client provisioning over HTTP is disabled")
	}

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Clients:           clientService,
			Users:             userService,
			Files:             fileService,
			Albums:            albumService,
			Events:            events,
			PublicURL:         cfg.Server.PublicURL,
			MaxUploadBytes:    cfg.Upload.MaxBytes(),
			AdminKey:          cfg.Auth.AdminKey,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("public_url", cfg.Server.PublicURL).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
