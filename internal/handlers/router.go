package handlers

import (
	"net/http"

	"filehost-backend/internal/metrics"
	"filehost-backend/internal/middleware"
	"filehost-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds everything the HTTP surface needs
type RouterConfig struct {
	Clients           *services.ClientService
	Users             *services.UserService
	Files             *services.FileService
	Albums            *services.AlbumService
	Events            *services.EventHub
	PublicURL         string
	MaxUploadBytes    int64
	AdminKey          string
	RequestsPerMinute int
}

// NewRouter builds the HTTP router
func NewRouter(cfg RouterConfig) http.Handler {
	clientHandler := NewClientHandler(cfg.Clients, cfg.Events)
	userHandler := NewUserHandler(cfg.Users, cfg.PublicURL, cfg.MaxUploadBytes)
	fileHandler := NewFileHandler(cfg.Files, cfg.PublicURL, cfg.MaxUploadBytes)
	albumHandler := NewAlbumHandler(cfg.Albums, cfg.PublicURL)
	shareHandler := NewShareHandler(cfg.Albums, cfg.PublicURL)
	eventsHandler := NewEventsHandler(cfg.Events)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS)

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/share/{token}", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(cfg.RequestsPerMinute))
		r.Get("/", shareHandler.GetShared)
		r.Get("/files/{file_id}", shareHandler.GetSharedFile)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Provisioning
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminKey))
			r.Post("/clients", clientHandler.CreateClient)
			r.Get("/clients/{client_id}", clientHandler.GetClient)
			r.Patch("/clients/{client_id}", clientHandler.UpdateClient)
		})

		// Tenant routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.Clients, false))
			r.Use(middleware.RateLimit(cfg.RequestsPerMinute))

			r.Get("/me", clientHandler.Me)

			r.Post("/users", userHandler.UpsertUser)
			r.Get("/users", userHandler.ListUsers)
			r.Get("/users/{external_id}", userHandler.GetUser)
			r.Put("/users/{external_id}/avatar", userHandler.PutAvatar)
			r.Get("/users/{external_id}/avatar", userHandler.GetAvatar)

			r.Post("/images", fileHandler.UploadImage)
			r.Post("/files", fileHandler.UploadFile)
			r.Get("/files", fileHandler.ListFiles)
			r.Get("/files/{file_id}", fileHandler.GetFile)
			r.Patch("/files/{file_id}", fileHandler.UpdateFile)
			r.Delete("/files/{file_id}", fileHandler.DeleteFile)
			r.Get("/files/{file_id}/raw", fileHandler.RawFile)
			r.Get("/files/{file_id}/download", fileHandler.DownloadFile)

			r.Post("/albums", albumHandler.CreateAlbum)
			r.Get("/albums", albumHandler.ListAlbums)
			r.Get("/albums/{album_id}", albumHandler.GetAlbum)
			r.Patch("/albums/{album_id}", albumHandler.UpdateAlbum)
			r.Delete("/albums/{album_id}", albumHandler.DeleteAlbum)
			r.Post("/albums/{album_id}/images", albumHandler.AddImages)
			r.Delete("/albums/{album_id}/images/{file_id}", albumHandler.RemoveImage)
			r.Post("/albums/{album_id}/share", albumHandler.CreateShare)
			r.Get("/albums/{album_id}/share", albumHandler.ListShares)
			r.Delete("/albums/{album_id}/share/{token_id}", albumHandler.DeleteShare)
		})
	})

	r.With(middleware.APIKeyAuth(cfg.Clients, true)).Get("/ws", eventsHandler.HandleWebSocket)

	return r
}
