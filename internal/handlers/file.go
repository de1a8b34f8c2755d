package handlers

import (
	"net/http"

	"filehost-backend/internal/middleware"
	"filehost-backend/internal/models"
	"filehost-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// FileHandler handles file and image HTTP requests
type FileHandler struct {
	links
	fileService *services.FileService
	maxBytes    int64
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService *services.FileService, publicURL string, maxBytes int64) *FileHandler {
	return &FileHandler{
		links:       links{base: publicURL},
		fileService: fileService,
		maxBytes:    maxBytes,
	}
}

// UpdateFileRequest is the body of PATCH /api/v1/files/{file_id}
type UpdateFileRequest struct {
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Private     *bool     `json:"private"`
	Optimized   *bool     `json:"optimized"`
}

// UploadImage handles POST /api/v1/images
func (h *FileHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, models.KindImage)
}

// UploadFile handles POST /api/v1/files
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, models.KindFile)
}

func (h *FileHandler) upload(w http.ResponseWriter, r *http.Request, kind string) {
	client := middleware.GetClient(r.Context())

	form, err := readUpload(w, r, h.maxBytes)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer form.Close()

	file, err := h.fileService.Upload(r.Context(), client.ID, form.input(kind))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.fileResponse(file))
}

// ListFiles handles GET /api/v1/files
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())
	query := r.URL.Query()

	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	q := services.FileQuery{
		Kind:            query.Get("type"),
		Tags:            services.ParseTags(query.Get("tags")),
		Description:     query.Get("description"),
		Filename:        query.Get("filename"),
		OwnerExternalID: query.Get("user_id"),
		Limit:           limit,
		Offset:          offset,
	}

	files, total, err := h.fileService.List(r.Context(), client.ID, q)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"files": h.fileResponses(files),
		"total": total,
	})
}

// GetFile handles GET /api/v1/files/{file_id}; it counts a view
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	file, err := h.fileService.Get(r.Context(), client.ID, chi.URLParam(r, "file_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.fileResponse(file))
}

// UpdateFile handles PATCH /api/v1/files/{file_id}
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	var req UpdateFileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	file, err := h.fileService.UpdateMetadata(r.Context(), client.ID, chi.URLParam(r, "file_id"), services.FilePatch{
		Description: req.Description,
		Tags:        req.Tags,
		Private:     req.Private,
		Optimized:   req.Optimized,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.fileResponse(file))
}

// DeleteFile handles DELETE /api/v1/files/{file_id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	if err := h.fileService.Delete(r.Context(), client.ID, chi.URLParam(r, "file_id")); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RawFile handles GET /api/v1/files/{file_id}/raw; it counts a view
func (h *FileHandler) RawFile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, services.CountView, false)
}

// DownloadFile handles GET /api/v1/files/{file_id}/download; it counts a download
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, services.CountDownload, true)
}

func (h *FileHandler) serve(w http.ResponseWriter, r *http.Request, counter services.AccessCounter, attachment bool) {
	client := middleware.GetClient(r.Context())

	file, rc, err := h.fileService.Open(r.Context(), client.ID, chi.URLParam(r, "file_id"), counter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer rc.Close()

	streamFile(w, r, file, rc, attachment)
}
