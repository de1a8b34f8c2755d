package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"filehost-backend/internal/models"
	"filehost-backend/internal/services"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const (
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
	uploadField       = "file"
)

// uploadForm is a parsed multipart upload
type uploadForm struct {
	form        *multipart.Form
	file        multipart.File
	filename    string
	description *string
	tags        []string
	private     bool
	owner       string
}

func (u *uploadForm) input(kind string) services.UploadInput {
	return services.UploadInput{
		Kind:            kind,
		Filename:        u.filename,
		Content:         u.file,
		OwnerExternalID: u.owner,
		Description:     u.description,
		Tags:            u.tags,
		Private:         u.private,
	}
}

// Close releases the temporary files of the form
func (u *uploadForm) Close() {
	u.file.Close()
	if err := u.form.RemoveAll(); err != nil {
		log.Warn().Err(err).Msg("Failed to remove multipart temp files")
	}
}

// readUpload parses a multipart upload with a single file field
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &services.ValidationError{
				Message: "invalid upload",
				Errors:  []string{fmt.Sprintf("file exceeds the maximum size of %s", humanize.Bytes(uint64(maxBytes)))},
			}
		}
		return nil, &services.ValidationError{Message: "invalid upload", Errors: []string{"expected multipart/form-data body"}}
	}

	headers := r.MultipartForm.File[uploadField]
	switch {
	case len(headers) == 0:
		r.MultipartForm.RemoveAll()
		return nil, &services.ValidationError{Message: "invalid upload", Errors: []string{"file is required"}}
	case len(headers) > 1:
		r.MultipartForm.RemoveAll()
		return nil, &services.ValidationError{Message: "invalid upload", Errors: []string{"exactly one file is allowed"}}
	}

	private, err := parseBool("private", r.FormValue("private"))
	if err != nil {
		r.MultipartForm.RemoveAll()
		return nil, err
	}

	file, err := headers[0].Open()
	if err != nil {
		r.MultipartForm.RemoveAll()
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}

	u := &uploadForm{
		form:     r.MultipartForm,
		file:     file,
		filename: headers[0].Filename,
		tags:     services.ParseTags(r.FormValue("tags")),
		private:  private,
		owner:    r.FormValue("user_id"),
	}
	if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 {
		description := values[0]
		u.description = &description
	}
	return u, nil
}

// streamFile writes stored content with headers derived from its metadata
func streamFile(w http.ResponseWriter, r *http.Request, file *models.File, content io.Reader, attachment bool) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if file.Private {
		w.Header().Set("Cache-Control", "private, max-age=0")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		log.Warn().Err(err).Str("file_id", file.ID).Str("path", r.URL.Path).Msg("Failed to stream file")
	}
}
