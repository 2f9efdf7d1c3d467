package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/services"
	"github.com/rpupo63/nexusnews-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// multipartOverhead leaves room for the form boundaries around the file.
const multipartOverhead = 64 << 10

type uploadHandler struct {
	responder Responder
	logger    zerolog.Logger
	uploads   *services.Uploads
	blobs     *storage.MemoryStore
}

func newUploadHandler(uploads *services.Uploads, blobs *storage.MemoryStore) uploadHandler {
	logger := log.With().Str("handlerName", "uploadHandler").Logger()
	return uploadHandler{
		responder: NewResponder(logger),
		logger:    logger,
		uploads:   uploads,
		blobs:     blobs,
	}
}

// uploadImage stores the multipart "file" field in a bucket
// @Summary Upload image
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param bucket path string true "avatars or post-images"
// @Param file formData file true "Image"
// @Success 201 {object} UploadResponse
// @Failure 413 {object} ErrorResponse "File too large"
// @Failure 415 {object} ErrorResponse "Not an image"
// @Router /uploads/{bucket} [post]
func (h uploadHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := h.uploads.MaxBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(maxBytes))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart form", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("file", err))
			return
		}

		url, err := h.uploads.UploadImage(r.Context(), ctxGetPrincipal(r.Context()), chi.URLParam(r, "bucket"), header.Filename, data)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, UploadResponse{URL: url})
	}
}

// serveBlob serves images held by the in-memory object store.
func (h uploadHandler) serveBlob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket, ok := storage.ParseBucket(chi.URLParam(r, "bucket"))
		if !ok || h.blobs == nil {
			h.responder.WriteError(w, errs.NewNotFound("blob"))
			return
		}
		blob, ok := h.blobs.Get(bucket, chi.URLParam(r, "key"))
		if !ok {
			h.responder.WriteError(w, errs.NewNotFound("blob"))
			return
		}

		w.Header().Set("Content-Type", blob.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := w.Write(blob.Data); err != nil {
			h.logger.Error().Err(err).Msg("error writing blob")
		}
	}
}
