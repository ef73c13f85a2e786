package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/feed"
	"github.com/rpupo63/blog-backend/models"
	"github.com/rpupo63/blog-backend/uploads"
)

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

type adminHandler struct {
	responder Responder
	logger    zerolog.Logger
	gateway   *content.Gateway
	queries   *content.Queries
	uploader  Uploader
}

func newAdminHandler(gateway *content.Gateway, queries *content.Queries, uploader Uploader) adminHandler {
	logger := log.With().Str("handlerName", "adminHandler").Logger()

	return adminHandler{
		responder: NewResponder(logger),
		logger:    logger,
		gateway:   gateway,
		queries:   queries,
		uploader:  uploader,
	}
}

// panel serves every record, drafts included, with the aggregate counters.
// @Router /admin [get]
func (h adminHandler) panel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogs, err := h.queries.Blogs(r.Context(), content.ScopeAdmin)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, AdminPanelResponse{
			Session:    newSessionResponse(ctxGetSession(r.Context()), false),
			Blogs:      blogs,
			Stats:      feed.Stats(blogs),
			Categories: feed.Categories(blogs),
		})
	}
}

// @Router /admin/stats [get]
func (h adminHandler) stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.queries.Stats(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, stats)
	}
}

// @Router /admin/blogs [post]
func (h adminHandler) createBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.BlogInput
		if err := decodeJSON(w, r, "blog", &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		id, ev, err := h.gateway.Create(r.Context(), in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("blogID", id.String()).Str("uid", ctxGetSession(r.Context()).UID).Msg("blog created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, CreateResponse{ID: id, Invalidated: ev.Groups})
	}
}

// @Router /admin/blogs/{blogID} [put]
func (h adminHandler) updateBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := blogIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var patch models.BlogPatch
		if err := decodeJSON(w, r, "blog", &patch); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if patch.IsEmpty() {
			h.responder.WriteError(w, errs.NewBadRequestError("no fields to update"))
			return
		}

		blog, ev, err := h.gateway.Update(r.Context(), id, patch)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, UpdateResponse{Blog: blog, Invalidated: ev.Groups})
	}
}

// @Router /admin/blogs/{blogID} [delete]
func (h adminHandler) deleteBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := blogIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		ev, err := h.gateway.Delete(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Str("blogID", id.String()).Str("uid", ctxGetSession(r.Context()).UID).Msg("blog deleted")
		h.responder.WriteJSON(w, DeleteResponse{Status: "deleted", Invalidated: ev.Groups})
	}
}

// uploadImage stores the multipart field "file" and returns its URL.
// @Router /admin/uploads [post]
func (h adminHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.uploader == nil {
			h.responder.WriteError(w, errs.NewFeatureNotConfiguredError("uploads", "S3_BUCKET"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxSize+1<<20)
		if err := r.ParseMultipartForm(uploads.MaxSize); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(uploads.MaxSize))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			return
		}
		defer file.Close()

		body := bufio.NewReader(file)
		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			sniff, _ := body.Peek(512)
			contentType = http.DetectContentType(sniff)
		}

		url, err := h.uploader.Put(r.Context(), header.Filename, contentType, body)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, UploadResponse{URL: url})
	}
}
