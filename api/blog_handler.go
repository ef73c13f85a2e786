package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/engagement"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/feed"
)

type blogHandler struct {
	responder Responder
	logger    zerolog.Logger
	queries   *content.Queries
	tracker   *engagement.Tracker
}

func newBlogHandler(queries *content.Queries, tracker *engagement.Tracker) blogHandler {
	logger := log.With().Str("handlerName", "blogHandler").Logger()

	return blogHandler{
		responder: NewResponder(logger),
		logger:    logger,
		queries:   queries,
		tracker:   tracker,
	}
}

// blogIDParam parses the {blogID} path parameter.
func blogIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "blogID")
	if raw == "" {
		return uuid.Nil, errs.NewMissingRequiredFieldError("blogID")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewValidationError("blogID", "must be a UUID")
	}
	return id, nil
}

func intQuery(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// listBlogs serves the assembled public feed.
// @Router / [get]
func (h blogHandler) listBlogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogs, err := h.queries.Blogs(r.Context(), content.ScopePublic)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		q := r.URL.Query()
		view := feed.Assemble(blogs, feed.Params{
			Category: q.Get("category"),
			Search:   q.Get("q"),
			Sort:     feed.ParseSort(q.Get("sort")),
		})
		regular, page := feed.Paginate(view.Regular, intQuery(r, "page"), intQuery(r, "pageSize"))

		h.responder.WriteJSON(w, ListResponse{
			Featured:   view.Featured,
			Blogs:      regular,
			Page:       page,
			Categories: feed.Categories(blogs),
		})
	}
}

// getBlog serves one published post and records a view in the background.
// @Router /blog/{blogID} [get]
func (h blogHandler) getBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := blogIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		blog, err := h.queries.Blog(r.Context(), id, content.ScopePublic)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.tracker.ViewMounted(r.Context(), id)
		h.responder.WriteJSON(w, blog)
	}
}

// likeBlog moves the reader's like to the requested state. The body carries
// the desired state, so the reader's prior state is its negation.
// @Router /blog/{blogID}/like [post]
func (h blogHandler) likeBlog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := blogIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req LikeRequest
		if err := decodeJSON(w, r, "like", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if _, err := h.queries.Blog(r.Context(), id, content.ScopePublic); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		like := engagement.NewLike(id, !req.Liked)
		liked, err := h.tracker.ToggleLike(r.Context(), like)
		if err != nil {
			h.responder.WriteErrorWith(w, err, map[string]any{
				"liked": liked,
				"state": like.State().String(),
			})
			return
		}

		h.responder.WriteJSON(w, LikeResponse{Liked: liked, State: like.State().String()})
	}
}
