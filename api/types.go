package api

import (
	"github.com/google/uuid"

	"github.com/rpupo63/blog-backend/feed"
	"github.com/rpupo63/blog-backend/invalidate"
	"github.com/rpupo63/blog-backend/models"
	"github.com/rpupo63/blog-backend/session"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	blogHandler   blogHandler
	authHandler   authHandler
	adminHandler  adminHandler
	healthHandler healthHandler
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// ListResponse is the assembled public feed.
type ListResponse struct {
	Featured   *models.Blog  `json:"featured"`
	Blogs      []models.Blog `json:"blogs"`
	Page       feed.Page     `json:"page"`
	Categories []string      `json:"categories"`
}

type LikeRequest struct {
	Liked bool `json:"liked"`
}

type LikeResponse struct {
	Liked bool   `json:"liked"`
	State string `json:"state"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token       string        `json:"token,omitempty"`
	State       session.State `json:"state"`
	UID         string        `json:"uid,omitempty"`
	Email       string        `json:"email,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
	IsAdmin     bool          `json:"isAdmin"`
}

func newSessionResponse(sess *session.Session, withToken bool) SessionResponse {
	resp := SessionResponse{
		State:       sess.State,
		UID:         sess.UID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		IsAdmin:     sess.IsAdmin(),
	}
	if withToken {
		resp.Token = sess.Token
	}
	return resp
}

// AdminPanelResponse is everything the admin panel renders on load.
type AdminPanelResponse struct {
	Session    SessionResponse  `json:"session"`
	Blogs      []models.Blog    `json:"blogs"`
	Stats      models.BlogStats `json:"stats"`
	Categories []string         `json:"categories"`
}

type CreateResponse struct {
	ID          uuid.UUID          `json:"id"`
	Invalidated []invalidate.Group `json:"invalidated"`
}

type UpdateResponse struct {
	Blog        models.Blog        `json:"blog"`
	Invalidated []invalidate.Group `json:"invalidated"`
}

type DeleteResponse struct {
	Status      string             `json:"status"`
	Invalidated []invalidate.Group `json:"invalidated"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}
