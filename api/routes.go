package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes wires the public feed, the session endpoints and the admin
// surface. Admin JSON routes answer 401/403; the admin panel redirects.
func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, logFormat string) {
	r.Get("/healthz", handlers.healthHandler.healthz())

	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware(logFormat))

		r.Get("/", handlers.blogHandler.listBlogs())
		r.Get("/blog/{blogID}", handlers.blogHandler.getBlog())
		r.Post("/blog/{blogID}/like", handlers.blogHandler.likeBlog())

		r.Post("/auth/login", handlers.authHandler.login())
		r.Post("/auth/logout", handlers.authHandler.logout())
		r.Get("/auth/session", handlers.authHandler.getSession())

		r.With(authMiddleware.requireAdminPage).Get("/admin", handlers.adminHandler.panel())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.requireAdmin)

			r.Get("/admin/stats", handlers.adminHandler.stats())
			r.Post("/admin/blogs", handlers.adminHandler.createBlog())
			r.Put("/admin/blogs/{blogID}", handlers.adminHandler.updateBlog())
			r.Delete("/admin/blogs/{blogID}", handlers.adminHandler.deleteBlog())
			r.Post("/admin/uploads", handlers.adminHandler.uploadImage())
		})
	})
}
