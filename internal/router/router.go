package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-ecoforum/internal/config"
	"go-ecoforum/internal/handler"
	"go-ecoforum/internal/middleware"
	"go-ecoforum/internal/model"
)

type Handlers struct {
	Recycle *handler.RecycleHandler
	Report  *handler.ReportHandler
	Comment *handler.CommentHandler
	Audit   *handler.AuditHandler
	Feed    *handler.FeedHandler
	Health  *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.ReportRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)

	r.Route("/api/v1", func(api chi.Router) {
		// The feed is long-lived, so it stays outside the request timeout.
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles(model.RoleAdmin, model.RoleModerator)).Get("/moderation/feed", h.Feed.Serve)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			// Public reads of the comment tree.
			api.Group(func(public chi.Router) {
				public.Use(authMiddleware.OptionalAuth)
				public.Get("/threads/{thread_id}/comments", h.Comment.ListThread)
				public.Get("/comments/{id}/replies", h.Comment.ListReplies)
				public.Get("/comments/{id}/replies/count", h.Comment.CountReplies)
				public.Get("/comments/{id}/subtree", h.Comment.Subtree)
			})

			api.Group(func(authed chi.Router) {
				authed.Use(authMiddleware.RequireAuth)

				authed.Post("/threads/{thread_id}/comments", h.Comment.Post)
				authed.Delete("/comments/{id}", h.Comment.Delete)

				authed.Delete("/content/{table}/{id}", h.Recycle.SoftDelete)
				authed.Get("/recycle-bin", h.Recycle.List)
				authed.Post("/recycle-bin/{table}/{id}/restore", h.Recycle.Restore)

				authed.Post("/reports", h.Report.File)
				authed.Get("/reports", h.Report.List)
				authed.Get("/reports/count", h.Report.Count)
				authed.Get("/reports/{id}", h.Report.Get)
				authed.Post("/reports/{id}/resolve", h.Report.Resolve)
				authed.Post("/reports/{id}/reject", h.Report.Reject)

				authed.Get("/audit", h.Audit.List)
			})
		})
	})

	return r
}
