package http

import (
	"net/http"

	"github.com/devforum/api/internal/application/comment"
	"github.com/devforum/api/internal/application/message"
	"github.com/devforum/api/internal/application/notification"
	"github.com/devforum/api/internal/application/thread"
	"github.com/devforum/api/internal/application/vote"
	"github.com/devforum/api/internal/config"
	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/devforum/api/internal/infrastructure/jwt"
	s3infra "github.com/devforum/api/internal/infrastructure/s3"
	"github.com/devforum/api/internal/infrastructure/smtp"
	"github.com/devforum/api/internal/infrastructure/sns"
	"github.com/devforum/api/internal/realtime"
	"github.com/devforum/api/internal/transport/http/handler"
	appmiddleware "github.com/devforum/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	ThreadRepo       *dynamo.ThreadRepo
	CommentRepo      *dynamo.CommentRepo
	MessageRepo      *dynamo.MessageRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
	Hub              *realtime.Hub
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to write endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	notifSvc := notification.NewService(notification.ServiceDeps{
		NotificationRepo: deps.NotificationRepo,
		UserRepo:         deps.UserRepo,
		Mailer:           deps.Mailer,
		SMSSender:        deps.SMSSender,
		Retention:        cfg.NotificationRetention,
	})
	voteSvc := vote.NewService(vote.ServiceDeps{
		ThreadRepo:  deps.ThreadRepo,
		CommentRepo: deps.CommentRepo,
		Notifier:    notifSvc,
		Realtime:    deps.Hub,
		MaxRetries:  cfg.VoteMaxRetries,
	})
	msgDeps := message.ServiceDeps{
		MessageRepo: deps.MessageRepo,
		UserRepo:    deps.UserRepo,
		Notifier:    notifSvc,
		Realtime:    deps.Hub,
	}
	if deps.S3Store != nil {
		msgDeps.Attachments = deps.S3Store
	}
	msgSvc := message.NewService(msgDeps)
	threadSvc := thread.NewService(deps.ThreadRepo, notifSvc, deps.Hub)
	commentSvc := comment.NewService(comment.ServiceDeps{
		CommentRepo: deps.CommentRepo,
		ThreadRepo:  deps.ThreadRepo,
		UserRepo:    deps.UserRepo,
		Notifier:    notifSvc,
		Realtime:    deps.Hub,
	})

	healthH := handler.NewHealthHandler()
	threadH := handler.NewThreadHandler(threadSvc)
	commentH := handler.NewCommentHandler(commentSvc)
	voteH := handler.NewVoteHandler(voteSvc)
	msgH := handler.NewMessageHandler(msgSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	wsH := handler.NewWSHandler(deps.Hub, msgSvc, cfg.AllowedOrigins)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Get("/threads", threadH.List)
		r.Get("/threads/{id}", threadH.Get)
		r.Get("/threads/{id}/comments", commentH.ListByThread)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/ws", wsH.Connect)

			r.Post("/threads", threadH.Create)
			r.Post("/threads/{id}/comments", commentH.Create)
			r.With(sensitiveRL.Limit).Post("/threads/{id}/vote", voteH.VoteThread)
			r.With(sensitiveRL.Limit).Post("/comments/{id}/vote", voteH.VoteComment)

			r.With(sensitiveRL.Limit).Post("/messages", msgH.Send)
			r.Get("/messages/{userId}", msgH.Conversation)
			r.Put("/messages/{id}/read", msgH.MarkRead)
			r.Delete("/messages/{id}", msgH.Delete)

			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/read-all", notifH.MarkAllRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/notifications/system", notifH.SendSystem)
			})
		})
	})

	return r
}
