// Package api exposes the tracker over HTTP.
package api

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/nhle/trackmate/internal/auth"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
	"github.com/nhle/trackmate/internal/store"
)

// Authenticator completes the Google consent round trip.
type Authenticator interface {
	Configured() bool
	AuthURL(state string) string
	SignIn(ctx context.Context, code string, users auth.UserStore) (*model.User, error)
}

// Syncer runs one synchronization pass for a user.
type Syncer interface {
	SyncOnce(ctx context.Context, src source.Source, userID string) (model.SyncSummary, error)
}

// SourceFactory opens the mailbox of a signed-in user.
type SourceFactory func(ctx context.Context, user *model.User) (source.Source, error)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Store          store.Store
	Issuer         *auth.Issuer
	Google         Authenticator
	Syncer         Syncer
	Sources        SourceFactory
	AttentionLabel string
	Config         model.ServerConfig
	Log            zerolog.Logger
}

// Server is the fiber application with its routes registered.
type Server struct {
	app  *fiber.App
	deps Deps
	log  zerolog.Logger
}

// New builds the server and registers every route.
func New(deps Deps) *Server {
	if deps.AttentionLabel == "" {
		deps.AttentionLabel = model.LabelRequiresAttention
	}

	log := deps.Log.With().Str("component", "api").Logger()
	s := &Server{deps: deps, log: log}

	s.app = fiber.New(fiber.Config{
		AppName:               "trackmate",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New(corsConfig(deps.Config.CORSOrigins)))

	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := s.app.Group("/api")

	google := api.Group("/auth/google")
	google.Get("/url", s.googleAuthURL)
	google.Post("/login", s.googleLogin)
	google.Get("/callback", s.googleCallback)
	api.Get("/auth/me", s.requireUser, s.me)

	emails := api.Group("/emails", s.requireUser)
	emails.Get("/unread", s.unreadEmails)
	emails.Get("/requires-attention", s.attentionEmails)
	emails.Get("/stored", s.storedEmails)
	emails.Post("/sync", s.syncEmails)
	emails.Get("/", s.listEmails)
	emails.Get("/:id", s.getEmail)

	jobs := api.Group("/jobs", s.requireUser)
	jobs.Get("/", s.listJobs)
	jobs.Post("/", s.createJob)
	jobs.Get("/:id", s.getJob)
	jobs.Get("/:id/emails", s.jobEmails)
	jobs.Put("/:id", s.updateJob)
	jobs.Delete("/:id", s.deleteJob)
}

// corsConfig allows the configured origins. Credentials are only allowed
// when no wildcard origin is configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowOrigins = "*"
		return cfg
	}
	cfg.AllowOrigins = strings.Join(origins, ",")
	cfg.AllowCredentials = true
	return cfg
}

// errorHandler renders every error as {"detail": ...}.
func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := "Internal server error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code, detail = fe.Code, fe.Message
		case errors.Is(err, store.ErrNotFound), errors.Is(err, source.ErrNotFound):
			code, detail = fiber.StatusNotFound, "Not found"
		case errors.Is(err, auth.ErrInvalidToken):
			code, detail = fiber.StatusUnauthorized, "Could not validate credentials"
		case source.IsAuthError(err):
			code, detail = fiber.StatusUnauthorized, "Mailbox authorization expired, sign in again"
		}

		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}
		return c.Status(code).JSON(fiber.Map{"detail": detail})
	}
}
