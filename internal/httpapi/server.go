// Package httpapi serves the scoring, storage, and results endpoints over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/results"
	"github.com/rbright/parley/internal/scoring"
)

const (
	DefaultRateLimit  = 20
	DefaultRateWindow = time.Minute
	shutdownTimeout   = 5 * time.Second
	accessLogFormat   = `{"time":"${time}","request_id":"${locals:requestid}","status":${status},"latency":"${latency}","method":"${method}","path":"${path}"}` + "\n"
)

// Scorer grades one transcript.
type Scorer interface {
	Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error)
}

// Answerer handles follow-up questions about a finished interview.
type Answerer interface {
	Answer(ctx context.Context, q scoring.Question) (string, error)
}

// Store is the Interview Store as seen by the API.
type Store interface {
	Create(ctx context.Context, draft interview.Draft) (string, error)
	Read(ctx context.Context, id string) (interview.Record, error)
	Ping(ctx context.Context) error
}

// Deps wires the API to its collaborators. Logger, AccessLog and the rate settings are optional.
type Deps struct {
	Scorer    Scorer
	Answerer  Answerer
	Store     Store
	Resolver  *results.Resolver
	Logger    *slog.Logger
	AccessLog io.Writer

	RateLimit  int
	RateWindow time.Duration
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

// New builds the fiber application.
func New(deps Deps) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "httpapi")
	if deps.AccessLog == nil {
		deps.AccessLog = io.Discard
	}
	if deps.RateLimit <= 0 {
		deps.RateLimit = DefaultRateLimit
	}
	if deps.RateWindow <= 0 {
		deps.RateWindow = DefaultRateWindow
	}
	if deps.Resolver == nil && deps.Store != nil {
		deps.Resolver = results.NewResolver(logger, deps.Store, nil)
	}

	app := fiber.New(fiber.Config{
		AppName:               "parley",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: deps.AccessLog, Format: accessLogFormat}))
	app.Use(helmet.New())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{AllowOrigins: "*"}))
	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			if deps.Store == nil {
				return false
			}
			return deps.Store.Ping(c.UserContext()) == nil
		},
	}))

	h := &handlers{deps: deps, logger: logger}
	limit := rateLimiter(deps.RateLimit, deps.RateWindow)

	api := app.Group("/api")
	api.Post("/evaluate", limit, h.evaluate)
	api.Post("/interviews", h.createInterview)
	api.Get("/interviews", h.readInterview)
	api.Post("/debug", limit, h.debug)
	app.Get("/results", h.results)
	return app
}

func rateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			logger.Error("request failed", "path", c.Path(), "error", message)
			message = "Internal Server Error"
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return err
		}
		return <-errCh
	}
}
