package bootstrap

import (
	"context"
	"strings"

	"officeflow/adapter/in/http"
	"officeflow/config"
	"officeflow/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
)

// NewAPI builds the Fiber app with every trigger route registered.
func NewAPI(cfg *config.Config, log zerolog.Logger) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return newAPI(deps), cleanup, nil
}

func newAPI(deps *Dependencies) *fiber.App {
	cfg, log := deps.Config, deps.Log

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),

		// go-json: 표준 encoding/json 대비 빠른 직렬화
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:          4 * 1024 * 1024, // 4MB
		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger(log))

	// AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := allowOrigins != "" && allowOrigins != "*"
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	http.NewHealthHandler(healthChecks(deps)).Register(app)

	api := app.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))
	api.Use("/emails/fetch", middleware.Debounce(deps.FetchLimiter))

	http.NewEmailHandler(deps.Ingest, deps.Router).Register(api)
	http.NewAutomationHandler(deps.Scanner, deps.Analytics, deps.Summaries).Register(api)
	http.NewWorkHandler(deps.Tasks, deps.Assignments).Register(api)
	http.NewDocumentHandler(deps.Documents).Register(api)

	log.Info().Msg("API server initialized")
	return app
}

// healthChecks reports unconfigured stores as nil so /ready shows them
// without failing.
func healthChecks(deps *Dependencies) map[string]http.HealthChecker {
	checks := map[string]http.HealthChecker{
		"postgres": nil,
		"redis":    nil,
		"mongodb":  nil,
	}
	if deps.DB != nil {
		checks["postgres"] = http.PingFunc(deps.DB.Ping)
	}
	if deps.Redis != nil {
		checks["redis"] = http.PingFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}
	if deps.Mongo != nil {
		checks["mongodb"] = http.PingFunc(func(ctx context.Context) error {
			return deps.Mongo.Ping(ctx, nil)
		})
	}
	return checks
}
