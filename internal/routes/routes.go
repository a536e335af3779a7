package routes

import (
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/adaptor"
    "github.com/gofiber/fiber/v2/middleware/recover"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/wagerbook/wagerbook/internal/betting"
    "github.com/wagerbook/wagerbook/internal/commands"
    "github.com/wagerbook/wagerbook/internal/config"
    "github.com/wagerbook/wagerbook/internal/metrics"
    "github.com/wagerbook/wagerbook/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    Cfg      config.Config
    DB       *pgxpool.Pool
    Cache    *redis.Client
    Logger   *slog.Logger
    Betting  *betting.Service
    Commands *commands.Dispatcher
    Metrics  *metrics.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
    if d.Betting == nil || d.Commands == nil {
        return fmt.Errorf("betting service and command dispatcher are required")
    }
    // Outside of dev, a Redis-less deployment loses idempotency and rate limits.
    if !isDev(d.Cfg.AppEnv) && d.Cache == nil {
        return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
    }

    app.Use(recover.New())
    app.Use(middleware.RequestID())
    app.Use(middleware.Audit(d.Logger))

    RegisterHealthRoutes(app, d)
    if d.Metrics != nil {
        app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
    }

    api := app.Group("/api/v1")
    api.Get("/ping", func(c *fiber.Ctx) error {
        return c.Status(http.StatusOK).JSON(fiber.Map{
            "status":     "ok",
            "request_id": middleware.RequestIDFrom(c),
            "timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    RegisterCommandRoutes(api, d.Commands, middleware.CommandRateLimit(d.Cache, d.Cfg.CommandsPerMinute))

    // Chat transports cannot send Idempotency-Key, so only the ledger API uses it.
    var writeMW []fiber.Handler
    if d.Cache != nil {
        writeMW = append(writeMW, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
    }
    h := betting.NewHandler(d.Betting)
    RegisterPlayerRoutes(api, h, writeMW...)
    RegisterMatchRoutes(api, h, writeMW...)

    return nil
}

func isDev(env string) bool {
    switch strings.ToLower(env) {
    case "dev", "development", "local", "test":
        return true
    default:
        return false
    }
}
