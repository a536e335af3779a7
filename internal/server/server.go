package server

import (
    "context"
    "errors"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/wagerbook/wagerbook/internal/routes"
)

// Server wraps the Fiber application and the address it serves on.
type Server struct {
    app  *fiber.App
    addr string
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
    app := fiber.New(fiber.Config{
        AppName:               d.Cfg.AppName,
        ReadTimeout:           30 * time.Second,
        WriteTimeout:          30 * time.Second,
        DisableStartupMessage: true,
        ErrorHandler:          errorHandler,
    })

    if err := routes.Setup(app, d); err != nil {
        return nil, err
    }

    return &Server{app: app, addr: d.Cfg.Address()}, nil
}

// errorHandler renders every error as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
    code := fiber.StatusInternalServerError
    msg := "internal error"
    var fe *fiber.Error
    if errors.As(err, &fe) {
        code = fe.Code
        msg = fe.Message
    }
    return c.Status(code).JSON(fiber.Map{"error": msg})
}

// App exposes the underlying Fiber app for in-process tests.
func (s *Server) App() *fiber.App {
    return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
    return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
    return s.app.ShutdownWithContext(ctx)
}
