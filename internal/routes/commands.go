package routes

import (
    "net/http"
    "strings"

    "github.com/gofiber/fiber/v2"

    "github.com/wagerbook/wagerbook/internal/commands"
)

type commandRequest struct {
    UserID      int64  `json:"user_id"`
    DisplayName string `json:"display_name"`
    Text        string `json:"text"`
}

// RegisterCommandRoutes wires the chat webhook. Each message is run through
// the dispatcher and the reply text returned for the transport to post.
func RegisterCommandRoutes(r fiber.Router, d *commands.Dispatcher, limiter fiber.Handler) {
    r.Post("/commands", limiter, func(c *fiber.Ctx) error {
        var req commandRequest
        if err := c.BodyParser(&req); err != nil {
            return fiber.NewError(http.StatusBadRequest, err.Error())
        }
        if req.UserID == 0 {
            return fiber.NewError(http.StatusBadRequest, "user_id is required")
        }
        reply := d.Handle(c.UserContext(), commands.Request{
            UserID:      req.UserID,
            DisplayName: strings.TrimSpace(req.DisplayName),
            Text:        req.Text,
        })
        return c.JSON(fiber.Map{"command": reply.Command, "reply": reply.Text})
    })
}
