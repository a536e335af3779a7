package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/wagerbook/wagerbook/internal/betting"
)

// RegisterPlayerRoutes wires player start and balance endpoints. writeMW runs
// before handlers that change the ledger.
func RegisterPlayerRoutes(r fiber.Router, h *betting.Handler, writeMW ...fiber.Handler) {
    r.Post("/players/:userId/start", withMW(writeMW, h.StartPlayer)...)
    r.Get("/players/:userId/balance", h.Balance)
}

// RegisterMatchRoutes wires match lifecycle and leaderboard endpoints.
func RegisterMatchRoutes(r fiber.Router, h *betting.Handler, writeMW ...fiber.Handler) {
    r.Post("/matches", withMW(writeMW, h.OpenMatch)...)
    r.Get("/matches", h.ListMatches)
    r.Get("/matches/:matchId", h.GetMatch)
    r.Post("/matches/:matchId/bets", withMW(writeMW, h.PlaceBet)...)
    r.Post("/matches/:matchId/winner", withMW(writeMW, h.ReportWinner)...)
    r.Get("/leaderboard", h.Leaderboard)
}

func withMW(mw []fiber.Handler, h fiber.Handler) []fiber.Handler {
    out := make([]fiber.Handler, 0, len(mw)+1)
    out = append(out, mw...)
    return append(out, h)
}
