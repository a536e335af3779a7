package betting

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a betting handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type startRequest struct {
	DisplayName string `json:"display_name"`
}

type openMatchRequest struct {
	Name1 string           `json:"name1"`
	Name2 string           `json:"name2"`
	Odds1 *decimal.Decimal `json:"odds1"`
	Odds2 *decimal.Decimal `json:"odds2"`
}

type betRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type winnerRequest struct {
	Name string `json:"name"`
}

type matchView struct {
	ID       int64                      `json:"id"`
	Names    [2]string                  `json:"names"`
	Odds     map[string]decimal.Decimal `json:"odds"`
	BetCount int                        `json:"bet_count"`
}

func viewOf(m ledger.Match) matchView {
	return matchView{ID: m.ID, Names: m.Names, Odds: m.Odds, BetCount: len(m.Bets)}
}

// StartPlayer registers the caller and returns their balance.
func (h *Handler) StartPlayer(c *fiber.Ctx) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	var req startRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	res, err := h.service.StartPlayer(c.UserContext(), userID, req.DisplayName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"user_id":      res.UserID,
		"display_name": res.DisplayName,
		"balance":      res.Balance,
	})
}

// Balance returns a known user's balance without initialising it.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	balance, err := h.service.LookupBalance(userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "balance": balance})
}

// OpenMatch creates a match.
func (h *Handler) OpenMatch(c *fiber.Ctx) error {
	var req openMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	m, err := h.service.OpenMatch(c.UserContext(), OpenMatchInput{
		Name1: req.Name1,
		Name2: req.Name2,
		Odds1: req.Odds1,
		Odds2: req.Odds2,
	})
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(viewOf(m))
}

// ListMatches returns the open matches.
func (h *Handler) ListMatches(c *fiber.Ctx) error {
	active := h.service.ActiveMatches()
	out := make([]matchView, 0, len(active))
	for _, m := range active {
		out = append(out, viewOf(m))
	}
	return c.JSON(fiber.Map{"matches": out})
}

// GetMatch returns one open match.
func (h *Handler) GetMatch(c *fiber.Ctx) error {
	matchID, err := pathID(c, "matchId")
	if err != nil {
		return err
	}
	m, err := h.service.Match(matchID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(viewOf(m))
}

// PlaceBet stakes on a participant.
func (h *Handler) PlaceBet(c *fiber.Ctx) error {
	matchID, err := pathID(c, "matchId")
	if err != nil {
		return err
	}
	var req betRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == 0 {
		return fiber.NewError(http.StatusBadRequest, "user_id is required")
	}
	r, err := h.service.PlaceBet(c.UserContext(), req.UserID, matchID, req.Name, req.Amount)
	if err != nil {
		return httpError(err)
	}
	body := fiber.Map{
		"match_id": r.MatchID,
		"user_id":  r.UserID,
		"name":     r.Name,
		"amount":   r.Amount,
		"odds":     r.Odds,
		"balance":  r.Balance,
	}
	if r.Replaced != nil {
		body["replaced_amount"] = r.Replaced.Amount
	}
	return c.Status(http.StatusCreated).JSON(body)
}

// ReportWinner settles a match. Individual payouts stay private.
func (h *Handler) ReportWinner(c *fiber.Ctx) error {
	matchID, err := pathID(c, "matchId")
	if err != nil {
		return err
	}
	var req winnerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.service.ReportWinner(c.UserContext(), matchID, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"match_id": s.MatchID, "winner": s.Winner})
}

// Leaderboard returns the top balances.
func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	entries, err := h.service.Leaderboard(c.UserContext(), limit)
	if err != nil {
		return httpError(err)
	}
	rows := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fiber.Map{
			"rank":         e.Rank,
			"user_id":      e.UserID,
			"display_name": e.DisplayName,
			"balance":      e.Amount,
		})
	}
	return c.JSON(fiber.Map{"leaderboard": rows})
}

func pathID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, param+" must be a number")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidMatch), errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrNoActiveMatch):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidParticipant),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrPayoutOverflow),
		errors.Is(err, ErrInvalidOdds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrMatchInProgress):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrPersistence):
		return fiber.NewError(http.StatusServiceUnavailable, "ledger unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
