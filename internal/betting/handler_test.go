package betting

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

func setupHandlerApp(t *testing.T) (*fiber.App, fixture) {
	t.Helper()
	f := newFixture(t, ledger.Options{})
	h := NewHandler(f.svc)
	app := fiber.New()
	app.Post("/players/:userId/start", h.StartPlayer)
	app.Get("/players/:userId/balance", h.Balance)
	app.Post("/matches", h.OpenMatch)
	app.Get("/matches", h.ListMatches)
	app.Get("/matches/:matchId", h.GetMatch)
	app.Post("/matches/:matchId/bets", h.PlaceBet)
	app.Post("/matches/:matchId/winner", h.ReportWinner)
	app.Get("/leaderboard", h.Leaderboard)
	return app, f
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func TestHandlerMatchLifecycle(t *testing.T) {
	app, _ := setupHandlerApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/players/5/start", `{"display_name":"Ana"}`)
	if status != fiber.StatusOK || body["balance"] != float64(1000) {
		t.Fatalf("start: status %d body %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/matches", `{"name1":"A","name2":"B","odds1":"2.0","odds2":1.5}`)
	if status != fiber.StatusCreated || body["id"] != float64(1) {
		t.Fatalf("open match: status %d body %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/matches/1/bets", `{"user_id":5,"name":"A","amount":100}`)
	if status != fiber.StatusCreated || body["balance"] != float64(900) {
		t.Fatalf("bet: status %d body %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/matches/1", "")
	if status != fiber.StatusOK || body["bet_count"] != float64(1) {
		t.Fatalf("get match: status %d body %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodPost, "/matches/1/winner", `{"name":"A"}`)
	if status != fiber.StatusOK || body["winner"] != "A" {
		t.Fatalf("winner: status %d body %v", status, body)
	}
	if _, leaked := body["total_paid"]; leaked {
		t.Fatalf("settlement response should not carry payouts: %v", body)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/players/5/balance", "")
	if status != fiber.StatusOK || body["balance"] != float64(1100) {
		t.Fatalf("balance: status %d body %v", status, body)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/matches/1/winner", `{"name":"A"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected settled match to be gone, got %d", status)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	app, f := setupHandlerApp(t)
	ledger.SeedBalance(f.ledger, 9, 50)

	if status, _ := doJSON(t, app, fiber.MethodPost, "/matches", `{"name1":"A","name2":"A"}`); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("duplicate names: expected 422, got %d", status)
	}
	if status, _ := doJSON(t, app, fiber.MethodPost, "/matches", `{"name1":"A","name2":"B"}`); status != fiber.StatusCreated {
		t.Fatalf("open match: expected 201, got %d", status)
	}

	cases := []struct {
		path string
		body string
		want int
	}{
		{"/matches/x/bets", `{"user_id":9,"name":"A","amount":10}`, fiber.StatusBadRequest},
		{"/matches/99/bets", `{"user_id":9,"name":"A","amount":10}`, fiber.StatusNotFound},
		{"/matches/1/bets", `{"name":"A","amount":10}`, fiber.StatusBadRequest},
		{"/matches/1/bets", `{"user_id":9,"name":"A","amount":0}`, fiber.StatusUnprocessableEntity},
		{"/matches/1/bets", `{"user_id":9,"name":"A","amount":100}`, fiber.StatusUnprocessableEntity},
		{"/matches/1/bets", `{"user_id":9,"name":"Z","amount":10}`, fiber.StatusUnprocessableEntity},
		{"/matches/1/winner", `{"name":"Z"}`, fiber.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if status, _ := doJSON(t, app, fiber.MethodPost, tc.path, tc.body); status != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.path, tc.body, tc.want, status)
		}
	}

	if status, _ := doJSON(t, app, fiber.MethodGet, "/players/404/balance", ""); status != fiber.StatusNotFound {
		t.Fatalf("unknown balance: expected 404, got %d", status)
	}
}

func TestHandlerLeaderboardLimit(t *testing.T) {
	app, f := setupHandlerApp(t)
	ledger.SeedBalance(f.ledger, 1, 50)
	ledger.SeedBalance(f.ledger, 2, 200)
	ledger.SeedBalance(f.ledger, 3, 75)

	req := httptest.NewRequest(fiber.MethodGet, "/leaderboard?limit=2", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	defer resp.Body.Close()
	var decoded struct {
		Leaderboard []struct {
			Rank    int   `json:"rank"`
			UserID  int64 `json:"user_id"`
			Balance int64 `json:"balance"`
		} `json:"leaderboard"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Leaderboard) != 2 || decoded.Leaderboard[0].Balance != 200 || decoded.Leaderboard[1].Balance != 75 {
		t.Fatalf("unexpected leaderboard: %+v", decoded.Leaderboard)
	}
}
