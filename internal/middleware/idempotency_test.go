package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wagerbook/wagerbook/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	calls := 0
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/matches/:id/bets", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"balance": 1000 - 100*calls})
	})
	app.Post("/matches/:id/winner", func(c *fiber.Ctx) error {
		calls++
		return fiber.NewError(fiber.StatusServiceUnavailable, "ledger unavailable")
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, &calls, cleanup
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header.Get(replayedHeader)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _, cleanup := setupTestApp(t)
	defer cleanup()

	if status, _, _ := post(t, app, "/matches/1/bets", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReplaysBet(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, first, replayed := post(t, app, "/matches/1/bets", "abc123")
	if status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("first request: status %d replayed %q", status, replayed)
	}

	status, second, replayed := post(t, app, "/matches/1/bets", "abc123")
	if status != fiber.StatusCreated || replayed != "true" {
		t.Fatalf("second request: status %d replayed %q", status, replayed)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if *calls != 1 {
		t.Fatalf("handler should run once, ran %d times", *calls)
	}
}

func TestIdempotencyKeysScopedByPath(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, app, "/matches/1/bets", "same")
	post(t, app, "/matches/2/bets", "same")
	if *calls != 2 {
		t.Fatalf("expected both paths handled, got %d calls", *calls)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	for i := 0; i < 2; i++ {
		if status, _, _ := post(t, app, "/matches/1/winner", "retry-me"); status != fiber.StatusServiceUnavailable {
			t.Fatalf("attempt %d: expected 503, got %d", i, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("server errors should be retried, got %d calls", *calls)
	}
}
