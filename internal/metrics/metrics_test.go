package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegisterAndExpose(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.MatchesOpened.Inc()
	m.OpenMatches.Set(1)
	m.Bets.WithLabelValues("accepted").Inc()
	m.Bets.WithLabelValues("insufficient_funds").Inc()
	m.StakedTotal.Add(100)
	m.Commands.WithLabelValues("bet", "ok").Inc()

	if got := testutil.ToFloat64(m.Bets.WithLabelValues("accepted")); got != 1 {
		t.Fatalf("expected 1 accepted bet, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"wagerbook_matches_opened_total 1",
		"wagerbook_open_matches 1",
		"wagerbook_staked_amount_total 100",
		`wagerbook_commands_total{command="bet",outcome="ok"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("expected %q in exposition:\n%s", name, body)
		}
	}
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	New(reg)
}
