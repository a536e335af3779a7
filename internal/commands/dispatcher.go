package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wagerbook/wagerbook/internal/betting"
	"github.com/wagerbook/wagerbook/internal/ledger"
	"github.com/wagerbook/wagerbook/internal/metrics"
)

// Request is one chat message addressed to the bot.
type Request struct {
	UserID      int64
	DisplayName string
	Text        string
}

// Reply is the text sent back to the chat. Command is empty when the message
// was not a command.
type Reply struct {
	Command string
	Text    string
}

const (
	msgSaveFailed    = "Something went wrong saving that, please try again."
	msgInvalidMatch  = "Invalid match ID."
	msgMatchIDNumber = "Match ID must be a number."
	msgUnknown       = "Unknown command. Use /help to see available commands."
)

type handlerFunc func(ctx context.Context, req Request, args []string) string

// Dispatcher turns chat commands into ledger operations.
type Dispatcher struct {
	service  *betting.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	current  bool
	handlers map[string]handlerFunc
}

// NewDispatcher builds a dispatcher. In current-match mode /bet and
// /reportwinner act on the most recent match and take no match id.
func NewDispatcher(service *betting.Service, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{
		service: service,
		logger:  logger,
		metrics: m,
		current: service.SingleMatch(),
	}
	d.handlers = map[string]handlerFunc{
		"start":        d.start,
		"help":         d.help,
		"newmatch":     d.newMatch,
		"bet":          d.bet,
		"reportwinner": d.reportWinner,
		"leaderboard":  d.leaderboard,
		"balance":      d.balance,
		"matches":      d.matches,
	}
	return d
}

// Handle parses and runs one command. Plain text gets an empty reply.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Reply {
	name, args, ok := parse(req.Text)
	if !ok {
		return Reply{}
	}
	h, known := d.handlers[name]
	if !known {
		d.count("unknown", "unknown")
		return Reply{Command: name, Text: msgUnknown}
	}
	text := h(ctx, req, args)
	return Reply{Command: name, Text: text}
}

// parse splits "/cmd@bot a b" into ("cmd", [a b]).
func parse(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

func (d *Dispatcher) count(command, outcome string) {
	if d.metrics != nil {
		d.metrics.Commands.WithLabelValues(command, outcome).Inc()
	}
}

// failure maps unexpected errors to a generic reply.
func (d *Dispatcher) failure(command string, err error) string {
	d.count(command, "error")
	if !errors.Is(err, ledger.ErrPersistence) {
		d.logger.Error("command failed", slog.String("command", command), slog.Any("error", err))
	}
	return msgSaveFailed
}

func (d *Dispatcher) start(ctx context.Context, req Request, _ []string) string {
	res, err := d.service.StartPlayer(ctx, req.UserID, req.DisplayName)
	if err != nil {
		return d.failure("start", err)
	}
	d.count("start", "ok")
	name := res.DisplayName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Welcome %s! You have $%d virtual dollars. Use /newmatch name1 name2 to start a match.", name, res.Balance)
}

func (d *Dispatcher) help(_ context.Context, _ Request, _ []string) string {
	d.count("help", "ok")
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("/start - Start and get your balance\n")
	b.WriteString("/newmatch name1 name2 [odd1] [odd2] - Create a new match (odds optional)\n")
	if d.current {
		b.WriteString("/bet name amount - Place a bet on a fighter in the current match\n")
		b.WriteString("/reportwinner name - Report the winner of the current match\n")
	} else {
		b.WriteString("/bet match_id name amount - Place a bet on a fighter in a specific match\n")
		b.WriteString("/reportwinner match_id name - Report the winner for a specific match\n")
		b.WriteString("/matches - List open matches\n")
	}
	b.WriteString("/balance - Show your balance\n")
	b.WriteString("/leaderboard - Show the top balances\n")
	b.WriteString("/help - Show this help message")
	return b.String()
}

func (d *Dispatcher) newMatch(ctx context.Context, _ Request, args []string) string {
	if len(args) < 2 {
		d.count("newmatch", "usage")
		return "Usage: /newmatch name1 name2 [odd1] [odd2]"
	}
	input := betting.OpenMatchInput{Name1: args[0], Name2: args[1]}
	for i, dst := range []**decimal.Decimal{&input.Odds1, &input.Odds2} {
		if len(args) <= 2+i {
			break
		}
		v, err := decimal.NewFromString(args[2+i])
		if err != nil {
			d.count("newmatch", "bad_odds")
			return "Odds must be numbers."
		}
		*dst = &v
	}

	m, err := d.service.OpenMatch(ctx, input)
	switch {
	case err == nil:
	case errors.Is(err, betting.ErrInvalidOdds):
		d.count("newmatch", "bad_odds")
		return "Odds must be positive numbers."
	case errors.Is(err, ledger.ErrInvalidParticipant):
		d.count("newmatch", "rejected")
		return "Participant names must be two different names."
	case errors.Is(err, ledger.ErrMatchInProgress):
		d.count("newmatch", "rejected")
		return "A match is already in progress. Report its winner first."
	default:
		return d.failure("newmatch", err)
	}

	d.count("newmatch", "ok")
	a, b := m.Names[0], m.Names[1]
	hint := fmt.Sprintf("Use /bet %d [name] [amount] to place your bet.", m.ID)
	if d.current {
		hint = "Use /bet [name] [amount] to place your bet."
	}
	return fmt.Sprintf("✅ Match #%d created: %s (odds %s) vs %s (odds %s).\n%s",
		m.ID, a, m.Odds[a].String(), b, m.Odds[b].String(), hint)
}

// targetMatch resolves the match a /bet or /reportwinner refers to and
// returns the remaining arguments. A non-empty reply means stop.
func (d *Dispatcher) targetMatch(command string, args []string, want int, usage string) (int64, []string, string) {
	if d.current {
		if len(args) < want {
			d.count(command, "usage")
			return 0, nil, usage
		}
		m, err := d.service.CurrentMatch()
		if err != nil {
			d.count(command, "no_match")
			return 0, nil, "No active match. Start one with /newmatch."
		}
		return m.ID, args, ""
	}

	if len(args) < want+1 {
		d.count(command, "usage")
		return 0, nil, usage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		d.count(command, "usage")
		return 0, nil, msgMatchIDNumber
	}
	if _, err := d.service.Match(id); err != nil {
		d.count(command, "invalid_match")
		return 0, nil, msgInvalidMatch
	}
	return id, args[1:], ""
}

func (d *Dispatcher) bet(ctx context.Context, req Request, args []string) string {
	usage := "Usage: /bet match_id name amount"
	if d.current {
		usage = "Usage: /bet name amount"
	}
	matchID, rest, reply := d.targetMatch("bet", args, 2, usage)
	if reply != "" {
		return reply
	}
	name := rest[0]
	amount, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		d.count("bet", "usage")
		return "Amount must be a number."
	}

	r, err := d.service.PlaceBet(ctx, req.UserID, matchID, name, amount)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrInvalidMatch):
		d.count("bet", "invalid_match")
		return msgInvalidMatch
	case errors.Is(err, ledger.ErrInvalidAmount):
		d.count("bet", "rejected")
		return "Amount must be positive."
	case errors.Is(err, ledger.ErrInsufficientFunds):
		d.count("bet", "rejected")
		return "Not enough balance."
	case errors.Is(err, ledger.ErrInvalidParticipant):
		d.count("bet", "rejected")
		return fmt.Sprintf("%s is not in match #%d.", name, matchID)
	default:
		return d.failure("bet", err)
	}

	d.count("bet", "ok")
	return fmt.Sprintf("Bet placed on match #%d: $%d on %s at odds %s.", r.MatchID, r.Amount, r.Name, r.Odds.String())
}

func (d *Dispatcher) reportWinner(ctx context.Context, _ Request, args []string) string {
	usage := "Usage: /reportwinner match_id name"
	if d.current {
		usage = "Usage: /reportwinner name"
	}
	matchID, rest, reply := d.targetMatch("reportwinner", args, 1, usage)
	if reply != "" {
		return reply
	}

	_, err := d.service.ReportWinner(ctx, matchID, rest[0])
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrInvalidMatch):
		d.count("reportwinner", "invalid_match")
		return msgInvalidMatch
	case errors.Is(err, ledger.ErrInvalidParticipant):
		d.count("reportwinner", "rejected")
		return "Winner must be one of the match participants."
	case errors.Is(err, ledger.ErrPayoutOverflow):
		d.count("reportwinner", "rejected")
		return "Payouts are too large to settle. Check the match odds."
	default:
		return d.failure("reportwinner", err)
	}

	d.count("reportwinner", "ok")
	return fmt.Sprintf("Match #%d ended! Winner: %s. Payouts have been updated.", matchID, rest[0])
}

func (d *Dispatcher) leaderboard(ctx context.Context, _ Request, _ []string) string {
	entries, err := d.service.Leaderboard(ctx, 0)
	if err != nil {
		return d.failure("leaderboard", err)
	}
	d.count("leaderboard", "ok")
	if len(entries) == 0 {
		return "No players yet."
	}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s - $%d\n", e.Rank, e.DisplayName, e.Amount)
	}
	return b.String()
}

func (d *Dispatcher) balance(ctx context.Context, req Request, _ []string) string {
	amount, err := d.service.Balance(ctx, req.UserID)
	if err != nil {
		return d.failure("balance", err)
	}
	d.count("balance", "ok")
	return fmt.Sprintf("You have $%d virtual dollars.", amount)
}

func (d *Dispatcher) matches(_ context.Context, _ Request, _ []string) string {
	d.count("matches", "ok")
	active := d.service.ActiveMatches()
	if len(active) == 0 {
		return "No open matches."
	}
	var b strings.Builder
	b.WriteString("Open matches:\n")
	for _, m := range active {
		a, c := m.Names[0], m.Names[1]
		fmt.Fprintf(&b, "#%d: %s (odds %s) vs %s (odds %s)\n", m.ID, a, m.Odds[a].String(), c, m.Odds[c].String())
	}
	return b.String()
}
