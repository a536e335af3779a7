package betting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wagerbook/wagerbook/internal/leaderboard"
	"github.com/wagerbook/wagerbook/internal/ledger"
	"github.com/wagerbook/wagerbook/internal/metrics"
	"github.com/wagerbook/wagerbook/internal/notification"
	"github.com/wagerbook/wagerbook/internal/players"
)

// ErrInvalidOdds is returned for odds that are not strictly positive.
var ErrInvalidOdds = errors.New("invalid odds")

var (
	minDefaultOdds = decimal.RequireFromString("1.2")
	maxDefaultOdds = decimal.RequireFromString("3.0")
)

// OddsSource yields odds for a participant when none are supplied.
type OddsSource func() decimal.Decimal

// RandomOdds draws uniformly from [1.2, 3.0] and rounds to two places.
func RandomOdds() decimal.Decimal {
	span := maxDefaultOdds.Sub(minDefaultOdds)
	return minDefaultOdds.Add(span.Mul(decimal.NewFromFloat(rand.Float64()))).Round(2)
}

// Service fronts the ledger for the command and HTTP adapters. It fills in
// default odds and reports every outcome to logs, metrics and notifiers.
type Service struct {
	ledger   *ledger.Ledger
	players  *players.Service
	board    *leaderboard.Service
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	odds     OddsSource
}

// Option customises a Service.
type Option func(*Service)

// WithOddsSource replaces RandomOdds.
func WithOddsSource(src OddsSource) Option {
	return func(s *Service) { s.odds = src }
}

// WithNotifier sets the event notifier.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the betting facade.
func NewService(l *ledger.Ledger, playerSvc *players.Service, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		ledger:  l,
		players: playerSvc,
		logger:  logger,
		odds:    RandomOdds,
	}
	for _, opt := range opts {
		opt(s)
	}
	var resolver leaderboard.NameResolver
	if playerSvc != nil {
		resolver = playerSvc
	}
	s.board = leaderboard.NewService(l, resolver, logger)
	return s
}

// SingleMatch reports whether the ledger runs in current-match mode.
func (s *Service) SingleMatch() bool {
	return s.ledger.Options().SingleMatch
}

// StartResult is the outcome of a user's first (or repeated) start.
type StartResult struct {
	UserID      int64
	DisplayName string
	Balance     int64
}

// StartPlayer records the display name and makes sure the user has a balance.
// A failing name directory does not block the start.
func (s *Service) StartPlayer(ctx context.Context, userID int64, displayName string) (StartResult, error) {
	res := StartResult{UserID: userID, DisplayName: displayName}
	if s.players != nil && displayName != "" {
		p, err := s.players.Register(ctx, userID, displayName)
		if err != nil {
			s.logger.Warn("register display name failed", slog.Int64("user_id", userID), slog.Any("error", err))
		} else {
			res.DisplayName = p.DisplayName
		}
	}
	balance, err := s.ledger.EnsureUser(ctx, userID)
	if err != nil {
		s.persistenceFailed("start", err)
		return StartResult{}, err
	}
	res.Balance = balance
	return res, nil
}

// Balance initialises the user on first contact and returns their balance.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.ledger.EnsureUser(ctx, userID)
	if err != nil {
		s.persistenceFailed("balance", err)
		return 0, err
	}
	return balance, nil
}

// LookupBalance reads a balance without initialising it.
func (s *Service) LookupBalance(userID int64) (int64, error) {
	balance, ok := s.ledger.Balance(userID)
	if !ok {
		return 0, ledger.ErrNotFound
	}
	return balance, nil
}

// OpenMatchInput describes a new match. Nil odds are drawn from the odds source.
type OpenMatchInput struct {
	Name1 string
	Name2 string
	Odds1 *decimal.Decimal
	Odds2 *decimal.Decimal
}

// OpenMatch allocates a new match.
func (s *Service) OpenMatch(ctx context.Context, input OpenMatchInput) (ledger.Match, error) {
	odds1, err := s.oddsOrDefault(input.Odds1)
	if err != nil {
		return ledger.Match{}, err
	}
	odds2, err := s.oddsOrDefault(input.Odds2)
	if err != nil {
		return ledger.Match{}, err
	}

	m, err := s.ledger.OpenMatch(ctx, input.Name1, input.Name2, odds1, odds2)
	if err != nil {
		s.persistenceFailed("open_match", err)
		return ledger.Match{}, err
	}

	s.logger.Info("match opened",
		slog.Int64("match_id", m.ID),
		slog.String("name1", m.Names[0]),
		slog.String("name2", m.Names[1]),
	)
	if s.metrics != nil {
		s.metrics.MatchesOpened.Inc()
		s.metrics.OpenMatches.Set(float64(len(s.ledger.ActiveMatches())))
	}
	s.notify(ctx, notification.NewMessage(notification.KindMatchOpened, m.ID, "",
		fmt.Sprintf("Match #%d created: %s vs %s", m.ID, m.Names[0], m.Names[1])))
	return m, nil
}

func (s *Service) oddsOrDefault(v *decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return s.odds(), nil
	}
	if !v.IsPositive() {
		return decimal.Decimal{}, ErrInvalidOdds
	}
	return *v, nil
}

// Match returns an open match.
func (s *Service) Match(matchID int64) (ledger.Match, error) {
	return s.ledger.Match(matchID)
}

// CurrentMatch returns the most recent match while it is still open.
func (s *Service) CurrentMatch() (ledger.Match, error) {
	return s.ledger.CurrentMatch()
}

// ActiveMatches lists open matches.
func (s *Service) ActiveMatches() []ledger.Match {
	return s.ledger.ActiveMatches()
}

// PlaceBet stakes amount on name in the given match.
func (s *Service) PlaceBet(ctx context.Context, userID, matchID int64, name string, amount int64) (ledger.Receipt, error) {
	receipt, err := s.ledger.PlaceBet(ctx, userID, matchID, name, amount)
	if s.metrics != nil {
		s.metrics.Bets.WithLabelValues(Outcome(err)).Inc()
	}
	if err != nil {
		s.persistenceFailed("bet", err)
		return ledger.Receipt{}, err
	}

	attrs := []any{
		slog.Int64("match_id", matchID),
		slog.Int64("user_id", userID),
		slog.String("name", name),
		slog.Int64("amount", amount),
	}
	if receipt.Replaced != nil {
		attrs = append(attrs, slog.Int64("replaced_amount", receipt.Replaced.Amount))
	}
	s.logger.Info("bet placed", attrs...)
	if s.metrics != nil {
		s.metrics.StakedTotal.Add(float64(amount))
	}
	s.notify(ctx, notification.NewMessage(notification.KindBetPlaced, matchID, strconv.FormatInt(userID, 10),
		fmt.Sprintf("Bet placed on match #%d: $%d on %s at odds %s.", matchID, amount, name, receipt.Odds.String())))
	return receipt, nil
}

// ReportWinner settles a match.
func (s *Service) ReportWinner(ctx context.Context, matchID int64, winner string) (ledger.Settlement, error) {
	settlement, err := s.ledger.ReportWinner(ctx, matchID, winner)
	if err != nil {
		s.persistenceFailed("report_winner", err)
		return ledger.Settlement{}, err
	}

	s.logger.Info("match settled",
		slog.Int64("match_id", matchID),
		slog.String("winner", winner),
		slog.Int("winning_bets", settlement.WinningBets),
		slog.Int64("total_paid", settlement.TotalPaid),
	)
	if s.metrics != nil {
		s.metrics.MatchesSettled.Inc()
		s.metrics.PaidOutTotal.Add(float64(settlement.TotalPaid))
		s.metrics.OpenMatches.Set(float64(len(s.ledger.ActiveMatches())))
	}
	s.notify(ctx, notification.NewMessage(notification.KindMatchSettled, matchID, "",
		fmt.Sprintf("Match #%d ended! Winner: %s.", matchID, winner)))
	return settlement, nil
}

// Leaderboard returns the top n balances with display names.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	return s.board.Top(ctx, n)
}

// Outcome is the metrics label for a bet attempt.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ledger.ErrInvalidMatch):
		return "invalid_match"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInvalidParticipant):
		return "invalid_participant"
	case errors.Is(err, ledger.ErrPersistence):
		return "persistence_failure"
	default:
		return "error"
	}
}

func (s *Service) persistenceFailed(op string, err error) {
	if !errors.Is(err, ledger.ErrPersistence) {
		return
	}
	s.logger.Error("ledger write failed", slog.String("op", op), slog.Any("error", err))
	if s.metrics != nil {
		s.metrics.PersistenceFailures.Inc()
	}
}

// notify never fails the caller; the ledger change is already durable.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Int64("match_id", msg.MatchID), slog.Any("error", err))
	}
}
