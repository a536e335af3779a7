package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// KindMatchOpened is emitted when a match is allocated.
	KindMatchOpened = "match_opened"
	// KindBetPlaced is emitted for every accepted bet.
	KindBetPlaced = "bet_placed"
	// KindMatchSettled is emitted after payouts are credited.
	KindMatchSettled = "match_settled"
)

// Message describes a ledger event. Body is a short human-readable summary and
// never carries other users' stakes or payouts.
type Message struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	MatchID     int64     `json:"match_id"`
	Destination string    `json:"destination,omitempty"`
	Body        string    `json:"body"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewMessage stamps a message with an id and time.
func NewMessage(kind string, matchID int64, destination, body string) Message {
	return Message{
		ID:          uuid.NewString(),
		Kind:        kind,
		MatchID:     matchID,
		Destination: destination,
		Body:        body,
		OccurredAt:  time.Now().UTC(),
	}
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("id", message.ID),
		slog.String("kind", message.Kind),
		slog.Int64("match_id", message.MatchID),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}

// Fanout sends every message to all notifiers and joins their errors.
type Fanout []Notifier

// Send delivers to each notifier even if an earlier one failed.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
