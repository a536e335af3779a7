package players

import (
    "context"
    "errors"
    "strings"
    "time"
)

const maxDisplayNameLen = 64

// Service manages the display-name directory.
type Service struct {
    repo Repository
}

// NewService creates a new player service.
func NewService(repo Repository) *Service {
    return &Service{repo: repo}
}

// Register records or refreshes the display name for a chat identity. An
// empty name keeps whatever is already stored.
func (s *Service) Register(ctx context.Context, id int64, displayName string) (Player, error) {
    name := strings.TrimSpace(displayName)
    if r := []rune(name); len(r) > maxDisplayNameLen {
        name = string(r[:maxDisplayNameLen])
    }

    existing, err := s.repo.FindByID(ctx, id)
    switch {
    case err == nil:
        if name == "" || name == existing.DisplayName {
            return existing, nil
        }
    case errors.Is(err, ErrNotFound):
        if name == "" {
            return Player{}, errors.New("display name is required")
        }
    default:
        return Player{}, err
    }

    now := time.Now().UTC()
    player := Player{ID: id, DisplayName: name, CreatedAt: now, UpdatedAt: now}
    if err := s.repo.Upsert(ctx, player); err != nil {
        return Player{}, err
    }
    if existing.ID == id {
        player.CreatedAt = existing.CreatedAt
    }
    return player, nil
}

// DisplayName resolves an identity to its display name.
func (s *Service) DisplayName(ctx context.Context, id int64) (string, error) {
    player, err := s.repo.FindByID(ctx, id)
    if err != nil {
        return "", err
    }
    return player.DisplayName, nil
}
