package players

import (
    "context"
    "sync"
)

type memoryRepository struct {
    mu      sync.RWMutex
    players map[int64]Player
}

// NewMemoryRepository builds an in-memory player directory.
func NewMemoryRepository() Repository {
    return &memoryRepository{players: make(map[int64]Player)}
}

func (r *memoryRepository) Upsert(_ context.Context, player Player) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if existing, ok := r.players[player.ID]; ok {
        player.CreatedAt = existing.CreatedAt
    }
    r.players[player.ID] = player
    return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (Player, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    player, ok := r.players[id]
    if !ok {
        return Player{}, ErrNotFound
    }
    return player, nil
}
