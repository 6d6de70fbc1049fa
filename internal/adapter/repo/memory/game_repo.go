package memory

import (
	"context"

	"coinquest/internal/app/ports"
)

type GameRepo struct {
	store *Store
}

func NewGameRepo(store *Store) GameRepo {
	return GameRepo{store: store}
}

func (r GameRepo) Save(_ context.Context, summary ports.GameSummary) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.games[summary.ID] = summary
	return nil
}

func (r GameRepo) GetByID(_ context.Context, gameID string) (ports.GameSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	summary, ok := r.store.games[gameID]
	if !ok {
		return ports.GameSummary{}, ports.ErrNotFound
	}
	return summary, nil
}
