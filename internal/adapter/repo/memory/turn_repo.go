package memory

import (
	"context"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

type TurnRepo struct {
	store *Store
}

func NewTurnRepo(store *Store) TurnRepo {
	return TurnRepo{store: store}
}

func (r TurnRepo) Append(_ context.Context, turn game.Turn) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.turns[turn.GameID] {
		if t.Number == turn.Number {
			return ports.ErrConflict
		}
	}
	r.store.turns[turn.GameID] = append(r.store.turns[turn.GameID], turn)
	return nil
}

func (r TurnRepo) Latest(_ context.Context, gameID string) (game.Turn, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	best := -1
	var out game.Turn
	for _, t := range r.store.turns[gameID] {
		if t.Number > best {
			best = t.Number
			out = t
		}
	}
	if best < 0 {
		return game.Turn{}, ports.ErrNotFound
	}
	return out, nil
}

func (r TurnRepo) GetByNumber(_ context.Context, gameID string, number int) (game.Turn, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.turns[gameID] {
		if t.Number == number {
			return t, nil
		}
	}
	return game.Turn{}, ports.ErrNotFound
}
