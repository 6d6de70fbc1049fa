package memory

import (
	"sync"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

// Store backs the in-memory repository adapters. One mutex covers every
// table so the TxManager can hand out a consistent view.
type Store struct {
	mu    sync.Mutex
	games map[string]ports.GameSummary
	turns map[string][]game.Turn
}

func NewStore() *Store {
	return &Store{
		games: map[string]ports.GameSummary{},
		turns: map[string][]game.Turn{},
	}
}
