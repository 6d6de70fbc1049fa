package engine

import (
	"time"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

// PlayerConfig seeds one player. Position nil means a random unoccupied
// in-bounds tile. AgentID addresses the backing agent; UID is the stable
// in-game identity.
type PlayerConfig struct {
	UID            string
	AgentID        string
	Model          string
	Position       *game.Position
	StartingMoney  int
	StartingHealth int
}

type Config struct {
	GameID       string
	Name         string
	WorldRadius  int
	VisionRadius int
	Rules        game.Rules
	Players      []PlayerConfig

	// ActionTimeout bounds each agent request; expiry becomes a no-op
	// action, never a failed turn.
	ActionTimeout time.Duration
	// AdjudicateRetries is the number of retries after the first failed
	// adjudication call before the game moves to the error state.
	AdjudicateRetries int
	AdjudicateBackoff time.Duration

	Seed int64
}

// Result summarizes a finished run.
type Result struct {
	GameID      string
	Status      game.Status
	Winner      string
	TurnsPlayed int
	Reason      string
	FinalStats  map[string]ports.PlayerStats
	LastActions map[string]string
}
