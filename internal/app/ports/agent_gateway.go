package ports

import (
	"context"

	"coinquest/internal/domain/game"
)

// TurnContext is everything one player agent may see before acting: its own
// record, the tiles within its vision (secrets stripped), and a short summary
// of the previous verdict.
type TurnContext struct {
	UID            string        `json:"uid"`
	Stats          game.Values   `json:"stats"`
	Position       game.Position `json:"position"`
	VisibleTiles   []game.Tile   `json:"visible_tiles"`
	PriorVerdict   string        `json:"prior_verdict_summary"`
	TurnNumber     int           `json:"turn_number"`
	CurrencyGoal   int           `json:"currency_goal"`
	TurnsRemaining int           `json:"turns_remaining"`
}

// AgentGateway is the uniform capability surface over every agent kind; the
// engine never branches on a concrete agent implementation.
type AgentGateway interface {
	RequestAction(ctx context.Context, agentID string, tc TurnContext) (string, error)
	Reset(ctx context.Context) error
}
