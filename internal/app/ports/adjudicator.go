package ports

import (
	"context"

	"coinquest/internal/domain/game"
)

// AdjudicationRequest carries the complete action set plus the state the
// referee needs to score it. No verdict is requested on a partial set.
type AdjudicationRequest struct {
	Players        map[string]game.Player `json:"players"`
	Tiles          []game.Tile            `json:"tiles"`
	Actions        map[string]string      `json:"actions"`
	PriorNarrative string                 `json:"prior_narrative"`
	TurnNumber     int                    `json:"turn_number"`
}

type Adjudicator interface {
	Adjudicate(ctx context.Context, req AdjudicationRequest) (game.Verdict, error)
	// GenerateTile is used only during world generation.
	GenerateTile(ctx context.Context, pos game.Position, worldRadius int) (game.Tile, error)
}
