// Package scripted provides a deterministic Adjudicator used by tests and
// by the server's mock mode.
package scripted

import (
	"context"
	"fmt"
	"sync"

	"coinquest/internal/app/ports"
	"coinquest/internal/domain/game"
)

type Adjudicator struct {
	// Script, when set, produces the verdict for each request. Nil falls
	// back to a verdict that pays every acting player a fixed reward.
	Script func(req ports.AdjudicationRequest) (game.Verdict, error)
	// Reward is the money granted per turn by the fallback script.
	// Zero means 1.
	Reward int

	mu    sync.Mutex
	turns int
}

func (a *Adjudicator) Adjudicate(ctx context.Context, req ports.AdjudicationRequest) (game.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return game.Verdict{}, err
	}
	a.mu.Lock()
	a.turns++
	a.mu.Unlock()
	if a.Script != nil {
		return a.Script(req)
	}
	reward := a.Reward
	if reward == 0 {
		reward = 1
	}
	v := game.Verdict{Narrative: fmt.Sprintf("turn %d resolves quietly", req.TurnNumber)}
	for uid := range req.Actions {
		v.Players = append(v.Players, game.PlayerDelta{UID: uid, MoneyChange: reward})
	}
	return v, nil
}

func (a *Adjudicator) GenerateTile(ctx context.Context, pos game.Position, worldRadius int) (game.Tile, error) {
	if err := ctx.Err(); err != nil {
		return game.Tile{}, err
	}
	return game.Tile{
		Position:    pos,
		Description: fmt.Sprintf("open plains at (%d,%d)", pos.X, pos.Y),
		Secrets:     []game.Secret{{Name: "buried coin", Value: 1}},
	}, nil
}

func (a *Adjudicator) Turns() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.turns
}
